package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskforge-app/taskforge-backend/internal/api/httperr"
	"github.com/taskforge-app/taskforge-backend/internal/auth"
	"github.com/taskforge-app/taskforge-backend/internal/projects/domain"
	"github.com/taskforge-app/taskforge-backend/internal/projects/repository"
	"github.com/taskforge-app/taskforge-backend/internal/projects/service"
)

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	userID, _ := auth.CurrentUserID(c)
	p, err := h.projects.Create(c.Request.Context(), service.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
	}, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) list(c *gin.Context) {
	userID, _ := auth.CurrentUserID(c)

	var filter repository.ProjectFilter
	if s := c.Query("status"); s != "" {
		status, ok := domain.ParseProjectStatus(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = &status
	}
	filter.Search = c.Query("search")
	filter.SortBy = c.DefaultQuery("sort_by", "created_at")
	filter.Order = c.DefaultQuery("order", "desc")

	page, err := h.projects.ListForUser(c.Request.Context(), userID, filter, PageParams(c))
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) detail(c *gin.Context) {
	id, ok := PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	userID, _ := auth.CurrentUserID(c)
	p, err := h.projects.Detail(c.Request.Context(), id, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	in := service.UpdateProjectInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		status, ok := domain.ParseProjectStatus(*req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		in.Status = &status
	}

	userID, _ := auth.CurrentUserID(c)
	p, err := h.projects.Update(c.Request.Context(), id, in, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	userID, _ := auth.CurrentUserID(c)
	if err := h.projects.Delete(c.Request.Context(), id, userID); err != nil {
		httperr.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) history(c *gin.Context) {
	id, ok := PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	userID, _ := auth.CurrentUserID(c)
	records, err := h.projects.History(c.Request.Context(), id, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": records})
}

func (h *Handler) listMembers(c *gin.Context) {
	id, ok := PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	userID, _ := auth.CurrentUserID(c)
	members, err := h.members.ListMembers(c.Request.Context(), id, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": members})
}

func (h *Handler) addMember(c *gin.Context) {
	id, ok := PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req addMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	actorID, _ := auth.CurrentUserID(c)
	m, err := h.members.AddMember(c.Request.Context(), id, req.UserID, role, actorID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) removeMember(c *gin.Context) {
	projectID, ok := PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	userID, ok := PathID(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	actorID, _ := auth.CurrentUserID(c)
	if err := h.members.RemoveMember(c.Request.Context(), projectID, userID, actorID); err != nil {
		httperr.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
