package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskforge-app/taskforge-backend/internal/api/httperr"
	"github.com/taskforge-app/taskforge-backend/internal/auth"
	projecthttp "github.com/taskforge-app/taskforge-backend/internal/projects/http"
	"github.com/taskforge-app/taskforge-backend/internal/sprints/domain"
	"github.com/taskforge-app/taskforge-backend/internal/sprints/repository"
	"github.com/taskforge-app/taskforge-backend/internal/sprints/service"
)

const dateLayout = "2006-01-02"

func (h *Handler) createForProject(c *gin.Context) {
	projectID, ok := projecthttp.PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}

	userID, _ := auth.CurrentUserID(c)
	sp, err := h.svc.Create(c.Request.Context(), service.CreateSprintInput{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
	}, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, sp)
}

func (h *Handler) listForProject(c *gin.Context) {
	projectID, ok := projecthttp.PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var filter repository.SprintFilter
	if s := c.Query("status"); s != "" {
		status, ok := domain.ParseSprintStatus(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = &status
	}
	filter.Search = c.Query("search")
	filter.SortBy = c.DefaultQuery("sort_by", "created_at")
	filter.Order = c.DefaultQuery("order", "desc")

	userID, _ := auth.CurrentUserID(c)
	page, err := h.svc.ListForProject(c.Request.Context(), projectID, userID, filter, projecthttp.PageParams(c))
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) detail(c *gin.Context) {
	id, ok := projecthttp.PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sprint id"})
		return
	}

	userID, _ := auth.CurrentUserID(c)
	sp, err := h.svc.Detail(c.Request.Context(), id, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := projecthttp.PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sprint id"})
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	in := service.UpdateSprintInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		status, ok := domain.ParseSprintStatus(*req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		in.Status = &status
	}
	if req.StartDate != nil {
		start, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
			return
		}
		in.StartDate = &start
	}
	if req.EndDate != nil {
		end, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
			return
		}
		in.EndDate = &end
	}

	userID, _ := auth.CurrentUserID(c)
	sp, err := h.svc.Update(c.Request.Context(), id, in, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := projecthttp.PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sprint id"})
		return
	}

	userID, _ := auth.CurrentUserID(c)
	if err := h.svc.Delete(c.Request.Context(), id, userID); err != nil {
		httperr.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) history(c *gin.Context) {
	id, ok := projecthttp.PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sprint id"})
		return
	}

	userID, _ := auth.CurrentUserID(c)
	records, err := h.svc.History(c.Request.Context(), id, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": records})
}
