package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskforge-app/taskforge-backend/internal/api/httperr"
	"github.com/taskforge-app/taskforge-backend/internal/auth"
	projecthttp "github.com/taskforge-app/taskforge-backend/internal/projects/http"
	"github.com/taskforge-app/taskforge-backend/internal/tasks/domain"
	"github.com/taskforge-app/taskforge-backend/internal/tasks/repository"
	"github.com/taskforge-app/taskforge-backend/internal/tasks/service"
)

const dateLayout = "2006-01-02"

func parseDue(s *string) (*time.Time, bool) {
	if s == nil {
		return nil, true
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

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

	in := service.CreateTaskInput{
		ProjectID:   projectID,
		SprintID:    req.SprintID,
		ParentID:    req.ParentID,
		AssignedTo:  req.AssignedTo,
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != "" {
		status, ok := domain.ParseTaskStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		in.Status = status
	}
	if req.Priority != 0 {
		p := domain.Priority(req.Priority)
		if !p.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
			return
		}
		in.Priority = p
	}
	due, ok := parseDue(req.DueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date"})
		return
	}
	in.DueDate = due

	userID, _ := auth.CurrentUserID(c)
	t, err := h.svc.Create(c.Request.Context(), in, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) listForProject(c *gin.Context) {
	projectID, ok := projecthttp.PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var filter repository.TaskFilter
	if s := c.Query("status"); s != "" {
		status, ok := domain.ParseTaskStatus(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = &status
	}
	if s := c.Query("priority"); s != "" {
		n, err := strconv.Atoi(s)
		p := domain.Priority(n)
		if err != nil || !p.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
			return
		}
		filter.Priority = &p
	}
	if s := c.Query("assigned_to"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assigned_to"})
			return
		}
		filter.AssignedTo = &id
	}
	if s := c.Query("sprint_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sprint_id"})
			return
		}
		filter.SprintID = &id
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
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	userID, _ := auth.CurrentUserID(c)
	t, err := h.svc.Detail(c.Request.Context(), id, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := projecthttp.PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	in := service.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		AssignedTo:    req.AssignedTo,
		ClearAssignee: req.ClearAssignee,
		SprintID:      req.SprintID,
		ClearSprint:   req.ClearSprint,
		ClearDue:      req.ClearDue,
	}
	if req.Status != nil {
		status, ok := domain.ParseTaskStatus(*req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		in.Status = &status
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		if !p.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
			return
		}
		in.Priority = &p
	}
	due, ok := parseDue(req.DueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date"})
		return
	}
	in.DueDate = due

	userID, _ := auth.CurrentUserID(c)
	t, err := h.svc.Update(c.Request.Context(), id, in, userID)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := projecthttp.PathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
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
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
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
