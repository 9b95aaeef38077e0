package http

import "github.com/taskforge-app/taskforge-backend/internal/sprints/service"

// Handler bundles the dependencies for sprint HTTP endpoints.
type Handler struct {
	svc *service.SprintService
}

func New(svc *service.SprintService) *Handler {
	return &Handler{svc: svc}
}

type createReq struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
}

type updateReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
}
