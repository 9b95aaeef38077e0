package http

import "github.com/taskforge-app/taskforge-backend/internal/tasks/service"

// Handler bundles the dependencies for task HTTP endpoints.
type Handler struct {
	svc *service.TaskService
}

func New(svc *service.TaskService) *Handler {
	return &Handler{svc: svc}
}

type createReq struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    int     `json:"priority"`
	SprintID    *int64  `json:"sprint_id"`
	ParentID    *int64  `json:"parent_id"`
	AssignedTo  *int64  `json:"assigned_to"`
	DueDate     *string `json:"due_date"`
}

// updateReq distinguishes "leave alone" (field absent) from "set to null"
// (explicit clear flags), mirroring the partial-update contract.
type updateReq struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Status        *string `json:"status"`
	Priority      *int    `json:"priority"`
	AssignedTo    *int64  `json:"assigned_to"`
	ClearAssignee bool    `json:"clear_assignee"`
	SprintID      *int64  `json:"sprint_id"`
	ClearSprint   bool    `json:"clear_sprint"`
	DueDate       *string `json:"due_date"`
	ClearDue      bool    `json:"clear_due_date"`
}
