package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taskforge-app/taskforge-backend/internal/pagination"
	"github.com/taskforge-app/taskforge-backend/internal/projects/service"
)

// Handler bundles the dependencies for project HTTP endpoints.
type Handler struct {
	projects *service.ProjectService
	members  *service.MemberService
}

func New(projects *service.ProjectService, members *service.MemberService) *Handler {
	return &Handler{projects: projects, members: members}
}

type createReq struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type updateReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type addMemberReq struct {
	UserID int64  `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// PageParams reads the shared page/page_size query parameters.
func PageParams(c *gin.Context) pagination.Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return pagination.Params{Page: page, PageSize: size}.Normalize()
}

// PathID parses a path parameter as an int64 id.
func PathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
