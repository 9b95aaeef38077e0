package http

import "github.com/gin-gonic/gin"

// Register attaches sprint detail routes.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/:id", h.detail)
	rg.PATCH("/:id", h.update)
	rg.DELETE("/:id", h.delete)
	rg.GET("/:id/history", h.history)
}

// RegisterProjectSubroutes attaches the project-scoped list/create routes to
// the projects group.
func (h *Handler) RegisterProjectSubroutes(projects *gin.RouterGroup) {
	projects.GET("/:id/sprints", h.listForProject)
	projects.POST("/:id/sprints", h.createForProject)
}
