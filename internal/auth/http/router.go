package http

import "github.com/gin-gonic/gin"

// Register attaches auth routes to the given router group. login may carry an
// extra rate-limit middleware.
func (h *Handler) Register(rg *gin.RouterGroup, loginMiddleware ...gin.HandlerFunc) {
	rg.POST("/register", h.register)

	login := append([]gin.HandlerFunc{}, loginMiddleware...)
	login = append(login, h.login)
	rg.POST("/login", login...)

	rg.POST("/refresh", h.refresh)
	rg.POST("/logout", h.logout)
}
