// Package httperr maps the error taxonomy onto HTTP responses so every
// handler reports failures the same way.
package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskforge-app/taskforge-backend/internal/apperr"
)

func Status(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindPermissionDenied:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidArgument:
		return http.StatusBadRequest
	case apperr.KindTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Write(c *gin.Context, err error) {
	status := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Do not leak driver details to clients.
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}
