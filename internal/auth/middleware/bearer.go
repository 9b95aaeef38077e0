package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskforge-app/taskforge-backend/internal/auth"
)

// ActorResolver maps a bearer access token to a user id.
type ActorResolver interface {
	ResolveActor(token string) (int64, error)
}

// BearerAuth validates the Authorization header and puts the actor id in the
// request context. Handlers behind it can assume an authenticated user.
func BearerAuth(resolver ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		userID, err := resolver.ResolveActor(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		auth.SetUserID(c, userID)
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header.
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
