package auth

import "github.com/gin-gonic/gin"

const ctxUserID = "user_id"

// SetUserID stores the authenticated actor id in the Gin context.
// Set by the bearer middleware.
func SetUserID(c *gin.Context, id int64) {
	c.Set(ctxUserID, id)
}

// CurrentUserID extracts the authenticated actor id from the Gin context.
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
