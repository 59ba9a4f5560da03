package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/taskpro/backend/internal/auth"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := Principal(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !auth.Authorize(roles, p.Role) {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
