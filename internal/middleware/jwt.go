package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskpro/backend/internal/auth"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/apperr"
	"github.com/taskpro/backend/pkg/response"
)

// ContextPrincipal is the gin context key holding the caller's models.Principal.
const ContextPrincipal = "principal"

// Authenticator resolves a bearer token to the caller's current identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Principal, error)
}

// JWT returns a middleware that authenticates the bearer token and stores the principal in context.
func JWT(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, auth.ErrMissingToken)
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Abort(c, apperr.New(apperr.Unauthenticated, "invalid authorization header"))
			return
		}
		principal, err := authn.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			response.Abort(c, err)
			return
		}
		c.Set(ContextPrincipal, principal)
		c.Next()
	}
}

// Principal returns the authenticated caller, if any.
func Principal(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

// MustPrincipal returns the authenticated caller. Only call behind JWT.
func MustPrincipal(c *gin.Context) models.Principal {
	return c.MustGet(ContextPrincipal).(models.Principal)
}
