package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/designday-guide/backend/internal/auth"
	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := auth.RequireRole(IdentityFrom(c), roles...)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, auth.ErrUnauthenticated):
			response.Unauthorized(c, err.Error())
			c.Abort()
		default:
			response.Forbidden(c, err.Error())
			c.Abort()
		}
	}
}
