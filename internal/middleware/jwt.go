package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/designday-guide/backend/internal/auth"
	"github.com/designday-guide/backend/pkg/response"
)

const (
	// ContextIdentity is the key for the resolved *auth.Identity in gin context.
	ContextIdentity = "identity"
)

// JWT returns a middleware that requires a valid bearer credential.
func JWT(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := resolver.Resolve(c.GetHeader("Authorization"))
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}
		c.Set(ContextIdentity, id)
		c.Next()
	}
}

// OptionalJWT attaches an identity when a credential is present.
// Requests without one pass through; invalid ones are rejected.
func OptionalJWT(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := resolver.Resolve(c.GetHeader("Authorization"))
		switch {
		case errors.Is(err, auth.ErrNoCredential):
		case err != nil:
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		default:
			c.Set(ContextIdentity, id)
		}
		c.Next()
	}
}

// IdentityFrom returns the identity set by JWT or OptionalJWT, or nil.
func IdentityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil
	}
	id, _ := v.(*auth.Identity)
	return id
}
