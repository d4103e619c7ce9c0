package auth

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/designday-guide/backend/internal/models"
)

var (
	// ErrNoCredential means the request carried no Authorization header.
	ErrNoCredential = errors.New("missing authorization header")
	// ErrInvalidCredential covers malformed headers, bad signatures and expired tokens.
	ErrInvalidCredential = errors.New("invalid or expired token")
	// ErrUnauthenticated means a role check ran without a resolved identity.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden means the identity's role is outside the allowed set.
	ErrForbidden = errors.New("forbidden: insufficient permissions")
)

// Identity is an authenticated caller resolved from a bearer credential.
type Identity struct {
	UserID uuid.UUID
	Role   models.Role
}

// Resolver turns an Authorization header into an Identity.
// Guests never pass through it; their id travels in the URL path.
type Resolver struct {
	jwt *JWTService
}

// NewResolver creates an identity resolver backed by the JWT service.
func NewResolver(jwt *JWTService) *Resolver {
	return &Resolver{jwt: jwt}
}

// Resolve verifies the bearer credential in header.
func (r *Resolver) Resolve(header string) (*Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, ErrNoCredential
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, ErrInvalidCredential
	}
	return r.ResolveToken(strings.TrimSpace(parts[1]))
}

// ResolveToken verifies a raw token (e.g. from a websocket query string).
func (r *Resolver) ResolveToken(token string) (*Identity, error) {
	claims, err := r.jwt.Validate(token)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	return &Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// RequireRole checks id against an allow-list of roles.
func RequireRole(id *Identity, allowed ...models.Role) error {
	if id == nil {
		return ErrUnauthenticated
	}
	for _, r := range allowed {
		if id.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
