package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/internal/realtime"
	"github.com/designday-guide/backend/pkg/response"
	"github.com/designday-guide/backend/pkg/utils"
)

// RegisterRequest is the body for POST /users.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the body for POST /session.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// RoleRequest is the body for PATCH /users/:id/role.
type RoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// TokenResponse is the login response.
type TokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UserStore is the persistence the handler needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, name, email, passwordHash string, role models.Role) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error)
}

// Publisher fans out user changes to connected clients.
type Publisher interface {
	Publish(event string, payload interface{})
}

// Handler handles account and session endpoints.
type Handler struct {
	repo   UserStore
	jwt    *JWTService
	hub    Publisher
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo UserStore, jwt *JWTService, hub Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, hub: hub, logger: logger}
}

// Register handles POST /users. New accounts always get the user role.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := h.repo.GetByEmail(c.Request.Context(), email); err == nil {
		response.Conflict(c, ErrEmailTaken.Error())
		return
	} else if !errors.Is(err, ErrUserNotFound) {
		h.logger.Error("lookup user by email failed", zap.Error(err))
		response.Internal(c, "failed to register user")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), strings.TrimSpace(req.Name), email, hash, models.RoleUser)
	if errors.Is(err, ErrEmailTaken) {
		response.Conflict(c, ErrEmailTaken.Error())
		return
	}
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to register user")
		return
	}

	h.hub.Publish(realtime.EventUserCreated, user)
	response.Created(c, gin.H{"message": "User registered successfully", "user": user})
}

// Login handles POST /session.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			h.logger.Error("lookup user by email failed", zap.Error(err))
			response.Internal(c, "login failed")
			return
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user})
}

// Logout handles DELETE /session. Tokens are stateless; the client discards its copy.
func (h *Handler) Logout(c *gin.Context) {
	response.OK(c, gin.H{"message": "Logged out! Please clear token from client."})
}

// Get handles GET /users/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrUserNotFound) {
		response.NotFound(c, ErrUserNotFound.Error())
		return
	}
	if err != nil {
		h.logger.Error("get user failed", zap.Error(err))
		response.Internal(c, "failed to fetch user")
		return
	}
	response.OK(c, user)
}

// List handles GET /users (admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, gin.H{"users": list})
}

// EditRole handles PATCH /users/:id/role (admin only).
// The broadcast tells clients that tokens issued to this user carry a stale role.
func (h *Handler) EditRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !req.Role.Valid() {
		response.BadRequest(c, "role must be one of guest, user, admin")
		return
	}

	updated, err := h.repo.UpdateRole(c.Request.Context(), id, req.Role)
	if errors.Is(err, ErrUserNotFound) {
		response.NotFound(c, ErrUserNotFound.Error())
		return
	}
	if err != nil {
		h.logger.Error("update role failed", zap.Error(err), zap.String("user_id", id.String()))
		response.Internal(c, "failed to update role")
		return
	}

	h.hub.Publish(realtime.EventUserRoleChanged, updated)
	response.OK(c, gin.H{"message": "Role updated", "updatedUser": updated})
}
