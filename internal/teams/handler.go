package teams

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/internal/realtime"
	"github.com/designday-guide/backend/internal/worker"
	"github.com/designday-guide/backend/pkg/response"
	"github.com/designday-guide/backend/pkg/storage"
	"github.com/designday-guide/backend/pkg/utils"
)

const (
	defaultRandomCount = 12
	maxRandomCount     = 100
)

// Form is the multipart body for creating and editing a team.
// On edit every field is optional; empty fields keep their stored value.
type Form struct {
	Name        string `form:"name"`
	Location    string `form:"location"`
	Description string `form:"description"`
	StartTime   string `form:"startTime"`
	EndTime     string `form:"endTime"`
}

// Store is the team persistence the handler needs.
type Store interface {
	Random(ctx context.Context, count int) ([]models.Team, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error)
	GetInEvent(ctx context.Context, eventID, teamID uuid.UUID) (*models.Team, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Team, error)
	EventType(ctx context.Context, eventID uuid.UUID) (models.EventType, error)
	Create(ctx context.Context, t *models.Team) error
	Update(ctx context.Context, t *models.Team) error
	Delete(ctx context.Context, eventID, teamID uuid.UUID) (string, error)
}

// AssetReleaser schedules deletion of images no longer referenced.
type AssetReleaser interface {
	Release(ctx context.Context, reason string, urls ...string)
}

// Publisher fans out team changes.
type Publisher interface {
	Publish(event string, payload interface{})
}

// Handler handles team endpoints.
type Handler struct {
	repo     Store
	images   storage.Uploader
	releaser AssetReleaser
	hub      Publisher
	logger   *zap.Logger
}

// NewHandler creates a teams handler. images may be nil when S3 is not configured;
// writes that need an upload then fail with 503.
func NewHandler(repo Store, images storage.Uploader, releaser AssetReleaser, hub Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, images: images, releaser: releaser, hub: hub, logger: logger}
}

// parseStudents accepts repeated form values or a single JSON array.
func parseStudents(c *gin.Context) ([]string, bool, error) {
	values, ok := c.GetPostFormArray("students")
	if !ok {
		return nil, false, nil
	}
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var list []string
		if err := json.Unmarshal([]byte(values[0]), &list); err != nil {
			return nil, true, errors.New("students must be a JSON array of names")
		}
		values = list
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out, true, nil
}

func optionalFile(c *gin.Context) *multipart.FileHeader {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil
	}
	return fh
}

func parseID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}

// Random handles GET /teams/random.
func (h *Handler) Random(c *gin.Context) {
	list, err := h.repo.Random(c.Request.Context(), utils.QueryCount(c, "count", defaultRandomCount, maxRandomCount))
	if err != nil {
		h.logger.Error("random teams failed", zap.Error(err))
		response.Internal(c, "failed to fetch random teams")
		return
	}
	response.OK(c, gin.H{"teams": list})
}

// Get handles GET /teams/:teamId.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "teamId", "team")
	if !ok {
		return
	}
	t, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("get team failed", zap.Error(err))
		response.Internal(c, "failed to fetch team details")
		return
	}
	response.OK(c, t)
}

// ListForEvent handles GET /events/:eventId/teams.
func (h *Handler) ListForEvent(c *gin.Context) {
	eventID, ok := parseID(c, "eventId", "event")
	if !ok {
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list event teams failed", zap.Error(err))
		response.Internal(c, "failed to fetch teams for this event")
		return
	}
	response.OK(c, gin.H{"teams": list})
}

// GetForEvent handles GET /events/:eventId/teams/:teamId.
func (h *Handler) GetForEvent(c *gin.Context) {
	eventID, ok := parseID(c, "eventId", "event")
	if !ok {
		return
	}
	teamID, ok := parseID(c, "teamId", "team")
	if !ok {
		return
	}
	t, err := h.repo.GetInEvent(c.Request.Context(), eventID, teamID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "team not found in this event")
		return
	}
	if err != nil {
		h.logger.Error("get event team failed", zap.Error(err))
		response.Internal(c, "failed to fetch team details")
		return
	}
	response.OK(c, t)
}

// Create handles POST /events/:eventId/teams (admin). Only Activity events take teams.
func (h *Handler) Create(c *gin.Context) {
	eventID, ok := parseID(c, "eventId", "event")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	typ, err := h.repo.EventType(ctx, eventID)
	if errors.Is(err, ErrEventNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("lookup event type failed", zap.Error(err))
		response.Internal(c, "failed to create team")
		return
	}
	if typ != models.EventActivity {
		response.BadRequest(c, ErrTeamsActivityOnly.Error())
		return
	}

	var form Form
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	students, _, err := parseStudents(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if students == nil {
		students = []string{}
	}
	t := &models.Team{
		EventID:     eventID,
		Name:        strings.TrimSpace(form.Name),
		Location:    strings.TrimSpace(form.Location),
		Description: form.Description,
		Students:    students,
		StartTime:   strings.TrimSpace(form.StartTime),
		EndTime:     strings.TrimSpace(form.EndTime),
	}
	if msg := validate(t); msg != "" {
		response.BadRequest(c, msg)
		return
	}
	if h.images == nil {
		response.Error(c, http.StatusServiceUnavailable, "image storage is not configured")
		return
	}

	t.Image, err = storage.UploadFormImage(ctx, h.images, storage.FolderTeams, optionalFile(c))
	if storage.IsValidationError(err) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("upload team image failed", zap.Error(err))
		response.Internal(c, "failed to upload image")
		return
	}

	if err := h.repo.Create(ctx, t); err != nil {
		h.releaser.Release(ctx, worker.ReasonWriteFailed, t.Image)
		if errors.Is(err, ErrEventNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.logger.Error("create team failed", zap.Error(err))
		response.Internal(c, "failed to create team")
		return
	}

	h.hub.Publish(realtime.EventTeamCreated, t)
	response.Created(c, gin.H{"message": "Team created successfully", "team": t})
}

// Edit handles PUT /events/:eventId/teams/:teamId (admin).
// A new image replaces the old one, which is released after the update commits.
func (h *Handler) Edit(c *gin.Context) {
	eventID, ok := parseID(c, "eventId", "event")
	if !ok {
		return
	}
	teamID, ok := parseID(c, "teamId", "team")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	t, err := h.repo.GetInEvent(ctx, eventID, teamID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("load team failed", zap.Error(err))
		response.Internal(c, "failed to update team")
		return
	}

	var form Form
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	students, hasStudents, err := parseStudents(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	applyForm(t, form)
	if hasStudents {
		t.Students = students
	}
	if msg := validate(t); msg != "" {
		response.BadRequest(c, msg)
		return
	}

	oldImage := ""
	if fh := optionalFile(c); fh != nil {
		if h.images == nil {
			response.Error(c, http.StatusServiceUnavailable, "image storage is not configured")
			return
		}
		url, err := storage.UploadFormImage(ctx, h.images, storage.FolderTeams, fh)
		if storage.IsValidationError(err) {
			response.BadRequest(c, err.Error())
			return
		}
		if err != nil {
			h.logger.Error("upload team image failed", zap.Error(err))
			response.Internal(c, "failed to upload image")
			return
		}
		oldImage, t.Image = t.Image, url
	}

	if err := h.repo.Update(ctx, t); err != nil {
		if oldImage != "" {
			h.releaser.Release(ctx, worker.ReasonWriteFailed, t.Image)
		}
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.logger.Error("update team failed", zap.Error(err))
		response.Internal(c, "failed to update team")
		return
	}
	if oldImage != "" {
		h.releaser.Release(ctx, worker.ReasonImageReplaced, oldImage)
	}

	h.hub.Publish(realtime.EventTeamUpdated, t)
	response.OK(c, gin.H{"message": "Team updated successfully", "team": t})
}

// Delete handles DELETE /events/:eventId/teams/:teamId (admin). Votes for the team cascade.
func (h *Handler) Delete(c *gin.Context) {
	eventID, ok := parseID(c, "eventId", "event")
	if !ok {
		return
	}
	teamID, ok := parseID(c, "teamId", "team")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	image, err := h.repo.Delete(ctx, eventID, teamID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("delete team failed", zap.Error(err))
		response.Internal(c, "failed to delete team")
		return
	}
	h.releaser.Release(ctx, worker.ReasonTeamDeleted, image)

	h.hub.Publish(realtime.EventTeamDeleted, gin.H{"teamId": teamID, "eventId": eventID})
	response.OK(c, gin.H{"message": "Team deleted successfully"})
}

func applyForm(t *models.Team, f Form) {
	if v := strings.TrimSpace(f.Name); v != "" {
		t.Name = v
	}
	if v := strings.TrimSpace(f.Location); v != "" {
		t.Location = v
	}
	if f.Description != "" {
		t.Description = f.Description
	}
	if v := strings.TrimSpace(f.StartTime); v != "" {
		t.StartTime = v
	}
	if v := strings.TrimSpace(f.EndTime); v != "" {
		t.EndTime = v
	}
}

func validate(t *models.Team) string {
	switch {
	case t.Name == "":
		return "name of team is required"
	case t.Location == "":
		return "location is required"
	case t.Description == "":
		return "description is required"
	case t.StartTime == "":
		return "start time is required"
	case t.EndTime == "":
		return "end time is required"
	}
	return ""
}
