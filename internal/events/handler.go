package events

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/internal/realtime"
	"github.com/designday-guide/backend/internal/worker"
	"github.com/designday-guide/backend/pkg/qrcode"
	"github.com/designday-guide/backend/pkg/response"
	"github.com/designday-guide/backend/pkg/storage"
	"github.com/designday-guide/backend/pkg/utils"
)

const (
	defaultRandomCount = 6
	maxRandomCount     = 100
)

// Store is the event persistence the handler needs.
type Store interface {
	List(ctx context.Context) ([]models.Event, error)
	Random(ctx context.Context, count int) ([]models.Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Create(ctx context.Context, e *models.Event) error
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) ([]string, error)
}

// TeamIndex loads teams grouped by event.
type TeamIndex interface {
	ListByEvents(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID][]models.Team, error)
}

// AssetReleaser schedules deletion of images no longer referenced.
type AssetReleaser interface {
	Release(ctx context.Context, reason string, urls ...string)
}

// Publisher fans out event changes.
type Publisher interface {
	Publish(event string, payload interface{})
}

// Handler handles event endpoints.
type Handler struct {
	repo      Store
	teams     TeamIndex
	images    storage.Uploader
	releaser  AssetReleaser
	hub       Publisher
	urlScheme string
	logger    *zap.Logger
}

// NewHandler creates an events handler. images may be nil when S3 is not configured.
func NewHandler(repo Store, teams TeamIndex, images storage.Uploader, releaser AssetReleaser, hub Publisher, urlScheme string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, teams: teams, images: images, releaser: releaser, hub: hub, urlScheme: urlScheme, logger: logger}
}

func (h *Handler) withTeams(ctx context.Context, list []models.Event) error {
	ids := make([]uuid.UUID, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	byEvent, err := h.teams.ListByEvents(ctx, ids)
	if err != nil {
		return err
	}
	for i := range list {
		list[i].Teams = byEvent[list[i].ID]
		if list[i].Teams == nil {
			list[i].Teams = []models.Team{}
		}
	}
	return nil
}

func eventID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.repo.List(ctx)
	if err == nil {
		err = h.withTeams(ctx, list)
	}
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to fetch events")
		return
	}
	response.OK(c, gin.H{"events": list})
}

// Random handles GET /events/random.
func (h *Handler) Random(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.repo.Random(ctx, utils.QueryCount(c, "count", defaultRandomCount, maxRandomCount))
	if err == nil {
		err = h.withTeams(ctx, list)
	}
	if err != nil {
		h.logger.Error("random events failed", zap.Error(err))
		response.Internal(c, "failed to fetch random events")
		return
	}
	response.OK(c, gin.H{"events": list})
}

func (h *Handler) load(c *gin.Context, id uuid.UUID, failMsg string) (*models.Event, bool) {
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return nil, false
	}
	if err != nil {
		h.logger.Error("get event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, failMsg)
		return nil, false
	}
	return e, true
}

// Get handles GET /events/:eventId.
func (h *Handler) Get(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	e, ok := h.load(c, id, "failed to fetch event details")
	if !ok {
		return
	}
	list := []models.Event{*e}
	if err := h.withTeams(c.Request.Context(), list); err != nil {
		h.logger.Error("load event teams failed", zap.Error(err))
		response.Internal(c, "failed to fetch event details")
		return
	}
	response.OK(c, list[0])
}

// QRCode handles GET /events/:eventId/qrcode: a PNG of the event's deep link.
func (h *Handler) QRCode(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	size := qrcode.DefaultSize
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(c, qrcode.ErrInvalidSize.Error())
			return
		}
		size = n
	}
	e, ok := h.load(c, id, "failed to render qr code")
	if !ok {
		return
	}
	png, err := qrcode.PNG(e.EventURL, size)
	if errors.Is(err, qrcode.ErrInvalidSize) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("render qr code failed", zap.Error(err))
		response.Internal(c, "failed to render qr code")
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

// Create handles POST /events (admin). The image is uploaded first and released
// again if the insert fails.
func (h *Handler) Create(c *gin.Context) {
	var form Form
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := &models.Event{}
	if err := form.Apply(e); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := Validate(e); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if h.images == nil {
		response.Error(c, http.StatusServiceUnavailable, "image storage is not configured")
		return
	}

	ctx := c.Request.Context()
	fh, _ := c.FormFile("image")
	url, err := storage.UploadFormImage(ctx, h.images, storage.FolderEvents, fh)
	if storage.IsValidationError(err) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("upload event image failed", zap.Error(err))
		response.Internal(c, "failed to upload image")
		return
	}

	e.ID = uuid.New()
	e.Image = url
	e.EventURL = models.EventURL(h.urlScheme, e.ID)
	e.Teams = []models.Team{}
	if err := h.repo.Create(ctx, e); err != nil {
		h.releaser.Release(ctx, worker.ReasonWriteFailed, url)
		if errors.Is(err, ErrInvalidEvent) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}

	h.hub.Publish(realtime.EventEventCreated, e)
	response.Created(c, gin.H{"message": "Event created successfully", "event": e})
}

// Edit handles PUT /events/:eventId (admin).
// A new image replaces the old one, which is released after the update commits.
func (h *Handler) Edit(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	e, ok := h.load(c, id, "failed to update event")
	if !ok {
		return
	}
	var form Form
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := form.Apply(e); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := Validate(e); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	oldImage := ""
	if fh, err := c.FormFile("image"); err == nil {
		if h.images == nil {
			response.Error(c, http.StatusServiceUnavailable, "image storage is not configured")
			return
		}
		url, err := storage.UploadFormImage(ctx, h.images, storage.FolderEvents, fh)
		if storage.IsValidationError(err) {
			response.BadRequest(c, err.Error())
			return
		}
		if err != nil {
			h.logger.Error("upload event image failed", zap.Error(err))
			response.Internal(c, "failed to upload image")
			return
		}
		oldImage, e.Image = e.Image, url
	}

	if err := h.repo.Update(ctx, e); err != nil {
		if oldImage != "" {
			h.releaser.Release(ctx, worker.ReasonWriteFailed, e.Image)
		}
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		if errors.Is(err, ErrInvalidEvent) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("update event failed", zap.Error(err))
		response.Internal(c, "failed to update event")
		return
	}
	if oldImage != "" {
		h.releaser.Release(ctx, worker.ReasonImageReplaced, oldImage)
	}

	list := []models.Event{*e}
	if err := h.withTeams(ctx, list); err != nil {
		h.logger.Warn("load event teams after update failed", zap.Error(err))
		list[0].Teams = []models.Team{}
	}
	h.hub.Publish(realtime.EventEventUpdated, list[0])
	response.OK(c, gin.H{"message": "Event updated successfully", "event": list[0]})
}

// Delete handles DELETE /events/:eventId (admin). Teams, votes and scans go
// with the event; images are released after the transaction commits.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	images, err := h.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("delete event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to delete event")
		return
	}
	h.releaser.Release(ctx, worker.ReasonEventDeleted, images...)

	h.hub.Publish(realtime.EventEventDeleted, gin.H{"eventId": id})
	response.OK(c, gin.H{"message": "Event and associated teams deleted successfully"})
}
