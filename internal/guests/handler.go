package guests

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
)

// MaxGuestIDLength caps the opaque guest id taken from the path.
const MaxGuestIDLength = 128

// VoteRequest is the body for POST /guests/:guestId/votes.
type VoteRequest struct {
	EventID string `json:"eventId" binding:"required"`
	TeamID  string `json:"teamId" binding:"required"`
}

// ScanRequest is the body for POST /guests/:guestId/scans.
type ScanRequest struct {
	EventID string `json:"eventId" binding:"required"`
}

// Store is the vote and scan persistence the handler needs.
type Store interface {
	HasVoted(ctx context.Context, guestID string, eventID uuid.UUID) (bool, error)
	CreateVote(ctx context.Context, guestID string, eventID, teamID uuid.UUID) (*models.Vote, error)
	CreateScan(ctx context.Context, guestID string, eventID uuid.UUID) (*models.Scan, error)
	ListVotes(ctx context.Context, guestID string) ([]models.GuestVote, error)
	EventsScanStatus(ctx context.Context, guestID string) ([]models.EventScanStatus, error)
}

// TeamIndex loads teams grouped by event.
type TeamIndex interface {
	ListByEvents(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID][]models.Team, error)
}

// Publisher fans out guest actions.
type Publisher interface {
	Publish(event string, payload interface{})
}

// Handler handles the guest vote and scan endpoints.
type Handler struct {
	store  Store
	teams  TeamIndex
	hub    Publisher
	logger *zap.Logger
}

// NewHandler creates a guests handler. teams may be nil.
func NewHandler(store Store, teams TeamIndex, hub Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, teams: teams, hub: hub, logger: logger}
}

func guestID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("guestId"))
	if id == "" || len(id) > MaxGuestIDLength {
		response.BadRequest(c, "invalid guest id")
		return "", false
	}
	return id, true
}

// Vote handles POST /guests/:guestId/votes.
func (h *Handler) Vote(c *gin.Context) {
	gid, ok := guestID(c)
	if !ok {
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	teamID, err := uuid.Parse(req.TeamID)
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return
	}

	ctx := c.Request.Context()
	// Fast path only; the unique constraint decides races.
	voted, err := h.store.HasVoted(ctx, gid, eventID)
	if err != nil {
		h.logger.Error("check existing vote failed", zap.Error(err), zap.String("guest_id", gid))
		response.Internal(c, "failed to cast vote")
		return
	}
	if voted {
		response.BadRequest(c, ErrDuplicateVote.Error())
		return
	}

	vote, err := h.store.CreateVote(ctx, gid, eventID, teamID)
	switch {
	case errors.Is(err, ErrDuplicateVote):
		response.BadRequest(c, err.Error())
		return
	case errors.Is(err, ErrUnknownReference):
		response.NotFound(c, err.Error())
		return
	case err != nil:
		h.logger.Error("create vote failed", zap.Error(err), zap.String("guest_id", gid))
		response.Internal(c, "failed to cast vote")
		return
	}

	h.hub.Publish(realtime.EventGuestVoted, vote)
	response.Created(c, gin.H{"message": "Vote recorded", "vote": vote})
}

// Scan handles POST /guests/:guestId/scans.
func (h *Handler) Scan(c *gin.Context) {
	gid, ok := guestID(c)
	if !ok {
		return
	}
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	scan, err := h.store.CreateScan(c.Request.Context(), gid, eventID)
	switch {
	case errors.Is(err, ErrAlreadyScanned):
		response.ConflictWith(c, err.Error(), gin.H{"alreadyScanned": true})
		return
	case errors.Is(err, ErrUnknownReference):
		response.NotFound(c, "event not found")
		return
	case err != nil:
		h.logger.Error("create scan failed", zap.Error(err), zap.String("guest_id", gid))
		response.Internal(c, "failed to scan event")
		return
	}

	h.hub.Publish(realtime.EventGuestScanned, scan)
	response.Created(c, gin.H{"message": "Event scanned", "scan": scan})
}

// Votes handles GET /guests/:guestId/votes.
func (h *Handler) Votes(c *gin.Context) {
	gid, ok := guestID(c)
	if !ok {
		return
	}
	votes, err := h.store.ListVotes(c.Request.Context(), gid)
	if err != nil {
		h.logger.Error("list guest votes failed", zap.Error(err), zap.String("guest_id", gid))
		response.Internal(c, "failed to fetch votes")
		return
	}
	response.OK(c, gin.H{"votes": votes})
}

// EventsScans handles GET /guests/:guestId/events-scans.
func (h *Handler) EventsScans(c *gin.Context) {
	gid, ok := guestID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	events, err := h.store.EventsScanStatus(ctx, gid)
	if err != nil {
		h.logger.Error("events scan status failed", zap.Error(err), zap.String("guest_id", gid))
		response.Internal(c, "failed to load events with scan status")
		return
	}
	if err := h.attachTeams(ctx, events); err != nil {
		h.logger.Error("load event teams failed", zap.Error(err))
		response.Internal(c, "failed to load events with scan status")
		return
	}
	response.OK(c, gin.H{"events": events})
}

func (h *Handler) attachTeams(ctx context.Context, events []models.EventScanStatus) error {
	var byEvent map[uuid.UUID][]models.Team
	if h.teams != nil && len(events) > 0 {
		ids := make([]uuid.UUID, len(events))
		for i := range events {
			ids[i] = events[i].ID
		}
		var err error
		if byEvent, err = h.teams.ListByEvents(ctx, ids); err != nil {
			return err
		}
	}
	for i := range events {
		if teams := byEvent[events[i].ID]; teams != nil {
			events[i].Teams = teams
		} else {
			events[i].Teams = []models.Team{}
		}
	}
	return nil
}
