package tallies

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/pkg/response"
)

// Store is the aggregate source the handler reads.
type Store interface {
	EventVotes(ctx context.Context, eventID uuid.UUID) ([]models.TeamVoteCount, error)
	EventScans(ctx context.Context) ([]models.EventScanCount, error)
	TotalVotes(ctx context.Context) (int, error)
}

// Handler serves the admin dashboard aggregates.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a tallies handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// EventVotes handles GET /admins/events/:eventId/votes.
func (h *Handler) EventVotes(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	counts, err := h.store.EventVotes(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("event vote tally failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to fetch vote counts")
		return
	}
	response.OK(c, BuildVoteTally(eventID, counts))
}

// EventScans handles GET /admins/events/scans.
func (h *Handler) EventScans(c *gin.Context) {
	counts, err := h.store.EventScans(c.Request.Context())
	if err != nil {
		h.logger.Error("scan counts failed", zap.Error(err))
		response.Internal(c, "failed to fetch scan counts")
		return
	}
	response.OK(c, BuildScanCounts(counts))
}

// TotalVotes handles GET /admins/votes/total.
func (h *Handler) TotalVotes(c *gin.Context) {
	n, err := h.store.TotalVotes(c.Request.Context())
	if err != nil {
		h.logger.Error("total votes failed", zap.Error(err))
		response.Internal(c, "failed to fetch total votes")
		return
	}
	response.OK(c, gin.H{"totalVotes": n})
}
