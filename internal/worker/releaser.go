package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/designday-guide/backend/pkg/queue"
)

// Reasons recorded on release jobs.
const (
	ReasonEventDeleted  = "event_deleted"
	ReasonTeamDeleted   = "team_deleted"
	ReasonImageReplaced = "image_replaced"
	ReasonWriteFailed   = "write_failed"
)

const inlineReleaseTimeout = 30 * time.Second

// Enqueuer accepts asset release jobs.
type Enqueuer interface {
	EnqueueAssetRelease(ctx context.Context, payload queue.AssetReleasePayload) error
}

// Releaser hands images that are no longer referenced to the asset worker.
// Without a queue, or when enqueueing fails, it deletes them in the background.
// Release is best-effort: failures are logged, never returned.
type Releaser struct {
	queue  Enqueuer
	images ImageDeleter
	logger *zap.Logger
}

// NewReleaser creates a releaser. Either q or images may be nil.
func NewReleaser(q Enqueuer, images ImageDeleter, logger *zap.Logger) *Releaser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Releaser{queue: q, images: images, logger: logger}
}

// Release schedules deletion of urls. Empty URLs are skipped.
func (r *Releaser) Release(ctx context.Context, reason string, urls ...string) {
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			kept = append(kept, u)
		}
	}
	if len(kept) == 0 {
		return
	}

	if r.queue != nil {
		err := r.queue.EnqueueAssetRelease(ctx, queue.AssetReleasePayload{URLs: kept, Reason: reason})
		if err == nil {
			return
		}
		r.logger.Warn("enqueue asset release failed, deleting inline", zap.Error(err), zap.String("reason", reason))
	}
	if r.images == nil {
		r.logger.Warn("no image store configured, assets left in place", zap.Strings("urls", kept), zap.String("reason", reason))
		return
	}
	go r.deleteAll(reason, kept)
}

func (r *Releaser) deleteAll(reason string, urls []string) {
	ctx, cancel := context.WithTimeout(context.Background(), inlineReleaseTimeout)
	defer cancel()
	for _, u := range urls {
		if err := r.images.DeleteImage(ctx, u); err != nil {
			r.logger.Error("delete image failed", zap.String("url", u), zap.String("reason", reason), zap.Error(err))
		}
	}
}
