package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/designday-guide/backend/pkg/queue"
)

// ImageDeleter removes a stored image by its public URL.
type ImageDeleter interface {
	DeleteImage(ctx context.Context, url string) error
}

// JobSource is the queue side the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// AssetProcessor processes asset release jobs: delete every listed image.
type AssetProcessor struct {
	images  ImageDeleter
	queue   JobSource
	logger  *zap.Logger
	backoff time.Duration
}

// NewAssetProcessor creates an asset release processor.
func NewAssetProcessor(images ImageDeleter, q JobSource, logger *zap.Logger) *AssetProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetProcessor{images: images, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one asset release job. Every URL is attempted even when an earlier one fails.
func (p *AssetProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAssetRelease {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.AssetReleasePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var errs []error
	for _, url := range payload.URLs {
		if err := p.images.DeleteImage(ctx, url); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	p.logger.Info("assets released", zap.String("job_id", job.ID), zap.Int("urls", len(payload.URLs)), zap.String("reason", payload.Reason))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *AssetProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("asset worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *AssetProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
