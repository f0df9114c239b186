package recovery

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// ReplayFunc re-executes the operation a dead-lettered record describes.
// The record's Context carries everything needed to reconstruct the call.
type ReplayFunc func(ctx context.Context, record domain.ErrorRecord) error

// Replayer periodically drains due dead-letter records through a ReplayFunc.
// Successful replays resolve the record; failed replays push it back into the
// queue with a longer delay.
type Replayer struct {
	service  *Service
	replay   ReplayFunc
	interval time.Duration
	logger   *zap.Logger
}

// NewReplayer creates a replayer draining due records every interval
func NewReplayer(service *Service, replay ReplayFunc, interval time.Duration, logger *zap.Logger) *Replayer {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		service:  service,
		replay:   replay,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, draining the queue on every tick
func (r *Replayer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("dead-letter replayer started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("dead-letter replayer stopped")
			return
		case <-ticker.C:
			r.Drain(ctx)
		}
	}
}

// Drain replays every record whose retry time has passed
func (r *Replayer) Drain(ctx context.Context) {
	due, err := r.service.GetErrorsReadyForRetry(ctx)
	if err != nil {
		r.logger.Error("failed to list due dead-letter records", zap.Error(err))
		return
	}

	for _, record := range due {
		if ctx.Err() != nil {
			return
		}
		r.replayOne(ctx, record)
	}
}

func (r *Replayer) replayOne(ctx context.Context, record domain.ErrorRecord) {
	claimed, err := r.service.claimForReplay(ctx, record.ID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotRetryable) || errors.Is(err, domain.ErrRecordNotFound) {
			return
		}
		r.logger.Error("failed to claim dead-letter record",
			zap.String("record_id", record.ID.String()), zap.Error(err))
		return
	}
	if !claimed {
		return
	}

	if err := r.replay(ctx, record); err != nil {
		if rescheduleErr := r.service.Reschedule(ctx, record.ID, err.Error()); rescheduleErr != nil {
			r.logger.Error("failed to reschedule dead-letter record",
				zap.String("record_id", record.ID.String()), zap.Error(rescheduleErr))
		}
		return
	}

	if err := r.service.ResolveError(ctx, record.ID, "replayed successfully"); err != nil {
		r.logger.Error("failed to resolve dead-letter record",
			zap.String("record_id", record.ID.String()), zap.Error(err))
	}
}
