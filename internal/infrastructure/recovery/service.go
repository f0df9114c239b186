// Package recovery implements the durable dead-letter queue for exhausted
// sync retries. Records are persisted with their full replay context; retry
// and resolve are idempotent by record id so duplicate replays are safe.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/shared"
	domain "github.com/channelsync/backend/internal/domain/sync"
)

// ErrorRepository persists dead-letter records
type ErrorRepository interface {
	Save(ctx context.Context, record *domain.ErrorRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ErrorRecord, error)
	FindOpenByKey(ctx context.Context, key string) (*domain.ErrorRecord, error)
	FindReadyForRetry(ctx context.Context, now time.Time) ([]domain.ErrorRecord, error)
}

// Config tunes the recovery service
type Config struct {
	// RetryBackoffBase is the delay before the first scheduled replay
	RetryBackoffBase time.Duration
	// RetryBackoffMax caps the scheduled replay delay
	RetryBackoffMax time.Duration
	// IdempotencyTTL is how long a retry/resolve marker blocks duplicates
	IdempotencyTTL time.Duration
}

// Validate fills defaults for unset fields
func (c *Config) Validate() error {
	if c.RetryBackoffBase <= 0 {
		c.RetryBackoffBase = 5 * time.Minute
	}
	if c.RetryBackoffMax <= 0 {
		c.RetryBackoffMax = 6 * time.Hour
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = time.Hour
	}
	if c.RetryBackoffMax < c.RetryBackoffBase {
		return fmt.Errorf("retry backoff max %s is below base %s", c.RetryBackoffMax, c.RetryBackoffBase)
	}
	return nil
}

// Service implements domain.ErrorRecovery over a persistent repository. An
// IdempotencyStore guards retry and resolve so a replay racing a duplicate
// replay applies exactly once.
type Service struct {
	records     ErrorRepository
	idempotency shared.IdempotencyStore
	config      Config
	logger      *zap.Logger
}

// NewService creates a recovery service
func NewService(records ErrorRepository, idempotency shared.IdempotencyStore, cfg Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		records:     records,
		idempotency: idempotency,
		config:      cfg,
		logger:      logger,
	}, nil
}

// RecordError persists a failure with its replay context. Repeated failures
// of the same operation fold into the existing open record instead of
// accumulating duplicates.
func (s *Service) RecordError(ctx context.Context, key, jobType string, organizationID uuid.UUID, errMsg string, errContext map[string]any, storeID uuid.UUID) (*domain.ErrorRecord, error) {
	now := time.Now()

	existing, err := s.records.FindOpenByKey(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("find open record: %w", err)
	}

	if existing != nil {
		existing.Message = errMsg
		existing.Context = errContext
		existing.Status = domain.ErrorRecordStatusPending
		nextRetry := now.Add(s.backoff(existing.RetryCount))
		existing.NextRetryAt = &nextRetry
		existing.UpdatedAt = now

		if err := s.records.Save(ctx, existing); err != nil {
			return nil, fmt.Errorf("update record: %w", err)
		}
		s.logger.Warn("dead-letter record updated",
			zap.String("key", key),
			zap.String("record_id", existing.ID.String()),
			zap.Int("retry_count", existing.RetryCount),
		)
		return existing, nil
	}

	nextRetry := now.Add(s.config.RetryBackoffBase)
	record := &domain.ErrorRecord{
		ID:             uuid.New(),
		Key:            key,
		JobType:        jobType,
		OrganizationID: organizationID,
		StoreID:        storeID,
		Message:        errMsg,
		Context:        errContext,
		Status:         domain.ErrorRecordStatusPending,
		NextRetryAt:    &nextRetry,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.records.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	s.logger.Warn("dead-letter record created",
		zap.String("key", key),
		zap.String("job_type", jobType),
		zap.String("record_id", record.ID.String()),
		zap.String("store_id", storeID.String()),
	)
	return record, nil
}

// GetErrorsReadyForRetry lists pending records whose next retry time has passed
func (s *Service) GetErrorsReadyForRetry(ctx context.Context) ([]domain.ErrorRecord, error) {
	return s.records.FindReadyForRetry(ctx, time.Now())
}

// RetryError marks a record for replay. Idempotent: repeated calls for the
// same id while a replay is in flight are no-ops.
func (s *Service) RetryError(ctx context.Context, id uuid.UUID) error {
	_, err := s.claimForReplay(ctx, id)
	return err
}

// claimForReplay transitions a record to retrying. Returns false without
// error when another replay already holds the claim.
func (s *Service) claimForReplay(ctx context.Context, id uuid.UUID) (bool, error) {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if record.Status == domain.ErrorRecordStatusResolved {
		return false, domain.ErrRecordNotRetryable
	}

	// The marker is keyed by attempt so a rescheduled record can be claimed
	// again, while two replayers racing on the same attempt cannot.
	marker := fmt.Sprintf("retry:%s:%d", id, record.RetryCount)
	fresh, err := s.idempotency.MarkProcessed(ctx, marker, s.config.IdempotencyTTL)
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	if !fresh {
		s.logger.Debug("retry already in flight", zap.String("record_id", id.String()))
		return false, nil
	}

	now := time.Now()
	record.Status = domain.ErrorRecordStatusRetrying
	record.RetryCount++
	record.NextRetryAt = nil
	record.UpdatedAt = now

	if err := s.records.Save(ctx, record); err != nil {
		return false, fmt.Errorf("save record: %w", err)
	}
	s.logger.Info("dead-letter record marked for replay",
		zap.String("record_id", id.String()),
		zap.Int("retry_count", record.RetryCount),
	)
	return true, nil
}

// ResolveError closes a record. Idempotent by id.
func (s *Service) ResolveError(ctx context.Context, id uuid.UUID, reason string) error {
	fresh, err := s.idempotency.MarkProcessed(ctx, "resolve:"+id.String(), s.config.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if !fresh {
		s.logger.Debug("resolve already applied", zap.String("record_id", id.String()))
		return nil
	}

	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if record.Status == domain.ErrorRecordStatusResolved {
		return nil
	}

	now := time.Now()
	record.Status = domain.ErrorRecordStatusResolved
	record.Resolution = reason
	record.ResolvedAt = &now
	record.NextRetryAt = nil
	record.UpdatedAt = now

	if err := s.records.Save(ctx, record); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	s.logger.Info("dead-letter record resolved",
		zap.String("record_id", id.String()),
		zap.String("reason", reason),
	)
	return nil
}

// Reschedule puts a record back in the pending queue after a failed replay.
// The next attempt is pushed out exponentially by the accumulated retry count.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, errMsg string) error {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if record.Status == domain.ErrorRecordStatusResolved {
		return domain.ErrRecordNotRetryable
	}

	now := time.Now()
	nextRetry := now.Add(s.backoff(record.RetryCount))
	record.Status = domain.ErrorRecordStatusPending
	record.Message = errMsg
	record.NextRetryAt = &nextRetry
	record.UpdatedAt = now

	if err := s.records.Save(ctx, record); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	s.logger.Warn("dead-letter replay failed, rescheduled",
		zap.String("record_id", id.String()),
		zap.Time("next_retry_at", nextRetry),
	)
	return nil
}

// backoff returns the replay delay after retryCount prior attempts
func (s *Service) backoff(retryCount int) time.Duration {
	delay := s.config.RetryBackoffBase
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= s.config.RetryBackoffMax {
			return s.config.RetryBackoffMax
		}
	}
	return delay
}

var _ domain.ErrorRecovery = (*Service)(nil)
