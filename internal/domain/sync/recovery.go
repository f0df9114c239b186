package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ErrorRecordStatus is the dead-letter lifecycle state
type ErrorRecordStatus string

const (
	ErrorRecordStatusPending  ErrorRecordStatus = "pending"
	ErrorRecordStatusRetrying ErrorRecordStatus = "retrying"
	ErrorRecordStatusResolved ErrorRecordStatus = "resolved"
)

// ErrorRecord is one exhausted-retry failure awaiting manual or scheduled
// replay. Each record has a unique id; retry and resolve are idempotent by
// that id so duplicate replays are safe.
type ErrorRecord struct {
	ID             uuid.UUID
	Key            string
	JobType        string
	OrganizationID uuid.UUID
	StoreID        uuid.UUID
	Message        string
	// Context carries the full replay context (variant, quantity, ...)
	Context     map[string]any
	Status      ErrorRecordStatus
	RetryCount  int
	NextRetryAt *time.Time
	ResolvedAt  *time.Time
	Resolution  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ErrorRecovery is the durable dead-letter queue for exhausted retries
type ErrorRecovery interface {
	// RecordError persists a failure with its replay context
	RecordError(ctx context.Context, key, jobType string, organizationID uuid.UUID, errMsg string, errContext map[string]any, storeID uuid.UUID) (*ErrorRecord, error)

	// GetErrorsReadyForRetry lists pending records whose next retry time has passed
	GetErrorsReadyForRetry(ctx context.Context) ([]ErrorRecord, error)

	// RetryError marks a record for replay. Idempotent: repeated calls for
	// the same id while a replay is in flight are no-ops.
	RetryError(ctx context.Context, id uuid.UUID) error

	// ResolveError closes a record. Idempotent by id.
	ResolveError(ctx context.Context, id uuid.UUID, reason string) error
}
