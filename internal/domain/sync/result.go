package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/conflict"
)

// ---------------------------------------------------------------------------
// SyncDirection / JobStatus
// ---------------------------------------------------------------------------

// SyncDirection selects which way a product sync flows
type SyncDirection string

const (
	// DirectionPush syncs local changes to the platform only
	DirectionPush SyncDirection = "push"
	// DirectionPull syncs platform changes to local only
	DirectionPull SyncDirection = "pull"
	// DirectionBidirectional pulls first, then pushes, so conflicts are
	// computed against the freshest local state
	DirectionBidirectional SyncDirection = "bidirectional"
)

// IsValid returns true if the direction is valid
func (d SyncDirection) IsValid() bool {
	switch d {
	case DirectionPush, DirectionPull, DirectionBidirectional:
		return true
	default:
		return false
	}
}

// JobStatus is the lifecycle state of one sync job
type JobStatus string

const (
	JobStatusPending         JobStatus = "pending"
	JobStatusRunning         JobStatus = "running"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusPartiallyFailed JobStatus = "partially_failed"
)

// ---------------------------------------------------------------------------
// SyncOptions
// ---------------------------------------------------------------------------

// SyncOptions tunes one sync invocation
type SyncOptions struct {
	// DryRun short-circuits all mutating calls; items are counted as if updated
	DryRun bool
	// Direction applies to product sync (default bidirectional)
	Direction SyncDirection
	// BatchSize overrides the configured batch size when > 0
	BatchSize int
	// MaxRetries overrides the configured per-item retry budget when > 0
	MaxRetries int
	// LocationIDs filters inventory rows by location
	LocationIDs []uuid.UUID
	// VariantIDs filters inventory rows by variant
	VariantIDs []uuid.UUID
	// Threshold is the minimum quantity difference for conflict detection
	Threshold int64
}

// ---------------------------------------------------------------------------
// SyncResult
// ---------------------------------------------------------------------------

// SyncError is one captured per-item failure. Per-item errors never propagate
// past the batch boundary; callers inspect the result instead.
type SyncError struct {
	// ItemID identifies the failed item (variant ID, platform product ID, ...)
	ItemID string
	// Code is a coarse classification (e.g. "RETRY_EXHAUSTED", "VALIDATION")
	Code string
	// Message is the error description
	Message string
	// Retryable records how the failure was classified
	Retryable bool
}

// SyncResult aggregates the outcome of one sync invocation. It is produced
// once per call and never mutated after return; every call returns a complete
// result even under partial failure.
type SyncResult struct {
	JobID          uuid.UUID
	Status         JobStatus
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Failed         int
	Errors         []SyncError
	Conflicts      []conflict.Conflict
	StartedAt      time.Time
	CompletedAt    time.Time
}

// NewSyncResult creates a running result for a new job
func NewSyncResult() *SyncResult {
	return &SyncResult{
		JobID:     uuid.New(),
		Status:    JobStatusRunning,
		Errors:    make([]SyncError, 0),
		Conflicts: make([]conflict.Conflict, 0),
		StartedAt: time.Now(),
	}
}

// AddError records a per-item failure
func (r *SyncResult) AddError(itemID, code, message string, retryable bool) {
	r.Failed++
	r.Errors = append(r.Errors, SyncError{
		ItemID:    itemID,
		Code:      code,
		Message:   message,
		Retryable: retryable,
	})
}

// Merge folds another result into this one
func (r *SyncResult) Merge(other *SyncResult) {
	if other == nil {
		return
	}
	r.TotalProcessed += other.TotalProcessed
	r.Created += other.Created
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
	r.Conflicts = append(r.Conflicts, other.Conflicts...)
}

// Finish stamps the completion time and final status
func (r *SyncResult) Finish() {
	r.CompletedAt = time.Now()
	if r.Failed > 0 {
		r.Status = JobStatusPartiallyFailed
	} else {
		r.Status = JobStatusCompleted
	}
}
