// Package conflict implements the field-level conflict resolution engine:
// a pure, deterministic decision function over a configured rule table,
// plus the persisted record type for conflicts that require human input.
package conflict

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Strategy
// ---------------------------------------------------------------------------

// Strategy names a resolution strategy
type Strategy string

const (
	// StrategyPlatformWins always takes the platform value
	StrategyPlatformWins Strategy = "platform_wins"
	// StrategyLocalWins always keeps the local value
	StrategyLocalWins Strategy = "local_wins"
	// StrategyNewestWins takes the more recently modified side
	StrategyNewestWins Strategy = "newest_wins"
	// StrategyMerge combines both sides per the field's merge strategy
	StrategyMerge Strategy = "merge"
	// StrategyManualReview defers to a human, keeping the local value
	StrategyManualReview Strategy = "manual_review"
)

// IsValid returns true if the strategy is valid
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyPlatformWins, StrategyLocalWins, StrategyNewestWins,
		StrategyMerge, StrategyManualReview:
		return true
	default:
		return false
	}
}

// String returns the string representation of Strategy
func (s Strategy) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Conflict
// ---------------------------------------------------------------------------

// Conflict is a detected disagreement between local and platform values for
// one field. It is a transient resolver input; only conflicts needing human
// input are persisted, as ConflictRecord.
type Conflict struct {
	Field            string
	LocalValue       any
	PlatformValue    any
	LocalModified    time.Time
	PlatformModified time.Time
}

// Resolution is the resolver's decision for one conflict
type Resolution struct {
	ResolvedValue        any
	Strategy             Strategy
	Confidence           float64
	RequiresManualReview bool
	Reason               string
}

// ---------------------------------------------------------------------------
// ConflictRecord
// ---------------------------------------------------------------------------

// RecordStatus is the lifecycle state of a persisted conflict
type RecordStatus string

const (
	RecordStatusPending  RecordStatus = "pending"
	RecordStatusResolved RecordStatus = "resolved"
	RecordStatusIgnored  RecordStatus = "ignored"
)

// ConflictRecord is a conflict persisted for manual review
type ConflictRecord struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	StoreID          uuid.UUID
	EntityType       string
	EntityID         string
	Field            string
	LocalValue       any
	PlatformValue    any
	LocalModified    time.Time
	PlatformModified time.Time
	// SuggestedStrategy is what the resolver would have applied
	SuggestedStrategy Strategy
	Status            RecordStatus
	ResolvedValue     any
	ResolvedBy        string
	ResolvedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewConflictRecord persists a conflict for manual review
func NewConflictRecord(organizationID, storeID uuid.UUID, entityType, entityID string, c Conflict, suggested Strategy) *ConflictRecord {
	now := time.Now()
	return &ConflictRecord{
		ID:                uuid.New(),
		OrganizationID:    organizationID,
		StoreID:           storeID,
		EntityType:        entityType,
		EntityID:          entityID,
		Field:             c.Field,
		LocalValue:        c.LocalValue,
		PlatformValue:     c.PlatformValue,
		LocalModified:     c.LocalModified,
		PlatformModified:  c.PlatformModified,
		SuggestedStrategy: suggested,
		Status:            RecordStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Resolve closes the record with the chosen value
func (r *ConflictRecord) Resolve(value any, by string) {
	now := time.Now()
	r.Status = RecordStatusResolved
	r.ResolvedValue = value
	r.ResolvedBy = by
	r.ResolvedAt = &now
	r.UpdatedAt = now
}

// Ignore closes the record without applying a value
func (r *ConflictRecord) Ignore(by string) {
	now := time.Now()
	r.Status = RecordStatusIgnored
	r.ResolvedBy = by
	r.ResolvedAt = &now
	r.UpdatedAt = now
}

// RecordRepository persists conflict records
type RecordRepository interface {
	// Save creates or updates a record
	Save(ctx context.Context, record *ConflictRecord) error

	// FindByID retrieves a record
	FindByID(ctx context.Context, id uuid.UUID) (*ConflictRecord, error)

	// FindPending lists open records for an organization, optionally limited to one store
	FindPending(ctx context.Context, organizationID uuid.UUID, storeID *uuid.UUID) ([]ConflictRecord, error)

	// CountPending counts open records for a store
	CountPending(ctx context.Context, storeID uuid.UUID) (int64, error)
}
