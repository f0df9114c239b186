package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// InventorySnapshot
// ---------------------------------------------------------------------------

// InventorySnapshot is the stock position of one variant at one location.
// AvailableQuantity is always derived, never stored.
type InventorySnapshot struct {
	ProductVariantID uuid.UUID
	LocationID       uuid.UUID
	QuantityOnHand   int64
	QuantityReserved int64
}

// AvailableQuantity returns max(0, onHand - reserved). The result is never
// negative even when reservations exceed stock on hand.
func (s InventorySnapshot) AvailableQuantity() int64 {
	available := s.QuantityOnHand - s.QuantityReserved
	if available < 0 {
		return 0
	}
	return available
}

// InventoryFilter narrows a ListSnapshots call
type InventoryFilter struct {
	LocationIDs []uuid.UUID
	VariantIDs  []uuid.UUID
}

// InventoryStore reads and writes local stock levels
type InventoryStore interface {
	// ListSnapshots lists stock positions for an organization, optionally filtered
	ListSnapshots(ctx context.Context, organizationID uuid.UUID, filter InventoryFilter) ([]InventorySnapshot, error)

	// GetSnapshot retrieves one stock position
	GetSnapshot(ctx context.Context, variantID, locationID uuid.UUID) (*InventorySnapshot, error)

	// SetOnHand sets the on-hand quantity for a variant at a location.
	// The reason is recorded for audit.
	SetOnHand(ctx context.Context, variantID, locationID uuid.UUID, quantity int64, reason string) error
}

// ---------------------------------------------------------------------------
// Inventory conflicts
// ---------------------------------------------------------------------------

// InventoryResolutionStrategy selects how an inventory conflict is settled.
// auto_resolve is the stock-safety heuristic, distinct from the generic
// field-level conflict resolver.
type InventoryResolutionStrategy string

const (
	InventoryResolutionLocalWins    InventoryResolutionStrategy = "local_wins"
	InventoryResolutionPlatformWins InventoryResolutionStrategy = "platform_wins"
	InventoryResolutionAuto         InventoryResolutionStrategy = "auto_resolve"
	InventoryResolutionManual       InventoryResolutionStrategy = "manual_review"
)

// IsValid returns true if the strategy is valid
func (s InventoryResolutionStrategy) IsValid() bool {
	switch s {
	case InventoryResolutionLocalWins, InventoryResolutionPlatformWins,
		InventoryResolutionAuto, InventoryResolutionManual:
		return true
	default:
		return false
	}
}

// InventoryConflict is a detected disagreement between local and platform
// stock for one variant. The pull phase produces these without mutating any
// state; resolution is a separate, explicit step.
type InventoryConflict struct {
	ProductVariantID  uuid.UUID
	LocationID        uuid.UUID
	PlatformProductID string
	PlatformVariantID string
	LocalQuantity     int64
	PlatformQuantity  int64
	// Resolution is the suggested strategy; defaults to manual_review
	Resolution InventoryResolutionStrategy
	DetectedAt time.Time
}

// Difference returns the absolute quantity difference
func (c InventoryConflict) Difference() int64 {
	d := c.LocalQuantity - c.PlatformQuantity
	if d < 0 {
		return -d
	}
	return d
}
