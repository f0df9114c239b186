package models

import (
	"time"

	"github.com/google/uuid"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// InventorySnapshotModel is the persistence model for one variant's stock
// position at one location. Available quantity is derived in the domain and
// never stored.
type InventorySnapshotModel struct {
	ProductVariantID uuid.UUID `gorm:"type:uuid;primary_key"`
	LocationID       uuid.UUID `gorm:"type:uuid;primary_key"`
	OrganizationID   uuid.UUID `gorm:"type:uuid;not null;index:idx_inventory_snapshots_org,priority:1"`
	QuantityOnHand   int64     `gorm:"not null;default:0"`
	QuantityReserved int64     `gorm:"not null;default:0"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventorySnapshotModel) TableName() string {
	return "inventory_snapshots"
}

// ToDomain converts the persistence model to a domain InventorySnapshot
func (m *InventorySnapshotModel) ToDomain() domain.InventorySnapshot {
	return domain.InventorySnapshot{
		ProductVariantID: m.ProductVariantID,
		LocationID:       m.LocationID,
		QuantityOnHand:   m.QuantityOnHand,
		QuantityReserved: m.QuantityReserved,
	}
}

// InventoryAdjustmentModel is the audit trail row written on every on-hand
// write coming out of a sync resolution.
type InventoryAdjustmentModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	OrganizationID   uuid.UUID `gorm:"type:uuid;not null;index:idx_inventory_adjustments_org,priority:1"`
	ProductVariantID uuid.UUID `gorm:"type:uuid;not null;index:idx_inventory_adjustments_variant,priority:1"`
	LocationID       uuid.UUID `gorm:"type:uuid;not null"`
	QuantityBefore   int64     `gorm:"not null"`
	QuantityAfter    int64     `gorm:"not null"`
	Reason           string    `gorm:"type:varchar(255);not null"`
	CreatedAt        time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InventoryAdjustmentModel) TableName() string {
	return "inventory_adjustments"
}
