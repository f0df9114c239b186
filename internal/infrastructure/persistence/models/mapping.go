package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// PlatformMappingModel is the persistence model for the PlatformMapping
// domain entity.
type PlatformMappingModel struct {
	ID                uuid.UUID           `gorm:"type:uuid;primary_key"`
	OrganizationID    uuid.UUID           `gorm:"type:uuid;not null;index:idx_platform_mappings_org,priority:1"`
	StoreID           uuid.UUID           `gorm:"type:uuid;not null;index:idx_platform_mappings_store,priority:1;index:idx_platform_mappings_store_remote,priority:1"`
	LocalProductID    uuid.UUID           `gorm:"type:uuid;not null;index:idx_platform_mappings_local_product,priority:1"`
	LocalVariantID    uuid.UUID           `gorm:"type:uuid;not null;index:idx_platform_mappings_local_variant,priority:1"`
	PlatformCode      domain.PlatformCode `gorm:"type:varchar(20);not null"`
	PlatformProductID string              `gorm:"type:varchar(100);not null;index:idx_platform_mappings_store_remote,priority:2"`
	PlatformVariantID string              `gorm:"type:varchar(100);index:idx_platform_mappings_store_remote,priority:3"`
	PlatformPrice     decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	SyncStatus        domain.SyncStatus   `gorm:"type:varchar(20);not null;default:'pending'"`
	LastSyncAt        *time.Time          `gorm:"index"`
	LastSyncError     string              `gorm:"type:text"`
	IsActive          bool                `gorm:"not null;default:true"`
	CreatedAt         time.Time           `gorm:"not null"`
	UpdatedAt         time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PlatformMappingModel) TableName() string {
	return "platform_mappings"
}

// ToDomain converts the persistence model to a domain PlatformMapping entity.
func (m *PlatformMappingModel) ToDomain() *domain.PlatformMapping {
	return &domain.PlatformMapping{
		ID:                m.ID,
		OrganizationID:    m.OrganizationID,
		StoreID:           m.StoreID,
		LocalProductID:    m.LocalProductID,
		LocalVariantID:    m.LocalVariantID,
		PlatformCode:      m.PlatformCode,
		PlatformProductID: m.PlatformProductID,
		PlatformVariantID: m.PlatformVariantID,
		PlatformPrice:     m.PlatformPrice,
		SyncStatus:        m.SyncStatus,
		LastSyncAt:        m.LastSyncAt,
		LastSyncError:     m.LastSyncError,
		IsActive:          m.IsActive,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain PlatformMapping entity.
func (m *PlatformMappingModel) FromDomain(pm *domain.PlatformMapping) {
	m.ID = pm.ID
	m.OrganizationID = pm.OrganizationID
	m.StoreID = pm.StoreID
	m.LocalProductID = pm.LocalProductID
	m.LocalVariantID = pm.LocalVariantID
	m.PlatformCode = pm.PlatformCode
	m.PlatformProductID = pm.PlatformProductID
	m.PlatformVariantID = pm.PlatformVariantID
	m.PlatformPrice = pm.PlatformPrice
	m.SyncStatus = pm.SyncStatus
	m.LastSyncAt = pm.LastSyncAt
	m.LastSyncError = pm.LastSyncError
	m.IsActive = pm.IsActive
	m.CreatedAt = pm.CreatedAt
	m.UpdatedAt = pm.UpdatedAt
}

// PlatformMappingModelFromDomain creates a new persistence model from a
// domain PlatformMapping entity.
func PlatformMappingModelFromDomain(pm *domain.PlatformMapping) *PlatformMappingModel {
	m := &PlatformMappingModel{}
	m.FromDomain(pm)
	return m
}
