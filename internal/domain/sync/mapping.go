package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// SyncStatus
// ---------------------------------------------------------------------------

// SyncStatus is the synchronization state of a mapping
type SyncStatus string

const (
	// SyncStatusPending indicates the mapping has never been synced
	SyncStatusPending SyncStatus = "pending"
	// SyncStatusSynced indicates the last sync succeeded
	SyncStatusSynced SyncStatus = "synced"
	// SyncStatusConflict indicates the last sync detected an unresolved conflict
	SyncStatusConflict SyncStatus = "conflict"
	// SyncStatusError indicates the last sync failed
	SyncStatusError SyncStatus = "error"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSynced, SyncStatusConflict, SyncStatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// PlatformMapping entity
// ---------------------------------------------------------------------------

// PlatformMapping links one local product/variant to its identifiers on one
// platform store. Unique per (store, platform product, platform variant).
// Mappings are soft-invalidated (IsActive=false), never hard-deleted except
// via explicit rollback.
type PlatformMapping struct {
	ID                uuid.UUID
	OrganizationID    uuid.UUID
	StoreID           uuid.UUID
	LocalProductID    uuid.UUID
	LocalVariantID    uuid.UUID
	PlatformCode      PlatformCode
	PlatformProductID string
	PlatformVariantID string
	// PlatformPrice caches the last price observed on the platform
	PlatformPrice decimal.Decimal
	SyncStatus    SyncStatus
	LastSyncAt    *time.Time
	LastSyncError string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPlatformMapping creates a new mapping in pending state
func NewPlatformMapping(
	organizationID, storeID, localProductID, localVariantID uuid.UUID,
	platformCode PlatformCode,
	platformProductID, platformVariantID string,
) (*PlatformMapping, error) {
	if organizationID == uuid.Nil {
		return nil, ErrMappingInvalidOrgID
	}
	if storeID == uuid.Nil {
		return nil, ErrMappingInvalidStoreID
	}
	if localProductID == uuid.Nil || localVariantID == uuid.Nil {
		return nil, ErrMappingInvalidLocalID
	}
	if !platformCode.IsValid() {
		return nil, ErrMappingInvalidCode
	}
	if platformProductID == "" {
		return nil, ErrMappingInvalidRemote
	}

	now := time.Now()
	return &PlatformMapping{
		ID:                uuid.New(),
		OrganizationID:    organizationID,
		StoreID:           storeID,
		LocalProductID:    localProductID,
		LocalVariantID:    localVariantID,
		PlatformCode:      platformCode,
		PlatformProductID: platformProductID,
		PlatformVariantID: platformVariantID,
		SyncStatus:        SyncStatusPending,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Validate validates the mapping
func (m *PlatformMapping) Validate() error {
	if m.OrganizationID == uuid.Nil {
		return ErrMappingInvalidOrgID
	}
	if m.StoreID == uuid.Nil {
		return ErrMappingInvalidStoreID
	}
	if m.LocalProductID == uuid.Nil || m.LocalVariantID == uuid.Nil {
		return ErrMappingInvalidLocalID
	}
	if !m.PlatformCode.IsValid() {
		return ErrMappingInvalidCode
	}
	if m.PlatformProductID == "" {
		return ErrMappingInvalidRemote
	}
	return nil
}

// RecordSyncSuccess records a successful sync
func (m *PlatformMapping) RecordSyncSuccess() {
	now := time.Now()
	m.LastSyncAt = &now
	m.SyncStatus = SyncStatusSynced
	m.LastSyncError = ""
	m.UpdatedAt = now
}

// RecordSyncFailure records a failed sync
func (m *PlatformMapping) RecordSyncFailure(errMsg string) {
	now := time.Now()
	m.LastSyncAt = &now
	m.SyncStatus = SyncStatusError
	m.LastSyncError = errMsg
	m.UpdatedAt = now
}

// RecordConflict marks the mapping as having an unresolved conflict
func (m *PlatformMapping) RecordConflict() {
	now := time.Now()
	m.LastSyncAt = &now
	m.SyncStatus = SyncStatusConflict
	m.UpdatedAt = now
}

// UpdatePlatformPrice refreshes the cached platform price
func (m *PlatformMapping) UpdatePlatformPrice(price decimal.Decimal) {
	m.PlatformPrice = price
	m.UpdatedAt = time.Now()
}

// Invalidate soft-invalidates the mapping
func (m *PlatformMapping) Invalidate() {
	m.IsActive = false
	m.UpdatedAt = time.Now()
}

// Activate reactivates the mapping
func (m *PlatformMapping) Activate() {
	m.IsActive = true
	m.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// MappingRepository
// ---------------------------------------------------------------------------

// MappingRepository persists PlatformMapping rows. Writes are scoped to a
// single row's id; no cross-row locking is required.
type MappingRepository interface {
	// FindByID finds a mapping by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*PlatformMapping, error)

	// FindByPlatformProduct finds a mapping by its platform identifiers.
	// platformVariantID may be empty for products without variants.
	FindByPlatformProduct(ctx context.Context, storeID uuid.UUID, platformProductID, platformVariantID string) (*PlatformMapping, error)

	// FindByLocalVariant finds the mapping for a local variant on a store
	FindByLocalVariant(ctx context.Context, storeID, localVariantID uuid.UUID) (*PlatformMapping, error)

	// FindByLocalProduct finds all variant mappings for a local product on a store
	FindByLocalProduct(ctx context.Context, storeID, localProductID uuid.UUID) ([]PlatformMapping, error)

	// FindActiveForStore finds all active mappings for a store
	FindActiveForStore(ctx context.Context, storeID uuid.UUID) ([]PlatformMapping, error)

	// Save creates or updates a mapping
	Save(ctx context.Context, mapping *PlatformMapping) error

	// SaveBatch creates or updates multiple mappings
	SaveBatch(ctx context.Context, mappings []*PlatformMapping) error

	// Delete hard-deletes a mapping. Reserved for explicit rollback.
	Delete(ctx context.Context, id uuid.UUID) error
}
