package sync

import (
	"time"

	"github.com/google/uuid"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Conflict detection
// ---------------------------------------------------------------------------

// InventoryConflictReport summarizes a detection run across one or more stores.
type InventoryConflictReport struct {
	Conflicts      []domain.InventoryConflict `json:"conflicts"`
	Count          int                        `json:"count"`
	MeanDifference float64                    `json:"mean_difference"`
	MaxDifference  int64                      `json:"max_difference"`
	CheckedStores  int                        `json:"checked_stores"`
	DetectedAt     time.Time                  `json:"detected_at"`
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// StoreSyncStats is the per-store slice of the organization stats.
type StoreSyncStats struct {
	StoreID        uuid.UUID           `json:"store_id"`
	StoreName      string              `json:"store_name"`
	PlatformCode   domain.PlatformCode `json:"platform_code"`
	ActiveMappings int                 `json:"active_mappings"`
	Synced         int                 `json:"synced"`
	Pending        int                 `json:"pending"`
	Conflict       int                 `json:"conflict"`
	Errored        int                 `json:"errored"`
	LastSyncAt     *time.Time          `json:"last_sync_at,omitempty"`
}

// InventorySyncStats aggregates mapping sync state across an organization.
type InventorySyncStats struct {
	OrganizationID uuid.UUID        `json:"organization_id"`
	TotalStores    int              `json:"total_stores"`
	ActiveMappings int              `json:"active_mappings"`
	Synced         int              `json:"synced"`
	Pending        int              `json:"pending"`
	Conflict       int              `json:"conflict"`
	Errored        int              `json:"errored"`
	ErrorRate      float64          `json:"error_rate"`
	LastSyncAt     *time.Time       `json:"last_sync_at,omitempty"`
	Stores         []StoreSyncStats `json:"stores"`
}

// ---------------------------------------------------------------------------
// Health check
// ---------------------------------------------------------------------------

// HealthStatus is one check's or the overall verdict.
type HealthStatus string

const (
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusWarning  HealthStatus = "warning"
	HealthStatusCritical HealthStatus = "critical"
)

// HealthCheck is one named probe inside the health report.
type HealthCheck struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail string       `json:"detail"`
}

// HealthReport is the aggregate health verdict for an organization's
// inventory synchronization.
type HealthReport struct {
	OrganizationID  uuid.UUID     `json:"organization_id"`
	Status          HealthStatus  `json:"status"`
	Checks          []HealthCheck `json:"checks"`
	Recommendations []string      `json:"recommendations"`
	CheckedAt       time.Time     `json:"checked_at"`
}
