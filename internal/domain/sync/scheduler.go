package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScheduleEntry is one recurring sync registration. Entries are owned by the
// Scheduler; the sync services mutate them only through its contract.
type ScheduleEntry struct {
	// ID is the schedule identifier, unique per scheduler
	ID string
	// Name is a human-readable label
	Name string
	// CronExpr is a five-field cron expression
	CronExpr string
	// Enabled gates execution without removing the entry
	Enabled bool
	// JobType names the job the entry triggers (e.g. "inventory_sync")
	JobType string
	// OrganizationID scopes the job
	OrganizationID uuid.UUID
	// StoreID limits the job to one store when set
	StoreID *uuid.UUID
	// Options are passed through to the sync invocation
	Options   SyncOptions
	LastRunAt *time.Time
	NextRunAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Scheduler is the cron-capable collaborator the sync services register
// recurring jobs with. It is constructed explicitly and injected; there is no
// implicit shared instance.
type Scheduler interface {
	// AddSchedule registers a new entry
	AddSchedule(ctx context.Context, entry *ScheduleEntry) error

	// UpdateSchedule replaces an existing entry by ID
	UpdateSchedule(ctx context.Context, entry *ScheduleEntry) error

	// RemoveSchedule unregisters an entry
	RemoveSchedule(ctx context.Context, id string) error

	// GetSchedule retrieves one entry
	GetSchedule(ctx context.Context, id string) (*ScheduleEntry, error)

	// GetSchedules lists entries for an organization
	GetSchedules(ctx context.Context, organizationID uuid.UUID) ([]ScheduleEntry, error)
}
