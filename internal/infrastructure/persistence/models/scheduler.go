package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// ScheduleModel is the persistence model for a recurring sync registration.
// Schedules survive restarts; the scheduler reloads them on startup.
type ScheduleModel struct {
	ID             string     `gorm:"type:varchar(255);primary_key"`
	Name           string     `gorm:"type:varchar(255);not null"`
	CronExpr       string     `gorm:"type:varchar(50);not null"`
	Enabled        bool       `gorm:"not null;default:true"`
	JobType        string     `gorm:"type:varchar(50);not null;index:idx_schedules_job_type,priority:1"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_schedules_org,priority:1"`
	StoreID        *uuid.UUID `gorm:"type:uuid"`
	OptionsJSON    string     `gorm:"type:jsonb;column:options"`
	LastRunAt      *time.Time
	NextRunAt      *time.Time `gorm:"index"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ScheduleModel) TableName() string {
	return "sync_schedules"
}

// ToDomain converts the persistence model to a domain ScheduleEntry
func (m *ScheduleModel) ToDomain() *domain.ScheduleEntry {
	entry := &domain.ScheduleEntry{
		ID:             m.ID,
		Name:           m.Name,
		CronExpr:       m.CronExpr,
		Enabled:        m.Enabled,
		JobType:        m.JobType,
		OrganizationID: m.OrganizationID,
		StoreID:        m.StoreID,
		LastRunAt:      m.LastRunAt,
		NextRunAt:      m.NextRunAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}

	if m.OptionsJSON != "" {
		var options domain.SyncOptions
		if err := json.Unmarshal([]byte(m.OptionsJSON), &options); err == nil {
			entry.Options = options
		}
	}

	return entry
}

// FromDomain populates the persistence model from a domain ScheduleEntry
func (m *ScheduleModel) FromDomain(e *domain.ScheduleEntry) {
	m.ID = e.ID
	m.Name = e.Name
	m.CronExpr = e.CronExpr
	m.Enabled = e.Enabled
	m.JobType = e.JobType
	m.OrganizationID = e.OrganizationID
	m.StoreID = e.StoreID
	m.LastRunAt = e.LastRunAt
	m.NextRunAt = e.NextRunAt
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt

	if jsonBytes, err := json.Marshal(e.Options); err == nil {
		m.OptionsJSON = string(jsonBytes)
	}
}

// ScheduleModelFromDomain creates a new persistence model from a domain
// ScheduleEntry
func ScheduleModelFromDomain(e *domain.ScheduleEntry) *ScheduleModel {
	m := &ScheduleModel{}
	m.FromDomain(e)
	return m
}
