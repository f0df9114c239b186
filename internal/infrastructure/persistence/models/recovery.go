package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// SyncErrorModel is the persistence model for a dead-letter record. The
// replay context is stored as JSONB so a retry can reconstruct the exact
// failed operation.
type SyncErrorModel struct {
	ID             uuid.UUID                `gorm:"type:uuid;primary_key"`
	Key            string                   `gorm:"type:varchar(255);not null;index:idx_sync_errors_key,priority:1"`
	JobType        string                   `gorm:"type:varchar(50);not null"`
	OrganizationID uuid.UUID                `gorm:"type:uuid;not null;index:idx_sync_errors_org,priority:1"`
	StoreID        uuid.UUID                `gorm:"type:uuid;not null;index:idx_sync_errors_store,priority:1"`
	Message        string                   `gorm:"type:text;not null"`
	ContextJSON    string                   `gorm:"type:jsonb;column:context"`
	Status         domain.ErrorRecordStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_sync_errors_status,priority:1"`
	RetryCount     int                      `gorm:"not null;default:0"`
	NextRetryAt    *time.Time               `gorm:"index"`
	ResolvedAt     *time.Time
	Resolution     string    `gorm:"type:varchar(255)"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncErrorModel) TableName() string {
	return "sync_errors"
}

// ToDomain converts the persistence model to a domain ErrorRecord
func (m *SyncErrorModel) ToDomain() *domain.ErrorRecord {
	record := &domain.ErrorRecord{
		ID:             m.ID,
		Key:            m.Key,
		JobType:        m.JobType,
		OrganizationID: m.OrganizationID,
		StoreID:        m.StoreID,
		Message:        m.Message,
		Context:        make(map[string]any),
		Status:         m.Status,
		RetryCount:     m.RetryCount,
		NextRetryAt:    m.NextRetryAt,
		ResolvedAt:     m.ResolvedAt,
		Resolution:     m.Resolution,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}

	if m.ContextJSON != "" {
		var errContext map[string]any
		if err := json.Unmarshal([]byte(m.ContextJSON), &errContext); err == nil {
			record.Context = errContext
		}
	}

	return record
}

// FromDomain populates the persistence model from a domain ErrorRecord
func (m *SyncErrorModel) FromDomain(r *domain.ErrorRecord) {
	m.ID = r.ID
	m.Key = r.Key
	m.JobType = r.JobType
	m.OrganizationID = r.OrganizationID
	m.StoreID = r.StoreID
	m.Message = r.Message
	m.Status = r.Status
	m.RetryCount = r.RetryCount
	m.NextRetryAt = r.NextRetryAt
	m.ResolvedAt = r.ResolvedAt
	m.Resolution = r.Resolution
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt

	if len(r.Context) > 0 {
		if jsonBytes, err := json.Marshal(r.Context); err == nil {
			m.ContextJSON = string(jsonBytes)
		}
	} else {
		m.ContextJSON = "{}"
	}
}

// SyncErrorModelFromDomain creates a new persistence model from a domain
// ErrorRecord
func SyncErrorModelFromDomain(r *domain.ErrorRecord) *SyncErrorModel {
	m := &SyncErrorModel{}
	m.FromDomain(r)
	return m
}
