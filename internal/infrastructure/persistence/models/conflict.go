package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/conflict"
)

// ConflictRecordModel is the persistence model for a conflict awaiting
// manual review. Field values are stored as JSONB so any comparable value
// survives the round trip.
type ConflictRecordModel struct {
	ID                uuid.UUID             `gorm:"type:uuid;primary_key"`
	OrganizationID    uuid.UUID             `gorm:"type:uuid;not null;index:idx_conflict_records_org,priority:1"`
	StoreID           uuid.UUID             `gorm:"type:uuid;not null;index:idx_conflict_records_store,priority:1"`
	EntityType        string                `gorm:"type:varchar(50);not null"`
	EntityID          string                `gorm:"type:varchar(100);not null"`
	Field             string                `gorm:"type:varchar(100);not null"`
	LocalValueJSON    string                `gorm:"type:jsonb;column:local_value"`
	PlatformValueJSON string                `gorm:"type:jsonb;column:platform_value"`
	LocalModified     time.Time             `gorm:"not null"`
	PlatformModified  time.Time             `gorm:"not null"`
	SuggestedStrategy conflict.Strategy     `gorm:"type:varchar(20);not null"`
	Status            conflict.RecordStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_conflict_records_status,priority:1"`
	ResolvedValueJSON string                `gorm:"type:jsonb;column:resolved_value"`
	ResolvedBy        string                `gorm:"type:varchar(100)"`
	ResolvedAt        *time.Time
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConflictRecordModel) TableName() string {
	return "conflict_records"
}

// ToDomain converts the persistence model to a domain ConflictRecord
func (m *ConflictRecordModel) ToDomain() *conflict.ConflictRecord {
	return &conflict.ConflictRecord{
		ID:                m.ID,
		OrganizationID:    m.OrganizationID,
		StoreID:           m.StoreID,
		EntityType:        m.EntityType,
		EntityID:          m.EntityID,
		Field:             m.Field,
		LocalValue:        unmarshalValue(m.LocalValueJSON),
		PlatformValue:     unmarshalValue(m.PlatformValueJSON),
		LocalModified:     m.LocalModified,
		PlatformModified:  m.PlatformModified,
		SuggestedStrategy: m.SuggestedStrategy,
		Status:            m.Status,
		ResolvedValue:     unmarshalValue(m.ResolvedValueJSON),
		ResolvedBy:        m.ResolvedBy,
		ResolvedAt:        m.ResolvedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ConflictRecord
func (m *ConflictRecordModel) FromDomain(r *conflict.ConflictRecord) {
	m.ID = r.ID
	m.OrganizationID = r.OrganizationID
	m.StoreID = r.StoreID
	m.EntityType = r.EntityType
	m.EntityID = r.EntityID
	m.Field = r.Field
	m.LocalValueJSON = marshalValue(r.LocalValue)
	m.PlatformValueJSON = marshalValue(r.PlatformValue)
	m.LocalModified = r.LocalModified
	m.PlatformModified = r.PlatformModified
	m.SuggestedStrategy = r.SuggestedStrategy
	m.Status = r.Status
	m.ResolvedValueJSON = marshalValue(r.ResolvedValue)
	m.ResolvedBy = r.ResolvedBy
	m.ResolvedAt = r.ResolvedAt
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
}

// ConflictRecordModelFromDomain creates a new persistence model from a
// domain ConflictRecord
func ConflictRecordModelFromDomain(r *conflict.ConflictRecord) *ConflictRecordModel {
	m := &ConflictRecordModel{}
	m.FromDomain(r)
	return m
}

func marshalValue(v any) string {
	if v == nil {
		return "null"
	}
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(jsonBytes)
}

func unmarshalValue(raw string) any {
	if raw == "" || raw == "null" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return v
}
