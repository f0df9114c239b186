package models

import (
	"time"

	"github.com/google/uuid"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// StoreModel is the persistence model for a connected marketplace store.
type StoreModel struct {
	ID             uuid.UUID           `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID           `gorm:"type:uuid;not null;index:idx_stores_org"`
	Name           string              `gorm:"type:varchar(255);not null"`
	PlatformCode   domain.PlatformCode `gorm:"type:varchar(20);not null;index:idx_stores_platform"`
	IsActive       bool                `gorm:"not null;default:true"`
	LastSyncAt     *time.Time          `gorm:"index"`
	CreatedAt      time.Time           `gorm:"not null"`
	UpdatedAt      time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the persistence model to a domain Store
func (m *StoreModel) ToDomain() *domain.Store {
	return &domain.Store{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Name:           m.Name,
		PlatformCode:   m.PlatformCode,
		IsActive:       m.IsActive,
		LastSyncAt:     m.LastSyncAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Store
func (m *StoreModel) FromDomain(s *domain.Store) {
	m.ID = s.ID
	m.OrganizationID = s.OrganizationID
	m.Name = s.Name
	m.PlatformCode = s.PlatformCode
	m.IsActive = s.IsActive
	m.LastSyncAt = s.LastSyncAt
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
}

// StoreCredentialsModel is the persistence model for a store's API
// credentials. Tokens are stored as opaque strings; encryption at rest is the
// database's concern.
type StoreCredentialsModel struct {
	StoreID        uuid.UUID           `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID           `gorm:"type:uuid;not null;index:idx_store_credentials_org"`
	PlatformCode   domain.PlatformCode `gorm:"type:varchar(20);not null"`
	APIBaseURL     string              `gorm:"type:varchar(255)"`
	AccessToken    string              `gorm:"type:text;not null"`
	SellerID       string              `gorm:"type:varchar(100)"`
	CreatedAt      time.Time           `gorm:"not null"`
	UpdatedAt      time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StoreCredentialsModel) TableName() string {
	return "store_credentials"
}

// ToDomain converts the persistence model to domain StoreCredentials
func (m *StoreCredentialsModel) ToDomain() *domain.StoreCredentials {
	return &domain.StoreCredentials{
		StoreID:      m.StoreID,
		PlatformCode: m.PlatformCode,
		APIBaseURL:   m.APIBaseURL,
		AccessToken:  m.AccessToken,
		SellerID:     m.SellerID,
	}
}
