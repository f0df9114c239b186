package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// LocalProductModel is the persistence model for the merchant's internal
// product record. Variants, images, tags and attributes are stored as JSONB
// because the sync engine reads and writes them as whole values.
type LocalProductModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index:idx_local_products_org,priority:1"`
	Code           string          `gorm:"type:varchar(100);not null;index:idx_local_products_code,priority:1"`
	Name           string          `gorm:"type:varchar(255);not null"`
	Description    string          `gorm:"type:text"`
	Brand          string          `gorm:"type:varchar(100)"`
	Category       string          `gorm:"type:varchar(100)"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ImageURLsJSON  string          `gorm:"type:jsonb;column:image_urls"`
	TagsJSON       string          `gorm:"type:jsonb;column:tags"`
	AttributesJSON string          `gorm:"type:jsonb;column:attributes"`
	VariantsJSON   string          `gorm:"type:jsonb;column:variants"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LocalProductModel) TableName() string {
	return "local_products"
}

// ToDomain converts the persistence model to a domain LocalProduct
func (m *LocalProductModel) ToDomain() *domain.LocalProduct {
	product := &domain.LocalProduct{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Code:           m.Code,
		Name:           m.Name,
		Description:    m.Description,
		Brand:          m.Brand,
		Category:       m.Category,
		Price:          m.Price,
		ImageURLs:      make([]string, 0),
		Tags:           make([]string, 0),
		Attributes:     make(map[string]any),
		Variants:       make([]domain.LocalVariant, 0),
		UpdatedAt:      m.UpdatedAt,
	}

	if m.ImageURLsJSON != "" {
		var urls []string
		if err := json.Unmarshal([]byte(m.ImageURLsJSON), &urls); err == nil {
			product.ImageURLs = urls
		}
	}
	if m.TagsJSON != "" {
		var tags []string
		if err := json.Unmarshal([]byte(m.TagsJSON), &tags); err == nil {
			product.Tags = tags
		}
	}
	if m.AttributesJSON != "" {
		var attrs map[string]any
		if err := json.Unmarshal([]byte(m.AttributesJSON), &attrs); err == nil {
			product.Attributes = attrs
		}
	}
	if m.VariantsJSON != "" {
		var variants []domain.LocalVariant
		if err := json.Unmarshal([]byte(m.VariantsJSON), &variants); err == nil {
			product.Variants = variants
		}
	}

	return product
}

// FromDomain populates the persistence model from a domain LocalProduct
func (m *LocalProductModel) FromDomain(p *domain.LocalProduct) {
	m.ID = p.ID
	m.OrganizationID = p.OrganizationID
	m.Code = p.Code
	m.Name = p.Name
	m.Description = p.Description
	m.Brand = p.Brand
	m.Category = p.Category
	m.Price = p.Price
	m.UpdatedAt = p.UpdatedAt

	m.ImageURLsJSON = marshalOrEmptyArray(p.ImageURLs)
	m.TagsJSON = marshalOrEmptyArray(p.Tags)
	m.VariantsJSON = marshalOrEmptyArray(p.Variants)

	if len(p.Attributes) > 0 {
		if jsonBytes, err := json.Marshal(p.Attributes); err == nil {
			m.AttributesJSON = string(jsonBytes)
		}
	} else {
		m.AttributesJSON = "{}"
	}
}

// LocalProductModelFromDomain creates a new persistence model from a domain
// LocalProduct
func LocalProductModelFromDomain(p *domain.LocalProduct) *LocalProductModel {
	m := &LocalProductModel{}
	m.FromDomain(p)
	return m
}

func marshalOrEmptyArray[T any](values []T) string {
	if len(values) == 0 {
		return "[]"
	}
	jsonBytes, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(jsonBytes)
}
