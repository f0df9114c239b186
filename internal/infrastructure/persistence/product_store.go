package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// GormProductStore implements domain.ProductStore using GORM
type GormProductStore struct {
	db *gorm.DB
}

// NewGormProductStore creates a new GormProductStore
func NewGormProductStore(db *gorm.DB) *GormProductStore {
	return &GormProductStore{db: db}
}

// ListProducts lists all products for an organization
func (r *GormProductStore) ListProducts(ctx context.Context, organizationID uuid.UUID) ([]domain.LocalProduct, error) {
	var productModels []models.LocalProductModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("code ASC").
		Find(&productModels).Error; err != nil {
		return nil, err
	}

	products := make([]domain.LocalProduct, len(productModels))
	for i, model := range productModels {
		products[i] = *model.ToDomain()
	}
	return products, nil
}

// GetProduct retrieves one product
func (r *GormProductStore) GetProduct(ctx context.Context, id uuid.UUID) (*domain.LocalProduct, error) {
	var model models.LocalProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CreateProduct creates a product pulled in from a platform
func (r *GormProductStore) CreateProduct(ctx context.Context, product *domain.LocalProduct) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = time.Now()
	}

	model := models.LocalProductModelFromDomain(product)
	model.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(model).Error
}

// UpdateProductFields applies resolved field values to a product. Keys use
// the local field names (name, description, images, ...); unknown keys are
// rejected so a bad resolution cannot write an arbitrary column.
func (r *GormProductStore) UpdateProductFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	updates := make(map[string]any, len(fields)+1)
	for field, value := range fields {
		column, jsonValue, err := columnForField(field)
		if err != nil {
			return err
		}
		if jsonValue {
			jsonBytes, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", field, err)
			}
			updates[column] = string(jsonBytes)
		} else {
			updates[column] = value
		}
	}
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.LocalProductModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// columnForField maps a sync field name to its column. JSON-valued fields
// are marshaled before writing.
func columnForField(field string) (column string, jsonValue bool, err error) {
	switch field {
	case "name":
		return "name", false, nil
	case "description":
		return "description", false, nil
	case "brand":
		return "brand", false, nil
	case "category":
		return "category", false, nil
	case "price":
		return "price", false, nil
	case "images":
		return "image_urls", true, nil
	case "tags":
		return "tags", true, nil
	case "attributes":
		return "attributes", true, nil
	default:
		return "", false, fmt.Errorf("unknown product field %q", field)
	}
}

var _ domain.ProductStore = (*GormProductStore)(nil)
