package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// GormMappingRepository implements domain.MappingRepository using GORM
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// FindByID finds a mapping by its ID
func (r *GormMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PlatformMapping, error) {
	var model models.PlatformMappingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlatformProduct finds a mapping by its platform identifiers.
// platformVariantID may be empty for products without variants.
func (r *GormMappingRepository) FindByPlatformProduct(ctx context.Context, storeID uuid.UUID, platformProductID, platformVariantID string) (*domain.PlatformMapping, error) {
	var model models.PlatformMappingModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND platform_product_id = ? AND platform_variant_id = ?", storeID, platformProductID, platformVariantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLocalVariant finds the mapping for a local variant on a store
func (r *GormMappingRepository) FindByLocalVariant(ctx context.Context, storeID, localVariantID uuid.UUID) (*domain.PlatformMapping, error) {
	var model models.PlatformMappingModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND local_variant_id = ?", storeID, localVariantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLocalProduct finds all variant mappings for a local product on a store
func (r *GormMappingRepository) FindByLocalProduct(ctx context.Context, storeID, localProductID uuid.UUID) ([]domain.PlatformMapping, error) {
	var mappingModels []models.PlatformMappingModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND local_product_id = ?", storeID, localProductID).
		Order("platform_variant_id ASC").
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]domain.PlatformMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, nil
}

// FindActiveForStore finds all active mappings for a store
func (r *GormMappingRepository) FindActiveForStore(ctx context.Context, storeID uuid.UUID) ([]domain.PlatformMapping, error) {
	var mappingModels []models.PlatformMappingModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Order("created_at ASC").
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]domain.PlatformMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, nil
}

// Save creates or updates a mapping
func (r *GormMappingRepository) Save(ctx context.Context, mapping *domain.PlatformMapping) error {
	model := models.PlatformMappingModelFromDomain(mapping)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveBatch creates or updates multiple mappings
func (r *GormMappingRepository) SaveBatch(ctx context.Context, mappings []*domain.PlatformMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	mappingModels := make([]*models.PlatformMappingModel, len(mappings))
	for i, mapping := range mappings {
		mappingModels[i] = models.PlatformMappingModelFromDomain(mapping)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range mappingModels {
			if err := tx.Save(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete hard-deletes a mapping. Reserved for explicit rollback.
func (r *GormMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PlatformMappingModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrMappingNotFound
	}
	return nil
}

var _ domain.MappingRepository = (*GormMappingRepository)(nil)
