package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// GormStoreProvider implements domain.StoreProvider using GORM
type GormStoreProvider struct {
	db *gorm.DB
}

// NewGormStoreProvider creates a new GormStoreProvider
func NewGormStoreProvider(db *gorm.DB) *GormStoreProvider {
	return &GormStoreProvider{db: db}
}

// GetStore retrieves a store by ID
func (r *GormStoreProvider) GetStore(ctx context.Context, storeID uuid.UUID) (*domain.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetStoreCredentials retrieves the credentials for a store scoped to an organization
func (r *GormStoreProvider) GetStoreCredentials(ctx context.Context, storeID, organizationID uuid.UUID) (*domain.StoreCredentials, error) {
	var model models.StoreCredentialsModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND organization_id = ?", storeID, organizationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCredentialsNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetOrganizationStores lists the organization's stores
func (r *GormStoreProvider) GetOrganizationStores(ctx context.Context, organizationID uuid.UUID, filter domain.StoreFilter) ([]domain.Store, error) {
	query := r.db.WithContext(ctx).Where("organization_id = ?", organizationID)
	if filter.PlatformCode != nil {
		query = query.Where("platform_code = ?", *filter.PlatformCode)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var storeModels []models.StoreModel
	if err := query.Order("created_at ASC").Find(&storeModels).Error; err != nil {
		return nil, err
	}

	stores := make([]domain.Store, len(storeModels))
	for i, model := range storeModels {
		stores[i] = *model.ToDomain()
	}
	return stores, nil
}

var _ domain.StoreProvider = (*GormStoreProvider)(nil)
