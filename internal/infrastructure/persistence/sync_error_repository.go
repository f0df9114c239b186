package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// GormSyncErrorRepository persists dead-letter records. The recovery service
// builds the domain ErrorRecovery contract on top of it.
type GormSyncErrorRepository struct {
	db *gorm.DB
}

// NewGormSyncErrorRepository creates a new GormSyncErrorRepository
func NewGormSyncErrorRepository(db *gorm.DB) *GormSyncErrorRepository {
	return &GormSyncErrorRepository{db: db}
}

// Save creates or updates a record
func (r *GormSyncErrorRepository) Save(ctx context.Context, record *domain.ErrorRecord) error {
	model := models.SyncErrorModelFromDomain(record)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID retrieves a record
func (r *GormSyncErrorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ErrorRecord, error) {
	var model models.SyncErrorModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByKey finds the unresolved record for a key, if any. Repeated
// failures of the same operation fold into one record instead of piling up.
func (r *GormSyncErrorRepository) FindOpenByKey(ctx context.Context, key string) (*domain.ErrorRecord, error) {
	var model models.SyncErrorModel
	if err := r.db.WithContext(ctx).
		Where("key = ? AND status <> ?", key, domain.ErrorRecordStatusResolved).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindReadyForRetry lists pending records whose next retry time has passed
func (r *GormSyncErrorRepository) FindReadyForRetry(ctx context.Context, now time.Time) ([]domain.ErrorRecord, error) {
	var recordModels []models.SyncErrorModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", domain.ErrorRecordStatusPending, now).
		Order("next_retry_at ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]domain.ErrorRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}
