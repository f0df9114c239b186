package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/conflict"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// ErrConflictRecordNotFound is returned when a conflict record does not exist
var ErrConflictRecordNotFound = errors.New("persistence: conflict record not found")

// GormConflictRecordRepository implements conflict.RecordRepository using GORM
type GormConflictRecordRepository struct {
	db *gorm.DB
}

// NewGormConflictRecordRepository creates a new GormConflictRecordRepository
func NewGormConflictRecordRepository(db *gorm.DB) *GormConflictRecordRepository {
	return &GormConflictRecordRepository{db: db}
}

// Save creates or updates a record
func (r *GormConflictRecordRepository) Save(ctx context.Context, record *conflict.ConflictRecord) error {
	model := models.ConflictRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID retrieves a record
func (r *GormConflictRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*conflict.ConflictRecord, error) {
	var model models.ConflictRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConflictRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPending lists open records for an organization, optionally limited to one store
func (r *GormConflictRecordRepository) FindPending(ctx context.Context, organizationID uuid.UUID, storeID *uuid.UUID) ([]conflict.ConflictRecord, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND status = ?", organizationID, conflict.RecordStatusPending)
	if storeID != nil {
		query = query.Where("store_id = ?", *storeID)
	}

	var recordModels []models.ConflictRecordModel
	if err := query.Order("created_at ASC").Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]conflict.ConflictRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// CountPending counts open records for a store
func (r *GormConflictRecordRepository) CountPending(ctx context.Context, storeID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ConflictRecordModel{}).
		Where("store_id = ? AND status = ?", storeID, conflict.RecordStatusPending).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ conflict.RecordRepository = (*GormConflictRecordRepository)(nil)
