package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// GormScheduleRepository persists sync schedule registrations so the
// scheduler can reload them after a restart.
type GormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GormScheduleRepository
func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

// Save creates or updates a schedule entry
func (r *GormScheduleRepository) Save(ctx context.Context, entry *domain.ScheduleEntry) error {
	model := models.ScheduleModelFromDomain(entry)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID retrieves a schedule entry
func (r *GormScheduleRepository) FindByID(ctx context.Context, id string) (*domain.ScheduleEntry, error) {
	var model models.ScheduleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrganization lists schedule entries for an organization
func (r *GormScheduleRepository) FindByOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.ScheduleEntry, error) {
	var scheduleModels []models.ScheduleModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("id ASC").
		Find(&scheduleModels).Error; err != nil {
		return nil, err
	}

	entries := make([]domain.ScheduleEntry, len(scheduleModels))
	for i, model := range scheduleModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// FindAll lists every schedule entry. The scheduler calls it once on startup.
func (r *GormScheduleRepository) FindAll(ctx context.Context) ([]domain.ScheduleEntry, error) {
	var scheduleModels []models.ScheduleModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&scheduleModels).Error; err != nil {
		return nil, err
	}

	entries := make([]domain.ScheduleEntry, len(scheduleModels))
	for i, model := range scheduleModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Delete removes a schedule entry
func (r *GormScheduleRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.ScheduleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}
