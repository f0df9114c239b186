package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// GormInventoryStore implements domain.InventoryStore using GORM. Every
// on-hand write also appends an adjustment row so sync-driven mutations are
// auditable.
type GormInventoryStore struct {
	db *gorm.DB
}

// NewGormInventoryStore creates a new GormInventoryStore
func NewGormInventoryStore(db *gorm.DB) *GormInventoryStore {
	return &GormInventoryStore{db: db}
}

// ListSnapshots lists stock positions for an organization, optionally filtered
func (r *GormInventoryStore) ListSnapshots(ctx context.Context, organizationID uuid.UUID, filter domain.InventoryFilter) ([]domain.InventorySnapshot, error) {
	query := r.db.WithContext(ctx).Where("organization_id = ?", organizationID)
	if len(filter.LocationIDs) > 0 {
		query = query.Where("location_id IN ?", filter.LocationIDs)
	}
	if len(filter.VariantIDs) > 0 {
		query = query.Where("product_variant_id IN ?", filter.VariantIDs)
	}

	var snapshotModels []models.InventorySnapshotModel
	if err := query.Order("product_variant_id ASC").Find(&snapshotModels).Error; err != nil {
		return nil, err
	}

	snapshots := make([]domain.InventorySnapshot, len(snapshotModels))
	for i, model := range snapshotModels {
		snapshots[i] = model.ToDomain()
	}
	return snapshots, nil
}

// GetSnapshot retrieves one stock position
func (r *GormInventoryStore) GetSnapshot(ctx context.Context, variantID, locationID uuid.UUID) (*domain.InventorySnapshot, error) {
	var model models.InventorySnapshotModel
	if err := r.db.WithContext(ctx).
		Where("product_variant_id = ? AND location_id = ?", variantID, locationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	snapshot := model.ToDomain()
	return &snapshot, nil
}

// SetOnHand sets the on-hand quantity for a variant at a location. The
// current row is locked for the duration of the write so concurrent syncs
// cannot interleave, and the change is recorded with its reason.
func (r *GormInventoryStore) SetOnHand(ctx context.Context, variantID, locationID uuid.UUID, quantity int64, reason string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.InventorySnapshotModel
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_variant_id = ? AND location_id = ?", variantID, locationID).
			First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrProductNotFound
			}
			return err
		}

		before := model.QuantityOnHand
		now := time.Now()

		if err := tx.Model(&models.InventorySnapshotModel{}).
			Where("product_variant_id = ? AND location_id = ?", variantID, locationID).
			Updates(map[string]any{
				"quantity_on_hand": quantity,
				"updated_at":       now,
			}).Error; err != nil {
			return err
		}

		adjustment := models.InventoryAdjustmentModel{
			ID:               uuid.New(),
			OrganizationID:   model.OrganizationID,
			ProductVariantID: variantID,
			LocationID:       locationID,
			QuantityBefore:   before,
			QuantityAfter:    quantity,
			Reason:           reason,
			CreatedAt:        now,
		}
		return tx.Create(&adjustment).Error
	})
}

var _ domain.InventoryStore = (*GormInventoryStore)(nil)
