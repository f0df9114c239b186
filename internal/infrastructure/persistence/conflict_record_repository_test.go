package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/conflict"
)

func conflictRecordColumns() []string {
	return []string{
		"id", "organization_id", "store_id", "entity_type", "entity_id", "field",
		"local_value", "platform_value", "local_modified", "platform_modified",
		"suggested_strategy", "status", "resolved_value", "resolved_by", "resolved_at",
		"created_at", "updated_at",
	}
}

func TestGormConflictRecordRepository_FindByID(t *testing.T) {
	t.Run("round-trips JSON values", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormConflictRecordRepository(gormDB)

		recordID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(conflictRecordColumns()).
			AddRow(recordID, uuid.New(), uuid.New(), "product", "prod-1", "description",
				`"local description"`, `"platform description"`, now, now,
				"manual_review", "pending", "null", "", nil, now, now)

		mock.ExpectQuery(`SELECT \* FROM "conflict_records" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(recordID, 1).
			WillReturnRows(rows)

		record, err := repo.FindByID(context.Background(), recordID)

		assert.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "description", record.Field)
		assert.Equal(t, "local description", record.LocalValue)
		assert.Equal(t, "platform description", record.PlatformValue)
		assert.Nil(t, record.ResolvedValue)
		assert.Equal(t, conflict.RecordStatusPending, record.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns error for missing record", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormConflictRecordRepository(gormDB)

		recordID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "conflict_records"`).
			WithArgs(recordID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		record, err := repo.FindByID(context.Background(), recordID)

		assert.Nil(t, record)
		assert.ErrorIs(t, err, ErrConflictRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormConflictRecordRepository_FindPending(t *testing.T) {
	t.Run("limits to one store when requested", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormConflictRecordRepository(gormDB)

		orgID := uuid.New()
		storeID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(conflictRecordColumns()).
			AddRow(uuid.New(), orgID, storeID, "product", "prod-1", "name",
				`"Local Name"`, `"Platform Name"`, now, now,
				"manual_review", "pending", "null", "", nil, now, now)

		mock.ExpectQuery(`SELECT \* FROM "conflict_records" WHERE \(organization_id = \$1 AND status = \$2\) AND store_id = \$3 ORDER BY created_at ASC`).
			WithArgs(orgID, "pending", storeID).
			WillReturnRows(rows)

		records, err := repo.FindPending(context.Background(), orgID, &storeID)

		assert.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, storeID, records[0].StoreID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("spans all stores when storeID is nil", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormConflictRecordRepository(gormDB)

		orgID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "conflict_records" WHERE organization_id = \$1 AND status = \$2 ORDER BY created_at ASC`).
			WithArgs(orgID, "pending").
			WillReturnRows(sqlmock.NewRows(conflictRecordColumns()))

		records, err := repo.FindPending(context.Background(), orgID, nil)

		assert.NoError(t, err)
		assert.Empty(t, records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormConflictRecordRepository_CountPending(t *testing.T) {
	t.Run("counts open records for a store", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormConflictRecordRepository(gormDB)

		storeID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "conflict_records" WHERE store_id = \$1 AND status = \$2`).
			WithArgs(storeID, "pending").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.CountPending(context.Background(), storeID)

		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
