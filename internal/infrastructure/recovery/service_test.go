package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/cache"
)

// MockErrorRepository is a mock implementation of ErrorRepository
type MockErrorRepository struct {
	mock.Mock
}

func (m *MockErrorRepository) Save(ctx context.Context, record *domain.ErrorRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockErrorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ErrorRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ErrorRecord), args.Error(1)
}

func (m *MockErrorRepository) FindOpenByKey(ctx context.Context, key string) (*domain.ErrorRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ErrorRecord), args.Error(1)
}

func (m *MockErrorRepository) FindReadyForRetry(ctx context.Context, now time.Time) ([]domain.ErrorRecord, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ErrorRecord), args.Error(1)
}

var _ ErrorRepository = (*MockErrorRepository)(nil)

func newTestService(t *testing.T, records ErrorRepository) *Service {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { store.Close() })

	service, err := NewService(records, store, Config{
		RetryBackoffBase: time.Minute,
		RetryBackoffMax:  time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)
	return service
}

func pendingRecord(retryCount int) *domain.ErrorRecord {
	now := time.Now()
	return &domain.ErrorRecord{
		ID:             uuid.New(),
		Key:            "inventory:store-1:variant-1",
		JobType:        "inventory_sync",
		OrganizationID: uuid.New(),
		StoreID:        uuid.New(),
		Message:        "HTTP 503",
		Context:        map[string]any{"quantity": 42},
		Status:         domain.ErrorRecordStatusPending,
		RetryCount:     retryCount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestService_RecordError(t *testing.T) {
	t.Run("creates new record with first retry scheduled", func(t *testing.T) {
		records := new(MockErrorRepository)
		service := newTestService(t, records)

		orgID := uuid.New()
		storeID := uuid.New()

		records.On("FindOpenByKey", mock.Anything, "inventory:s:v").
			Return(nil, domain.ErrRecordNotFound).Once()
		records.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.ErrorRecord) bool {
			return r.Key == "inventory:s:v" &&
				r.JobType == "inventory_sync" &&
				r.Status == domain.ErrorRecordStatusPending &&
				r.NextRetryAt != nil &&
				r.RetryCount == 0
		})).Return(nil).Once()

		record, err := service.RecordError(context.Background(), "inventory:s:v", "inventory_sync",
			orgID, "HTTP 503", map[string]any{"quantity": 42}, storeID)

		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, orgID, record.OrganizationID)
		assert.Equal(t, storeID, record.StoreID)
		assert.WithinDuration(t, time.Now().Add(time.Minute), *record.NextRetryAt, 5*time.Second)
		records.AssertExpectations(t)
	})

	t.Run("folds repeated failure into the open record", func(t *testing.T) {
		records := new(MockErrorRepository)
		service := newTestService(t, records)

		existing := pendingRecord(2)

		records.On("FindOpenByKey", mock.Anything, existing.Key).
			Return(existing, nil).Once()
		records.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.ErrorRecord) bool {
			return r.ID == existing.ID && r.Message == "HTTP 500"
		})).Return(nil).Once()

		record, err := service.RecordError(context.Background(), existing.Key, existing.JobType,
			existing.OrganizationID, "HTTP 500", nil, existing.StoreID)

		require.NoError(t, err)
		assert.Equal(t, existing.ID, record.ID)
		// Two prior retries push the next attempt out to base * 4
		assert.WithinDuration(t, time.Now().Add(4*time.Minute), *record.NextRetryAt, 5*time.Second)
		records.AssertExpectations(t)
	})
}

func TestService_RetryError(t *testing.T) {
	t.Run("marks record retrying and increments count", func(t *testing.T) {
		records := new(MockErrorRepository)
		service := newTestService(t, records)

		record := pendingRecord(0)

		records.On("FindByID", mock.Anything, record.ID).Return(record, nil).Once()
		records.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.ErrorRecord) bool {
			return r.Status == domain.ErrorRecordStatusRetrying &&
				r.RetryCount == 1 &&
				r.NextRetryAt == nil
		})).Return(nil).Once()

		err := service.RetryError(context.Background(), record.ID)

		assert.NoError(t, err)
		records.AssertExpectations(t)
	})

	t.Run("duplicate retry for the same attempt is a no-op", func(t *testing.T) {
		records := new(MockErrorRepository)
		service := newTestService(t, records)

		record := pendingRecord(0)

		// Both calls load the record, but only the first writes.
		first := pendingRecord(0)
		first.ID = record.ID
		records.On("FindByID", mock.Anything, record.ID).Return(first, nil)
		records.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

		require.NoError(t, service.RetryError(context.Background(), record.ID))

		// Reset status so the second call sees the same attempt number.
		first.Status = domain.ErrorRecordStatusPending
		first.RetryCount = 0

		require.NoError(t, service.RetryError(context.Background(), record.ID))
		records.AssertExpectations(t)
	})

	t.Run("rejects resolved record", func(t *testing.T) {
		records := new(MockErrorRepository)
		service := newTestService(t, records)

		record := pendingRecord(1)
		record.Status = domain.ErrorRecordStatusResolved

		records.On("FindByID", mock.Anything, record.ID).Return(record, nil).Once()

		err := service.RetryError(context.Background(), record.ID)

		assert.ErrorIs(t, err, domain.ErrRecordNotRetryable)
		records.AssertExpectations(t)
	})
}

func TestService_ResolveError(t *testing.T) {
	t.Run("closes record with reason", func(t *testing.T) {
		records := new(MockErrorRepository)
		service := newTestService(t, records)

		record := pendingRecord(3)

		records.On("FindByID", mock.Anything, record.ID).Return(record, nil).Once()
		records.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.ErrorRecord) bool {
			return r.Status == domain.ErrorRecordStatusResolved &&
				r.Resolution == "fixed manually" &&
				r.ResolvedAt != nil
		})).Return(nil).Once()

		err := service.ResolveError(context.Background(), record.ID, "fixed manually")

		assert.NoError(t, err)
		records.AssertExpectations(t)
	})

	t.Run("duplicate resolve is a no-op", func(t *testing.T) {
		records := new(MockErrorRepository)
		service := newTestService(t, records)

		record := pendingRecord(1)

		records.On("FindByID", mock.Anything, record.ID).Return(record, nil).Once()
		records.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

		require.NoError(t, service.ResolveError(context.Background(), record.ID, "done"))
		require.NoError(t, service.ResolveError(context.Background(), record.ID, "done"))
		records.AssertExpectations(t)
	})
}

func TestService_Backoff(t *testing.T) {
	records := new(MockErrorRepository)
	service := newTestService(t, records)

	assert.Equal(t, time.Minute, service.backoff(0))
	assert.Equal(t, 2*time.Minute, service.backoff(1))
	assert.Equal(t, 8*time.Minute, service.backoff(3))
	// Capped at the configured max
	assert.Equal(t, time.Hour, service.backoff(10))
}

func TestReplayer_Drain(t *testing.T) {
	t.Run("resolves record after successful replay", func(t *testing.T) {
		records := new(MockErrorRepository)
		service := newTestService(t, records)

		record := pendingRecord(0)

		records.On("FindReadyForRetry", mock.Anything, mock.Anything).
			Return([]domain.ErrorRecord{*record}, nil).Once()
		records.On("FindByID", mock.Anything, record.ID).Return(record, nil)
		records.On("Save", mock.Anything, mock.Anything).Return(nil)

		var replayed []string
		replayer := NewReplayer(service, func(ctx context.Context, r domain.ErrorRecord) error {
			replayed = append(replayed, r.Key)
			return nil
		}, time.Minute, zap.NewNop())

		replayer.Drain(context.Background())

		assert.Equal(t, []string{record.Key}, replayed)
		records.AssertCalled(t, "Save", mock.Anything, mock.MatchedBy(func(r *domain.ErrorRecord) bool {
			return r.Status == domain.ErrorRecordStatusResolved
		}))
		records.AssertExpectations(t)
	})

	t.Run("reschedules record after failed replay", func(t *testing.T) {
		records := new(MockErrorRepository)
		service := newTestService(t, records)

		record := pendingRecord(0)

		records.On("FindReadyForRetry", mock.Anything, mock.Anything).
			Return([]domain.ErrorRecord{*record}, nil).Once()
		records.On("FindByID", mock.Anything, record.ID).Return(record, nil)
		records.On("Save", mock.Anything, mock.Anything).Return(nil)

		replayer := NewReplayer(service, func(ctx context.Context, r domain.ErrorRecord) error {
			return errors.New("platform still unavailable")
		}, time.Minute, zap.NewNop())

		replayer.Drain(context.Background())

		records.AssertCalled(t, "Save", mock.Anything, mock.MatchedBy(func(r *domain.ErrorRecord) bool {
			return r.Status == domain.ErrorRecordStatusPending &&
				r.Message == "platform still unavailable" &&
				r.NextRetryAt != nil
		}))
		records.AssertExpectations(t)
	})
}
