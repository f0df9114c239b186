package sync

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/channelsync/backend/internal/application/monitor"
	"github.com/channelsync/backend/internal/domain/conflict"
	domain "github.com/channelsync/backend/internal/domain/sync"
)

// MockStoreProvider is a mock implementation of StoreProvider
type MockStoreProvider struct {
	mock.Mock
}

func (m *MockStoreProvider) GetStore(ctx context.Context, storeID uuid.UUID) (*domain.Store, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Store), args.Error(1)
}

func (m *MockStoreProvider) GetStoreCredentials(ctx context.Context, storeID, organizationID uuid.UUID) (*domain.StoreCredentials, error) {
	args := m.Called(ctx, storeID, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoreCredentials), args.Error(1)
}

func (m *MockStoreProvider) GetOrganizationStores(ctx context.Context, organizationID uuid.UUID, filter domain.StoreFilter) ([]domain.Store, error) {
	args := m.Called(ctx, organizationID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Store), args.Error(1)
}

// MockAdapter is a mock implementation of Adapter
type MockAdapter struct {
	mock.Mock
	code domain.PlatformCode
}

func (m *MockAdapter) PlatformCode() domain.PlatformCode {
	if m.code != "" {
		return m.code
	}
	return domain.PlatformCodeAmazon
}

func (m *MockAdapter) GetProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.PlatformProduct, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PlatformProduct), args.Error(1)
}

func (m *MockAdapter) GetProduct(ctx context.Context, platformProductID string) (*domain.PlatformProduct, error) {
	args := m.Called(ctx, platformProductID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlatformProduct), args.Error(1)
}

func (m *MockAdapter) CreateProduct(ctx context.Context, payload *domain.ProductPayload) (*domain.PlatformProduct, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlatformProduct), args.Error(1)
}

func (m *MockAdapter) UpdateProduct(ctx context.Context, platformProductID string, payload *domain.ProductPayload) (*domain.PlatformProduct, error) {
	args := m.Called(ctx, platformProductID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlatformProduct), args.Error(1)
}

func (m *MockAdapter) UpdateInventory(ctx context.Context, platformProductID, platformVariantID string, quantity int64) error {
	args := m.Called(ctx, platformProductID, platformVariantID, quantity)
	return args.Error(0)
}

// MockAdapterRegistry is a mock implementation of AdapterRegistry
type MockAdapterRegistry struct {
	mock.Mock
}

func (m *MockAdapterRegistry) AdapterFor(store *domain.Store, creds *domain.StoreCredentials) (domain.Adapter, error) {
	args := m.Called(store, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Adapter), args.Error(1)
}

func (m *MockAdapterRegistry) SupportedPlatforms() []domain.PlatformCode {
	args := m.Called()
	return args.Get(0).([]domain.PlatformCode)
}

// MockMappingRepository is a mock implementation of MappingRepository
type MockMappingRepository struct {
	mock.Mock
}

func (m *MockMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PlatformMapping, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlatformMapping), args.Error(1)
}

func (m *MockMappingRepository) FindByPlatformProduct(ctx context.Context, storeID uuid.UUID, platformProductID, platformVariantID string) (*domain.PlatformMapping, error) {
	args := m.Called(ctx, storeID, platformProductID, platformVariantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlatformMapping), args.Error(1)
}

func (m *MockMappingRepository) FindByLocalVariant(ctx context.Context, storeID, localVariantID uuid.UUID) (*domain.PlatformMapping, error) {
	args := m.Called(ctx, storeID, localVariantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlatformMapping), args.Error(1)
}

func (m *MockMappingRepository) FindByLocalProduct(ctx context.Context, storeID, localProductID uuid.UUID) ([]domain.PlatformMapping, error) {
	args := m.Called(ctx, storeID, localProductID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PlatformMapping), args.Error(1)
}

func (m *MockMappingRepository) FindActiveForStore(ctx context.Context, storeID uuid.UUID) ([]domain.PlatformMapping, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PlatformMapping), args.Error(1)
}

func (m *MockMappingRepository) Save(ctx context.Context, mapping *domain.PlatformMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingRepository) SaveBatch(ctx context.Context, mappings []*domain.PlatformMapping) error {
	args := m.Called(ctx, mappings)
	return args.Error(0)
}

func (m *MockMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockInventoryStore is a mock implementation of InventoryStore
type MockInventoryStore struct {
	mock.Mock
}

func (m *MockInventoryStore) ListSnapshots(ctx context.Context, organizationID uuid.UUID, filter domain.InventoryFilter) ([]domain.InventorySnapshot, error) {
	args := m.Called(ctx, organizationID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InventorySnapshot), args.Error(1)
}

func (m *MockInventoryStore) GetSnapshot(ctx context.Context, variantID, locationID uuid.UUID) (*domain.InventorySnapshot, error) {
	args := m.Called(ctx, variantID, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventorySnapshot), args.Error(1)
}

func (m *MockInventoryStore) SetOnHand(ctx context.Context, variantID, locationID uuid.UUID, quantity int64, reason string) error {
	args := m.Called(ctx, variantID, locationID, quantity, reason)
	return args.Error(0)
}

// MockProductStore is a mock implementation of ProductStore
type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) ListProducts(ctx context.Context, organizationID uuid.UUID) ([]domain.LocalProduct, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LocalProduct), args.Error(1)
}

func (m *MockProductStore) GetProduct(ctx context.Context, id uuid.UUID) (*domain.LocalProduct, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LocalProduct), args.Error(1)
}

func (m *MockProductStore) CreateProduct(ctx context.Context, product *domain.LocalProduct) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductStore) UpdateProductFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

// MockErrorRecovery is a mock implementation of ErrorRecovery
type MockErrorRecovery struct {
	mock.Mock
}

func (m *MockErrorRecovery) RecordError(ctx context.Context, key, jobType string, organizationID uuid.UUID, errMsg string, errContext map[string]any, storeID uuid.UUID) (*domain.ErrorRecord, error) {
	args := m.Called(ctx, key, jobType, organizationID, errMsg, errContext, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ErrorRecord), args.Error(1)
}

func (m *MockErrorRecovery) GetErrorsReadyForRetry(ctx context.Context) ([]domain.ErrorRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ErrorRecord), args.Error(1)
}

func (m *MockErrorRecovery) RetryError(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockErrorRecovery) ResolveError(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

// MockScheduler is a mock implementation of Scheduler
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) AddSchedule(ctx context.Context, entry *domain.ScheduleEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockScheduler) UpdateSchedule(ctx context.Context, entry *domain.ScheduleEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockScheduler) RemoveSchedule(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockScheduler) GetSchedule(ctx context.Context, id string) (*domain.ScheduleEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduleEntry), args.Error(1)
}

func (m *MockScheduler) GetSchedules(ctx context.Context, organizationID uuid.UUID) ([]domain.ScheduleEntry, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScheduleEntry), args.Error(1)
}

// MockConflictRecordRepository is a mock implementation of conflict.RecordRepository
type MockConflictRecordRepository struct {
	mock.Mock
}

func (m *MockConflictRecordRepository) Save(ctx context.Context, record *conflict.ConflictRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockConflictRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*conflict.ConflictRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conflict.ConflictRecord), args.Error(1)
}

func (m *MockConflictRecordRepository) FindPending(ctx context.Context, organizationID uuid.UUID, storeID *uuid.UUID) ([]conflict.ConflictRecord, error) {
	args := m.Called(ctx, organizationID, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]conflict.ConflictRecord), args.Error(1)
}

func (m *MockConflictRecordRepository) CountPending(ctx context.Context, storeID uuid.UUID) (int64, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).(int64), args.Error(1)
}

// MockJobMonitor is a mock implementation of JobMonitor
type MockJobMonitor struct {
	mock.Mock
}

func (m *MockJobMonitor) StartJobMonitoring(ctx context.Context, jobID uuid.UUID, jobType string, organizationID uuid.UUID, storeID *uuid.UUID) (*monitor.JobMetric, error) {
	args := m.Called(ctx, jobID, jobType, organizationID, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*monitor.JobMetric), args.Error(1)
}

func (m *MockJobMonitor) UpdateJobProgress(ctx context.Context, jobID uuid.UUID, itemsProcessed, itemsFailed int) error {
	args := m.Called(ctx, jobID, itemsProcessed, itemsFailed)
	return args.Error(0)
}

func (m *MockJobMonitor) CompleteJobMonitoring(ctx context.Context, jobID uuid.UUID) (*monitor.JobMetric, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*monitor.JobMetric), args.Error(1)
}

// Interface compliance checks for the mocks themselves.
var (
	_ domain.StoreProvider      = (*MockStoreProvider)(nil)
	_ domain.Adapter            = (*MockAdapter)(nil)
	_ domain.AdapterRegistry    = (*MockAdapterRegistry)(nil)
	_ domain.MappingRepository  = (*MockMappingRepository)(nil)
	_ domain.InventoryStore     = (*MockInventoryStore)(nil)
	_ domain.ProductStore       = (*MockProductStore)(nil)
	_ domain.ErrorRecovery      = (*MockErrorRecovery)(nil)
	_ domain.Scheduler          = (*MockScheduler)(nil)
	_ conflict.RecordRepository = (*MockConflictRecordRepository)(nil)
	_ JobMonitor                = (*MockJobMonitor)(nil)
)
