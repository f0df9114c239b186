package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/backend/internal/domain/conflict"
	domain "github.com/channelsync/backend/internal/domain/sync"
)

type productFixture struct {
	stores          *MockStoreProvider
	adapters        *MockAdapterRegistry
	adapter         *MockAdapter
	mappings        *MockMappingRepository
	products        *MockProductStore
	recovery        *MockErrorRecovery
	conflictRecords *MockConflictRecordRepository
	svc             *ProductSyncService

	organizationID uuid.UUID
	store          *domain.Store
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()

	f := &productFixture{
		stores:          new(MockStoreProvider),
		adapters:        new(MockAdapterRegistry),
		adapter:         new(MockAdapter),
		mappings:        new(MockMappingRepository),
		products:        new(MockProductStore),
		recovery:        new(MockErrorRecovery),
		conflictRecords: new(MockConflictRecordRepository),
		organizationID:  uuid.New(),
	}
	f.store = &domain.Store{
		ID:             uuid.New(),
		OrganizationID: f.organizationID,
		Name:           "Amazon US",
		PlatformCode:   domain.PlatformCodeAmazon,
		IsActive:       true,
	}

	resolver, err := conflict.NewResolver(conflict.DefaultConfig())
	require.NoError(t, err)

	f.svc = NewProductSyncService(
		Config{}, nil,
		f.stores, f.adapters, f.mappings, f.products,
		resolver, f.conflictRecords, f.recovery, nil, nil,
	)
	return f
}

func (f *productFixture) expectResolveStore() {
	creds := &domain.StoreCredentials{StoreID: f.store.ID, PlatformCode: f.store.PlatformCode}
	f.stores.On("GetStore", mock.Anything, f.store.ID).Return(f.store, nil)
	f.stores.On("GetStoreCredentials", mock.Anything, f.store.ID, f.organizationID).Return(creds, nil)
	f.adapters.On("AdapterFor", f.store, creds).Return(f.adapter, nil)
}

func validLocalProduct(orgID uuid.UUID) domain.LocalProduct {
	return domain.LocalProduct{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Code:           "TSHIRT-01",
		Name:           "Cotton T-Shirt",
		Description:    "A plain cotton t-shirt",
		Brand:          "Acme",
		Category:       "apparel",
		Price:          decimal.NewFromFloat(19.99),
		Variants: []domain.LocalVariant{
			{ID: uuid.New(), SKU: "TSHIRT-01-L", Price: decimal.NewFromFloat(19.99)},
		},
		UpdatedAt: time.Now().Add(-time.Hour),
	}
}

// matchingPlatformProduct mirrors the local product's synchronized fields so
// conflict detection sees no disagreement.
func matchingPlatformProduct(local domain.LocalProduct) *domain.PlatformProduct {
	return &domain.PlatformProduct{
		PlatformProductID: "B08XYZ",
		Name:              local.Name,
		Description:       local.Description,
		Brand:             local.Brand,
		Price:             local.Price,
		ImageURLs:         local.ImageURLs,
		Variants: []domain.PlatformVariant{
			{PlatformVariantID: "SKU-1", SKU: "TSHIRT-01-L", Price: local.Price},
		},
		UpdatedAt: local.UpdatedAt,
	}
}

func TestSyncProducts_InvalidDirection(t *testing.T) {
	f := newProductFixture(t)

	_, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.SyncDirection("sideways"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSyncDirection)
}

func TestSyncProducts_PushCreatesUnmappedProduct(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	product := validLocalProduct(f.organizationID)
	f.products.On("ListProducts", mock.Anything, f.organizationID).Return([]domain.LocalProduct{product}, nil)
	f.mappings.On("FindByLocalProduct", mock.Anything, f.store.ID, product.ID).
		Return([]domain.PlatformMapping{}, nil)

	created := matchingPlatformProduct(product)
	f.adapter.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *domain.ProductPayload) bool {
		return p.SKU == "TSHIRT-01" && p.Name == "Cotton T-Shirt"
	})).Return(created, nil)

	f.mappings.On("SaveBatch", mock.Anything, mock.MatchedBy(func(ms []*domain.PlatformMapping) bool {
		return len(ms) == 1 &&
			ms[0].PlatformProductID == "B08XYZ" &&
			ms[0].PlatformVariantID == "SKU-1" &&
			ms[0].SyncStatus == domain.SyncStatusSynced
	})).Return(nil)

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPush,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Failed)
	f.adapter.AssertExpectations(t)
	f.mappings.AssertExpectations(t)
}

func TestSyncProducts_ValidationFailureIsolatesProduct(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	invalid := validLocalProduct(f.organizationID)
	invalid.Name = ""
	invalid.Brand = ""
	valid := validLocalProduct(f.organizationID)

	f.products.On("ListProducts", mock.Anything, f.organizationID).
		Return([]domain.LocalProduct{invalid, valid}, nil)
	f.mappings.On("FindByLocalProduct", mock.Anything, f.store.ID, valid.ID).
		Return([]domain.PlatformMapping{}, nil)
	f.adapter.On("CreateProduct", mock.Anything, mock.Anything).
		Return(matchingPlatformProduct(valid), nil)
	f.mappings.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPush,
	})
	require.NoError(t, err)

	// The invalid product fails alone; the batch continues.
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "VALIDATION", result.Errors[0].Code)
	f.adapter.AssertNumberOfCalls(t, "CreateProduct", 1)
}

func TestSyncProducts_PushUpdatesMappedProduct(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	product := validLocalProduct(f.organizationID)
	mapping := activeMapping(f.store, product.Variants[0].ID)
	mapping.LocalProductID = product.ID

	f.products.On("ListProducts", mock.Anything, f.organizationID).Return([]domain.LocalProduct{product}, nil)
	f.mappings.On("FindByLocalProduct", mock.Anything, f.store.ID, product.ID).
		Return([]domain.PlatformMapping{*mapping}, nil)

	current := matchingPlatformProduct(product)
	f.adapter.On("GetProduct", mock.Anything, "B08XYZ").Return(current, nil)
	f.adapter.On("UpdateProduct", mock.Anything, "B08XYZ", mock.Anything).Return(current, nil)
	f.mappings.On("Save", mock.Anything, mock.AnythingOfType("*sync.PlatformMapping")).Return(nil)

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPush,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, result.Conflicts)
	f.adapter.AssertNotCalled(t, "CreateProduct")
	f.conflictRecords.AssertNotCalled(t, "Save")
}

func TestSyncProducts_PushAutoResolvesNewerPlatformName(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	product := validLocalProduct(f.organizationID)
	product.UpdatedAt = time.Now().Add(-2 * time.Hour)
	mapping := activeMapping(f.store, product.Variants[0].ID)
	mapping.LocalProductID = product.ID

	f.products.On("ListProducts", mock.Anything, f.organizationID).Return([]domain.LocalProduct{product}, nil)
	f.mappings.On("FindByLocalProduct", mock.Anything, f.store.ID, product.ID).
		Return([]domain.PlatformMapping{*mapping}, nil)

	current := matchingPlatformProduct(product)
	current.Name = "Premium Cotton T-Shirt"
	current.UpdatedAt = time.Now().Add(-5 * time.Minute)
	f.adapter.On("GetProduct", mock.Anything, "B08XYZ").Return(current, nil)

	// The newer platform name wins, is written back locally, and rides the
	// outbound payload.
	f.products.On("UpdateProductFields", mock.Anything, product.ID, map[string]any{
		"name": "Premium Cotton T-Shirt",
	}).Return(nil)
	f.adapter.On("UpdateProduct", mock.Anything, "B08XYZ", mock.MatchedBy(func(p *domain.ProductPayload) bool {
		return p.Name == "Premium Cotton T-Shirt"
	})).Return(current, nil)
	f.mappings.On("Save", mock.Anything, mock.AnythingOfType("*sync.PlatformMapping")).Return(nil)

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPush,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "name", result.Conflicts[0].Field)
	f.products.AssertExpectations(t)
	f.adapter.AssertExpectations(t)
	f.conflictRecords.AssertNotCalled(t, "Save")
}

func TestSyncProducts_PushDefersDescriptionConflict(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	product := validLocalProduct(f.organizationID)
	mapping := activeMapping(f.store, product.Variants[0].ID)
	mapping.LocalProductID = product.ID

	f.products.On("ListProducts", mock.Anything, f.organizationID).Return([]domain.LocalProduct{product}, nil)
	f.mappings.On("FindByLocalProduct", mock.Anything, f.store.ID, product.ID).
		Return([]domain.PlatformMapping{*mapping}, nil)

	current := matchingPlatformProduct(product)
	current.Description = "A completely different marketing blurb"
	f.adapter.On("GetProduct", mock.Anything, "B08XYZ").Return(current, nil)

	// Conflicting descriptions go to a human; the mapping is flagged and the
	// update still goes out with the local value.
	f.conflictRecords.On("Save", mock.Anything, mock.MatchedBy(func(r *conflict.ConflictRecord) bool {
		return r.EntityType == "product" && r.Field == "description"
	})).Return(nil)
	f.adapter.On("UpdateProduct", mock.Anything, "B08XYZ", mock.Anything).Return(current, nil)

	saved := make([]domain.SyncStatus, 0, 2)
	f.mappings.On("Save", mock.Anything, mock.AnythingOfType("*sync.PlatformMapping")).
		Run(func(args mock.Arguments) {
			saved = append(saved, args.Get(1).(*domain.PlatformMapping).SyncStatus)
		}).Return(nil)

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPush,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	f.conflictRecords.AssertExpectations(t)
	assert.Contains(t, saved, domain.SyncStatusConflict)
}

func TestSyncProducts_PushDeadLettersRetryableCreate(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	product := validLocalProduct(f.organizationID)
	f.products.On("ListProducts", mock.Anything, f.organizationID).Return([]domain.LocalProduct{product}, nil)
	f.mappings.On("FindByLocalProduct", mock.Anything, f.store.ID, product.ID).
		Return([]domain.PlatformMapping{}, nil)

	f.adapter.On("CreateProduct", mock.Anything, mock.Anything).
		Return(nil, errors.New("503 service unavailable"))

	key := "product:" + f.store.ID.String() + ":" + product.ID.String()
	f.recovery.On("RecordError",
		mock.Anything, key, jobTypeProductSync, f.organizationID,
		"503 service unavailable", mock.Anything, f.store.ID,
	).Return(&domain.ErrorRecord{ID: uuid.New()}, nil)

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPush,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "CREATE_FAILED", result.Errors[0].Code)
	assert.True(t, result.Errors[0].Retryable)
	f.recovery.AssertExpectations(t)
}

func TestSyncProducts_PushMappingLookupFailureDoesNotCreateDuplicate(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	product := validLocalProduct(f.organizationID)
	f.products.On("ListProducts", mock.Anything, f.organizationID).Return([]domain.LocalProduct{product}, nil)
	f.mappings.On("FindByLocalProduct", mock.Anything, f.store.ID, product.ID).
		Return(nil, errors.New("driver: bad connection"))

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPush,
	})
	require.NoError(t, err)

	// A failed lookup is not "unmapped"; re-creating here would duplicate the
	// listing for a product that already has a mapping row.
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "MAPPING_LOOKUP_FAILED", result.Errors[0].Code)
	f.adapter.AssertNotCalled(t, "CreateProduct")
}

func TestSyncProducts_PushDryRun(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	product := validLocalProduct(f.organizationID)
	f.products.On("ListProducts", mock.Anything, f.organizationID).Return([]domain.LocalProduct{product}, nil)
	f.mappings.On("FindByLocalProduct", mock.Anything, f.store.ID, product.ID).
		Return([]domain.PlatformMapping{}, nil)

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPush,
		DryRun:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	f.adapter.AssertNotCalled(t, "CreateProduct")
	f.mappings.AssertNotCalled(t, "SaveBatch")
}

// ---------------------------------------------------------------------------
// Pull
// ---------------------------------------------------------------------------

func TestSyncProducts_PullImportsUnmappedProduct(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	platform := &domain.PlatformProduct{
		PlatformProductID: "B08XYZ",
		Name:              "Cotton T-Shirt",
		Brand:             "Acme",
		Price:             decimal.NewFromFloat(19.99),
		Variants: []domain.PlatformVariant{
			{PlatformVariantID: "SKU-1", SKU: "TSHIRT-01-L", Price: decimal.NewFromFloat(19.99)},
		},
		UpdatedAt: time.Now(),
	}
	f.adapter.On("GetProducts", mock.Anything, domain.ProductFilter{Page: 1, PageSize: 100}).
		Return([]domain.PlatformProduct{*platform}, nil)
	f.mappings.On("FindByPlatformProduct", mock.Anything, f.store.ID, "B08XYZ", "SKU-1").
		Return(nil, domain.ErrMappingNotFound)

	f.products.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *domain.LocalProduct) bool {
		return p.Code == "B08XYZ" && p.Name == "Cotton T-Shirt" && p.OrganizationID == f.organizationID
	})).Return(nil)
	f.mappings.On("SaveBatch", mock.Anything, mock.MatchedBy(func(ms []*domain.PlatformMapping) bool {
		return len(ms) == 1 && ms[0].PlatformVariantID == "SKU-1"
	})).Return(nil)

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPull,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	f.products.AssertExpectations(t)
	f.mappings.AssertExpectations(t)
}

func TestSyncProducts_PullMappingLookupFailureDoesNotImport(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	platform := &domain.PlatformProduct{
		PlatformProductID: "B08XYZ",
		Name:              "Cotton T-Shirt",
		Brand:             "Acme",
		Price:             decimal.NewFromFloat(19.99),
		Variants: []domain.PlatformVariant{
			{PlatformVariantID: "SKU-1", SKU: "TSHIRT-01-L", Price: decimal.NewFromFloat(19.99)},
		},
		UpdatedAt: time.Now(),
	}
	f.adapter.On("GetProducts", mock.Anything, mock.Anything).
		Return([]domain.PlatformProduct{*platform}, nil)
	f.mappings.On("FindByPlatformProduct", mock.Anything, f.store.ID, "B08XYZ", "SKU-1").
		Return(nil, errors.New("driver: bad connection"))

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPull,
	})
	require.NoError(t, err)

	// Only a confirmed missing mapping may import; a repository failure must
	// not duplicate an already-mapped product locally.
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "MAPPING_LOOKUP_FAILED", result.Errors[0].Code)
	f.products.AssertNotCalled(t, "CreateProduct")
}

func TestSyncProducts_PullAppliesResolutionLocallyOnly(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	local := validLocalProduct(f.organizationID)
	local.UpdatedAt = time.Now().Add(-2 * time.Hour)
	mapping := activeMapping(f.store, local.Variants[0].ID)
	mapping.LocalProductID = local.ID

	platform := matchingPlatformProduct(local)
	platform.Name = "Premium Cotton T-Shirt"
	platform.Variants[0].PlatformVariantID = "SKU-1"
	platform.UpdatedAt = time.Now().Add(-5 * time.Minute)

	f.adapter.On("GetProducts", mock.Anything, mock.Anything).
		Return([]domain.PlatformProduct{*platform}, nil)
	f.mappings.On("FindByPlatformProduct", mock.Anything, f.store.ID, "B08XYZ", "SKU-1").
		Return(mapping, nil)
	f.products.On("GetProduct", mock.Anything, local.ID).Return(&local, nil)
	f.products.On("UpdateProductFields", mock.Anything, local.ID, map[string]any{
		"name": "Premium Cotton T-Shirt",
	}).Return(nil)

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPull,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	// Pull never writes to the platform.
	f.adapter.AssertNotCalled(t, "UpdateProduct")
	f.products.AssertExpectations(t)
}

func TestSyncProducts_PullSkipsWhenInAgreement(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	local := validLocalProduct(f.organizationID)
	mapping := activeMapping(f.store, local.Variants[0].ID)
	mapping.LocalProductID = local.ID
	platform := matchingPlatformProduct(local)

	f.adapter.On("GetProducts", mock.Anything, mock.Anything).
		Return([]domain.PlatformProduct{*platform}, nil)
	f.mappings.On("FindByPlatformProduct", mock.Anything, f.store.ID, "B08XYZ", "SKU-1").
		Return(mapping, nil)
	f.products.On("GetProduct", mock.Anything, local.ID).Return(&local, nil)

	result, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{
		Direction: domain.DirectionPull,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	f.products.AssertNotCalled(t, "UpdateProductFields")
}

func TestSyncProducts_BidirectionalPullsBeforePush(t *testing.T) {
	f := newProductFixture(t)
	f.expectResolveStore()

	var order []string
	f.adapter.On("GetProducts", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "pull") }).
		Return([]domain.PlatformProduct{}, nil)
	f.products.On("ListProducts", mock.Anything, f.organizationID).
		Run(func(mock.Arguments) { order = append(order, "push") }).
		Return([]domain.LocalProduct{}, nil)

	_, err := f.svc.SyncProducts(context.Background(), f.store.ID, f.organizationID, domain.SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"pull", "push"}, order)
}

func TestDetectProductConflicts(t *testing.T) {
	local := validLocalProduct(uuid.New())
	local.ImageURLs = []string{"https://img.example.com/1.jpg"}
	platform := matchingPlatformProduct(local)

	assert.Empty(t, detectProductConflicts(&local, platform))

	platform.Name = "Other Name"
	platform.ImageURLs = []string{"https://img.example.com/2.jpg"}
	conflicts := detectProductConflicts(&local, platform)

	require.Len(t, conflicts, 2)
	fields := []string{conflicts[0].Field, conflicts[1].Field}
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "images")
	assert.Equal(t, local.UpdatedAt, conflicts[0].LocalModified)
	assert.Equal(t, platform.UpdatedAt, conflicts[0].PlatformModified)
}
