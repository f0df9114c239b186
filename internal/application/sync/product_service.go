package sync

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/conflict"
	domain "github.com/channelsync/backend/internal/domain/sync"
)

const jobTypeProductSync = "product_sync"

// conflictFields are the product fields compared during conflict detection.
var conflictFields = []string{"name", "description", "images"}

// ProductSyncService synchronizes product records between the local catalog
// and marketplace stores. Discrepancies on mapped products are routed through
// the conflict resolver; the auto-resolved subset is applied on both sides
// and the remainder is persisted for manual review.
type ProductSyncService struct {
	cfg             Config
	logger          *zap.Logger
	stores          domain.StoreProvider
	adapters        domain.AdapterRegistry
	mappings        domain.MappingRepository
	products        domain.ProductStore
	resolver        *conflict.Resolver
	conflictRecords conflict.RecordRepository
	recovery        domain.ErrorRecovery
	transformer     *Transformer
	monitor         JobMonitor
}

// NewProductSyncService wires the service. The monitor may be nil; a nil
// transformer uses the default platform profiles.
func NewProductSyncService(
	cfg Config,
	logger *zap.Logger,
	stores domain.StoreProvider,
	adapters domain.AdapterRegistry,
	mappings domain.MappingRepository,
	products domain.ProductStore,
	resolver *conflict.Resolver,
	conflictRecords conflict.RecordRepository,
	recovery domain.ErrorRecovery,
	transformer *Transformer,
	jobMonitor JobMonitor,
) *ProductSyncService {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if transformer == nil {
		transformer = NewTransformer(nil)
	}
	return &ProductSyncService{
		cfg:             cfg,
		logger:          logger,
		stores:          stores,
		adapters:        adapters,
		mappings:        mappings,
		products:        products,
		resolver:        resolver,
		conflictRecords: conflictRecords,
		recovery:        recovery,
		transformer:     transformer,
		monitor:         jobMonitor,
	}
}

// SyncProducts synchronizes the organization's catalog with one store in the
// requested direction. Bidirectional pulls first so the push phase works
// against the freshest local state.
func (s *ProductSyncService) SyncProducts(ctx context.Context, storeID, organizationID uuid.UUID, opts domain.SyncOptions) (*domain.SyncResult, error) {
	direction := opts.Direction
	if direction == "" {
		direction = domain.DirectionBidirectional
	}
	if !direction.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSyncDirection, direction)
	}

	store, _, adapter, err := s.resolveStore(ctx, storeID, organizationID)
	if err != nil {
		return nil, err
	}

	result := domain.NewSyncResult()
	if s.monitor != nil {
		if _, err := s.monitor.StartJobMonitoring(ctx, result.JobID, jobTypeProductSync, organizationID, &storeID); err != nil {
			s.logger.Debug("job monitoring unavailable", zap.Error(err))
		}
		defer func() { _, _ = s.monitor.CompleteJobMonitoring(ctx, result.JobID) }()
	}

	if direction == domain.DirectionPull || direction == domain.DirectionBidirectional {
		if err := s.pullProducts(ctx, store, adapter, organizationID, opts, result); err != nil {
			result.Finish()
			return result, err
		}
	}
	if direction == domain.DirectionPush || direction == domain.DirectionBidirectional {
		if err := s.pushProducts(ctx, store, adapter, organizationID, opts, result); err != nil {
			result.Finish()
			return result, err
		}
	}

	result.Finish()
	s.logger.Info("product sync finished",
		zap.String("store_id", storeID.String()),
		zap.String("direction", string(direction)),
		zap.Int("processed", result.TotalProcessed),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
		zap.Int("conflicts", len(result.Conflicts)),
	)
	return result, nil
}

// ---------------------------------------------------------------------------
// Push
// ---------------------------------------------------------------------------

// pushProducts syncs local products to the platform: unmapped products are
// created remotely, mapped ones are conflict-checked and updated.
func (s *ProductSyncService) pushProducts(
	ctx context.Context,
	store *domain.Store,
	adapter domain.Adapter,
	organizationID uuid.UUID,
	opts domain.SyncOptions,
	result *domain.SyncResult,
) error {
	products, err := s.products.ListProducts(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("listing local products: %w", err)
	}

	for i := range products {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.pushProduct(ctx, store, adapter, organizationID, &products[i], opts, result)
		s.updateMonitoring(ctx, result)
	}
	return nil
}

func (s *ProductSyncService) pushProduct(
	ctx context.Context,
	store *domain.Store,
	adapter domain.Adapter,
	organizationID uuid.UUID,
	product *domain.LocalProduct,
	opts domain.SyncOptions,
	result *domain.SyncResult,
) {
	result.TotalProcessed++

	payload, err := s.transformer.ToPayload(store.PlatformCode, product)
	if err != nil {
		result.AddError(product.ID.String(), "TRANSFORM", err.Error(), false)
		return
	}
	// A validation failure aborts only this product, never the batch.
	if err := s.transformer.Validate(store.PlatformCode, payload); err != nil {
		result.AddError(product.ID.String(), "VALIDATION", err.Error(), false)
		return
	}

	// A lookup failure is not "unmapped": treating it as such would re-create
	// an already-mapped product and duplicate the listing.
	productMappings, err := s.mappings.FindByLocalProduct(ctx, store.ID, product.ID)
	if err != nil {
		result.AddError(product.ID.String(), "MAPPING_LOOKUP_FAILED", err.Error(), false)
		return
	}
	if len(productMappings) == 0 {
		s.createOnPlatform(ctx, store, adapter, organizationID, product, payload, opts, result)
		return
	}

	s.updateOnPlatform(ctx, store, adapter, organizationID, product, payload, productMappings, opts, result)
}

// createOnPlatform creates an unmapped product remotely and persists one
// mapping per variant.
func (s *ProductSyncService) createOnPlatform(
	ctx context.Context,
	store *domain.Store,
	adapter domain.Adapter,
	organizationID uuid.UUID,
	product *domain.LocalProduct,
	payload *domain.ProductPayload,
	opts domain.SyncOptions,
	result *domain.SyncResult,
) {
	if opts.DryRun {
		result.Created++
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
	created, err := adapter.CreateProduct(callCtx, payload)
	cancel()
	if err != nil {
		retryable := isRetryableError(err)
		result.AddError(product.ID.String(), "CREATE_FAILED", err.Error(), retryable)
		if retryable {
			s.deadLetter(ctx, store, organizationID, product.ID, "create", err)
		}
		return
	}

	newMappings := s.buildVariantMappings(organizationID, store, product, created)
	if len(newMappings) > 0 {
		if err := s.mappings.SaveBatch(ctx, newMappings); err != nil {
			result.AddError(product.ID.String(), "MAPPING_SAVE_FAILED", err.Error(), false)
			return
		}
	}

	result.Created++
}

// buildVariantMappings pairs local variants with the platform's assigned
// variant identifiers by SKU.
func (s *ProductSyncService) buildVariantMappings(
	organizationID uuid.UUID,
	store *domain.Store,
	product *domain.LocalProduct,
	created *domain.PlatformProduct,
) []*domain.PlatformMapping {
	bySKU := make(map[string]domain.PlatformVariant, len(created.Variants))
	for _, v := range created.Variants {
		bySKU[v.SKU] = v
	}

	var out []*domain.PlatformMapping
	for _, variant := range product.Variants {
		platformVariantID := ""
		if pv, ok := bySKU[variant.SKU]; ok {
			platformVariantID = pv.PlatformVariantID
		}
		mapping, err := domain.NewPlatformMapping(
			organizationID, store.ID, product.ID, variant.ID,
			store.PlatformCode, created.PlatformProductID, platformVariantID,
		)
		if err != nil {
			s.logger.Warn("skipping invalid mapping",
				zap.String("product_id", product.ID.String()),
				zap.String("variant_id", variant.ID.String()),
				zap.Error(err),
			)
			continue
		}
		mapping.UpdatePlatformPrice(created.Price)
		mapping.RecordSyncSuccess()
		out = append(out, mapping)
	}
	return out
}

// updateOnPlatform runs conflict detection against the current platform
// state, applies the auto-resolved subset on both sides, defers the rest to
// manual review, and pushes the update.
func (s *ProductSyncService) updateOnPlatform(
	ctx context.Context,
	store *domain.Store,
	adapter domain.Adapter,
	organizationID uuid.UUID,
	product *domain.LocalProduct,
	payload *domain.ProductPayload,
	productMappings []domain.PlatformMapping,
	opts domain.SyncOptions,
	result *domain.SyncResult,
) {
	mapping := &productMappings[0]

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
	current, err := adapter.GetProduct(callCtx, mapping.PlatformProductID)
	cancel()
	if err != nil {
		retryable := isRetryableError(err)
		result.AddError(product.ID.String(), "FETCH_FAILED", err.Error(), retryable)
		if retryable {
			s.deadLetter(ctx, store, organizationID, product.ID, "update", err)
		}
		return
	}

	conflicts := detectProductConflicts(product, current)
	if len(conflicts) > 0 {
		deferred := s.settleConflicts(ctx, store, organizationID, product, payload, conflicts, result)
		if deferred {
			s.markConflict(ctx, productMappings)
		}
	}

	if opts.DryRun {
		result.Updated++
		return
	}

	callCtx, cancel = context.WithTimeout(ctx, s.cfg.AdapterTimeout)
	updated, err := adapter.UpdateProduct(callCtx, mapping.PlatformProductID, payload)
	cancel()
	if err != nil {
		retryable := isRetryableError(err)
		result.AddError(product.ID.String(), "UPDATE_FAILED", err.Error(), retryable)
		if retryable {
			s.deadLetter(ctx, store, organizationID, product.ID, "update", err)
		}
		s.markFailure(ctx, productMappings, err)
		return
	}

	for i := range productMappings {
		productMappings[i].RecordSyncSuccess()
		productMappings[i].UpdatePlatformPrice(updated.Price)
		if err := s.mappings.Save(ctx, &productMappings[i]); err != nil {
			s.logger.Warn("failed to record mapping sync success",
				zap.String("mapping_id", productMappings[i].ID.String()), zap.Error(err))
		}
	}
	result.Updated++
}

// ---------------------------------------------------------------------------
// Pull
// ---------------------------------------------------------------------------

// pullProducts syncs platform products into the local catalog: unmapped
// platform products are created locally, mapped ones go through the same
// conflict flow as the push path.
func (s *ProductSyncService) pullProducts(
	ctx context.Context,
	store *domain.Store,
	adapter domain.Adapter,
	organizationID uuid.UUID,
	opts domain.SyncOptions,
	result *domain.SyncResult,
) error {
	page := 1
	const pageSize = 100
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
		platformProducts, err := adapter.GetProducts(callCtx, domain.ProductFilter{Page: page, PageSize: pageSize})
		cancel()
		if err != nil {
			return fmt.Errorf("fetching platform products: %w", err)
		}

		for i := range platformProducts {
			s.pullProduct(ctx, store, organizationID, &platformProducts[i], opts, result)
			s.updateMonitoring(ctx, result)
		}

		if len(platformProducts) < pageSize {
			return nil
		}
		page++
	}
}

func (s *ProductSyncService) pullProduct(
	ctx context.Context,
	store *domain.Store,
	organizationID uuid.UUID,
	platformProduct *domain.PlatformProduct,
	opts domain.SyncOptions,
	result *domain.SyncResult,
) {
	result.TotalProcessed++

	platformVariantID := ""
	if len(platformProduct.Variants) > 0 {
		platformVariantID = platformProduct.Variants[0].PlatformVariantID
	}

	mapping, err := s.mappings.FindByPlatformProduct(ctx, store.ID, platformProduct.PlatformProductID, platformVariantID)
	if err != nil {
		if errors.Is(err, domain.ErrMappingNotFound) {
			s.createLocally(ctx, store, organizationID, platformProduct, opts, result)
			return
		}
		// Only a confirmed missing mapping may trigger a local import.
		result.AddError(platformProduct.PlatformProductID, "MAPPING_LOOKUP_FAILED", err.Error(), false)
		return
	}

	local, err := s.products.GetProduct(ctx, mapping.LocalProductID)
	if err != nil {
		result.AddError(platformProduct.PlatformProductID, "LOCAL_FETCH_FAILED", err.Error(), false)
		return
	}

	conflicts := detectProductConflicts(local, platformProduct)
	if len(conflicts) == 0 {
		result.Skipped++
		return
	}

	// In the pull phase resolved values are applied locally only; the next
	// push propagates them outward.
	fields := make(map[string]any)
	deferred := false
	for _, c := range conflicts {
		result.Conflicts = append(result.Conflicts, c)
		res := s.resolver.Resolve(c)
		if res.RequiresManualReview || res.Confidence < s.resolver.Config().AutoResolveThreshold {
			deferred = true
			s.persistConflict(ctx, store, organizationID, local.ID.String(), c, res)
			continue
		}
		if !reflect.DeepEqual(res.ResolvedValue, c.LocalValue) {
			fields[c.Field] = res.ResolvedValue
		}
	}

	if len(fields) > 0 && !opts.DryRun {
		if err := s.products.UpdateProductFields(ctx, local.ID, fields); err != nil {
			result.AddError(local.ID.String(), "LOCAL_UPDATE_FAILED", err.Error(), false)
			return
		}
	}
	if deferred {
		mapping.RecordConflict()
		if err := s.mappings.Save(ctx, mapping); err != nil {
			s.logger.Warn("failed to record mapping conflict",
				zap.String("mapping_id", mapping.ID.String()), zap.Error(err))
		}
	}
	result.Updated++
}

// createLocally imports an unmapped platform product into the local catalog.
func (s *ProductSyncService) createLocally(
	ctx context.Context,
	store *domain.Store,
	organizationID uuid.UUID,
	platformProduct *domain.PlatformProduct,
	opts domain.SyncOptions,
	result *domain.SyncResult,
) {
	if opts.DryRun {
		result.Created++
		return
	}

	local, err := s.transformer.ToLocal(store.PlatformCode, platformProduct, organizationID)
	if err != nil {
		result.AddError(platformProduct.PlatformProductID, "TRANSFORM", err.Error(), false)
		return
	}

	if err := s.products.CreateProduct(ctx, local); err != nil {
		result.AddError(platformProduct.PlatformProductID, "LOCAL_CREATE_FAILED", err.Error(), false)
		return
	}

	bySKU := make(map[string]domain.PlatformVariant, len(platformProduct.Variants))
	for _, v := range platformProduct.Variants {
		bySKU[v.SKU] = v
	}
	var newMappings []*domain.PlatformMapping
	for _, variant := range local.Variants {
		platformVariantID := ""
		if pv, ok := bySKU[variant.SKU]; ok {
			platformVariantID = pv.PlatformVariantID
		}
		mapping, err := domain.NewPlatformMapping(
			organizationID, store.ID, local.ID, variant.ID,
			store.PlatformCode, platformProduct.PlatformProductID, platformVariantID,
		)
		if err != nil {
			continue
		}
		mapping.UpdatePlatformPrice(platformProduct.Price)
		mapping.RecordSyncSuccess()
		newMappings = append(newMappings, mapping)
	}
	if len(newMappings) > 0 {
		if err := s.mappings.SaveBatch(ctx, newMappings); err != nil {
			result.AddError(local.ID.String(), "MAPPING_SAVE_FAILED", err.Error(), false)
			return
		}
	}

	result.Created++
}

// ---------------------------------------------------------------------------
// Conflict flow
// ---------------------------------------------------------------------------

// detectProductConflicts compares the synchronized fields of a mapped pair.
func detectProductConflicts(local *domain.LocalProduct, platform *domain.PlatformProduct) []conflict.Conflict {
	var conflicts []conflict.Conflict
	add := func(field string, localValue, platformValue any) {
		conflicts = append(conflicts, conflict.Conflict{
			Field:            field,
			LocalValue:       localValue,
			PlatformValue:    platformValue,
			LocalModified:    local.UpdatedAt,
			PlatformModified: platform.UpdatedAt,
		})
	}

	if local.Name != platform.Name {
		add("name", local.Name, platform.Name)
	}
	if local.Description != platform.Description {
		add("description", local.Description, platform.Description)
	}
	if !stringSlicesEqual(local.ImageURLs, platform.ImageURLs) {
		add("images", local.ImageURLs, platform.ImageURLs)
	}
	return conflicts
}

// settleConflicts routes conflicts through the resolver. Auto-resolved values
// are applied to the local record and folded into the outbound payload;
// everything else is persisted for manual review. Returns true when at least
// one conflict was deferred.
func (s *ProductSyncService) settleConflicts(
	ctx context.Context,
	store *domain.Store,
	organizationID uuid.UUID,
	product *domain.LocalProduct,
	payload *domain.ProductPayload,
	conflicts []conflict.Conflict,
	result *domain.SyncResult,
) bool {
	result.Conflicts = append(result.Conflicts, conflicts...)

	batch := s.resolver.ResolveAll(conflicts)

	fields := make(map[string]any)
	for _, rc := range batch.AutoResolved {
		if !reflect.DeepEqual(rc.Resolution.ResolvedValue, rc.Conflict.LocalValue) {
			fields[rc.Conflict.Field] = rc.Resolution.ResolvedValue
		}
		applyToPayload(payload, rc.Conflict.Field, rc.Resolution.ResolvedValue)
	}
	if len(fields) > 0 {
		if err := s.products.UpdateProductFields(ctx, product.ID, fields); err != nil {
			s.logger.Warn("failed to apply resolved fields locally",
				zap.String("product_id", product.ID.String()), zap.Error(err))
		}
	}

	for _, rc := range batch.ManualReview {
		s.persistConflict(ctx, store, organizationID, product.ID.String(), rc.Conflict, rc.Resolution)
	}
	return len(batch.ManualReview) > 0
}

func (s *ProductSyncService) persistConflict(
	ctx context.Context,
	store *domain.Store,
	organizationID uuid.UUID,
	entityID string,
	c conflict.Conflict,
	res conflict.Resolution,
) {
	record := conflict.NewConflictRecord(organizationID, store.ID, "product", entityID, c, res.Strategy)
	if err := s.conflictRecords.Save(ctx, record); err != nil {
		s.logger.Error("failed to persist conflict record",
			zap.String("entity_id", entityID),
			zap.String("field", c.Field),
			zap.Error(err),
		)
	}
}

// applyToPayload folds an auto-resolved value into the outbound payload.
func applyToPayload(payload *domain.ProductPayload, field string, value any) {
	switch field {
	case "name":
		if v, ok := value.(string); ok {
			payload.Name = v
		}
	case "description":
		if v, ok := value.(string); ok {
			payload.Description = v
		}
	case "images":
		if v, ok := toStringSlice(value); ok {
			payload.ImageURLs = v
		}
	}
}

func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

func (s *ProductSyncService) resolveStore(ctx context.Context, storeID, organizationID uuid.UUID) (*domain.Store, *domain.StoreCredentials, domain.Adapter, error) {
	store, err := s.stores.GetStore(ctx, storeID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolving store %s: %w", storeID, err)
	}
	if !store.IsActive {
		return nil, nil, nil, fmt.Errorf("store %s: %w", storeID, domain.ErrStoreInactive)
	}
	creds, err := s.stores.GetStoreCredentials(ctx, storeID, organizationID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolving credentials for store %s: %w", storeID, err)
	}
	adapter, err := s.adapters.AdapterFor(store, creds)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("constructing %s adapter: %w", store.PlatformCode, err)
	}
	return store, creds, adapter, nil
}

func (s *ProductSyncService) deadLetter(ctx context.Context, store *domain.Store, organizationID, productID uuid.UUID, op string, cause error) {
	key := fmt.Sprintf("product:%s:%s", store.ID, productID)
	errContext := map[string]any{
		"store_id":   store.ID.String(),
		"product_id": productID.String(),
		"operation":  op,
	}
	if _, err := s.recovery.RecordError(ctx, key, jobTypeProductSync, organizationID, cause.Error(), errContext, store.ID); err != nil {
		s.logger.Error("failed to dead-letter product error", zap.String("key", key), zap.Error(err))
	}
}

func (s *ProductSyncService) markConflict(ctx context.Context, productMappings []domain.PlatformMapping) {
	for i := range productMappings {
		productMappings[i].RecordConflict()
		if err := s.mappings.Save(ctx, &productMappings[i]); err != nil {
			s.logger.Warn("failed to record mapping conflict",
				zap.String("mapping_id", productMappings[i].ID.String()), zap.Error(err))
		}
	}
}

func (s *ProductSyncService) markFailure(ctx context.Context, productMappings []domain.PlatformMapping, cause error) {
	for i := range productMappings {
		productMappings[i].RecordSyncFailure(cause.Error())
		if err := s.mappings.Save(ctx, &productMappings[i]); err != nil {
			s.logger.Warn("failed to record mapping sync failure",
				zap.String("mapping_id", productMappings[i].ID.String()), zap.Error(err))
		}
	}
}

func (s *ProductSyncService) updateMonitoring(ctx context.Context, result *domain.SyncResult) {
	if s.monitor == nil {
		return
	}
	_ = s.monitor.UpdateJobProgress(ctx, result.JobID, result.TotalProcessed, result.Failed)
}
