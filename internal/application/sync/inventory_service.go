package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/application/monitor"
	"github.com/channelsync/backend/internal/domain/conflict"
	domain "github.com/channelsync/backend/internal/domain/sync"
)

// JobMonitor observes sync job lifecycles. Satisfied by
// monitor.PerformanceMonitor; a nil monitor disables observation.
type JobMonitor interface {
	StartJobMonitoring(ctx context.Context, jobID uuid.UUID, jobType string, organizationID uuid.UUID, storeID *uuid.UUID) (*monitor.JobMetric, error)
	UpdateJobProgress(ctx context.Context, jobID uuid.UUID, itemsProcessed, itemsFailed int) error
	CompleteJobMonitoring(ctx context.Context, jobID uuid.UUID) (*monitor.JobMetric, error)
}

const jobTypeInventorySync = "inventory_sync"

// InventorySyncService pushes local stock levels to marketplace stores and
// pulls platform stock back for conflict detection. Per-item failures are
// captured into the job result and never abort the batch; only a missing
// store or missing credentials aborts a call.
type InventorySyncService struct {
	cfg             Config
	logger          *zap.Logger
	stores          domain.StoreProvider
	adapters        domain.AdapterRegistry
	mappings        domain.MappingRepository
	inventory       domain.InventoryStore
	recovery        domain.ErrorRecovery
	scheduler       domain.Scheduler
	conflictRecords conflict.RecordRepository
	monitor         JobMonitor
}

// NewInventorySyncService wires the service. The monitor may be nil.
func NewInventorySyncService(
	cfg Config,
	logger *zap.Logger,
	stores domain.StoreProvider,
	adapters domain.AdapterRegistry,
	mappings domain.MappingRepository,
	inventory domain.InventoryStore,
	recovery domain.ErrorRecovery,
	scheduler domain.Scheduler,
	conflictRecords conflict.RecordRepository,
	jobMonitor JobMonitor,
) *InventorySyncService {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventorySyncService{
		cfg:             cfg,
		logger:          logger,
		stores:          stores,
		adapters:        adapters,
		mappings:        mappings,
		inventory:       inventory,
		recovery:        recovery,
		scheduler:       scheduler,
		conflictRecords: conflictRecords,
		monitor:         jobMonitor,
	}
}

// ---------------------------------------------------------------------------
// Push
// ---------------------------------------------------------------------------

// PushInventoryToAllPlatforms pushes stock to every active store of the
// organization. One store's failure is captured and the loop continues to
// the next store.
func (s *InventorySyncService) PushInventoryToAllPlatforms(ctx context.Context, organizationID uuid.UUID, opts domain.SyncOptions) (*domain.SyncResult, error) {
	stores, err := s.stores.GetOrganizationStores(ctx, organizationID, domain.StoreFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("listing organization stores: %w", err)
	}

	total := domain.NewSyncResult()
	for _, store := range stores {
		res, err := s.PushInventoryToPlatform(ctx, store.ID, organizationID, opts)
		if err != nil {
			total.AddError(store.ID.String(), "STORE_SYNC_FAILED", err.Error(), isRetryableError(err))
			s.logger.Error("store inventory push failed",
				zap.String("store_id", store.ID.String()),
				zap.String("platform", store.PlatformCode.String()),
				zap.Error(err),
			)
			continue
		}
		total.Merge(res)
	}

	total.Finish()
	return total, nil
}

// PushInventoryToPlatform pushes the organization's stock levels to one
// store. Items are processed in batches with per-item retry and adaptive
// inter-batch delay; exhausted retryable failures are dead-lettered to the
// error recovery queue with their full replay context.
func (s *InventorySyncService) PushInventoryToPlatform(ctx context.Context, storeID, organizationID uuid.UUID, opts domain.SyncOptions) (*domain.SyncResult, error) {
	store, _, adapter, err := s.resolveStore(ctx, storeID, organizationID)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.inventory.ListSnapshots(ctx, organizationID, domain.InventoryFilter{
		LocationIDs: opts.LocationIDs,
		VariantIDs:  opts.VariantIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("listing inventory snapshots: %w", err)
	}

	result := domain.NewSyncResult()
	s.startMonitoring(ctx, result.JobID, organizationID, &storeID)
	defer s.completeMonitoring(ctx, result.JobID)

	batchSize := s.cfg.BatchSize
	if opts.BatchSize > 0 {
		batchSize = opts.BatchSize
	}
	maxRetries := s.cfg.MaxRetries
	if opts.MaxRetries > 0 {
		maxRetries = opts.MaxRetries
	}

	for start := 0; start < len(snapshots); start += batchSize {
		end := start + batchSize
		if end > len(snapshots) {
			end = len(snapshots)
		}

		for _, snap := range snapshots[start:end] {
			s.pushItem(ctx, store, adapter, organizationID, snap, opts.DryRun, maxRetries, result)
			if ctx.Err() != nil {
				result.Finish()
				return result, ctx.Err()
			}
		}

		s.updateMonitoring(ctx, result)

		// Backpressure valve: slow down when the platform is failing on us.
		if end < len(snapshots) {
			delay := s.cfg.BatchDelayNormal
			if failureRate(result) > s.cfg.FailureRateValve {
				delay = s.cfg.BatchDelaySlow
			}
			if err := sleepCtx(ctx, delay); err != nil {
				result.Finish()
				return result, err
			}
		}
	}

	result.Finish()
	s.logger.Info("inventory push finished",
		zap.String("store_id", storeID.String()),
		zap.String("job_id", result.JobID.String()),
		zap.Int("processed", result.TotalProcessed),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// pushItem syncs one stock position with the per-item retry cycle.
func (s *InventorySyncService) pushItem(
	ctx context.Context,
	store *domain.Store,
	adapter domain.Adapter,
	organizationID uuid.UUID,
	snap domain.InventorySnapshot,
	dryRun bool,
	maxRetries int,
	result *domain.SyncResult,
) {
	result.TotalProcessed++

	mapping, err := s.mappings.FindByLocalVariant(ctx, store.ID, snap.ProductVariantID)
	if errors.Is(err, domain.ErrMappingNotFound) {
		// Unmapped variants are not errors; they simply have nothing to push.
		result.Skipped++
		return
	}
	if err != nil {
		result.AddError(snap.ProductVariantID.String(), "MAPPING_LOOKUP_FAILED", err.Error(), false)
		return
	}
	if !mapping.IsActive {
		result.Skipped++
		return
	}

	quantity := snap.AvailableQuantity()

	if dryRun {
		result.Updated++
		return
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoffDelay(s.cfg.BackoffBase, attempt)); err != nil {
				// Shutdown mid-backoff. The platform never rejected the item,
				// so it is not a sync failure on the mapping.
				result.AddError(snap.ProductVariantID.String(), "CANCELLED", err.Error(), true)
				return
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
		err := adapter.UpdateInventory(callCtx, mapping.PlatformProductID, mapping.PlatformVariantID, quantity)
		cancel()

		if err == nil {
			result.Updated++
			mapping.RecordSyncSuccess()
			if saveErr := s.mappings.Save(ctx, mapping); saveErr != nil {
				s.logger.Warn("failed to record mapping sync success",
					zap.String("mapping_id", mapping.ID.String()), zap.Error(saveErr))
			}
			return
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	if ctx.Err() != nil {
		result.AddError(snap.ProductVariantID.String(), "CANCELLED", lastErr.Error(), true)
		return
	}

	retryable := isRetryableError(lastErr)
	code := "SYNC_FAILED"
	if retryable {
		code = "RETRY_EXHAUSTED"
	}
	result.AddError(snap.ProductVariantID.String(), code, lastErr.Error(), retryable)
	mapping.RecordSyncFailure(lastErr.Error())
	if saveErr := s.mappings.Save(ctx, mapping); saveErr != nil {
		s.logger.Warn("failed to record mapping sync failure",
			zap.String("mapping_id", mapping.ID.String()), zap.Error(saveErr))
	}

	if retryable {
		key := fmt.Sprintf("inventory:%s:%s", store.ID, snap.ProductVariantID)
		errContext := map[string]any{
			"store_id":            store.ID.String(),
			"variant_id":          snap.ProductVariantID.String(),
			"location_id":         snap.LocationID.String(),
			"platform_product_id": mapping.PlatformProductID,
			"platform_variant_id": mapping.PlatformVariantID,
			"quantity":            quantity,
		}
		if _, recErr := s.recovery.RecordError(ctx, key, jobTypeInventorySync, organizationID, lastErr.Error(), errContext, store.ID); recErr != nil {
			s.logger.Error("failed to dead-letter inventory error",
				zap.String("key", key), zap.Error(recErr))
		}
	}
}

// ---------------------------------------------------------------------------
// Pull and conflict detection
// ---------------------------------------------------------------------------

// PullInventoryFromPlatform fetches platform stock and compares it against
// local levels. The pull phase never mutates state; unequal pairs come back
// as conflicts defaulted to manual_review for the caller to act on.
func (s *InventorySyncService) PullInventoryFromPlatform(ctx context.Context, storeID, organizationID uuid.UUID, opts domain.SyncOptions) ([]domain.InventoryConflict, error) {
	_, _, adapter, err := s.resolveStore(ctx, storeID, organizationID)
	if err != nil {
		return nil, err
	}

	var conflicts []domain.InventoryConflict
	now := time.Now()

	page := 1
	const pageSize = 100
	for {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
		products, err := adapter.GetProducts(callCtx, domain.ProductFilter{Page: page, PageSize: pageSize})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("fetching platform products: %w", err)
		}

		for _, product := range products {
			for _, variant := range product.Variants {
				mapping, err := s.mappings.FindByPlatformProduct(ctx, storeID, product.PlatformProductID, variant.PlatformVariantID)
				if err != nil {
					continue
				}
				if !mapping.IsActive {
					continue
				}

				localQty, locationID, err := s.localQuantity(ctx, organizationID, mapping.LocalVariantID)
				if err != nil {
					continue
				}

				if localQty != variant.Quantity {
					conflicts = append(conflicts, domain.InventoryConflict{
						ProductVariantID:  mapping.LocalVariantID,
						LocationID:        locationID,
						PlatformProductID: product.PlatformProductID,
						PlatformVariantID: variant.PlatformVariantID,
						LocalQuantity:     localQty,
						PlatformQuantity:  variant.Quantity,
						Resolution:        domain.InventoryResolutionManual,
						DetectedAt:        now,
					})
				}
			}
		}

		if len(products) < pageSize {
			break
		}
		page++
	}

	return conflicts, nil
}

// localQuantity sums available stock across locations for a variant and
// returns the first location id for targeting writes.
func (s *InventorySyncService) localQuantity(ctx context.Context, organizationID, variantID uuid.UUID) (int64, uuid.UUID, error) {
	snapshots, err := s.inventory.ListSnapshots(ctx, organizationID, domain.InventoryFilter{
		VariantIDs: []uuid.UUID{variantID},
	})
	if err != nil {
		return 0, uuid.Nil, err
	}

	var total int64
	locationID := uuid.Nil
	for i, snap := range snapshots {
		if i == 0 {
			locationID = snap.LocationID
		}
		total += snap.AvailableQuantity()
	}
	return total, locationID, nil
}

// ResolveInventoryConflicts settles detected conflicts with the chosen
// strategy. auto_resolve applies the conservative stock-safety heuristic
// rather than the generic field resolver; manual_review persists the
// conflict for a human instead of resolving it.
func (s *InventorySyncService) ResolveInventoryConflicts(
	ctx context.Context,
	storeID, organizationID uuid.UUID,
	conflicts []domain.InventoryConflict,
	strategy domain.InventoryResolutionStrategy,
) (*domain.SyncResult, error) {
	if !strategy.IsValid() {
		return nil, fmt.Errorf("sync: invalid inventory resolution strategy %q", strategy)
	}

	store, _, adapter, err := s.resolveStore(ctx, storeID, organizationID)
	if err != nil {
		return nil, err
	}

	result := domain.NewSyncResult()
	for _, c := range conflicts {
		result.TotalProcessed++
		if err := s.resolveOneInventoryConflict(ctx, store, adapter, organizationID, c, strategy, result); err != nil {
			result.AddError(c.ProductVariantID.String(), "RESOLVE_FAILED", err.Error(), isRetryableError(err))
		}
	}

	result.Finish()
	return result, nil
}

func (s *InventorySyncService) resolveOneInventoryConflict(
	ctx context.Context,
	store *domain.Store,
	adapter domain.Adapter,
	organizationID uuid.UUID,
	c domain.InventoryConflict,
	strategy domain.InventoryResolutionStrategy,
	result *domain.SyncResult,
) error {
	switch strategy {
	case domain.InventoryResolutionLocalWins:
		return s.applyInventoryResolution(ctx, store, adapter, c, c.LocalQuantity, "local value wins", result)

	case domain.InventoryResolutionPlatformWins:
		return s.applyInventoryResolution(ctx, store, adapter, c, c.PlatformQuantity, "platform value wins", result)

	case domain.InventoryResolutionAuto:
		quantity, reason := conservativeQuantity(c, s.cfg.ConservativeThreshold)
		return s.applyInventoryResolution(ctx, store, adapter, c, quantity, reason, result)

	case domain.InventoryResolutionManual:
		record := conflict.NewConflictRecord(
			organizationID, store.ID,
			"inventory", c.ProductVariantID.String(),
			conflict.Conflict{
				Field:         "quantity",
				LocalValue:    c.LocalQuantity,
				PlatformValue: c.PlatformQuantity,
			},
			conflict.StrategyManualReview,
		)
		if err := s.conflictRecords.Save(ctx, record); err != nil {
			return fmt.Errorf("persisting inventory conflict: %w", err)
		}
		result.Skipped++
		return nil

	default:
		return fmt.Errorf("unsupported inventory resolution strategy %q", strategy)
	}
}

// applyInventoryResolution writes the winning quantity to whichever side
// disagrees with it. Writing 37 locally when the platform already says 37
// must not also call the platform, and vice versa.
func (s *InventorySyncService) applyInventoryResolution(
	ctx context.Context,
	store *domain.Store,
	adapter domain.Adapter,
	c domain.InventoryConflict,
	quantity int64,
	reason string,
	result *domain.SyncResult,
) error {
	if c.LocalQuantity != quantity {
		if err := s.inventory.SetOnHand(ctx, c.ProductVariantID, c.LocationID, quantity, "inventory conflict resolution: "+reason); err != nil {
			return fmt.Errorf("writing local stock: %w", err)
		}
	}
	if c.PlatformQuantity != quantity {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
		err := adapter.UpdateInventory(callCtx, c.PlatformProductID, c.PlatformVariantID, quantity)
		cancel()
		if err != nil {
			return fmt.Errorf("writing platform stock: %w", err)
		}
	}

	result.Updated++
	s.logger.Info("inventory conflict resolved",
		zap.String("store_id", store.ID.String()),
		zap.String("variant_id", c.ProductVariantID.String()),
		zap.Int64("local", c.LocalQuantity),
		zap.Int64("platform", c.PlatformQuantity),
		zap.Int64("resolved", quantity),
		zap.String("reason", reason),
	)
	return nil
}

// conservativeQuantity is the stock-safety heuristic: prefer the lower value
// unless one side reads zero, which usually means that side is desynced.
func conservativeQuantity(c domain.InventoryConflict, threshold int64) (int64, string) {
	lower := c.LocalQuantity
	if c.PlatformQuantity < lower {
		lower = c.PlatformQuantity
	}

	switch {
	case c.Difference() <= threshold:
		return lower, fmt.Sprintf("difference within %d units, taking the lower value", threshold)
	case c.LocalQuantity == 0 && c.PlatformQuantity > 0:
		return c.PlatformQuantity, "local stock reads zero, trusting platform"
	case c.PlatformQuantity == 0 && c.LocalQuantity > 0:
		return c.LocalQuantity, "platform stock reads zero, trusting local"
	default:
		return lower, "large discrepancy, taking the lower value to avoid overselling"
	}
}

// DetectInventoryConflicts runs the pull comparison across one store (when
// storeID is set) or all active stores, filters by the minimum difference
// threshold, and returns summary statistics.
func (s *InventorySyncService) DetectInventoryConflicts(ctx context.Context, organizationID uuid.UUID, storeID *uuid.UUID, opts domain.SyncOptions) (*InventoryConflictReport, error) {
	var storeIDs []uuid.UUID
	if storeID != nil {
		storeIDs = []uuid.UUID{*storeID}
	} else {
		stores, err := s.stores.GetOrganizationStores(ctx, organizationID, domain.StoreFilter{ActiveOnly: true})
		if err != nil {
			return nil, fmt.Errorf("listing organization stores: %w", err)
		}
		for _, store := range stores {
			storeIDs = append(storeIDs, store.ID)
		}
	}

	report := &InventoryConflictReport{DetectedAt: time.Now()}
	var sumDiff int64

	for _, id := range storeIDs {
		conflicts, err := s.PullInventoryFromPlatform(ctx, id, organizationID, opts)
		if err != nil {
			s.logger.Warn("conflict detection skipped store",
				zap.String("store_id", id.String()), zap.Error(err))
			continue
		}
		report.CheckedStores++

		for _, c := range conflicts {
			if c.Difference() < opts.Threshold {
				continue
			}
			report.Conflicts = append(report.Conflicts, c)
			sumDiff += c.Difference()
			if c.Difference() > report.MaxDifference {
				report.MaxDifference = c.Difference()
			}
		}
	}

	report.Count = len(report.Conflicts)
	if report.Count > 0 {
		report.MeanDifference = float64(sumDiff) / float64(report.Count)
	}
	return report, nil
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// resolveStore loads the store, its credentials, and constructs the adapter.
// Any failure here is fatal for the calling job.
func (s *InventorySyncService) resolveStore(ctx context.Context, storeID, organizationID uuid.UUID) (*domain.Store, *domain.StoreCredentials, domain.Adapter, error) {
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

func failureRate(result *domain.SyncResult) float64 {
	if result.TotalProcessed == 0 {
		return 0
	}
	return float64(result.Failed) / float64(result.TotalProcessed)
}

func (s *InventorySyncService) startMonitoring(ctx context.Context, jobID, organizationID uuid.UUID, storeID *uuid.UUID) {
	if s.monitor == nil {
		return
	}
	if _, err := s.monitor.StartJobMonitoring(ctx, jobID, jobTypeInventorySync, organizationID, storeID); err != nil {
		s.logger.Debug("job monitoring unavailable", zap.Error(err))
	}
}

func (s *InventorySyncService) updateMonitoring(ctx context.Context, result *domain.SyncResult) {
	if s.monitor == nil {
		return
	}
	_ = s.monitor.UpdateJobProgress(ctx, result.JobID, result.TotalProcessed, result.Failed)
}

func (s *InventorySyncService) completeMonitoring(ctx context.Context, jobID uuid.UUID) {
	if s.monitor == nil {
		return
	}
	_, _ = s.monitor.CompleteJobMonitoring(ctx, jobID)
}
