package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/application/monitor"
	syncapp "github.com/channelsync/backend/internal/application/sync"
	"github.com/channelsync/backend/internal/domain/conflict"
	domain "github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/cache"
	"github.com/channelsync/backend/internal/infrastructure/config"
	"github.com/channelsync/backend/internal/infrastructure/logger"
	"github.com/channelsync/backend/internal/infrastructure/persistence"
	"github.com/channelsync/backend/internal/infrastructure/platform"
	"github.com/channelsync/backend/internal/infrastructure/recovery"
	"github.com/channelsync/backend/internal/infrastructure/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ChannelSync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	storeProvider := persistence.NewGormStoreProvider(db.DB)
	inventoryStore := persistence.NewGormInventoryStore(db.DB)
	productStore := persistence.NewGormProductStore(db.DB)
	conflictRepo := persistence.NewGormConflictRecordRepository(db.DB)
	syncErrorRepo := persistence.NewGormSyncErrorRepository(db.DB)
	scheduleRepo := persistence.NewGormScheduleRepository(db.DB)

	// Idempotency store: Redis with in-memory fallback
	idempotencyFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	idempotencyStore, err := idempotencyFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Error recovery (dead-letter queue)
	recoverySvc, err := recovery.NewService(syncErrorRepo, idempotencyStore, recovery.Config{
		RetryBackoffBase: cfg.Recovery.RetryBackoffBase,
		RetryBackoffMax:  cfg.Recovery.RetryBackoffMax,
		IdempotencyTTL:   cfg.Recovery.IdempotencyTTL,
	}, log)
	if err != nil {
		log.Fatal("Failed to create error recovery service", zap.Error(err))
	}

	// Platform adapter registry
	registry := platform.NewRegistry(
		platform.WithTimeoutSeconds(int(cfg.Sync.AdapterTimeout / time.Second)),
	)

	// Conflict resolver
	resolverCfg := conflict.DefaultConfig()
	resolverCfg.TieBreakWindow = cfg.Sync.TieBreakWindow
	resolver, err := conflict.NewResolver(resolverCfg)
	if err != nil {
		log.Fatal("Failed to create conflict resolver", zap.Error(err))
	}

	// Performance monitor with log-backed alerting
	perfMonitor, err := monitor.NewPerformanceMonitor(monitor.Config{
		MaxJobDuration: cfg.Monitor.MaxJobDuration,
		MaxErrorRate:   cfg.Monitor.MaxErrorRate,
		MaxHeapBytes:   uint64(cfg.Monitor.MaxHeapBytes),
		MaxCPUPercent:  cfg.Monitor.MaxCPUPercent,
		MinThroughput:  cfg.Monitor.MinThroughput,
		Retention:      cfg.Monitor.Retention,
	}, log, monitor.NewSystemSampler())
	if err != nil {
		log.Fatal("Failed to create performance monitor", zap.Error(err))
	}
	perfMonitor.RegisterAlertCallback(func(alert monitor.Alert) {
		log.Warn("performance alert",
			zap.String("alert_type", string(alert.Type)),
			zap.String("severity", string(alert.Severity)),
			zap.String("job_id", alert.JobID.String()),
			zap.String("job_type", alert.JobType),
			zap.Float64("value", alert.Value),
			zap.Float64("threshold", alert.Threshold),
			zap.String("message", alert.Message),
		)
	})

	// Cron scheduler
	cronScheduler := scheduler.NewCronScheduler(scheduler.Config{
		CheckInterval: cfg.Scheduler.CheckInterval,
		JobTimeout:    cfg.Scheduler.JobTimeout,
	}, scheduleRepo, log)

	// Sync services
	syncCfg := syncapp.Config{
		BatchSize:             cfg.Sync.BatchSize,
		MaxRetries:            cfg.Sync.MaxRetries,
		BackoffBase:           cfg.Sync.BackoffBase,
		BatchDelayNormal:      cfg.Sync.BatchDelayNormal,
		BatchDelaySlow:        cfg.Sync.BatchDelaySlow,
		FailureRateValve:      cfg.Sync.FailureRateValve,
		ConservativeThreshold: cfg.Sync.ConservativeThreshold,
		AdapterTimeout:        cfg.Sync.AdapterTimeout,
		RecencyWindow:         cfg.Sync.RecencyWindow,
		HealthWarnErrorRate:   cfg.Sync.HealthWarnErrorRate,
		HealthFailErrorRate:   cfg.Sync.HealthFailErrorRate,
	}

	inventoryService := syncapp.NewInventorySyncService(
		syncCfg, log, storeProvider, registry, mappingRepo,
		inventoryStore, recoverySvc, cronScheduler, conflictRepo, perfMonitor,
	)
	productService := syncapp.NewProductSyncService(
		syncCfg, log, storeProvider, registry, mappingRepo,
		productStore, resolver, conflictRepo, recoverySvc, nil, perfMonitor,
	)

	// Scheduled job handlers
	cronScheduler.RegisterHandler("inventory_sync", func(ctx context.Context, entry domain.ScheduleEntry) error {
		if entry.StoreID != nil {
			_, err := inventoryService.PushInventoryToPlatform(ctx, *entry.StoreID, entry.OrganizationID, entry.Options)
			return err
		}
		_, err := inventoryService.PushInventoryToAllPlatforms(ctx, entry.OrganizationID, entry.Options)
		return err
	})
	cronScheduler.RegisterHandler("product_sync", func(ctx context.Context, entry domain.ScheduleEntry) error {
		if entry.StoreID == nil {
			return fmt.Errorf("product sync schedule %s has no store", entry.ID)
		}
		_, err := productService.SyncProducts(ctx, *entry.StoreID, entry.OrganizationID, entry.Options)
		return err
	})

	// Dead-letter replayer
	replayer := recovery.NewReplayer(recoverySvc, func(ctx context.Context, record domain.ErrorRecord) error {
		return replayRecord(ctx, record, inventoryService, productService)
	}, cfg.Recovery.ReplayInterval, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Scheduler.Enabled {
		if err := cronScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
	} else {
		log.Info("Scheduler disabled by configuration")
	}

	go replayer.Run(ctx)

	log.Info("ChannelSync started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if cfg.Scheduler.Enabled {
		if err := cronScheduler.Stop(stopCtx); err != nil {
			log.Error("Scheduler did not stop cleanly", zap.Error(err))
		}
	}

	log.Info("ChannelSync exited gracefully")
}

// replayRecord re-runs the failed sync unit described by a dead-letter
// record. Inventory records replay only the failed variant; product records
// re-push the store's catalog.
func replayRecord(
	ctx context.Context,
	record domain.ErrorRecord,
	inventoryService *syncapp.InventorySyncService,
	productService *syncapp.ProductSyncService,
) error {
	switch record.JobType {
	case "inventory_sync":
		opts := domain.SyncOptions{}
		if raw, ok := record.Context["variant_id"].(string); ok {
			if variantID, err := uuid.Parse(raw); err == nil {
				opts.VariantIDs = []uuid.UUID{variantID}
			}
		}
		if raw, ok := record.Context["location_id"].(string); ok {
			if locationID, err := uuid.Parse(raw); err == nil {
				opts.LocationIDs = []uuid.UUID{locationID}
			}
		}
		_, err := inventoryService.PushInventoryToPlatform(ctx, record.StoreID, record.OrganizationID, opts)
		return err
	case "product_sync":
		_, err := productService.SyncProducts(ctx, record.StoreID, record.OrganizationID, domain.SyncOptions{
			Direction: domain.DirectionPush,
		})
		return err
	default:
		return fmt.Errorf("no replay handler for job type %q", record.JobType)
	}
}
