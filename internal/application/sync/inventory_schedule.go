package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Scheduling
// ---------------------------------------------------------------------------

// cronFromIntervalMinutes converts a minute interval into a five-field cron
// expression. Intervals cron cannot express fall back to hourly.
func cronFromIntervalMinutes(minutes int) string {
	switch {
	case minutes > 0 && minutes < 60:
		return fmt.Sprintf("*/%d * * * *", minutes)
	case minutes == 60:
		return "0 * * * *"
	case minutes > 60 && minutes%60 == 0:
		return fmt.Sprintf("0 */%d * * *", minutes/60)
	default:
		return "0 * * * *"
	}
}

// inventoryScheduleID derives a stable schedule id per organization, or per
// store when the schedule is store-scoped.
func inventoryScheduleID(organizationID uuid.UUID, storeID *uuid.UUID) string {
	if storeID != nil {
		return fmt.Sprintf("inventory-sync:%s:%s", organizationID, storeID)
	}
	return fmt.Sprintf("inventory-sync:%s", organizationID)
}

// ScheduleInventorySync registers a recurring inventory push with the
// scheduler. The interval in minutes is converted to a cron expression.
func (s *InventorySyncService) ScheduleInventorySync(
	ctx context.Context,
	organizationID uuid.UUID,
	storeID *uuid.UUID,
	intervalMinutes int,
	opts domain.SyncOptions,
) (*domain.ScheduleEntry, error) {
	entry := &domain.ScheduleEntry{
		ID:             inventoryScheduleID(organizationID, storeID),
		Name:           fmt.Sprintf("Inventory sync every %d minutes", intervalMinutes),
		CronExpr:       cronFromIntervalMinutes(intervalMinutes),
		Enabled:        true,
		JobType:        jobTypeInventorySync,
		OrganizationID: organizationID,
		StoreID:        storeID,
		Options:        opts,
	}

	if err := s.scheduler.AddSchedule(ctx, entry); err != nil {
		return nil, fmt.Errorf("registering inventory schedule: %w", err)
	}

	s.logger.Info("inventory sync scheduled",
		zap.String("schedule_id", entry.ID),
		zap.String("cron", entry.CronExpr),
	)
	return entry, nil
}

// UpdateInventorySchedule changes the interval and enabled flag of an
// existing schedule.
func (s *InventorySyncService) UpdateInventorySchedule(ctx context.Context, scheduleID string, intervalMinutes int, enabled bool) error {
	entry, err := s.scheduler.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}

	entry.CronExpr = cronFromIntervalMinutes(intervalMinutes)
	entry.Name = fmt.Sprintf("Inventory sync every %d minutes", intervalMinutes)
	entry.Enabled = enabled

	return s.scheduler.UpdateSchedule(ctx, entry)
}

// RemoveInventorySchedule unregisters a schedule.
func (s *InventorySyncService) RemoveInventorySchedule(ctx context.Context, scheduleID string) error {
	return s.scheduler.RemoveSchedule(ctx, scheduleID)
}

// GetInventorySchedules lists the organization's inventory sync schedules.
func (s *InventorySyncService) GetInventorySchedules(ctx context.Context, organizationID uuid.UUID) ([]domain.ScheduleEntry, error) {
	entries, err := s.scheduler.GetSchedules(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ScheduleEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.JobType == jobTypeInventorySync {
			out = append(out, entry)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// GetInventorySyncStats aggregates mapping sync state across the
// organization's active stores.
func (s *InventorySyncService) GetInventorySyncStats(ctx context.Context, organizationID uuid.UUID) (*InventorySyncStats, error) {
	stores, err := s.stores.GetOrganizationStores(ctx, organizationID, domain.StoreFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("listing organization stores: %w", err)
	}

	stats := &InventorySyncStats{
		OrganizationID: organizationID,
		TotalStores:    len(stores),
	}

	for _, store := range stores {
		mappings, err := s.mappings.FindActiveForStore(ctx, store.ID)
		if err != nil {
			s.logger.Warn("stats skipped store",
				zap.String("store_id", store.ID.String()), zap.Error(err))
			continue
		}

		storeStats := StoreSyncStats{
			StoreID:        store.ID,
			StoreName:      store.Name,
			PlatformCode:   store.PlatformCode,
			ActiveMappings: len(mappings),
			LastSyncAt:     store.LastSyncAt,
		}
		for _, m := range mappings {
			switch m.SyncStatus {
			case domain.SyncStatusSynced:
				storeStats.Synced++
			case domain.SyncStatusPending:
				storeStats.Pending++
			case domain.SyncStatusConflict:
				storeStats.Conflict++
			case domain.SyncStatusError:
				storeStats.Errored++
			}
			if m.LastSyncAt != nil && (storeStats.LastSyncAt == nil || m.LastSyncAt.After(*storeStats.LastSyncAt)) {
				storeStats.LastSyncAt = m.LastSyncAt
			}
		}

		stats.ActiveMappings += storeStats.ActiveMappings
		stats.Synced += storeStats.Synced
		stats.Pending += storeStats.Pending
		stats.Conflict += storeStats.Conflict
		stats.Errored += storeStats.Errored
		if storeStats.LastSyncAt != nil && (stats.LastSyncAt == nil || storeStats.LastSyncAt.After(*stats.LastSyncAt)) {
			stats.LastSyncAt = storeStats.LastSyncAt
		}
		stats.Stores = append(stats.Stores, storeStats)
	}

	if stats.ActiveMappings > 0 {
		stats.ErrorRate = float64(stats.Errored) / float64(stats.ActiveMappings) * 100
	}
	return stats, nil
}

// ---------------------------------------------------------------------------
// Health check
// ---------------------------------------------------------------------------

// PerformInventorySyncHealthCheck probes connectivity, sync recency, error
// rate, and schedule coverage, and folds them into one verdict with
// recommendations.
func (s *InventorySyncService) PerformInventorySyncHealthCheck(ctx context.Context, organizationID uuid.UUID) (*HealthReport, error) {
	report := &HealthReport{
		OrganizationID: organizationID,
		Status:         HealthStatusHealthy,
		CheckedAt:      time.Now(),
	}

	addCheck := func(name string, status HealthStatus, detail, recommendation string) {
		report.Checks = append(report.Checks, HealthCheck{Name: name, Status: status, Detail: detail})
		if status == HealthStatusCritical {
			report.Status = HealthStatusCritical
		} else if status == HealthStatusWarning && report.Status == HealthStatusHealthy {
			report.Status = HealthStatusWarning
		}
		if recommendation != "" && status != HealthStatusHealthy {
			report.Recommendations = append(report.Recommendations, recommendation)
		}
	}

	stores, err := s.stores.GetOrganizationStores(ctx, organizationID, domain.StoreFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("listing organization stores: %w", err)
	}
	if len(stores) == 0 {
		addCheck("connectivity", HealthStatusWarning, "no active stores connected",
			"connect at least one marketplace store")
		return report, nil
	}

	// Connectivity: can every store's credentials be resolved.
	unreachable := 0
	for _, store := range stores {
		if _, err := s.stores.GetStoreCredentials(ctx, store.ID, organizationID); err != nil {
			unreachable++
		}
	}
	switch {
	case unreachable == 0:
		addCheck("connectivity", HealthStatusHealthy,
			fmt.Sprintf("credentials resolved for all %d stores", len(stores)), "")
	case unreachable < len(stores):
		addCheck("connectivity", HealthStatusWarning,
			fmt.Sprintf("%d of %d stores missing credentials", unreachable, len(stores)),
			"re-authorize the stores with missing credentials")
	default:
		addCheck("connectivity", HealthStatusCritical,
			"no store credentials could be resolved",
			"re-authorize the marketplace connections")
	}

	stats, err := s.GetInventorySyncStats(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	// Recency: the most recent successful sync must fall inside the window.
	switch {
	case stats.LastSyncAt == nil:
		addCheck("recency", HealthStatusWarning, "no sync has completed yet",
			"run an initial inventory sync")
	case time.Since(*stats.LastSyncAt) > s.cfg.RecencyWindow:
		addCheck("recency", HealthStatusCritical,
			fmt.Sprintf("last sync was %s ago", time.Since(*stats.LastSyncAt).Round(time.Minute)),
			"investigate why scheduled syncs are not running")
	default:
		addCheck("recency", HealthStatusHealthy,
			fmt.Sprintf("last sync was %s ago", time.Since(*stats.LastSyncAt).Round(time.Minute)), "")
	}

	// Error rate bands over active mappings.
	switch {
	case stats.ErrorRate < s.cfg.HealthWarnErrorRate:
		addCheck("error_rate", HealthStatusHealthy,
			fmt.Sprintf("mapping error rate %.1f%%", stats.ErrorRate), "")
	case stats.ErrorRate < s.cfg.HealthFailErrorRate:
		addCheck("error_rate", HealthStatusWarning,
			fmt.Sprintf("mapping error rate %.1f%%", stats.ErrorRate),
			"review recent sync errors in the dead-letter queue")
	default:
		addCheck("error_rate", HealthStatusCritical,
			fmt.Sprintf("mapping error rate %.1f%%", stats.ErrorRate),
			"platform rejections are widespread; check credentials and listing state")
	}

	// Schedule coverage: at least one enabled inventory schedule.
	schedules, err := s.GetInventorySchedules(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	enabled := 0
	for _, entry := range schedules {
		if entry.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		addCheck("schedule", HealthStatusWarning, "no enabled inventory sync schedule",
			"schedule a recurring inventory sync")
	} else {
		addCheck("schedule", HealthStatusHealthy,
			fmt.Sprintf("%d enabled schedule(s)", enabled), "")
	}

	return report, nil
}
