package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/infrastructure/telemetry"
)

// PerformanceMonitor tracks the lifecycle metrics of sync jobs, evaluates
// them against configured thresholds, and notifies registered callbacks when
// a threshold is breached. All state is in-memory; durable history is bounded
// by the retention window.
type PerformanceMonitor struct {
	mu        sync.RWMutex
	cfg       Config
	logger    *zap.Logger
	sampler   ResourceSampler
	now       func() time.Time
	metrics   map[uuid.UUID]*JobMetric
	alerted   map[uuid.UUID]map[AlertType]bool
	alerts    []*Alert
	recs      []*Recommendation
	callbacks []AlertCallback

	jobsStarted    *telemetry.Counter
	jobsCompleted  *telemetry.Counter
	itemsProcessed *telemetry.Counter
	itemsFailed    *telemetry.Counter
	jobDuration    *telemetry.Histogram
	alertsRaised   *telemetry.Counter
}

// NewPerformanceMonitor creates a monitor with the given thresholds.
// A nil sampler falls back to the runtime/gopsutil SystemSampler.
func NewPerformanceMonitor(cfg Config, logger *zap.Logger, sampler ResourceSampler) (*PerformanceMonitor, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if sampler == nil {
		sampler = NewSystemSampler()
	}

	m := &PerformanceMonitor{
		cfg:     cfg,
		logger:  logger,
		sampler: sampler,
		now:     time.Now,
		metrics: make(map[uuid.UUID]*JobMetric),
		alerted: make(map[uuid.UUID]map[AlertType]bool),
	}

	meter := telemetry.Meter()
	var err error
	if m.jobsStarted, err = telemetry.NewCounter(meter,
		"csync_jobs_started_total", "Total sync jobs started", "{jobs}"); err != nil {
		return nil, err
	}
	if m.jobsCompleted, err = telemetry.NewCounter(meter,
		"csync_jobs_completed_total", "Total sync jobs completed", "{jobs}"); err != nil {
		return nil, err
	}
	if m.itemsProcessed, err = telemetry.NewCounter(meter,
		"csync_items_processed_total", "Total items processed by sync jobs", "{items}"); err != nil {
		return nil, err
	}
	if m.itemsFailed, err = telemetry.NewCounter(meter,
		"csync_items_failed_total", "Total items failed in sync jobs", "{items}"); err != nil {
		return nil, err
	}
	if m.jobDuration, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "csync_job_duration_seconds",
		Description: "Sync job duration",
		Unit:        "s",
		Boundaries:  telemetry.JobDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.alertsRaised, err = telemetry.NewCounter(meter,
		"csync_alerts_total", "Total performance alerts raised", "{alerts}"); err != nil {
		return nil, err
	}

	return m, nil
}

// Config returns the active thresholds.
func (m *PerformanceMonitor) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// RegisterAlertCallback adds an observer invoked for every raised alert.
// Callbacks run synchronously after the monitor's lock is released.
func (m *PerformanceMonitor) RegisterAlertCallback(cb AlertCallback) {
	if cb == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// ---------------------------------------------------------------------------
// Job lifecycle
// ---------------------------------------------------------------------------

// StartJobMonitoring allocates a metric record for a new job.
func (m *PerformanceMonitor) StartJobMonitoring(
	ctx context.Context,
	jobID uuid.UUID,
	jobType string,
	organizationID uuid.UUID,
	storeID *uuid.UUID,
) (*JobMetric, error) {
	m.mu.Lock()
	if _, exists := m.metrics[jobID]; exists {
		m.mu.Unlock()
		return nil, ErrJobAlreadyMonitored
	}

	metric := &JobMetric{
		JobID:          jobID,
		JobType:        jobType,
		OrganizationID: organizationID,
		StoreID:        storeID,
		StartedAt:      m.now(),
	}
	m.metrics[jobID] = metric
	m.alerted[jobID] = make(map[AlertType]bool)
	snapshot := *metric
	m.mu.Unlock()

	m.jobsStarted.Inc(ctx,
		telemetry.AttrOrganizationID.String(organizationID.String()),
		telemetry.AttrJobType.String(jobType),
	)
	m.logger.Debug("job monitoring started",
		zap.String("job_id", jobID.String()),
		zap.String("job_type", jobType),
	)
	return &snapshot, nil
}

// UpdateJobProgress records the running totals for a job, recomputes
// throughput and error rate, and re-evaluates thresholds.
func (m *PerformanceMonitor) UpdateJobProgress(ctx context.Context, jobID uuid.UUID, itemsProcessed, itemsFailed int) error {
	m.mu.Lock()
	metric, ok := m.metrics[jobID]
	if !ok {
		m.mu.Unlock()
		return ErrJobNotMonitored
	}

	metric.ItemsProcessed = itemsProcessed
	metric.ItemsFailed = itemsFailed
	m.recompute(metric, m.now())

	raised := m.evaluateLocked(metric, false)
	m.mu.Unlock()

	m.fanOut(ctx, raised)
	return nil
}

// CompleteJobMonitoring stamps the end time, captures a resource snapshot,
// runs a final threshold check, and generates recommendations. It returns a
// copy of the finished metric.
func (m *PerformanceMonitor) CompleteJobMonitoring(ctx context.Context, jobID uuid.UUID) (*JobMetric, error) {
	snap := m.sampler.Sample()

	m.mu.Lock()
	metric, ok := m.metrics[jobID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrJobNotMonitored
	}

	end := m.now()
	metric.CompletedAt = &end
	metric.Duration = end.Sub(metric.StartedAt)
	metric.Resources = &snap
	m.recompute(metric, end)

	raised := m.evaluateLocked(metric, true)
	m.generateRecommendationsLocked(metric)
	result := *metric
	m.mu.Unlock()

	m.fanOut(ctx, raised)

	attrs := []zap.Field{
		zap.String("job_id", jobID.String()),
		zap.Duration("duration", result.Duration),
		zap.Int("items_processed", result.ItemsProcessed),
		zap.Int("items_failed", result.ItemsFailed),
		zap.Float64("throughput", result.Throughput),
		zap.Float64("error_rate", result.ErrorRate),
	}
	m.logger.Info("job monitoring completed", attrs...)

	orgAttr := telemetry.AttrOrganizationID.String(result.OrganizationID.String())
	typeAttr := telemetry.AttrJobType.String(result.JobType)
	m.jobsCompleted.Inc(ctx, orgAttr, typeAttr)
	m.itemsProcessed.Add(ctx, int64(result.ItemsProcessed), orgAttr, typeAttr)
	m.itemsFailed.Add(ctx, int64(result.ItemsFailed), orgAttr, typeAttr)
	m.jobDuration.RecordDuration(ctx, result.Duration, orgAttr, typeAttr)

	return &result, nil
}

// GetJobMetric returns a copy of a job's metric record.
func (m *PerformanceMonitor) GetJobMetric(jobID uuid.UUID) (*JobMetric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	metric, ok := m.metrics[jobID]
	if !ok {
		return nil, ErrJobNotMonitored
	}
	snapshot := *metric
	return &snapshot, nil
}

// recompute derives throughput and error rate from the running totals.
// Caller holds the lock.
func (m *PerformanceMonitor) recompute(metric *JobMetric, now time.Time) {
	elapsed := now.Sub(metric.StartedAt).Seconds()
	if elapsed > 0 && metric.ItemsProcessed > 0 {
		metric.Throughput = float64(metric.ItemsProcessed) / elapsed
	}
	if metric.ItemsProcessed > 0 {
		metric.ErrorRate = float64(metric.ItemsFailed) / float64(metric.ItemsProcessed) * 100
	}
}

// ---------------------------------------------------------------------------
// Threshold evaluation
// ---------------------------------------------------------------------------

// evaluateLocked checks every threshold and returns the newly raised alerts.
// Each (job, alert type) pair fires at most once. Caller holds the lock.
func (m *PerformanceMonitor) evaluateLocked(metric *JobMetric, final bool) []Alert {
	var raised []Alert

	now := m.now()
	elapsed := now.Sub(metric.StartedAt)
	if metric.CompletedAt != nil {
		elapsed = metric.Duration
	}

	if elapsed > m.cfg.MaxJobDuration {
		raised = m.raiseLocked(raised, metric, AlertSlowJob,
			elapsed.Minutes(), m.cfg.MaxJobDuration.Minutes(),
			fmt.Sprintf("job running for %s, threshold %s", elapsed.Round(time.Second), m.cfg.MaxJobDuration))
	}

	if metric.ItemsProcessed > 0 && metric.ErrorRate > m.cfg.MaxErrorRate {
		raised = m.raiseLocked(raised, metric, AlertHighErrorRate,
			metric.ErrorRate, m.cfg.MaxErrorRate,
			fmt.Sprintf("error rate %.1f%% exceeds %.1f%%", metric.ErrorRate, m.cfg.MaxErrorRate))
	}

	// Throughput is noisy in the first moments of a job; only judge it once
	// a second has elapsed, or at completion.
	if metric.ItemsProcessed > 0 && (final || elapsed >= time.Second) && metric.Throughput < m.cfg.MinThroughput {
		raised = m.raiseLocked(raised, metric, AlertThroughputDrop,
			metric.Throughput, m.cfg.MinThroughput,
			fmt.Sprintf("throughput %.2f items/s below %.2f items/s", metric.Throughput, m.cfg.MinThroughput))
	}

	if metric.Resources != nil {
		if metric.Resources.HeapAllocBytes > m.cfg.MaxHeapBytes {
			raised = m.raiseLocked(raised, metric, AlertMemoryLeak,
				float64(metric.Resources.HeapAllocBytes), float64(m.cfg.MaxHeapBytes),
				fmt.Sprintf("heap usage %d MiB exceeds %d MiB",
					metric.Resources.HeapAllocBytes>>20, m.cfg.MaxHeapBytes>>20))
		}
		if metric.Resources.CPUPercent > m.cfg.MaxCPUPercent {
			raised = m.raiseLocked(raised, metric, AlertCPUSpike,
				metric.Resources.CPUPercent, m.cfg.MaxCPUPercent,
				fmt.Sprintf("CPU usage %.1f%% exceeds %.1f%%", metric.Resources.CPUPercent, m.cfg.MaxCPUPercent))
		}
	}

	return raised
}

// raiseLocked appends a new alert unless this alert type already fired for
// the job. Caller holds the lock.
func (m *PerformanceMonitor) raiseLocked(raised []Alert, metric *JobMetric, alertType AlertType, value, threshold float64, message string) []Alert {
	if m.alerted[metric.JobID][alertType] {
		return raised
	}
	m.alerted[metric.JobID][alertType] = true

	alert := &Alert{
		ID:             uuid.New(),
		Type:           alertType,
		Severity:       severityFor(alertType, value, threshold),
		JobID:          metric.JobID,
		JobType:        metric.JobType,
		OrganizationID: metric.OrganizationID,
		StoreID:        metric.StoreID,
		Message:        message,
		Value:          value,
		Threshold:      threshold,
		CreatedAt:      m.now(),
	}
	m.alerts = append(m.alerts, alert)
	return append(raised, *alert)
}

// severityFor grades a breach by how far past the threshold the value is.
// throughput_drop inverts the ratio because lower is worse.
func severityFor(alertType AlertType, value, threshold float64) Severity {
	ratio := 0.0
	if alertType == AlertThroughputDrop {
		if value > 0 {
			ratio = threshold / value
		} else {
			ratio = 3.0
		}
	} else if threshold > 0 {
		ratio = value / threshold
	}

	switch {
	case ratio >= 3.0:
		return SeverityCritical
	case ratio >= 2.0:
		return SeverityHigh
	case ratio >= 1.25:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// fanOut notifies callbacks and records alert metrics outside the lock.
func (m *PerformanceMonitor) fanOut(ctx context.Context, raised []Alert) {
	if len(raised) == 0 {
		return
	}
	m.mu.RLock()
	callbacks := make([]AlertCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.RUnlock()

	for _, alert := range raised {
		m.alertsRaised.Inc(ctx,
			telemetry.AttrAlertType.String(string(alert.Type)),
			telemetry.AttrSeverity.String(string(alert.Severity)),
		)
		m.logger.Warn("performance alert",
			zap.String("alert_type", string(alert.Type)),
			zap.String("severity", string(alert.Severity)),
			zap.String("job_id", alert.JobID.String()),
			zap.String("message", alert.Message),
		)
		for _, cb := range callbacks {
			cb(alert)
		}
	}
}

// ---------------------------------------------------------------------------
// Alerts and recommendations
// ---------------------------------------------------------------------------

// GetActiveAlerts returns all unresolved alerts, newest last.
func (m *PerformanceMonitor) GetActiveAlerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if !a.Resolved {
			out = append(out, *a)
		}
	}
	return out
}

// GetAlerts returns alerts for an organization, optionally including
// resolved history.
func (m *PerformanceMonitor) GetAlerts(organizationID uuid.UUID, includeResolved bool) []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, 0)
	for _, a := range m.alerts {
		if a.OrganizationID != organizationID {
			continue
		}
		if a.Resolved && !includeResolved {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// ResolveAlert marks an alert closed. History is kept until retention
// cleanup; resolving an already-resolved alert is a no-op.
func (m *PerformanceMonitor) ResolveAlert(alertID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID != alertID {
			continue
		}
		if !a.Resolved {
			now := m.now()
			a.Resolved = true
			a.ResolvedAt = &now
		}
		return nil
	}
	return ErrAlertNotFound
}

// generateRecommendationsLocked derives tuning suggestions from a completed
// metric. Caller holds the lock.
func (m *PerformanceMonitor) generateRecommendationsLocked(metric *JobMetric) {
	now := m.now()
	add := func(t RecommendationType, p Priority, message, impact string) {
		m.recs = append(m.recs, &Recommendation{
			ID:             uuid.New(),
			Type:           t,
			Priority:       p,
			JobID:          metric.JobID,
			OrganizationID: metric.OrganizationID,
			Message:        message,
			ExpectedImpact: impact,
			CreatedAt:      now,
		})
	}

	if metric.ItemsProcessed > 0 && metric.Throughput < m.cfg.MinThroughput {
		add(RecommendBatchSize, PriorityMedium,
			fmt.Sprintf("throughput was %.2f items/s; consider a larger batch size", metric.Throughput),
			"fewer round trips per item should raise overall throughput")
	}
	if metric.ItemsProcessed > 0 && metric.ErrorRate > m.cfg.MaxErrorRate {
		add(RecommendRetryStrategy, PriorityHigh,
			fmt.Sprintf("error rate was %.1f%%; review retry backoff and error handling", metric.ErrorRate),
			"tuned backoff reduces repeated failures against a struggling platform")
	}
	if metric.Duration > m.cfg.MaxJobDuration {
		add(RecommendConcurrency, PriorityMedium,
			fmt.Sprintf("job took %s; consider syncing stores concurrently", metric.Duration.Round(time.Second)),
			"parallel per-store jobs shorten the overall sync window")
	}
}

// GetRecommendations returns recommendations for an organization, optionally
// including applied history.
func (m *PerformanceMonitor) GetRecommendations(organizationID uuid.UUID, includeApplied bool) []Recommendation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Recommendation, 0)
	for _, r := range m.recs {
		if r.OrganizationID != organizationID {
			continue
		}
		if r.Applied && !includeApplied {
			continue
		}
		out = append(out, *r)
	}
	return out
}

// ApplyRecommendation marks a recommendation applied without deleting it.
func (m *PerformanceMonitor) ApplyRecommendation(recommendationID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.ID != recommendationID {
			continue
		}
		if !r.Applied {
			now := m.now()
			r.Applied = true
			r.AppliedAt = &now
		}
		return nil
	}
	return ErrRecommendationNotFound
}

// ---------------------------------------------------------------------------
// Retention
// ---------------------------------------------------------------------------

// Cleanup removes closed records older than the retention window: resolved
// alerts, applied recommendations, and completed job metrics. Active records
// are never removed. It returns the number of records dropped.
func (m *PerformanceMonitor) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.cfg.Retention)
	removed := 0

	kept := m.alerts[:0]
	for _, a := range m.alerts {
		if a.Resolved && a.ResolvedAt != nil && a.ResolvedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	m.alerts = kept

	keptRecs := m.recs[:0]
	for _, r := range m.recs {
		if r.Applied && r.AppliedAt != nil && r.AppliedAt.Before(cutoff) {
			removed++
			continue
		}
		keptRecs = append(keptRecs, r)
	}
	m.recs = keptRecs

	for id, metric := range m.metrics {
		if metric.CompletedAt != nil && metric.CompletedAt.Before(cutoff) {
			delete(m.metrics, id)
			delete(m.alerted, id)
			removed++
		}
	}

	return removed
}
