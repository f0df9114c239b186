package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for deterministic timing.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

// stubSampler returns a fixed resource snapshot.
type stubSampler struct {
	snap ResourceSnapshot
}

func (s *stubSampler) Sample() ResourceSnapshot { return s.snap }

func newTestMonitor(t *testing.T, cfg Config, sampler ResourceSampler) (*PerformanceMonitor, *fakeClock) {
	t.Helper()
	if sampler == nil {
		sampler = &stubSampler{}
	}
	m, err := NewPerformanceMonitor(cfg, nil, sampler)
	require.NoError(t, err)
	clock := &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m.now = clock.Now
	return m, clock
}

func TestStartJobMonitoring_RejectsDuplicate(t *testing.T) {
	m, _ := newTestMonitor(t, Config{}, nil)
	jobID := uuid.New()

	_, err := m.StartJobMonitoring(context.Background(), jobID, "inventory_sync", uuid.New(), nil)
	require.NoError(t, err)

	_, err = m.StartJobMonitoring(context.Background(), jobID, "inventory_sync", uuid.New(), nil)
	assert.ErrorIs(t, err, ErrJobAlreadyMonitored)
}

func TestUpdateJobProgress_ComputesThroughputAndErrorRate(t *testing.T) {
	m, clock := newTestMonitor(t, Config{}, nil)
	jobID := uuid.New()

	_, err := m.StartJobMonitoring(context.Background(), jobID, "inventory_sync", uuid.New(), nil)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobID, 200, 10))

	metric, err := m.GetJobMetric(jobID)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, metric.Throughput, 1e-9)
	assert.InDelta(t, 5.0, metric.ErrorRate, 1e-9)
}

func TestUpdateJobProgress_UnknownJob(t *testing.T) {
	m, _ := newTestMonitor(t, Config{}, nil)
	err := m.UpdateJobProgress(context.Background(), uuid.New(), 1, 0)
	assert.ErrorIs(t, err, ErrJobNotMonitored)
}

// 1000 items in 2 seconds with 150 failures: the 15% error rate crosses the
// default 10% threshold and must produce a medium high_error_rate alert and
// a retry_strategy recommendation.
func TestCompleteJobMonitoring_HighErrorRate(t *testing.T) {
	m, clock := newTestMonitor(t, Config{}, nil)
	orgID := uuid.New()
	jobID := uuid.New()

	var seen []Alert
	m.RegisterAlertCallback(func(a Alert) { seen = append(seen, a) })

	_, err := m.StartJobMonitoring(context.Background(), jobID, "inventory_sync", orgID, nil)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobID, 1000, 150))

	metric, err := m.CompleteJobMonitoring(context.Background(), jobID)
	require.NoError(t, err)

	assert.InDelta(t, 15.0, metric.ErrorRate, 1e-9)
	assert.InDelta(t, 500.0, metric.Throughput, 1e-9)
	assert.Equal(t, 2*time.Second, metric.Duration)

	require.Len(t, seen, 1)
	assert.Equal(t, AlertHighErrorRate, seen[0].Type)
	assert.Equal(t, SeverityMedium, seen[0].Severity)

	recs := m.GetRecommendations(orgID, false)
	require.Len(t, recs, 1)
	assert.Equal(t, RecommendRetryStrategy, recs[0].Type)
	assert.Equal(t, PriorityHigh, recs[0].Priority)
	assert.NotEmpty(t, recs[0].ExpectedImpact)
}

func TestAlert_FiresOncePerJobAndType(t *testing.T) {
	m, clock := newTestMonitor(t, Config{}, nil)
	jobID := uuid.New()

	fired := 0
	m.RegisterAlertCallback(func(Alert) { fired++ })

	_, err := m.StartJobMonitoring(context.Background(), jobID, "product_sync", uuid.New(), nil)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobID, 100, 50))
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobID, 200, 100))
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobID, 300, 150))

	assert.Equal(t, 1, fired)
}

func TestCompleteJobMonitoring_SlowJobAndThroughputDrop(t *testing.T) {
	m, clock := newTestMonitor(t, Config{}, nil)
	orgID := uuid.New()
	jobID := uuid.New()

	_, err := m.StartJobMonitoring(context.Background(), jobID, "inventory_sync", orgID, nil)
	require.NoError(t, err)

	// 45 minutes for 100 items: slow job, throughput far below 1 item/s
	clock.Advance(45 * time.Minute)
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobID, 100, 0))
	_, err = m.CompleteJobMonitoring(context.Background(), jobID)
	require.NoError(t, err)

	alerts := m.GetActiveAlerts()
	types := make(map[AlertType]bool)
	for _, a := range alerts {
		types[a.Type] = true
	}
	assert.True(t, types[AlertSlowJob])
	assert.True(t, types[AlertThroughputDrop])

	recs := m.GetRecommendations(orgID, false)
	recTypes := make(map[RecommendationType]bool)
	for _, r := range recs {
		recTypes[r.Type] = true
	}
	assert.True(t, recTypes[RecommendBatchSize])
	assert.True(t, recTypes[RecommendConcurrency])
}

func TestCompleteJobMonitoring_ResourceAlerts(t *testing.T) {
	sampler := &stubSampler{snap: ResourceSnapshot{
		HeapAllocBytes: 2 << 30, // 2 GiB
		CPUPercent:     95.0,
	}}
	m, clock := newTestMonitor(t, Config{}, sampler)
	jobID := uuid.New()

	_, err := m.StartJobMonitoring(context.Background(), jobID, "inventory_sync", uuid.New(), nil)
	require.NoError(t, err)
	clock.Advance(5 * time.Second)
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobID, 50, 0))

	metric, err := m.CompleteJobMonitoring(context.Background(), jobID)
	require.NoError(t, err)
	require.NotNil(t, metric.Resources)

	types := make(map[AlertType]Severity)
	for _, a := range m.GetActiveAlerts() {
		types[a.Type] = a.Severity
	}
	assert.Equal(t, SeverityHigh, types[AlertMemoryLeak])
	assert.Contains(t, types, AlertCPUSpike)
}

func TestResolveAlert_KeepsHistory(t *testing.T) {
	m, clock := newTestMonitor(t, Config{}, nil)
	orgID := uuid.New()
	jobID := uuid.New()

	_, err := m.StartJobMonitoring(context.Background(), jobID, "inventory_sync", orgID, nil)
	require.NoError(t, err)
	clock.Advance(2 * time.Second)
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobID, 100, 50))

	alerts := m.GetActiveAlerts()
	require.Len(t, alerts, 1)

	require.NoError(t, m.ResolveAlert(alerts[0].ID))
	assert.Empty(t, m.GetActiveAlerts())

	// resolved alerts remain visible as history
	history := m.GetAlerts(orgID, true)
	require.Len(t, history, 1)
	assert.True(t, history[0].Resolved)

	// resolving again is a no-op
	assert.NoError(t, m.ResolveAlert(alerts[0].ID))
	assert.ErrorIs(t, m.ResolveAlert(uuid.New()), ErrAlertNotFound)
}

func TestApplyRecommendation(t *testing.T) {
	m, clock := newTestMonitor(t, Config{}, nil)
	orgID := uuid.New()
	jobID := uuid.New()

	_, err := m.StartJobMonitoring(context.Background(), jobID, "inventory_sync", orgID, nil)
	require.NoError(t, err)
	clock.Advance(2 * time.Second)
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobID, 100, 50))
	_, err = m.CompleteJobMonitoring(context.Background(), jobID)
	require.NoError(t, err)

	recs := m.GetRecommendations(orgID, false)
	require.NotEmpty(t, recs)

	require.NoError(t, m.ApplyRecommendation(recs[0].ID))
	assert.Empty(t, m.GetRecommendations(orgID, false))
	assert.NotEmpty(t, m.GetRecommendations(orgID, true))

	assert.ErrorIs(t, m.ApplyRecommendation(uuid.New()), ErrRecommendationNotFound)
}

func TestCleanup_RemovesOnlyClosedAndAged(t *testing.T) {
	m, clock := newTestMonitor(t, Config{Retention: time.Hour}, nil)
	orgID := uuid.New()
	jobID := uuid.New()

	_, err := m.StartJobMonitoring(context.Background(), jobID, "inventory_sync", orgID, nil)
	require.NoError(t, err)
	clock.Advance(2 * time.Second)
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobID, 100, 50))
	_, err = m.CompleteJobMonitoring(context.Background(), jobID)
	require.NoError(t, err)

	alerts := m.GetActiveAlerts()
	require.Len(t, alerts, 1)
	require.NoError(t, m.ResolveAlert(alerts[0].ID))

	// inside retention: nothing is removed
	assert.Equal(t, 0, m.Cleanup())

	clock.Advance(2 * time.Hour)
	removed := m.Cleanup()
	// resolved alert + completed metric; the unapplied recommendation stays
	assert.Equal(t, 2, removed)
	assert.Empty(t, m.GetAlerts(orgID, true))
	assert.NotEmpty(t, m.GetRecommendations(orgID, false))

	_, err = m.GetJobMetric(jobID)
	assert.ErrorIs(t, err, ErrJobNotMonitored)
}

func TestGetPerformanceSummary(t *testing.T) {
	m, clock := newTestMonitor(t, Config{}, nil)
	orgID := uuid.New()
	storeA := uuid.New()
	storeB := uuid.New()

	jobA := uuid.New()
	_, err := m.StartJobMonitoring(context.Background(), jobA, "inventory_sync", orgID, &storeA)
	require.NoError(t, err)
	clock.Advance(10 * time.Second)
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobA, 100, 20))
	_, err = m.CompleteJobMonitoring(context.Background(), jobA)
	require.NoError(t, err)

	jobB := uuid.New()
	_, err = m.StartJobMonitoring(context.Background(), jobB, "product_sync", orgID, &storeB)
	require.NoError(t, err)
	require.NoError(t, m.UpdateJobProgress(context.Background(), jobB, 40, 0))

	// another organization's job must not leak into the summary
	other := uuid.New()
	_, err = m.StartJobMonitoring(context.Background(), other, "inventory_sync", uuid.New(), nil)
	require.NoError(t, err)

	summary := m.GetPerformanceSummary(orgID, nil)
	assert.Equal(t, 2, summary.TotalJobs)
	assert.Equal(t, 1, summary.CompletedJobs)
	assert.Equal(t, 1, summary.ActiveJobs)
	assert.Equal(t, 140, summary.TotalItemsProcessed)
	assert.Equal(t, 20, summary.TotalItemsFailed)
	assert.InDelta(t, 20.0, summary.AvgErrorRate, 1e-9)
	require.NotEmpty(t, summary.TopIssues)
	assert.Equal(t, AlertHighErrorRate, summary.TopIssues[0].Type)

	perStore := m.GetPerformanceSummary(orgID, &storeA)
	assert.Equal(t, 1, perStore.TotalJobs)
	assert.Equal(t, 1, perStore.CompletedJobs)
}

func TestSeverityGrading(t *testing.T) {
	assert.Equal(t, SeverityMedium, severityFor(AlertHighErrorRate, 15, 10))
	assert.Equal(t, SeverityHigh, severityFor(AlertHighErrorRate, 20, 10))
	assert.Equal(t, SeverityCritical, severityFor(AlertHighErrorRate, 30, 10))
	assert.Equal(t, SeverityLow, severityFor(AlertHighErrorRate, 11, 10))

	// throughput inverts: lower is worse
	assert.Equal(t, SeverityCritical, severityFor(AlertThroughputDrop, 0, 1))
	assert.Equal(t, SeverityHigh, severityFor(AlertThroughputDrop, 0.5, 1))
}
