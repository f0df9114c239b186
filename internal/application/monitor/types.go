// Package monitor tracks per-job sync performance, raises threshold alerts,
// and generates tuning recommendations.
package monitor

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrJobNotMonitored is returned when a job id has no metric record.
	ErrJobNotMonitored = errors.New("monitor: job is not being monitored")
	// ErrJobAlreadyMonitored is returned when monitoring is started twice for one job.
	ErrJobAlreadyMonitored = errors.New("monitor: job is already being monitored")
	// ErrAlertNotFound is returned when resolving an unknown alert id.
	ErrAlertNotFound = errors.New("monitor: alert not found")
	// ErrRecommendationNotFound is returned when applying an unknown recommendation id.
	ErrRecommendationNotFound = errors.New("monitor: recommendation not found")
)

// ---------------------------------------------------------------------------
// JobMetric
// ---------------------------------------------------------------------------

// JobMetric is the per-job performance record. Throughput is items per
// second over elapsed wall time; ErrorRate is a percentage of processed items.
type JobMetric struct {
	JobID          uuid.UUID
	JobType        string
	OrganizationID uuid.UUID
	StoreID        *uuid.UUID
	StartedAt      time.Time
	CompletedAt    *time.Time
	Duration       time.Duration
	ItemsProcessed int
	ItemsFailed    int
	Throughput     float64
	ErrorRate      float64
	Resources      *ResourceSnapshot
}

// Completed reports whether the job has finished.
func (m *JobMetric) Completed() bool {
	return m.CompletedAt != nil
}

// ResourceSnapshot captures process and host resource usage at a point in time.
type ResourceSnapshot struct {
	HeapAllocBytes uint64
	HeapSysBytes   uint64
	MemoryPercent  float64
	CPUPercent     float64
	Goroutines     int
	TakenAt        time.Time
}

// ---------------------------------------------------------------------------
// Alerts
// ---------------------------------------------------------------------------

// AlertType classifies which threshold was breached.
type AlertType string

const (
	AlertSlowJob        AlertType = "slow_job"
	AlertHighErrorRate  AlertType = "high_error_rate"
	AlertMemoryLeak     AlertType = "memory_leak"
	AlertCPUSpike       AlertType = "cpu_spike"
	AlertThroughputDrop AlertType = "throughput_drop"
)

// Severity grades an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is one threshold breach. Resolved alerts are kept for history and
// removed only by retention cleanup.
type Alert struct {
	ID             uuid.UUID
	Type           AlertType
	Severity       Severity
	JobID          uuid.UUID
	JobType        string
	OrganizationID uuid.UUID
	StoreID        *uuid.UUID
	Message        string
	Value          float64
	Threshold      float64
	CreatedAt      time.Time
	Resolved       bool
	ResolvedAt     *time.Time
}

// AlertCallback receives every alert as it is raised.
type AlertCallback func(alert Alert)

// ---------------------------------------------------------------------------
// Recommendations
// ---------------------------------------------------------------------------

// RecommendationType names the tuning knob a recommendation targets.
type RecommendationType string

const (
	RecommendBatchSize     RecommendationType = "batch_size"
	RecommendRetryStrategy RecommendationType = "retry_strategy"
	RecommendConcurrency   RecommendationType = "concurrency"
)

// Priority orders recommendations for operators.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Recommendation is a heuristic tuning suggestion derived from a completed
// job's metric. Applied recommendations are kept for history.
type Recommendation struct {
	ID             uuid.UUID
	Type           RecommendationType
	Priority       Priority
	JobID          uuid.UUID
	OrganizationID uuid.UUID
	Message        string
	ExpectedImpact string
	CreatedAt      time.Time
	Applied        bool
	AppliedAt      *time.Time
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds the monitor's thresholds and retention window. Every value
// is overridable; zero values fall back to the defaults.
type Config struct {
	// MaxJobDuration triggers a slow_job alert when exceeded.
	MaxJobDuration time.Duration
	// MaxErrorRate is a percentage; above it a high_error_rate alert fires.
	MaxErrorRate float64
	// MaxHeapBytes triggers a memory_leak alert at job completion.
	MaxHeapBytes uint64
	// MaxCPUPercent triggers a cpu_spike alert at job completion.
	MaxCPUPercent float64
	// MinThroughput is items per second; below it a throughput_drop alert fires.
	MinThroughput float64
	// Retention bounds how long resolved alerts and applied recommendations
	// are kept before cleanup removes them.
	Retention time.Duration
}

// DefaultConfig returns the monitor's default thresholds.
func DefaultConfig() Config {
	return Config{
		MaxJobDuration: 30 * time.Minute,
		MaxErrorRate:   10.0,
		MaxHeapBytes:   1 << 30, // 1 GiB
		MaxCPUPercent:  80.0,
		MinThroughput:  1.0,
		Retention:      7 * 24 * time.Hour,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxJobDuration <= 0 {
		c.MaxJobDuration = d.MaxJobDuration
	}
	if c.MaxErrorRate <= 0 {
		c.MaxErrorRate = d.MaxErrorRate
	}
	if c.MaxHeapBytes == 0 {
		c.MaxHeapBytes = d.MaxHeapBytes
	}
	if c.MaxCPUPercent <= 0 {
		c.MaxCPUPercent = d.MaxCPUPercent
	}
	if c.MinThroughput <= 0 {
		c.MinThroughput = d.MinThroughput
	}
	if c.Retention <= 0 {
		c.Retention = d.Retention
	}
}
