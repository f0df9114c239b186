// Package sync orchestrates inventory and product synchronization between
// the local catalog and connected marketplace stores.
package sync

import "time"

// Config holds the tuning knobs shared by the sync services. Every heuristic
// number is named and overridable; zero values fall back to the defaults.
type Config struct {
	// BatchSize is the number of items pushed per batch.
	BatchSize int
	// MaxRetries is the per-item retry budget for transient failures.
	MaxRetries int
	// BackoffBase is the first retry delay; attempt n waits base * 2^(n-1).
	BackoffBase time.Duration
	// BatchDelayNormal is the inter-batch pause while the job is healthy.
	BatchDelayNormal time.Duration
	// BatchDelaySlow is the inter-batch pause once FailureRateValve trips.
	BatchDelaySlow time.Duration
	// FailureRateValve is the running failure-rate fraction above which the
	// slower inter-batch delay applies. Backpressure against a platform
	// issuing errors.
	FailureRateValve float64
	// ConservativeThreshold is the unit difference at or below which the
	// inventory auto-resolve heuristic takes the lower of the two values.
	ConservativeThreshold int64
	// AdapterTimeout bounds every platform adapter call.
	AdapterTimeout time.Duration
	// RecencyWindow is how recent a store's last sync must be for the
	// health check to consider it current.
	RecencyWindow time.Duration
	// HealthWarnErrorRate and HealthFailErrorRate are the mapping error-rate
	// percentage bands for the health verdict: below warn is healthy, below
	// fail is warning, at or above fail is critical.
	HealthWarnErrorRate float64
	HealthFailErrorRate float64
}

// DefaultConfig returns the default sync tuning.
func DefaultConfig() Config {
	return Config{
		BatchSize:             20,
		MaxRetries:            3,
		BackoffBase:           time.Second,
		BatchDelayNormal:      100 * time.Millisecond,
		BatchDelaySlow:        500 * time.Millisecond,
		FailureRateValve:      0.10,
		ConservativeThreshold: 5,
		AdapterTimeout:        30 * time.Second,
		RecencyWindow:         24 * time.Hour,
		HealthWarnErrorRate:   5.0,
		HealthFailErrorRate:   15.0,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = d.BackoffBase
	}
	if c.BatchDelayNormal <= 0 {
		c.BatchDelayNormal = d.BatchDelayNormal
	}
	if c.BatchDelaySlow <= 0 {
		c.BatchDelaySlow = d.BatchDelaySlow
	}
	if c.FailureRateValve <= 0 {
		c.FailureRateValve = d.FailureRateValve
	}
	if c.ConservativeThreshold <= 0 {
		c.ConservativeThreshold = d.ConservativeThreshold
	}
	if c.AdapterTimeout <= 0 {
		c.AdapterTimeout = d.AdapterTimeout
	}
	if c.RecencyWindow <= 0 {
		c.RecencyWindow = d.RecencyWindow
	}
	if c.HealthWarnErrorRate <= 0 {
		c.HealthWarnErrorRate = d.HealthWarnErrorRate
	}
	if c.HealthFailErrorRate <= 0 {
		c.HealthFailErrorRate = d.HealthFailErrorRate
	}
}
