package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Sync      SyncConfig
	Monitor   MonitorConfig
	Recovery  RecoveryConfig
	Scheduler SchedulerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SyncConfig holds the tuning knobs for the sync services
type SyncConfig struct {
	BatchSize             int
	MaxRetries            int
	BackoffBase           time.Duration
	BatchDelayNormal      time.Duration
	BatchDelaySlow        time.Duration
	FailureRateValve      float64
	ConservativeThreshold int64
	TieBreakWindow        time.Duration
	AdapterTimeout        time.Duration
	RecencyWindow         time.Duration
	HealthWarnErrorRate   float64
	HealthFailErrorRate   float64
}

// MonitorConfig holds performance monitor thresholds and retention
type MonitorConfig struct {
	MaxJobDuration time.Duration
	MaxErrorRate   float64
	MaxHeapBytes   int64
	MaxCPUPercent  float64
	MinThroughput  float64
	Retention      time.Duration
}

// RecoveryConfig holds dead-letter replay configuration
type RecoveryConfig struct {
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
	IdempotencyTTL   time.Duration
	ReplayInterval   time.Duration
}

// SchedulerConfig holds sync scheduler configuration
type SchedulerConfig struct {
	Enabled       bool
	CheckInterval time.Duration
	JobTimeout    time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CSYNC_ prefix (e.g., CSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("CSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Sync: SyncConfig{
			BatchSize:             v.GetInt("sync.batch_size"),
			MaxRetries:            v.GetInt("sync.max_retries"),
			BackoffBase:           v.GetDuration("sync.backoff_base"),
			BatchDelayNormal:      v.GetDuration("sync.batch_delay_normal"),
			BatchDelaySlow:        v.GetDuration("sync.batch_delay_slow"),
			FailureRateValve:      v.GetFloat64("sync.failure_rate_valve"),
			ConservativeThreshold: v.GetInt64("sync.conservative_threshold"),
			TieBreakWindow:        v.GetDuration("sync.tie_break_window"),
			AdapterTimeout:        v.GetDuration("sync.adapter_timeout"),
			RecencyWindow:         v.GetDuration("sync.recency_window"),
			HealthWarnErrorRate:   v.GetFloat64("sync.health_warn_error_rate"),
			HealthFailErrorRate:   v.GetFloat64("sync.health_fail_error_rate"),
		},
		Monitor: MonitorConfig{
			MaxJobDuration: v.GetDuration("monitor.max_job_duration"),
			MaxErrorRate:   v.GetFloat64("monitor.max_error_rate"),
			MaxHeapBytes:   v.GetInt64("monitor.max_heap_bytes"),
			MaxCPUPercent:  v.GetFloat64("monitor.max_cpu_percent"),
			MinThroughput:  v.GetFloat64("monitor.min_throughput"),
			Retention:      v.GetDuration("monitor.retention"),
		},
		Recovery: RecoveryConfig{
			RetryBackoffBase: v.GetDuration("recovery.retry_backoff_base"),
			RetryBackoffMax:  v.GetDuration("recovery.retry_backoff_max"),
			IdempotencyTTL:   v.GetDuration("recovery.idempotency_ttl"),
			ReplayInterval:   v.GetDuration("recovery.replay_interval"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			CheckInterval: v.GetDuration("scheduler.check_interval"),
			JobTimeout:    v.GetDuration("scheduler.job_timeout"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "channelsync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "channelsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 20
	}
	if cfg.Sync.MaxRetries == 0 {
		cfg.Sync.MaxRetries = 3
	}
	if cfg.Sync.BackoffBase == 0 {
		cfg.Sync.BackoffBase = time.Second
	}
	if cfg.Sync.BatchDelayNormal == 0 {
		cfg.Sync.BatchDelayNormal = 100 * time.Millisecond
	}
	if cfg.Sync.BatchDelaySlow == 0 {
		cfg.Sync.BatchDelaySlow = 500 * time.Millisecond
	}
	if cfg.Sync.FailureRateValve == 0 {
		cfg.Sync.FailureRateValve = 0.10
	}
	if cfg.Sync.ConservativeThreshold == 0 {
		cfg.Sync.ConservativeThreshold = 5
	}
	if cfg.Sync.TieBreakWindow == 0 {
		cfg.Sync.TieBreakWindow = 60 * time.Second
	}
	if cfg.Sync.AdapterTimeout == 0 {
		cfg.Sync.AdapterTimeout = 30 * time.Second
	}
	if cfg.Sync.RecencyWindow == 0 {
		cfg.Sync.RecencyWindow = 24 * time.Hour
	}
	if cfg.Sync.HealthWarnErrorRate == 0 {
		cfg.Sync.HealthWarnErrorRate = 5.0
	}
	if cfg.Sync.HealthFailErrorRate == 0 {
		cfg.Sync.HealthFailErrorRate = 15.0
	}
	if cfg.Monitor.MaxJobDuration == 0 {
		cfg.Monitor.MaxJobDuration = 30 * time.Minute
	}
	if cfg.Monitor.MaxErrorRate == 0 {
		cfg.Monitor.MaxErrorRate = 10.0
	}
	if cfg.Monitor.MaxHeapBytes == 0 {
		cfg.Monitor.MaxHeapBytes = 1 << 30 // 1GiB
	}
	if cfg.Monitor.MaxCPUPercent == 0 {
		cfg.Monitor.MaxCPUPercent = 80.0
	}
	if cfg.Monitor.MinThroughput == 0 {
		cfg.Monitor.MinThroughput = 1.0
	}
	if cfg.Monitor.Retention == 0 {
		cfg.Monitor.Retention = 168 * time.Hour
	}
	if cfg.Recovery.RetryBackoffBase == 0 {
		cfg.Recovery.RetryBackoffBase = 5 * time.Minute
	}
	if cfg.Recovery.RetryBackoffMax == 0 {
		cfg.Recovery.RetryBackoffMax = 6 * time.Hour
	}
	if cfg.Recovery.IdempotencyTTL == 0 {
		cfg.Recovery.IdempotencyTTL = time.Hour
	}
	if cfg.Recovery.ReplayInterval == 0 {
		cfg.Recovery.ReplayInterval = time.Minute
	}
	if cfg.Scheduler.CheckInterval == 0 {
		cfg.Scheduler.CheckInterval = time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Sync.FailureRateValve < 0.0 || c.Sync.FailureRateValve > 1.0 {
		return fmt.Errorf("sync.failure_rate_valve must be between 0.0 and 1.0, got %f", c.Sync.FailureRateValve)
	}
	if c.Sync.HealthFailErrorRate < c.Sync.HealthWarnErrorRate {
		return fmt.Errorf("sync.health_fail_error_rate (%f) cannot be below sync.health_warn_error_rate (%f)",
			c.Sync.HealthFailErrorRate, c.Sync.HealthWarnErrorRate)
	}
	if c.Monitor.MaxErrorRate < 0.0 || c.Monitor.MaxErrorRate > 100.0 {
		return fmt.Errorf("monitor.max_error_rate must be between 0.0 and 100.0, got %f", c.Monitor.MaxErrorRate)
	}
	if c.Recovery.RetryBackoffMax < c.Recovery.RetryBackoffBase {
		return fmt.Errorf("recovery.retry_backoff_max cannot be below recovery.retry_backoff_base")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
