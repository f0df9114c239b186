// Package scheduler provides the cron-capable sync scheduler. Entries are
// persisted so registrations survive restarts; a minute-resolution check loop
// fires due entries through registered job handlers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// ScheduleRepository persists schedule entries
type ScheduleRepository interface {
	Save(ctx context.Context, entry *domain.ScheduleEntry) error
	FindByID(ctx context.Context, id string) (*domain.ScheduleEntry, error)
	FindByOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.ScheduleEntry, error)
	FindAll(ctx context.Context) ([]domain.ScheduleEntry, error)
	Delete(ctx context.Context, id string) error
}

// JobFunc executes one scheduled job invocation
type JobFunc func(ctx context.Context, entry domain.ScheduleEntry) error

// Config holds configuration for the cron scheduler
type Config struct {
	// CheckInterval is how often to check for due entries
	CheckInterval time.Duration

	// JobTimeout bounds a single job run
	JobTimeout time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		CheckInterval: time.Minute,
		JobTimeout:    10 * time.Minute,
	}
}

// CronScheduler implements domain.Scheduler. It keeps a live view of all
// entries in memory and writes every mutation through to the repository.
type CronScheduler struct {
	config Config
	repo   ScheduleRepository
	logger *zap.Logger

	mu        sync.RWMutex
	entries   map[string]*domain.ScheduleEntry
	schedules map[string]*cronSchedule
	handlers  map[string]JobFunc

	runMu     sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewCronScheduler creates a scheduler backed by the given repository
func NewCronScheduler(cfg Config, repo ScheduleRepository, logger *zap.Logger) *CronScheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronScheduler{
		config:    cfg,
		repo:      repo,
		logger:    logger,
		entries:   make(map[string]*domain.ScheduleEntry),
		schedules: make(map[string]*cronSchedule),
		handlers:  make(map[string]JobFunc),
	}
}

// RegisterHandler binds a job type to its executor. Entries with an
// unregistered job type are skipped with a warning when they come due.
func (s *CronScheduler) RegisterHandler(jobType string, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = fn
}

// ---------------------------------------------------------------------------
// domain.Scheduler implementation
// ---------------------------------------------------------------------------

// AddSchedule registers a new entry
func (s *CronScheduler) AddSchedule(ctx context.Context, entry *domain.ScheduleEntry) error {
	schedule, err := parseCron(entry.CronExpr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ID]; exists {
		return domain.ErrScheduleExists
	}

	now := time.Now()
	next := schedule.next(now)
	entry.NextRunAt = &next
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	if err := s.repo.Save(ctx, entry); err != nil {
		return err
	}

	s.entries[entry.ID] = entry
	s.schedules[entry.ID] = schedule
	s.logger.Info("schedule added",
		zap.String("schedule_id", entry.ID),
		zap.String("cron", entry.CronExpr),
		zap.Time("next_run_at", next),
	)
	return nil
}

// UpdateSchedule replaces an existing entry by ID
func (s *CronScheduler) UpdateSchedule(ctx context.Context, entry *domain.ScheduleEntry) error {
	schedule, err := parseCron(entry.CronExpr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.entries[entry.ID]
	if !exists {
		return domain.ErrScheduleNotFound
	}

	now := time.Now()
	next := schedule.next(now)
	entry.NextRunAt = &next
	entry.LastRunAt = existing.LastRunAt
	entry.CreatedAt = existing.CreatedAt
	entry.UpdatedAt = now

	if err := s.repo.Save(ctx, entry); err != nil {
		return err
	}

	s.entries[entry.ID] = entry
	s.schedules[entry.ID] = schedule
	s.logger.Info("schedule updated",
		zap.String("schedule_id", entry.ID),
		zap.String("cron", entry.CronExpr),
		zap.Bool("enabled", entry.Enabled),
	)
	return nil
}

// RemoveSchedule unregisters an entry
func (s *CronScheduler) RemoveSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; !exists {
		return domain.ErrScheduleNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	delete(s.entries, id)
	delete(s.schedules, id)
	s.logger.Info("schedule removed", zap.String("schedule_id", id))
	return nil
}

// GetSchedule retrieves one entry
func (s *CronScheduler) GetSchedule(ctx context.Context, id string) (*domain.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists {
		return nil, domain.ErrScheduleNotFound
	}
	copied := *entry
	return &copied, nil
}

// GetSchedules lists entries for an organization
func (s *CronScheduler) GetSchedules(ctx context.Context, organizationID uuid.UUID) ([]domain.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ScheduleEntry
	for _, entry := range s.entries {
		if entry.OrganizationID == organizationID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Run loop
// ---------------------------------------------------------------------------

// Start loads persisted entries and begins the check loop
func (s *CronScheduler) Start(ctx context.Context) error {
	s.runMu.Lock()
	if s.isRunning {
		s.runMu.Unlock()
		return nil
	}
	s.isRunning = true
	s.runMu.Unlock()

	if err := s.loadEntries(ctx); err != nil {
		s.runMu.Lock()
		s.isRunning = false
		s.runMu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Int("entries", s.entryCount()),
	)
	return nil
}

// Stop halts the check loop and waits for in-flight jobs
func (s *CronScheduler) Stop(ctx context.Context) error {
	s.runMu.Lock()
	if !s.isRunning {
		s.runMu.Unlock()
		return nil
	}
	s.isRunning = false
	s.runMu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loadEntries restores persisted schedules into the live view
func (s *CronScheduler) loadEntries(ctx context.Context) error {
	entries, err := s.repo.FindAll(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for i := range entries {
		entry := entries[i]
		schedule, err := parseCron(entry.CronExpr)
		if err != nil {
			s.logger.Warn("skipping schedule with invalid cron expression",
				zap.String("schedule_id", entry.ID),
				zap.String("cron", entry.CronExpr),
			)
			continue
		}
		if entry.NextRunAt == nil || entry.NextRunAt.Before(now) {
			next := schedule.next(now)
			entry.NextRunAt = &next
		}
		s.entries[entry.ID] = &entry
		s.schedules[entry.ID] = schedule
	}
	return nil
}

func (s *CronScheduler) entryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *CronScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkDue(ctx, time.Now())
		}
	}
}

// checkDue fires every enabled entry whose next run time has passed
func (s *CronScheduler) checkDue(ctx context.Context, now time.Time) {
	due := s.claimDue(ctx, now)

	for _, entry := range due {
		s.mu.RLock()
		handler, ok := s.handlers[entry.JobType]
		s.mu.RUnlock()
		if !ok {
			s.logger.Warn("no handler registered for job type",
				zap.String("schedule_id", entry.ID),
				zap.String("job_type", entry.JobType),
			)
			continue
		}

		s.wg.Add(1)
		go func(entry domain.ScheduleEntry) {
			defer s.wg.Done()
			s.runJob(ctx, entry, handler)
		}(entry)
	}
}

// claimDue advances the clock state of all due entries and returns copies of
// them. Advancing before running keeps a slow job from being fired twice.
func (s *CronScheduler) claimDue(ctx context.Context, now time.Time) []domain.ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []domain.ScheduleEntry
	for id, entry := range s.entries {
		if !entry.Enabled || entry.NextRunAt == nil || entry.NextRunAt.After(now) {
			continue
		}

		runAt := now
		next := s.schedules[id].next(now)
		entry.LastRunAt = &runAt
		entry.NextRunAt = &next
		entry.UpdatedAt = now

		if err := s.repo.Save(ctx, entry); err != nil {
			s.logger.Error("failed to persist schedule run state",
				zap.String("schedule_id", id), zap.Error(err))
		}

		due = append(due, *entry)
	}
	return due
}

func (s *CronScheduler) runJob(ctx context.Context, entry domain.ScheduleEntry, handler JobFunc) {
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	start := time.Now()
	err := handler(jobCtx, entry)
	elapsed := time.Since(start)

	if err != nil {
		s.logger.Error("scheduled job failed",
			zap.String("schedule_id", entry.ID),
			zap.String("job_type", entry.JobType),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("scheduled job completed",
		zap.String("schedule_id", entry.ID),
		zap.String("job_type", entry.JobType),
		zap.Duration("elapsed", elapsed),
	)
}

var _ domain.Scheduler = (*CronScheduler)(nil)
