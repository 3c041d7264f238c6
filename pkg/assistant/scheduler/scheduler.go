// Package scheduler runs the assistant's configured automation jobs on
// cron schedules. Each job submits a prompt to the assistant at its
// scheduled time; failures are logged and retried at the next tick
// rather than stopping the schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vesta-hq/vesta/pkg/config"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// JobFunc executes one scheduled job. The assistant supplies this; the
// scheduler only owns the timing.
type JobFunc func(ctx context.Context, job config.JobConfig) error

// RunRecord is the outcome of the most recent run of a job.
type RunRecord struct {
	// RunID uniquely identifies the run in logs.
	RunID string `json:"run_id"`

	// Job is the job name.
	Job string `json:"job"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long the run took.
	Duration time.Duration `json:"duration"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// Scheduler manages the configured automation jobs. Common cron
// expressions:
//
//   - "0 8 * * *"    - Daily at 8 AM
//   - "*/30 * * * *" - Every 30 minutes
//   - "0 18 * * 5"   - Fridays at 6 PM
type Scheduler struct {
	cfg    config.SchedulerConfig
	run    JobFunc
	cron   *cron.Cron
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	lastRuns map[string]RunRecord
}

// New creates a scheduler for the configured jobs.
func New(cfg config.SchedulerConfig, run JobFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		run:      run,
		cron:     cron.New(),
		logger:   logger.With("component", "scheduler"),
		lastRuns: make(map[string]RunRecord),
	}
}

// Start registers the configured jobs and begins the schedule. It does
// nothing when the scheduler is disabled or no jobs are configured.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if !s.cfg.Enabled || len(s.cfg.Jobs) == 0 {
		s.logger.Info("scheduler disabled or no jobs configured, skipping")
		return nil
	}

	for _, job := range s.cfg.Jobs {
		if _, err := cron.ParseStandard(job.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule %q for job %q: %w",
				job.Schedule, job.Name, err)
		}

		job := job
		if _, err := s.cron.AddFunc(job.Schedule, func() {
			s.runJob(ctx, job)
		}); err != nil {
			return fmt.Errorf("failed to schedule job %q: %w", job.Name, err)
		}
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started", "jobs", len(s.cfg.Jobs))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runJob executes one job tick. Failures are logged, never propagated:
// the schedule keeps running.
func (s *Scheduler) runJob(ctx context.Context, job config.JobConfig) {
	runID := uuid.NewString()
	start := time.Now()

	s.logger.Info("scheduled job starting",
		"job", job.Name,
		"run_id", runID,
	)

	err := s.run(ctx, job)
	record := RunRecord{
		RunID:     runID,
		Job:       job.Name,
		StartedAt: start,
		Duration:  time.Since(start),
	}

	if err != nil {
		record.Error = err.Error()
		s.logger.Error("scheduled job failed",
			"job", job.Name,
			"run_id", runID,
			"duration_ms", record.Duration.Milliseconds(),
			"error", err,
		)
	} else {
		s.logger.Info("scheduled job completed",
			"job", job.Name,
			"run_id", runID,
			"duration_ms", record.Duration.Milliseconds(),
		)
	}

	s.mu.Lock()
	s.lastRuns[job.Name] = record
	s.mu.Unlock()
}

// LastRun returns the most recent run record for a job.
func (s *Scheduler) LastRun(name string) (RunRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lastRuns[name]
	return rec, ok
}

// Jobs returns the configured job names in configuration order.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.cfg.Jobs))
	for _, job := range s.cfg.Jobs {
		names = append(names, job.Name)
	}
	return names
}

// IsRunning reports whether the schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop stops the scheduler and waits for any running jobs to complete.
// It is safe to call when the scheduler never started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cron == nil || !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ctx := s.cron.Stop()
	s.mu.Unlock()

	// Wait without holding the lock: running jobs need it to record
	// their outcome before the cron context fires.
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
