package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	_ "time/tzdata" // timezones resolve in minimal images

	"github.com/robfig/cron/v3"

	"content-agent/internal/observability/logging"
)

// Runner is one unit of scheduled work. *PlanJob implements it.
type Runner interface {
	Run(ctx context.Context) (RunStats, error)
}

// Scheduler runs a Runner on a cron schedule in the configured timezone.
// Overlapping ticks are skipped while a run is still in progress. Stop
// cancels the context of the run in progress.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	logger  *slog.Logger
	base    context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
}

// NewScheduler parses cfg.CronSchedule and cfg.Timezone and registers runner.
func NewScheduler(cfg WorkerConfig, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	base, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		runner: runner,
		logger: logger,
		base:   base,
		cancel: cancel,
	}
	if _, err := s.cron.AddFunc(cfg.CronSchedule, func() {
		s.RunOnce(s.base)
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid cron schedule %q: %w", cfg.CronSchedule, err)
	}
	return s, nil
}

// RunOnce runs the job now unless a run is already in progress.
// It reports whether the job ran. The run's context is cancelled when ctx is
// done or the scheduler is stopped, whichever comes first.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous content plan run still in progress, skipping tick")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWatch := context.AfterFunc(s.base, cancel)
	defer stopWatch()

	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("scheduled content plan run failed", logging.Err(err))
	}
	return true
}

// Next returns the next activation time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling, cancels the run in progress and returns a context
// that is done once that run has returned.
func (s *Scheduler) Stop() context.Context {
	s.cancel()
	return s.cron.Stop()
}
