package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"content-agent/internal/domain/entity"
	"content-agent/internal/observability/logging"
	"content-agent/internal/usecase/content"
)

// Planner generates a content plan for one niche.
type Planner interface {
	GenerateContentPlan(ctx context.Context, prompt string, niche entity.Niche) (*content.Result, error)
}

// PlanOutcome is the result of planning one niche in a run.
type PlanOutcome struct {
	Niche  string
	Result *content.Result
	Err    error
}

// RunStats summarises one run.
type RunStats struct {
	Niches   int
	Degraded int
	Failed   int
	Items    int
	Duration time.Duration
	Outcomes []PlanOutcome
}

// Handler receives every successful plan of a run, for example to publish it.
type Handler func(ctx context.Context, niche entity.Niche, result *content.Result)

// PlanJob plans every configured niche, at most MaxConcurrent at a time.
// A failing niche does not cancel the others.
type PlanJob struct {
	planner       Planner
	niches        []entity.Niche
	maxConcurrent int
	timeout       time.Duration
	metrics       *WorkerMetrics
	logger        *slog.Logger
	handler       Handler
}

// NewPlanJob creates a job. metrics and handler may be nil.
func NewPlanJob(planner Planner, niches []entity.Niche, cfg WorkerConfig, metrics *WorkerMetrics, logger *slog.Logger, handler Handler) *PlanJob {
	if logger == nil {
		logger = slog.Default()
	}
	if len(niches) == 0 {
		niches = []entity.Niche{{}}
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &PlanJob{
		planner:       planner,
		niches:        niches,
		maxConcurrent: maxConcurrent,
		timeout:       cfg.JobTimeout,
		metrics:       metrics,
		logger:        logger,
		handler:       handler,
	}
}

// Run executes one run. It returns an error only when every niche failed.
func (j *PlanJob) Run(ctx context.Context) (RunStats, error) {
	start := time.Now()
	j.recordRun("started")
	j.logger.Info("content plan job started", slog.Int("niches", len(j.niches)))

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	outcomes := make([]PlanOutcome, len(j.niches))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(j.maxConcurrent)
	for i, niche := range j.niches {
		g.Go(func() error {
			res, err := j.planner.GenerateContentPlan(ctx, "", niche)
			mu.Lock()
			outcomes[i] = PlanOutcome{Niche: niche.WithDefaults().Name, Result: res, Err: err}
			mu.Unlock()
			if err == nil && j.handler != nil {
				j.handler(ctx, niche, res)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := RunStats{Niches: len(outcomes), Outcomes: outcomes, Duration: time.Since(start)}
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			stats.Failed++
			j.recordNiche("failed")
			j.logger.Error("content plan failed",
				slog.String("niche", o.Niche),
				logging.Err(o.Err))
		case o.Result.Degraded:
			stats.Degraded++
			stats.Items += len(o.Result.Items)
			j.recordNiche("degraded")
		default:
			stats.Items += len(o.Result.Items)
			j.recordNiche("ok")
		}
	}

	if j.metrics != nil {
		j.metrics.RecordJobDuration(stats.Duration.Seconds())
	}

	switch {
	case stats.Failed == stats.Niches:
		j.recordRun("failure")
		j.logger.Error("content plan job failed",
			slog.Int("niches", stats.Niches),
			slog.Duration("duration", stats.Duration))
		return stats, fmt.Errorf("all %d niches failed", stats.Niches)
	case stats.Failed > 0:
		j.recordRun("partial")
	default:
		j.recordRun("success")
		if j.metrics != nil {
			j.metrics.RecordLastSuccess()
		}
	}

	j.logger.Info("content plan job completed",
		slog.Int("niches", stats.Niches),
		slog.Int("failed", stats.Failed),
		slog.Int("degraded", stats.Degraded),
		slog.Int("items", stats.Items),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

func (j *PlanJob) recordRun(status string) {
	if j.metrics != nil {
		j.metrics.RecordJobRun(status)
	}
}

func (j *PlanJob) recordNiche(outcome string) {
	if j.metrics != nil {
		j.metrics.RecordNiche(outcome)
	}
}
