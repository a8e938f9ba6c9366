package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"content-agent/internal/app"
	"content-agent/internal/config"
	"content-agent/internal/domain/entity"
	workerPkg "content-agent/internal/infra/worker"
	"content-agent/internal/observability/logging"
	"content-agent/internal/observability/tracing"
	pkgconfig "content-agent/internal/pkg/config"
	"content-agent/internal/usecase/content"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker exited", logging.Err(err))
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	logger := initLogger()

	// Cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}
	if err := workerConfig.Validate(); err != nil {
		return fmt.Errorf("invalid worker configuration: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("max_concurrent", workerConfig.MaxConcurrent),
		slog.Duration("job_timeout", workerConfig.JobTimeout),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort))

	shutdownTracing := setupTracing(logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracing", logging.Err(err))
		}
	}()

	// Provider roster, retry policy and niches (hard errors: nothing to run without them)
	agentConfig, err := config.LoadAgentConfig(logger, pkgconfig.NewConfigMetrics("agent"))
	if err != nil {
		return fmt.Errorf("load agent configuration: %w", err)
	}
	agent, err := app.Build(agentConfig, logger)
	if err != nil {
		return err
	}

	job := workerPkg.NewPlanJob(agent.Service, agent.Niches, *workerConfig, workerMetrics, logger, logPlan(logger))
	scheduler, err := workerPkg.NewScheduler(*workerConfig, job, logger)
	if err != nil {
		return err
	}

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerConfig.HealthPort), logger)
	healthServer.AddCheck("providers", agent.ProvidersReady)

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, agent.RateMetrics.Registry()}
	metricsServer := newMetricsServer(workerConfig.MetricsPort, gatherers, agent)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreClosed(healthServer.Start(gctx))
	})
	g.Go(func() error {
		return ignoreClosed(serveMetrics(gctx, logger, metricsServer))
	})
	g.Go(func() error {
		scheduler.Start()
		healthServer.SetReady(true)
		logger.Info("worker started",
			slog.String("schedule", workerConfig.CronSchedule),
			slog.String("timezone", workerConfig.Timezone),
			slog.Time("next_run", scheduler.Next()))

		if workerConfig.RunOnStart {
			scheduler.RunOnce(gctx)
		}

		<-gctx.Done()
		healthServer.SetReady(false)
		logger.Info("worker stopping, waiting for the running job")
		<-scheduler.Stop().Done()
		logger.Info("worker stopped")
		return nil
	})

	return g.Wait()
}

// initLogger initializes the JSON logger and installs it as the default.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// setupTracing installs the tracer provider. TRACE_SAMPLE_RATIO (0-1,
// default 0.1) sets the share of traces sampled.
func setupTracing(logger *slog.Logger) func(context.Context) error {
	t := pkgconfig.NewTracker(logger, nil)
	ratio := pkgconfig.Track(t, "trace_sample_ratio",
		pkgconfig.LoadEnvFloat("TRACE_SAMPLE_RATIO", 0.1, pkgconfig.FloatRange(0, 1)))
	return tracing.Setup(ratio, logger)
}

// logPlan logs a summary of every generated plan.
func logPlan(logger *slog.Logger) workerPkg.Handler {
	return func(_ context.Context, niche entity.Niche, res *content.Result) {
		captions := make([]string, 0, len(res.Items))
		for _, item := range res.Items {
			captions = append(captions, item.Caption)
		}
		logger.Info("content plan ready",
			slog.String("niche", niche.WithDefaults().Name),
			slog.String("invocation_id", res.InvocationID),
			slog.String("provider", res.Provider),
			slog.String("stage", res.Stage.String()),
			slog.Any("captions", captions))
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
