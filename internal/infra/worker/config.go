package worker

import (
	"fmt"
	"log/slog"
	"time"

	"content-agent/internal/pkg/config"
)

// WorkerConfig holds the configuration for the worker process.
// It controls the cron schedule, the per-run timeout, the fan-out over
// niches and the ports of the health and metrics servers.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Example usage:
//
//	cfg, _ := LoadConfigFromEnv(logger, metrics)
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal("Invalid configuration: %v", err)
//	}
type WorkerConfig struct {
	// CronSchedule is the cron expression for job scheduling.
	// Format: "minute hour day month weekday"
	// Default: "0 9 * * *" (every day at 9:00)
	CronSchedule string

	// Timezone is the IANA timezone name for cron scheduling.
	// Default: "UTC"
	Timezone string

	// JobTimeout bounds one scheduled run over all niches.
	// Range: 1m-2h
	// Default: 10 minutes
	JobTimeout time.Duration

	// MaxConcurrent is the number of niches planned in parallel.
	// Range: 1-20
	// Default: 2
	MaxConcurrent int

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int

	// MetricsPort is the port number of the Prometheus endpoint.
	// Range: 1024-65535
	// Default: 9090
	MetricsPort int

	// RunOnStart triggers one run immediately after startup.
	// Default: false
	RunOnStart bool
}

// DefaultConfig returns a WorkerConfig with default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:  "0 9 * * *",      // Every day at 9:00
		Timezone:      "UTC",
		JobTimeout:    10 * time.Minute, // Several providers with retries
		MaxConcurrent: 2,                // Stays inside typical provider rate limits
		HealthPort:    9091,
		MetricsPort:   9090,
	}
}

// Validate checks every field and returns all problems together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.JobTimeout, time.Minute, 2*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("job timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.MaxConcurrent, 1, 20); err != nil {
		errs = append(errs, fmt.Errorf("max concurrent: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health and metrics ports must differ, both are %d", c.HealthPort))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration from environment variables.
// Invalid values fall back to the defaults with a warning and a metrics
// increment, so the returned configuration is always usable and the error is
// always nil.
//
// Environment variables:
//   - CRON_SCHEDULE: Cron expression (default: "0 9 * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - JOB_TIMEOUT: Duration string, e.g. "10m" (default: 10 minutes)
//   - WORKER_MAX_CONCURRENT: Integer 1-20 (default: 2)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
//   - METRICS_PORT: Integer 1024-65535 (default: 9090)
//   - RUN_ON_START: Boolean (default: false)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()

	var cm *config.ConfigMetrics
	if metrics != nil {
		cm = metrics.ConfigMetrics
	}
	t := config.NewTracker(logger, cm)

	cfg.CronSchedule = config.Track(t, "cron_schedule",
		config.LoadEnvString("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule))
	cfg.Timezone = config.Track(t, "timezone",
		config.LoadEnvString("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone))
	cfg.JobTimeout = config.Track(t, "job_timeout",
		config.LoadEnvDuration("JOB_TIMEOUT", cfg.JobTimeout, config.DurationRange(time.Minute, 2*time.Hour)))
	cfg.MaxConcurrent = config.Track(t, "max_concurrent",
		config.LoadEnvInt("WORKER_MAX_CONCURRENT", cfg.MaxConcurrent, config.IntRange(1, 20)))
	cfg.HealthPort = config.Track(t, "health_port",
		config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, config.IntRange(1024, 65535)))
	cfg.MetricsPort = config.Track(t, "metrics_port",
		config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, config.IntRange(1024, 65535)))
	cfg.RunOnStart = config.Track(t, "run_on_start", config.LoadEnvBool("RUN_ON_START", cfg.RunOnStart))

	t.Finish()

	// Always return valid config (fail-open strategy)
	return &cfg, nil
}
