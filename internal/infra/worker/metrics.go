package worker

import (
	"github.com/prometheus/client_golang/prometheus"

	"content-agent/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the worker process.
// It embeds the standard ConfigMetrics and adds job execution metrics.
//
// Worker-specific metrics:
//   - worker_plan_job_runs_total{status}: runs by status (started, success, partial, failure)
//   - worker_plan_job_duration_seconds: duration of one run over all niches
//   - worker_plan_niches_total{outcome}: niches planned per outcome (ok, degraded, failed)
//   - worker_plan_job_last_success_timestamp: Unix timestamp of the last run without failures
type WorkerMetrics struct {
	*config.ConfigMetrics

	JobRunsTotal            *prometheus.CounterVec
	JobDurationSeconds      prometheus.Histogram
	NichesTotal             *prometheus.CounterVec
	JobLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates the metrics on the default registry.
func NewWorkerMetrics() *WorkerMetrics {
	return NewWorkerMetricsWith(prometheus.DefaultRegisterer)
}

// NewWorkerMetricsWith registers the metrics on reg. Already registered
// collectors are reused.
func NewWorkerMetricsWith(reg prometheus.Registerer) *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetricsWith(reg, "worker"),

		JobRunsTotal: config.RegisterOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_plan_job_runs_total",
			Help: "Total number of content plan job runs by status",
		}, []string{"status"})),

		JobDurationSeconds: config.RegisterOrReuse(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_plan_job_duration_seconds",
			Help:    "Duration of content plan job execution in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600}, // 1s .. 10m
		})),

		NichesTotal: config.RegisterOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_plan_niches_total",
			Help: "Total number of niches planned by outcome (ok, degraded, failed)",
		}, []string{"outcome"})),

		JobLastSuccessTimestamp: config.RegisterOrReuse(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "worker_plan_job_last_success_timestamp",
			Help: "Unix timestamp of the last content plan job run without failures",
		})),
	}
}

// RecordJobRun increments the job run counter for status.
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.JobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes the duration of a run in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.JobDurationSeconds.Observe(seconds)
}

// RecordNiche counts one planned niche by outcome.
func (m *WorkerMetrics) RecordNiche(outcome string) {
	m.NichesTotal.WithLabelValues(outcome).Inc()
}

// RecordLastSuccess records the current time as the last successful run.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.JobLastSuccessTimestamp.SetToCurrentTime()
}
