package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
//
// All metrics use a custom registry for better testability and isolation.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// admissionsTotal counts admitted requests by provider.
	admissionsTotal *prometheus.CounterVec

	// cancelledTotal counts waiters that gave up before their slot opened.
	cancelledTotal *prometheus.CounterVec

	// waitDuration tracks how long admitted requests were suspended.
	// Most admissions are immediate; the upper buckets cover a full 60s window.
	waitDuration *prometheus.HistogramVec

	// queued tracks reservations scheduled in the future.
	queued *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance with a custom registry.
//
// The registry can be passed to promhttp.HandlerFor() to expose metrics, or
// gathered into a parent registry via prometheus.Gatherers.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	admissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_rate_limit_admissions_total",
			Help: "Total admitted provider requests",
		},
		[]string{"provider"},
	)

	cancelledTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_rate_limit_cancelled_total",
			Help: "Total admission waits abandoned because the caller was cancelled",
		},
		[]string{"provider"},
	)

	waitDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_rate_limit_wait_seconds",
			Help:    "Time a request spent waiting for admission",
			Buckets: []float64{0, 0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
		[]string{"provider"},
	)

	queued := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "llm_rate_limit_queued",
			Help: "Reservations waiting for their admission slot",
		},
		[]string{"provider"},
	)

	registry.MustRegister(admissionsTotal, cancelledTotal, waitDuration, queued)

	return &PrometheusMetrics{
		registry:        registry,
		admissionsTotal: admissionsTotal,
		cancelledTotal:  cancelledTotal,
		waitDuration:    waitDuration,
		queued:          queued,
	}
}

// Registry returns the Prometheus registry containing all rate limit metrics.
//
//	metrics := NewPrometheusMetrics()
//	http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAdmission records an admitted request and its wait.
func (m *PrometheusMetrics) RecordAdmission(key string, wait time.Duration) {
	m.admissionsTotal.WithLabelValues(key).Inc()
	m.waitDuration.WithLabelValues(key).Observe(wait.Seconds())
}

// RecordCancelled records an abandoned wait.
func (m *PrometheusMetrics) RecordCancelled(key string) {
	m.cancelledTotal.WithLabelValues(key).Inc()
}

// SetQueued records pending reservations for key.
func (m *PrometheusMetrics) SetQueued(key string, count int) {
	m.queued.WithLabelValues(key).Set(float64(count))
}
