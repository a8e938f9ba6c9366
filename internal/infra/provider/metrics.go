package provider

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
)

// MetricsRecorder defines the interface for recording provider request metrics.
// This interface abstracts the metrics recording implementation, enabling:
//   - Mocking in unit tests (inject a recorder instead of Prometheus)
//   - Reusability across adapters (Claude, OpenAI compatible, scripted)
type MetricsRecorder interface {
	// RecordRequest counts one request by outcome: "success", "rejected"
	// (circuit open) or the error kind label of the failure.
	RecordRequest(provider, outcome string)

	// RecordDuration records the time taken by one API request.
	RecordDuration(provider string, duration time.Duration)

	// RecordOutputLength records the length of the returned text in characters.
	RecordOutputLength(provider string, length int)
}

// PrometheusMetrics implements MetricsRecorder using Prometheus metrics.
type PrometheusMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	length   *prometheus.HistogramVec
}

var (
	prometheusMetricsInstance *PrometheusMetrics
	prometheusMetricsOnce     sync.Once
)

// getOrCreateCounterVec gets an existing counter vector or registers a new one.
func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

// getOrCreateHistogramVec gets an existing histogram vector or registers a new one.
func getOrCreateHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
		return promauto.NewHistogramVec(opts, labels)
	}
	return h
}

// NewPrometheusMetrics returns the process wide Prometheus recorder.
// Uses singleton pattern to avoid duplicate metric registration in tests.
func NewPrometheusMetrics() *PrometheusMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusMetrics{
			requests: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "content_agent_provider_requests_total",
				Help: "Total number of provider API requests by outcome",
			}, []string{"provider", "outcome"}),
			duration: getOrCreateHistogramVec(prometheus.HistogramOpts{
				Name:    "content_agent_provider_request_duration_seconds",
				Help:    "Time taken by a provider API request",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			}, []string{"provider"}),
			length: getOrCreateHistogramVec(prometheus.HistogramOpts{
				Name:    "content_agent_provider_output_length_characters",
				Help:    "Distribution of provider output lengths in characters (Unicode runes)",
				Buckets: []float64{100, 500, 1000, 2000, 4000, 8000, 16000},
			}, []string{"provider"}),
		}
	})
	return prometheusMetricsInstance
}

// RecordRequest implements MetricsRecorder.RecordRequest
func (p *PrometheusMetrics) RecordRequest(provider, outcome string) {
	p.requests.WithLabelValues(provider, outcome).Inc()
}

// RecordDuration implements MetricsRecorder.RecordDuration
func (p *PrometheusMetrics) RecordDuration(provider string, duration time.Duration) {
	p.duration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordOutputLength implements MetricsRecorder.RecordOutputLength
func (p *PrometheusMetrics) RecordOutputLength(provider string, length int) {
	p.length.WithLabelValues(provider).Observe(float64(length))
}
