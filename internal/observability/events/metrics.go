package events

import (
	"context"

	"content-agent/internal/observability/metrics"
)

// MetricsSink turns events into Prometheus metrics on the default registry.
type MetricsSink struct{}

// NewMetricsSink creates a MetricsSink.
func NewMetricsSink() *MetricsSink {
	return &MetricsSink{}
}

// Emit records e.
func (MetricsSink) Emit(_ context.Context, e Event) {
	switch e.Type {
	case TypeAdmissionWait:
		metrics.RecordAdmissionWait(e.Provider, e.Wait)
	case TypeRetryAttempt:
		metrics.RecordRetry(e.Provider, e.Kind)
	case TypeProviderFailed:
		metrics.RecordProviderFailure(e.Provider, e.Kind)
	case TypeFallback:
		metrics.RecordFallback(e.Provider, e.Next)
	case TypeProviderSucceeded:
		metrics.RecordProviderAttempt(e.Provider, true)
	case TypeProvidersExhausted:
		metrics.RecordProvidersExhausted()
	case TypeRecoveryStage:
		metrics.RecordRecovery(e.Stage, e.Degraded, e.Items)
	}
}
