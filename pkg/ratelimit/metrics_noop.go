package ratelimit

import "time"

// NoOpMetrics implements the Metrics interface with no-op implementations.
//
// This implementation is useful for:
// - Testing environments where metrics are not needed
// - Library callers that do not run a Prometheus registry
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new NoOpMetrics instance.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

// RecordAdmission is a no-op implementation.
func (m *NoOpMetrics) RecordAdmission(key string, wait time.Duration) {}

// RecordCancelled is a no-op implementation.
func (m *NoOpMetrics) RecordCancelled(key string) {}

// SetQueued is a no-op implementation.
func (m *NoOpMetrics) SetQueued(key string, count int) {}
