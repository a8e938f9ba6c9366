// Package ratelimit provides per-key sliding window admission control.
//
// A Limiter owns one window per key (one key per LLM provider). Admission never
// fails because the window is full; callers are suspended until a slot opens.
// The only error Admit returns comes from the caller's context.
package ratelimit

import (
	"time"
)

// Metrics defines the interface for recording admission metrics.
//
// Implementations can use Prometheus, StatsD, or custom metrics systems.
type Metrics interface {
	// RecordAdmission records an admitted request and how long it waited.
	RecordAdmission(key string, wait time.Duration)

	// RecordCancelled records a waiter that gave up before admission.
	RecordCancelled(key string)

	// SetQueued records how many reservations are pending in the future for key.
	SetQueued(key string, count int)
}

// Clock provides an abstraction for time operations to enable testing.
//
// This interface allows for dependency injection of time functions,
// making it easy to test time-dependent behavior with fake clocks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
