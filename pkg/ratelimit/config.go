package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// DefaultWindow is the trailing window used when a Limit leaves Window unset.
const DefaultWindow = 60 * time.Second

// Limit is the admission ceiling for one key.
type Limit struct {
	// Max is the number of admissions allowed in any trailing Window.
	// Zero or less disables the window for the key.
	Max int

	// Window is the trailing duration Max applies to. Defaults to DefaultWindow.
	Window time.Duration

	// MinInterval optionally spaces consecutive admissions by at least this duration.
	MinInterval time.Duration
}

// Unlimited reports whether the limit admits everything immediately.
func (l Limit) Unlimited() bool {
	return l.Max <= 0 && l.MinInterval <= 0
}

// Validate checks that the limit is usable.
func (l Limit) Validate() error {
	if l.Window < 0 {
		return fmt.Errorf("window must not be negative, got %v", l.Window)
	}
	if l.MinInterval < 0 {
		return fmt.Errorf("min interval must not be negative, got %v", l.MinInterval)
	}
	return nil
}

func (l Limit) withDefaults() Limit {
	if l.Window <= 0 {
		l.Window = DefaultWindow
	}
	return l
}

// SleepFunc suspends the caller for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds the dependencies and defaults of a Limiter.
type Config struct {
	// Clock defaults to SystemClock.
	Clock Clock

	// Metrics defaults to NoOpMetrics.
	Metrics Metrics

	// DefaultLimit applies to keys that were never configured.
	// The zero value admits unconfigured keys without waiting.
	DefaultLimit Limit

	// Sleep defaults to a timer bound to the context. Tests driving a fake
	// Clock replace it with a function that advances the clock.
	Sleep SleepFunc
}

// ContextSleep waits for d or until ctx is done, whichever comes first.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
