// Package retry provides a policy driven executor with exponential backoff and jitter.
// It retries transient provider failures and gives up early on failures that
// retrying cannot fix, so a fallback chain can move on without wasting attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"content-agent/internal/observability/logging"
)

// Policy holds the configuration for one Execute call.
type Policy struct {
	// MaxAttempts is the maximum number of calls to the operation (values below 1 mean 1).
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps every individual delay, including retry-after hints. Zero means no cap.
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff.
	Multiplier float64

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0)
	JitterFraction float64

	// Retryable decides whether a failure of the given kind is retried.
	// Nil uses DefaultRetryable. KindQuota is never retried regardless.
	Retryable func(Kind) bool

	// OnRetry, when set, is called before each backoff sleep.
	OnRetry func(ctx context.Context, a Attempt)
}

// Attempt describes a failed attempt that is about to be retried.
type Attempt struct {
	Number int
	Kind   Kind
	Delay  time.Duration
	Err    error
}

// DefaultPolicy returns a policy suited to LLM API calls.
// Moderate retry due to cost considerations.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      2 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// DefaultRetryable retries network failures and rate limiting only.
func DefaultRetryable(k Kind) bool {
	return k == KindNetwork || k == KindRateLimit
}

// Validate reports configuration mistakes.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return errors.New("delays must not be negative")
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be at least 1, got %v", p.Multiplier)
	}
	if p.JitterFraction < 0 || p.JitterFraction > 1 {
		return fmt.Errorf("jitter fraction must be within [0, 1], got %v", p.JitterFraction)
	}
	return nil
}

func (p Policy) retryable(k Kind) bool {
	if k == KindQuota {
		return false
	}
	if p.Retryable == nil {
		return DefaultRetryable(k)
	}
	return p.Retryable(k)
}

// RetryAfterHinter is implemented by errors carrying a server supplied retry-after duration.
type RetryAfterHinter interface {
	RetryAfterHint() time.Duration
}

// Error is the terminal failure of an Execute call.
type Error struct {
	// Kind is the classification of the last observed failure.
	Kind Kind
	// Attempts is how many times the operation was called.
	Attempts int
	// Err is the last failure returned by the operation.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s error after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

// Unwrap returns the last failure.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorKind returns the classification of the last failure.
func (e *Error) ErrorKind() Kind {
	return e.Kind
}

// Executor runs operations under a Policy. It holds no per-call state and is
// safe for concurrent use.
type Executor struct {
	sleep  func(ctx context.Context, d time.Duration) error
	random func() float64
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleep replaces the backoff sleep. The function must return ctx.Err()
// when ctx is done before d elapses.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// WithRand replaces the jitter source. It must return values in [0, 1) and be
// safe for concurrent use.
func WithRand(random func() float64) Option {
	return func(e *Executor) {
		e.random = random
	}
}

// NewExecutor creates an Executor that sleeps on real timers.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		sleep: sleepContext,
		// #nosec G404 -- Using math/rand is acceptable for jitter calculation.
		// Cryptographic randomness is not required for retry backoff jitter.
		random: rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute calls op until it succeeds, fails with a non-retryable kind or
// MaxAttempts is reached. It returns nil on success, a *Error on terminal
// failure, or an error wrapping ctx.Err() when ctx is done before an attempt
// or during a backoff sleep. An attempt in flight is never interrupted by
// Execute itself.
func (e *Executor) Execute(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		lastErr  error
		lastKind Kind
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted before attempt %d: %w", attempt, err)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 1 {
				slog.InfoContext(ctx, "operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return nil
		}
		lastKind = KindOf(lastErr)

		if !p.retryable(lastKind) {
			slog.WarnContext(ctx, "non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.String("error_kind", lastKind.String()),
				logging.Err(lastErr))
			return &Error{Kind: lastKind, Attempts: attempt, Err: lastErr}
		}

		// Don't wait after last attempt
		if attempt == maxAttempts {
			break
		}

		delay := e.backoff(p, attempt, lastErr)
		slog.WarnContext(ctx, "operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.String("error_kind", lastKind.String()),
			slog.Duration("delay", delay),
			logging.Err(lastErr))
		if p.OnRetry != nil {
			p.OnRetry(ctx, Attempt{Number: attempt, Kind: lastKind, Delay: delay, Err: lastErr})
		}

		if err := e.sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry aborted after attempt %d: %w", attempt, err)
		}
	}

	return &Error{Kind: lastKind, Attempts: maxAttempts, Err: lastErr}
}

// backoff computes the delay after the given failed attempt:
// BaseDelay * Multiplier^(attempt-1), capped by MaxDelay, plus jitter. A
// larger retry-after hint from the failure replaces the computed value.
func (e *Executor) backoff(p Policy, attempt int, err error) time.Duration {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	raw := float64(p.BaseDelay) * math.Pow(multiplier, float64(attempt-1))
	if raw > math.MaxInt64 {
		raw = math.MaxInt64
	}
	delay := time.Duration(raw)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	delay = addJitter(delay, p.JitterFraction, e.random)

	var hinter RetryAfterHinter
	if errors.As(err, &hinter) {
		hint := hinter.RetryAfterHint()
		if p.MaxDelay > 0 && hint > p.MaxDelay {
			hint = p.MaxDelay
		}
		if hint > delay {
			delay = hint
		}
	}
	return delay
}

// addJitter adds random jitter to a duration to prevent thundering herd.
func addJitter(duration time.Duration, jitterFraction float64, random func() float64) time.Duration {
	if jitterFraction <= 0 || duration <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	jitter := time.Duration(random() * float64(duration) * jitterFraction)
	return duration + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
