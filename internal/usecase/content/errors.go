package content

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"content-agent/internal/resilience/retry"
)

var (
	// ErrAllProvidersExhausted is matched by *ExhaustedError. It is the only
	// failure GenerateContentPlan reports besides cancellation.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrNoProviders is returned by NewChain for an empty descriptor list.
	ErrNoProviders = errors.New("no providers configured")
)

// ProviderError is a classified failure of one provider call.
type ProviderError struct {
	Provider string
	Kind     retry.Kind

	// RetryAfter is the server supplied retry-after hint, zero when absent.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s: %s error", e.Provider, e.Kind)
	}
	return fmt.Sprintf("provider %s: %s error: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrorKind implements retry.Classified.
func (e *ProviderError) ErrorKind() retry.Kind {
	return e.Kind
}

// RetryAfterHint implements retry.RetryAfterHinter.
func (e *ProviderError) RetryAfterHint() time.Duration {
	return e.RetryAfter
}

// Failure records why the chain gave up on one provider.
type Failure struct {
	Provider string
	Kind     retry.Kind
	Attempts int
	Err      error
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s after %d attempt(s): %v", f.Provider, f.Kind, f.Attempts, f.Err)
}

// ExhaustedError is returned when every provider in the chain failed.
// Failures are ordered the way the providers were tried.
type ExhaustedError struct {
	Failures []Failure
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAllProvidersExhausted, strings.Join(parts, "; "))
}

// Is reports whether target is ErrAllProvidersExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}

// Unwrap exposes each provider's failure to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Providers returns the names of the failed providers in order.
func (e *ExhaustedError) Providers() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Provider
	}
	return names
}
