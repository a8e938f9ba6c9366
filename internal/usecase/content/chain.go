package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"content-agent/internal/observability/events"
	"content-agent/internal/observability/tracing"
	"content-agent/internal/resilience/retry"
	"content-agent/pkg/ratelimit"
)

// Admitter grants permission to issue one request for a provider.
// *ratelimit.Limiter implements it.
type Admitter interface {
	Admit(ctx context.Context, key string) (time.Duration, error)
}

// Executor runs an operation under a retry policy. *retry.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, p retry.Policy, op func(ctx context.Context) error) error
}

// Chain tries providers in ascending priority order and returns the output of
// the first one that succeeds. The order is fixed at construction and never
// adapts to runtime success history.
type Chain struct {
	providers []Descriptor
	limiter   Admitter
	executor  Executor
	policy    retry.Policy
	sink      events.Sink
}

// NewChain validates the descriptors and creates a Chain.
// A nil limiter admits every request immediately, a nil executor uses
// retry.NewExecutor() and a nil sink discards events.
func NewChain(descriptors []Descriptor, limiter Admitter, executor Executor, policy retry.Policy, sink events.Sink) (*Chain, error) {
	if len(descriptors) == 0 {
		return nil, ErrNoProviders
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}

	seen := make(map[string]struct{}, len(descriptors))
	providers := make([]Descriptor, len(descriptors))
	for i, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("provider at index %d has no name", i)
		}
		if d.Provider == nil {
			return nil, fmt.Errorf("provider %s has no client", d.Name)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("duplicate provider %s", d.Name)
		}
		if d.Policy != nil {
			if err := d.Policy.Validate(); err != nil {
				return nil, fmt.Errorf("invalid retry policy for provider %s: %w", d.Name, err)
			}
		}
		if d.Timeout <= 0 {
			d.Timeout = DefaultTimeout
		}
		seen[d.Name] = struct{}{}
		providers[i] = d
	}
	sort.SliceStable(providers, func(i, j int) bool {
		return providers[i].Priority < providers[j].Priority
	})

	if limiter == nil {
		limiter = ratelimit.New(ratelimit.Config{})
	}
	if executor == nil {
		executor = retry.NewExecutor()
	}
	if sink == nil {
		sink = events.Nop()
	}

	return &Chain{
		providers: providers,
		limiter:   limiter,
		executor:  executor,
		policy:    policy,
		sink:      sink,
	}, nil
}

// Providers returns the provider names in the order they are tried.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, d := range c.providers {
		names[i] = d.Name
	}
	return names
}

// Invoke sends prompt to each provider in turn until one returns output, and
// reports which provider produced it. When every provider fails it returns an
// *ExhaustedError listing the failures in order. When ctx is done it returns
// ctx.Err() before the next retry or the next provider; a call already in
// flight is allowed to finish.
func (c *Chain) Invoke(ctx context.Context, prompt string) (string, string, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "content.Chain.Invoke",
		trace.WithAttributes(attribute.Int("chain.providers", len(c.providers))))
	defer span.End()

	failures := make([]Failure, 0, len(c.providers))
	for i, d := range c.providers {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return "", "", err
		}

		raw, attempts, err := c.try(ctx, d, prompt)
		if err == nil {
			span.SetAttributes(attribute.String("chain.provider", d.Name))
			c.sink.Emit(ctx, events.Event{
				Type:     events.TypeProviderSucceeded,
				Provider: d.Name,
				Attempt:  attempts,
			})
			return raw, d.Name, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetStatus(codes.Error, "cancelled")
			return "", "", ctxErr
		}

		f := Failure{Provider: d.Name, Kind: retry.KindOf(err), Attempts: attempts, Err: err}
		failures = append(failures, f)
		c.sink.Emit(ctx, events.Event{
			Type:     events.TypeProviderFailed,
			Provider: d.Name,
			Attempt:  attempts,
			Kind:     f.Kind.String(),
			Err:      err,
		})
		if i+1 < len(c.providers) {
			c.sink.Emit(ctx, events.Event{
				Type:     events.TypeFallback,
				Provider: d.Name,
				Next:     c.providers[i+1].Name,
				Kind:     f.Kind.String(),
			})
		}
	}

	exhausted := &ExhaustedError{Failures: failures}
	c.sink.Emit(ctx, events.Event{
		Type:     events.TypeProvidersExhausted,
		Failures: len(failures),
		Err:      exhausted,
	})
	tracing.RecordError(span, exhausted)
	span.SetStatus(codes.Error, ErrAllProvidersExhausted.Error())
	return "", "", exhausted
}

// try runs the retry executor around one provider. Every attempt is admitted
// by the rate limiter, so retries count against the provider's window too.
func (c *Chain) try(ctx context.Context, d Descriptor, prompt string) (string, int, error) {
	policy := c.policy
	if d.Policy != nil {
		policy = *d.Policy
	}
	onRetry := policy.OnRetry
	policy.OnRetry = func(ctx context.Context, a retry.Attempt) {
		c.sink.Emit(ctx, events.Event{
			Type:     events.TypeRetryAttempt,
			Provider: d.Name,
			Attempt:  a.Number,
			Kind:     a.Kind.String(),
			Wait:     a.Delay,
			Err:      a.Err,
		})
		if onRetry != nil {
			onRetry(ctx, a)
		}
	}

	var (
		raw      string
		attempts int
	)
	err := c.executor.Execute(ctx, policy, func(ctx context.Context) error {
		wait, err := c.limiter.Admit(ctx, d.Name)
		if err != nil {
			return err
		}
		c.sink.Emit(ctx, events.Event{
			Type:     events.TypeAdmissionWait,
			Provider: d.Name,
			Wait:     wait,
		})

		attempts++
		out, err := c.call(ctx, d, prompt, attempts)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	return raw, attempts, err
}

// call issues one request. The request is detached from ctx cancellation so
// that it can complete once started; its own deadline is d.Timeout.
func (c *Chain) call(ctx context.Context, d Descriptor, prompt string, attempt int) (string, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.Timeout)
	defer cancel()

	callCtx, span := tracing.GetTracer().Start(callCtx, "content.Provider.Invoke",
		trace.WithAttributes(
			attribute.String("provider", d.Name),
			attribute.Int("attempt", attempt)))
	defer span.End()

	out, err := d.Provider.Invoke(callCtx, prompt)
	if err == nil {
		return out, nil
	}

	err = classify(callCtx, d, err)
	tracing.RecordError(span, err)
	span.SetStatus(codes.Error, retry.KindOf(err).String())
	return "", err
}

// classify makes sure every failure leaving call is a *ProviderError naming
// the provider. A call that ran out of time is a network failure whatever
// the adapter reported.
func classify(callCtx context.Context, d Descriptor, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &ProviderError{
			Provider: d.Name,
			Kind:     retry.KindNetwork,
			Err:      fmt.Errorf("timed out after %s: %w", d.Timeout, err),
		}
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Provider == "" {
			pe.Provider = d.Name
		}
		return err
	}
	return &ProviderError{Provider: d.Name, Kind: retry.KindOf(err), Err: err}
}
