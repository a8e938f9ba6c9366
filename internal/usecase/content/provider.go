package content

import (
	"context"
	"time"

	"content-agent/internal/resilience/retry"
)

// DefaultTimeout bounds a single provider call when the descriptor does not set one.
const DefaultTimeout = 60 * time.Second

// Provider is the client capability of one language-model backend.
// This abstraction allows switching between backends (Claude, OpenAI
// compatible APIs, scripted output) without changing the chain.
type Provider interface {
	// Invoke sends prompt and returns the raw completion text. Failures should
	// carry their classification, preferably as a *ProviderError.
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

// Invoke calls f.
func (f ProviderFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Descriptor registers a provider with the chain. It is not modified after
// NewChain returns.
type Descriptor struct {
	// Name identifies the provider in the rate limiter, logs and metrics.
	Name string

	// Priority orders the chain; lower values are tried first. Descriptors
	// with equal priority keep their registration order.
	Priority int

	// Timeout bounds each individual call. Zero selects DefaultTimeout.
	Timeout time.Duration

	Provider Provider

	// Policy overrides the chain's retry policy for this provider.
	Policy *retry.Policy
}
