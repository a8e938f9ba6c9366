// Package app assembles the content agent from its configuration: provider
// adapters, the per-provider rate limiter, the fallback chain, the recovery
// pipeline and the observability sinks shared by the worker and the CLI.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"content-agent/internal/config"
	"content-agent/internal/domain/entity"
	"content-agent/internal/infra/provider"
	"content-agent/internal/observability/events"
	"content-agent/internal/recovery"
	"content-agent/internal/resilience/retry"
	"content-agent/internal/usecase/content"
	"content-agent/pkg/ratelimit"
)

// ErrAllBreakersOpen is reported by Agent.ProvidersReady when no guarded
// provider currently accepts calls.
var ErrAllBreakersOpen = errors.New("all provider circuit breakers are open")

// breakerReporter is implemented by adapters guarded by a circuit breaker.
type breakerReporter interface {
	BreakerOpen() bool
}

// Agent is a fully wired content agent.
type Agent struct {
	Service     *content.Service
	Chain       *content.Chain
	Limiter     *ratelimit.Limiter
	RateMetrics *ratelimit.PrometheusMetrics
	Niches      []entity.Niche

	breakers map[string]breakerReporter
}

// Option customises Build.
type Option func(*buildOptions)

type buildOptions struct {
	providerOpts []provider.Option
	sink         events.Sink
	executor     content.Executor
}

// WithProviderOptions passes options to every provider adapter.
func WithProviderOptions(opts ...provider.Option) Option {
	return func(o *buildOptions) {
		o.providerOpts = append(o.providerOpts, opts...)
	}
}

// WithSink replaces the default log and metrics sinks.
func WithSink(sink events.Sink) Option {
	return func(o *buildOptions) {
		o.sink = sink
	}
}

// WithExecutor replaces the retry executor, e.g. to skip backoff sleeps in tests.
func WithExecutor(e content.Executor) Option {
	return func(o *buildOptions) {
		o.executor = e
	}
}

// Build validates cfg and wires every component.
func Build(cfg *config.AgentConfig, logger *slog.Logger, opts ...Option) (*Agent, error) {
	if cfg == nil {
		return nil, errors.New("agent config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sink == nil {
		o.sink = events.Multi(events.NewLogSink(logger), events.NewMetricsSink())
	}
	if o.executor == nil {
		o.executor = retry.NewExecutor()
	}

	rateMetrics := ratelimit.NewPrometheusMetrics()
	limiter := ratelimit.New(ratelimit.Config{Metrics: rateMetrics})

	descriptors := make([]content.Descriptor, 0, len(cfg.Providers))
	breakers := make(map[string]breakerReporter)
	for _, p := range cfg.Providers {
		client, err := provider.New(provider.Config{
			Name:      p.Name,
			Type:      p.Type,
			APIKey:    p.APIKey,
			Model:     p.Model,
			BaseURL:   p.BaseURL,
			MaxTokens: p.MaxTokens,
			Script:    p.Script,
		}, o.providerOpts...)
		if err != nil {
			return nil, fmt.Errorf("create provider: %w", err)
		}
		if err := limiter.Configure(p.Name, p.Limit()); err != nil {
			return nil, err
		}
		if b, ok := client.(breakerReporter); ok {
			breakers[p.Name] = b
		}
		descriptors = append(descriptors, content.Descriptor{
			Name:     p.Name,
			Priority: p.Priority,
			Timeout:  p.Timeout,
			Provider: client,
		})
	}

	chain, err := content.NewChain(descriptors, limiter, o.executor, cfg.Retry.Policy(), o.sink)
	if err != nil {
		return nil, fmt.Errorf("create provider chain: %w", err)
	}

	pipeline := recovery.NewPipeline(
		recovery.NewSynthesizer(cfg.Content.SynthCount, cfg.Content.MaxHashtags),
		o.sink)

	logger.Info("content agent initialized",
		slog.Any("providers", chain.Providers()),
		slog.Int("niches", len(cfg.Content.Niches)),
		slog.Int("retry_max_attempts", cfg.Retry.MaxAttempts))

	return &Agent{
		Service:     content.NewService(chain, pipeline),
		Chain:       chain,
		Limiter:     limiter,
		RateMetrics: rateMetrics,
		Niches:      cfg.Content.Niches,
		breakers:    breakers,
	}, nil
}

// ProviderStatus is the circuit and rate limit state of one provider.
type ProviderStatus struct {
	Name string `json:"name"`
	// Guarded is false for providers without a circuit breaker.
	Guarded     bool `json:"guarded"`
	CircuitOpen bool `json:"circuit_breaker_open"`
	// WindowRequests is the number of calls admitted in the current rate
	// limit window. It stays zero for providers without a request limit.
	WindowRequests int `json:"window_requests"`
}

// ProviderStatuses returns the state of every provider in chain order.
func (a *Agent) ProviderStatuses() []ProviderStatus {
	names := a.Chain.Providers()
	out := make([]ProviderStatus, len(names))
	for i, name := range names {
		out[i] = ProviderStatus{Name: name, WindowRequests: a.Limiter.Count(name)}
		if b, ok := a.breakers[name]; ok {
			out[i].Guarded = true
			out[i].CircuitOpen = b.BreakerOpen()
		}
	}
	return out
}

// ProvidersReady fails with ErrAllBreakersOpen when every breaker guarded
// provider is open. Chains without guarded providers are always ready.
func (a *Agent) ProvidersReady() error {
	if len(a.breakers) == 0 {
		return nil
	}
	for _, b := range a.breakers {
		if !b.BreakerOpen() {
			return nil
		}
	}
	return ErrAllBreakersOpen
}
