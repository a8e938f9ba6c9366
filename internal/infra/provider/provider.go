// Package provider adapts language-model APIs to content.Provider.
// It includes adapters for Claude (Anthropic) and OpenAI compatible APIs
// (OpenAI, DeepSeek, Z.AI GLM, Gemini) guarded by circuit breakers, and a
// scripted provider for offline runs. Every adapter classifies its own
// failures into retry kinds so the fallback chain never has to guess.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"content-agent/internal/resilience/circuitbreaker"
	"content-agent/internal/resilience/retry"
	"content-agent/internal/usecase/content"
)

// Provider types accepted by New.
const (
	TypeClaude   = "claude"
	TypeOpenAI   = "openai"
	TypeDeepSeek = "deepseek"
	TypeZAI      = "zai"
	TypeGemini   = "gemini"
	TypeScripted = "scripted"
)

// DefaultMaxTokens bounds the completion length when Config.MaxTokens is not set.
const DefaultMaxTokens = 2048

// Config describes one provider endpoint.
type Config struct {
	// Name identifies the provider in logs, metrics and the rate limiter.
	Name string `yaml:"name"`

	// Type selects the adapter. Empty means Name is also the type.
	Type string `yaml:"type"`

	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`

	MaxTokens int `yaml:"max_tokens"`

	// Script lists the responses of a scripted provider. An entry of the
	// form "error:<kind>" fails with that kind instead.
	Script []string `yaml:"script"`
}

// ResolvedType returns the adapter type, defaulting to the lower-cased name.
func (c Config) ResolvedType() string {
	if c.Type != "" {
		return strings.ToLower(c.Type)
	}
	return strings.ToLower(c.Name)
}

// Option configures an adapter.
type Option func(*options)

type options struct {
	metrics    MetricsRecorder
	breaker    *circuitbreaker.Config
	httpClient *http.Client
}

// WithMetrics replaces the Prometheus request metrics.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithBreaker replaces the default circuit breaker configuration.
func WithBreaker(cfg circuitbreaker.Config) Option {
	return func(o *options) {
		o.breaker = &cfg
	}
}

// WithHTTPClient sets the HTTP client used by SDK adapters.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

func buildOptions(name string, opts []Option) (options, *circuitbreaker.CircuitBreaker) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = NewPrometheusMetrics()
	}
	cfg := circuitbreaker.ProviderConfig(name)
	if o.breaker != nil {
		cfg = *o.breaker
	}
	return o, circuitbreaker.New(cfg)
}

// New creates the adapter selected by cfg.ResolvedType().
func New(cfg Config, opts ...Option) (content.Provider, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	switch t := cfg.ResolvedType(); t {
	case TypeClaude, "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %s: api key is required", cfg.Name)
		}
		return NewClaude(cfg, opts...), nil
	case TypeOpenAI, TypeDeepSeek, TypeZAI, TypeGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %s: api key is required", cfg.Name)
		}
		return NewOpenAICompatible(cfg, opts...)
	case TypeScripted:
		return NewScriptedFromConfig(cfg)
	default:
		return nil, fmt.Errorf("provider %s: unknown type %q", cfg.Name, t)
	}
}

// guard runs call through the breaker and records request metrics. An open
// breaker fails with KindUnknown so the chain falls back without retrying.
func guard(ctx context.Context, name string, cb *circuitbreaker.CircuitBreaker, m MetricsRecorder, call func() (string, error)) (string, error) {
	start := time.Now()
	res, err := cb.Execute(func() (interface{}, error) {
		return call()
	})
	duration := time.Since(start)

	if err != nil {
		if circuitbreaker.IsRejection(err) {
			slog.WarnContext(ctx, "provider circuit breaker open, request rejected",
				slog.String("provider", name),
				slog.String("circuit", cb.Name()),
				slog.String("state", cb.State().String()))
			m.RecordRequest(name, outcomeRejected)
			return "", &content.ProviderError{
				Provider: name,
				Kind:     retry.KindUnknown,
				Err:      fmt.Errorf("%s api unavailable: %w", name, err),
			}
		}
		m.RecordRequest(name, retry.KindOf(err).String())
		m.RecordDuration(name, duration)
		return "", err
	}

	out := res.(string)
	m.RecordRequest(name, outcomeSuccess)
	m.RecordDuration(name, duration)
	m.RecordOutputLength(name, utf8.RuneCountInString(out))
	return out, nil
}
