package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"content-agent/internal/observability/logging"
	"content-agent/internal/resilience/circuitbreaker"
	"content-agent/internal/resilience/retry"
	"content-agent/internal/usecase/content"
)

// DefaultClaudeModel is used when the config leaves Model empty.
var DefaultClaudeModel = string(anthropic.ModelClaudeSonnet4_5_20250929)

// Claude implements content.Provider using Anthropic's Messages API.
// SDK level retries are disabled; retrying is the chain's job.
type Claude struct {
	name      string
	client    anthropic.Client
	model     string
	maxTokens int
	breaker   *circuitbreaker.CircuitBreaker
	metrics   MetricsRecorder
}

// NewClaude creates a Claude adapter.
func NewClaude(cfg Config, opts ...Option) *Claude {
	o, breaker := buildOptions(cfg.Name, opts)

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(o.httpClient))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultClaudeModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	slog.Info("Initialized Claude provider",
		slog.String("provider", cfg.Name),
		slog.String("model", model),
		slog.Int("max_tokens", maxTokens))

	return &Claude{
		name:      cfg.Name,
		client:    anthropic.NewClient(clientOpts...),
		model:     model,
		maxTokens: maxTokens,
		breaker:   breaker,
		metrics:   o.metrics,
	}
}

// Name returns the provider name.
func (c *Claude) Name() string {
	return c.name
}

// BreakerOpen reports whether the circuit breaker currently rejects calls.
func (c *Claude) BreakerOpen() bool {
	return c.breaker.IsOpen()
}

// Invoke sends prompt as a single user message and returns the text content.
func (c *Claude) Invoke(ctx context.Context, prompt string) (string, error) {
	return guard(ctx, c.name, c.breaker, c.metrics, func() (string, error) {
		return c.complete(ctx, prompt)
	})
}

// complete performs the actual API call without circuit breaker.
func (c *Claude) complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	duration := time.Since(start)

	if err != nil {
		classified := classifyAnthropic(c.name, err)
		slog.ErrorContext(ctx, "claude request failed",
			slog.String("provider", c.name),
			slog.String("error_kind", retry.KindOf(classified).String()),
			slog.Duration("duration", duration),
			logging.Err(err))
		return "", classified
	}

	var b strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	if b.Len() == 0 {
		slog.ErrorContext(ctx, "claude returned no text content",
			slog.String("provider", c.name),
			slog.Int("blocks", len(message.Content)),
			slog.Duration("duration", duration))
		return "", &content.ProviderError{
			Provider: c.name,
			Kind:     retry.KindUnknown,
			Err:      fmt.Errorf("claude api returned empty response"),
		}
	}

	slog.DebugContext(ctx, "claude request completed",
		slog.String("provider", c.name),
		slog.String("stop_reason", string(message.StopReason)),
		slog.Duration("duration", duration))
	return b.String(), nil
}
