package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"content-agent/internal/observability/logging"
	"content-agent/internal/resilience/circuitbreaker"
	"content-agent/internal/resilience/retry"
	"content-agent/internal/usecase/content"
)

// flavor holds the defaults of one OpenAI compatible vendor.
type flavor struct {
	baseURL    string
	model      string
	quotaCodes []string
}

var flavors = map[string]flavor{
	TypeOpenAI: {
		model:      "gpt-4o-mini",
		quotaCodes: []string{"insufficient_quota"},
	},
	TypeDeepSeek: {
		baseURL: "https://api.deepseek.com/v1",
		model:   "deepseek-chat",
	},
	TypeZAI: {
		baseURL: "https://open.bigmodel.cn/api/paas/v4",
		model:   "glm-4",
		// 1113: account balance exhausted.
		quotaCodes: []string{"1113"},
	},
	TypeGemini: {
		baseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		model:   "gemini-2.0-flash",
	},
}

// OpenAICompatible implements content.Provider for any chat completions API
// speaking the OpenAI protocol.
type OpenAICompatible struct {
	name       string
	client     *openai.Client
	model      string
	maxTokens  int
	quotaCodes []string
	breaker    *circuitbreaker.CircuitBreaker
	metrics    MetricsRecorder
}

// NewOpenAICompatible creates an adapter for cfg.ResolvedType(), one of
// openai, deepseek, zai or gemini. Model and BaseURL default per vendor.
func NewOpenAICompatible(cfg Config, opts ...Option) (*OpenAICompatible, error) {
	f, ok := flavors[cfg.ResolvedType()]
	if !ok {
		return nil, fmt.Errorf("provider %s: %q is not an OpenAI compatible type", cfg.Name, cfg.ResolvedType())
	}
	o, breaker := buildOptions(cfg.Name, opts)

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		clientCfg.BaseURL = cfg.BaseURL
	case f.baseURL != "":
		clientCfg.BaseURL = f.baseURL
	}
	if o.httpClient != nil {
		clientCfg.HTTPClient = o.httpClient
	}

	model := cfg.Model
	if model == "" {
		model = f.model
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	slog.Info("Initialized OpenAI compatible provider",
		slog.String("provider", cfg.Name),
		slog.String("type", cfg.ResolvedType()),
		slog.String("model", model),
		slog.String("base_url", clientCfg.BaseURL))

	return &OpenAICompatible{
		name:       cfg.Name,
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		maxTokens:  maxTokens,
		quotaCodes: f.quotaCodes,
		breaker:    breaker,
		metrics:    o.metrics,
	}, nil
}

// Name returns the provider name.
func (o *OpenAICompatible) Name() string {
	return o.name
}

// BreakerOpen reports whether the circuit breaker currently rejects calls.
func (o *OpenAICompatible) BreakerOpen() bool {
	return o.breaker.IsOpen()
}

// Invoke sends prompt as a user message and returns the first choice.
func (o *OpenAICompatible) Invoke(ctx context.Context, prompt string) (string, error) {
	return guard(ctx, o.name, o.breaker, o.metrics, func() (string, error) {
		return o.complete(ctx, prompt)
	})
}

// complete performs the actual API call without circuit breaker.
func (o *OpenAICompatible) complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	duration := time.Since(start)

	if err != nil {
		classified := classifyOpenAI(o.name, o.quotaCodes, err)
		slog.ErrorContext(ctx, "chat completion failed",
			slog.String("provider", o.name),
			slog.String("error_kind", retry.KindOf(classified).String()),
			slog.Duration("duration", duration),
			logging.Err(err))
		return "", classified
	}

	// Validate response structure (safety check to prevent panic on array access)
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		slog.ErrorContext(ctx, "chat completion returned empty response",
			slog.String("provider", o.name),
			slog.Duration("duration", duration))
		return "", &content.ProviderError{
			Provider: o.name,
			Kind:     retry.KindUnknown,
			Err:      fmt.Errorf("%s api returned empty response", o.name),
		}
	}

	slog.DebugContext(ctx, "chat completion completed",
		slog.String("provider", o.name),
		slog.String("finish_reason", string(resp.Choices[0].FinishReason)),
		slog.Duration("duration", duration))
	return resp.Choices[0].Message.Content, nil
}
