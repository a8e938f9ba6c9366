// Package content is the resilient invocation layer in front of the language
// model providers: an ordered fallback chain with per-provider rate limiting
// and retries, followed by structured recovery of the returned text.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"content-agent/internal/domain/entity"
	"content-agent/internal/observability/logging"
	"content-agent/internal/observability/metrics"
	"content-agent/internal/observability/tracing"
	"content-agent/internal/recovery"
)

// Invoker returns raw output from the first provider that answers. *Chain implements it.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (raw string, provider string, err error)
}

// Recoverer turns raw output into valid items. *recovery.Pipeline implements it.
type Recoverer interface {
	Recover(ctx context.Context, raw string, niche entity.Niche) recovery.Result
}

// Result is a generated content plan.
type Result struct {
	Items    []entity.ContentItem `json:"items"`
	Stage    recovery.Stage       `json:"source_stage"`
	Degraded bool                 `json:"degraded"`

	// Provider is the provider whose output the plan was recovered from.
	Provider     string `json:"provider"`
	InvocationID string `json:"invocation_id"`
}

// Service is the entry point for content plan generation.
type Service struct {
	invoker   Invoker
	recoverer Recoverer
}

// NewService creates a Service. A nil recoverer uses recovery.NewPipeline(nil, nil).
func NewService(invoker Invoker, recoverer Recoverer) *Service {
	if recoverer == nil {
		recoverer = recovery.NewPipeline(nil, nil)
	}
	return &Service{invoker: invoker, recoverer: recoverer}
}

// GenerateContentPlan obtains model output for prompt and recovers a valid
// plan from it. An empty prompt is built from niche with BuildPrompt.
//
// Malformed output never fails the call; it degrades to partial extraction
// or synthesized items instead. The returned error matches
// ErrAllProvidersExhausted when no provider produced output, or wraps the
// context error when ctx was cancelled.
//
// Example:
//
//	plan, err := svc.GenerateContentPlan(ctx, "", entity.Niche{Name: "coffee"})
//	if errors.Is(err, content.ErrAllProvidersExhausted) {
//	    // every provider failed; retry at the next tick
//	}
func (s *Service) GenerateContentPlan(ctx context.Context, prompt string, niche entity.Niche) (*Result, error) {
	start := time.Now()
	invocationID := uuid.NewString()
	ctx = logging.WithInvocationID(ctx, invocationID)
	logger := logging.FromContext(ctx)

	niche = niche.WithDefaults()

	ctx, span := tracing.GetTracer().Start(ctx, "content.GenerateContentPlan",
		trace.WithAttributes(
			attribute.String("invocation_id", invocationID),
			attribute.String("niche", niche.Name)))
	defer span.End()

	if strings.TrimSpace(prompt) == "" {
		prompt = BuildPrompt(niche)
	}

	raw, provider, err := s.invoker.Invoke(ctx, prompt)
	if err != nil {
		metrics.RecordPlanDuration(time.Since(start), false)
		tracing.RecordError(span, err)
		span.SetStatus(codes.Error, logging.RedactError(err))
		logger.ErrorContext(ctx, "content plan generation failed",
			slog.String("niche", niche.Name),
			slog.Duration("duration", time.Since(start)),
			logging.Err(err))
		return nil, fmt.Errorf("generate content plan: %w", err)
	}

	recovered := s.recoverer.Recover(ctx, raw, niche)

	duration := time.Since(start)
	metrics.RecordPlanDuration(duration, true)
	span.SetAttributes(
		attribute.String("provider", provider),
		attribute.String("recovery.stage", recovered.Stage.String()),
		attribute.Bool("recovery.degraded", recovered.Degraded))
	logger.InfoContext(ctx, "content plan generated",
		slog.String("niche", niche.Name),
		slog.String("provider", provider),
		slog.String("stage", recovered.Stage.String()),
		slog.Bool("degraded", recovered.Degraded),
		slog.Int("items", len(recovered.Items)),
		slog.Duration("duration", duration))

	return &Result{
		Items:        recovered.Items,
		Stage:        recovered.Stage,
		Degraded:     recovered.Degraded,
		Provider:     provider,
		InvocationID: invocationID,
	}, nil
}
