package recovery

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"content-agent/internal/domain/entity"
	"content-agent/internal/observability/events"
	"content-agent/internal/observability/logging"
	"content-agent/internal/observability/tracing"
)

// Stage identifies which recovery stage produced a Result.
type Stage int

const (
	// StageStrictParse means the output held a well-formed array of records.
	StageStrictParse Stage = iota + 1
	// StagePartialExtraction means items were salvaged from standalone fragments.
	StagePartialExtraction
	// StageSynthesized means items were generated from templates.
	StageSynthesized
)

// String returns the snake_case label used in logs and metrics.
func (s Stage) String() string {
	switch s {
	case StageStrictParse:
		return "strict_parse"
	case StagePartialExtraction:
		return "partial_extraction"
	case StageSynthesized:
		return "synthesized"
	default:
		return "unknown"
	}
}

// MarshalText encodes the stage as its label.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of recovery. Items always holds at least one valid item.
type Result struct {
	Items []entity.ContentItem `json:"items"`
	Stage Stage                `json:"source_stage"`

	// Degraded is true whenever StrictParse did not succeed.
	Degraded bool `json:"degraded"`
}

// Pipeline runs the recovery stages in order.
type Pipeline struct {
	synth *Synthesizer
	sink  events.Sink
}

// NewPipeline creates a Pipeline. A nil synthesizer uses the defaults and a
// nil sink discards events.
func NewPipeline(synth *Synthesizer, sink events.Sink) *Pipeline {
	if synth == nil {
		synth = NewSynthesizer(DefaultSynthCount, DefaultMaxHashtags)
	}
	if sink == nil {
		sink = events.Nop()
	}
	return &Pipeline{synth: synth, sink: sink}
}

// Recover sanitizes raw and attempts StrictParse, then PartialExtraction,
// then synthesis from niche. It never fails.
func (p *Pipeline) Recover(ctx context.Context, raw string, niche entity.Niche) Result {
	ctx, span := tracing.GetTracer().Start(ctx, "recovery.Recover")
	defer span.End()

	logger := logging.FromContext(ctx)
	text := Sanitize(raw)

	result := p.recover(ctx, logger, text, niche)

	span.SetAttributes(
		attribute.String("recovery.stage", result.Stage.String()),
		attribute.Int("recovery.items", len(result.Items)),
		attribute.Bool("recovery.degraded", result.Degraded),
	)
	p.sink.Emit(ctx, events.Event{
		Type:     events.TypeRecoveryStage,
		Stage:    result.Stage.String(),
		Items:    len(result.Items),
		Degraded: result.Degraded,
	})
	return result
}

func (p *Pipeline) recover(ctx context.Context, logger *slog.Logger, text string, niche entity.Niche) Result {
	idx := newBracketIndex(text)
	items, dropped, err := strictParseIndexed(text, idx)
	if err == nil {
		if dropped > 0 {
			logger.WarnContext(ctx, "dropped invalid records",
				slog.Int("dropped", dropped),
				slog.Int("kept", len(items)))
		}
		return Result{Items: items, Stage: StageStrictParse}
	}
	logger.DebugContext(ctx, "strict parse failed", logging.Err(err))

	items, err = partialExtractionIndexed(text, idx)
	if err == nil {
		return Result{Items: items, Stage: StagePartialExtraction, Degraded: true}
	}
	logger.DebugContext(ctx, "partial extraction failed", logging.Err(err))

	return Result{Items: p.synth.Synthesize(niche), Stage: StageSynthesized, Degraded: true}
}
