package events

import (
	"context"
	"log/slog"

	"content-agent/internal/observability/logging"
)

// LogSink writes events as structured slog records.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger resolves the logger from the
// context of each event (see logging.FromContext).
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit logs e at a level matching its severity.
func (s *LogSink) Emit(ctx context.Context, e Event) {
	logger := s.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	} else if id := logging.InvocationID(ctx); id != "" {
		logger = logger.With(slog.String("invocation_id", id))
	}

	attrs := []slog.Attr{slog.String("event", string(e.Type))}
	if e.Provider != "" {
		attrs = append(attrs, slog.String("provider", e.Provider))
	}

	level := slog.LevelInfo
	msg := string(e.Type)

	switch e.Type {
	case TypeAdmissionWait:
		msg = "rate limiter admitted request"
		attrs = append(attrs, slog.Duration("wait", e.Wait))
		if e.Wait == 0 {
			level = slog.LevelDebug
		}
	case TypeRetryAttempt:
		msg = "retrying provider call"
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.Int("attempt", e.Attempt),
			slog.String("error_kind", e.Kind),
			slog.Duration("delay", e.Wait))
	case TypeProviderFailed:
		msg = "provider failed"
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.Int("attempts", e.Attempt),
			slog.String("error_kind", e.Kind))
	case TypeFallback:
		msg = "falling back to next provider"
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("next_provider", e.Next))
	case TypeProviderSucceeded:
		msg = "provider returned output"
	case TypeProvidersExhausted:
		msg = "all providers exhausted"
		level = slog.LevelError
		attrs = append(attrs, slog.Int("failures", e.Failures))
	case TypeRecoveryStage:
		msg = "recovery stage reached"
		attrs = append(attrs,
			slog.String("stage", e.Stage),
			slog.Int("items", e.Items),
			slog.Bool("degraded", e.Degraded))
		if e.Degraded {
			level = slog.LevelWarn
		}
	}

	if e.Err != nil {
		attrs = append(attrs, logging.Err(e.Err))
	}

	logger.LogAttrs(ctx, level, msg, attrs...)
}
