package tracing

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"content-agent/internal/observability/logging"
)

// Name is the instrumentation scope of every span created by the agent.
const Name = "content-agent"

// GetTracer returns the tracer for creating spans.
// It resolves the global provider on each call, so a TracerProvider installed
// after package initialisation (as tests do) is honoured.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(Name)
}

// RecordError records err on span as an exception event with API keys and
// credentials masked.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(errors.New(logging.RedactError(err)))
}
