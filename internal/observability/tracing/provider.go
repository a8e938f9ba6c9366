package tracing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Setup installs a global TracerProvider sampling ratio of new traces and
// honouring the sampling decision of remote parents. Failed spans are logged
// at debug level. The returned function flushes and shuts the provider down.
func Setup(ratio float64, logger *slog.Logger, opts ...sdktrace.TracerProviderOption) func(context.Context) error {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithSpanProcessor(&errorSpanLogger{logger: logger}),
	}, opts...)

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// errorSpanLogger logs spans that ended with an error status.
type errorSpanLogger struct {
	logger *slog.Logger
}

func (p *errorSpanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *errorSpanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	if s.Status().Code != codes.Error {
		return
	}
	p.logger.Debug("span failed",
		slog.String("span", s.Name()),
		slog.String("trace_id", s.SpanContext().TraceID().String()),
		slog.String("status", s.Status().Description),
		slog.Duration("duration", s.EndTime().Sub(s.StartTime())))
}

func (p *errorSpanLogger) Shutdown(context.Context) error { return nil }

func (p *errorSpanLogger) ForceFlush(context.Context) error { return nil }
