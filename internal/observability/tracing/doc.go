// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created around each content plan invocation, each provider
// attempt and the recovery pipeline. Processes call Setup once to install a
// sampling TracerProvider; without it the global no-op provider is used.
//
// Example usage:
//
//	func invoke(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "provider.invoke")
//	    defer span.End()
//	    // ... call provider ...
//	}
package tracing
