// Package observability provides the observability infrastructure of the content agent
// including structured logging, Prometheus metrics, OpenTelemetry tracing and
// the structured event sink fed by the invocation chain.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - tracing: OpenTelemetry tracer accessor
//   - events: Event sink interface with slog, Prometheus and recording implementations
//
// Example usage:
//
//	import (
//	    "content-agent/internal/observability/events"
//	    "content-agent/internal/observability/logging"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    sink := events.Multi(events.NewLogSink(logger), events.NewMetricsSink())
//	    _ = sink
//	}
package observability
