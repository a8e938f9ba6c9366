// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Invocation ID propagation
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "content-agent/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started", slog.String("version", "1.0"))
//	}
//
//	func generate(ctx context.Context) {
//	    ctx = logging.WithInvocationID(ctx, uuid.NewString())
//	    logging.FromContext(ctx).Info("generating content plan")
//	}
package logging
