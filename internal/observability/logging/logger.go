package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger creates a new structured logger with JSON output.
// The log level can be controlled via the LOG_LEVEL environment variable.
// Supported levels: debug, info, warn, error
// Default level: info
func NewLogger() *slog.Logger {
	return newLogger(os.Stdout, true)
}

// NewTextLogger creates a new structured logger with human-readable, colored
// text output. This is useful for local development and the plan CLI. It
// writes to stderr so that stdout stays free for command output. Setting
// NO_COLOR disables colors.
func NewTextLogger() *slog.Logger {
	return newLogger(os.Stderr, false)
}

func newLogger(w io.Writer, json bool) *slog.Logger {
	logLevel := levelFromEnv()
	opts := &slog.HandlerOptions{
		Level: logLevel,
		// Add source code location when debugging
		AddSource: logLevel <= slog.LevelDebug,
	}

	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		AddSource:  opts.AddSource,
		TimeFormat: time.RFC3339,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}))
}

func levelFromEnv() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithInvocationID stores the invocation id in the context and attaches it to
// the context logger, so every log entry of one GenerateContentPlan call can
// be correlated.
func WithInvocationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, invocationIDContextKey, id)
	return WithLogger(ctx, FromContext(ctx).With("invocation_id", id))
}

// InvocationID returns the invocation id carried by ctx, or "" if none.
func InvocationID(ctx context.Context) string {
	if id, ok := ctx.Value(invocationIDContextKey).(string); ok {
		return id
	}
	return ""
}

// FromContext retrieves the logger from the context, or returns the default logger if not found.
// This enables passing loggers through the application via context.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

type contextKey string

const (
	loggerContextKey       contextKey = "logger"
	invocationIDContextKey contextKey = "invocation_id"
)
