// Package logging builds the process loggers and carries per-request and
// per-circuit context into log records. breakerd and the guarded clients all
// log through slog; these helpers keep the handler configuration in one place.
package logging

import (
	"context"
	"log/slog"
	"os"

	"breakerkit/internal/handler/http/requestid"
)

// levelFromEnv maps LOG_LEVEL to a slog level. Unknown or unset values
// mean info.
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

func handlerOptions() *slog.HandlerOptions {
	level := levelFromEnv()
	return &slog.HandlerOptions{
		Level: level,
		// Source locations matter when chasing a state transition back to
		// the call site, but are noise at error-only verbosity.
		AddSource: level <= slog.LevelWarn,
	}
}

// NewLogger returns the JSON logger used in deployments. LOG_LEVEL selects
// debug, info (default), warn, or error.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, handlerOptions()))
}

// NewTextLogger returns a human-readable logger for running breakerd locally.
func NewTextLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, handlerOptions()))
}

// WithRequestID attaches the request ID from ctx, when one is present, so
// admin request logs line up with the breaker controls they triggered.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	id := requestid.FromContext(ctx)
	if id == "" {
		return logger
	}
	return logger.With(slog.String("request_id", id))
}

// WithCircuit tags every record with the circuit a guarded client serves.
func WithCircuit(logger *slog.Logger, circuit string) *slog.Logger {
	return logger.With(slog.String("circuit", circuit))
}

type ctxKey struct{}

// WithLogger stores a logger in the context for handlers further down.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
