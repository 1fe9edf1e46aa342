// Package contextutil carries the run-scoped logger through the pipeline.
package contextutil

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerKey contextKey = "logger"

// LoggerFromContext extracts the logger from ctx, falling back to the
// default logger when none was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctxLogger := ctx.Value(loggerKey); ctxLogger != nil {
		if l, ok := ctxLogger.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// LoggerKey returns the context key used for storing loggers in context, so
// the entrypoint can attach the configured logger once per run.
func LoggerKey() contextKey {
	return loggerKey
}
