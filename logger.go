package annostore

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with annostore-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithID adds an ID field to the logger (useful for tagging operations).
func (l *Logger) WithID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", id),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogAdd logs an add operation.
func (l *Logger) LogAdd(ctx context.Context, id, typ string, pending bool, err error) {
	ll := l.WithID(id)
	if err != nil {
		ll.ErrorContext(ctx, "add failed",
			"type", typ,
			"error", err,
		)
	} else {
		ll.DebugContext(ctx, "add completed",
			"type", typ,
			"pending", pending,
		)
	}
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(ctx context.Context, id string, err error) {
	ll := l.WithID(id)
	if err != nil {
		ll.ErrorContext(ctx, "update failed",
			"error", err,
		)
	} else {
		ll.DebugContext(ctx, "update completed")
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, id string, nullify bool) {
	l.WithID(id).DebugContext(ctx, "delete completed",
		"nullify", nullify,
	)
}

// LogRestore logs a restore from persisted data.
func (l *Logger) LogRestore(ctx context.Context, restored, skipped int, generation uint64, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "restore failed",
			"error", err,
		)
	case skipped > 0:
		l.WithCount(restored).WarnContext(ctx, "restore completed with skipped entries",
			"skipped", skipped,
			"generation", generation,
		)
	default:
		l.WithCount(restored).InfoContext(ctx, "restore completed",
			"generation", generation,
		)
	}
}

// LogSave logs a snapshot save.
func (l *Logger) LogSave(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "save completed",
			"name", name,
		)
	}
}
