package fmgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with fmgo-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithModel adds the model variant field to the logger.
func (l *Logger) WithModel(model string) *Logger {
	return &Logger{
		Logger: l.Logger.With("model", model),
	}
}

// LogFit logs a fit operation.
func (l *Logger) LogFit(ctx context.Context, rows, cols int, refit bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fit failed",
			"rows", rows,
			"cols", cols,
			"refit", refit,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "fit completed",
			"rows", rows,
			"cols", cols,
			"refit", refit,
		)
	}
}

// LogPredict logs a predict operation.
func (l *Logger) LogPredict(ctx context.Context, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "predict failed",
			"rows", rows,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "predict completed",
			"rows", rows,
		)
	}
}

// LogDispose logs a dispose operation.
func (l *Logger) LogDispose(ctx context.Context, hadHandle bool) {
	l.DebugContext(ctx, "model disposed",
		"had_handle", hadHandle,
	)
}

// LogLeakReclaim logs the safety-net release of an engine handle whose
// owner was garbage collected without Dispose.
func (l *Logger) LogLeakReclaim(handle uint64) {
	l.Warn("engine handle reclaimed by garbage collector; call Dispose explicitly",
		"handle", handle,
	)
}
