package bitmat

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with bitmat-specific operation helpers.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithName adds a matrix name field to the logger.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("name", name),
	}
}

// LogQuantize logs a quantization.
func (l *Logger) LogQuantize(ctx context.Context, rows, elems, quantBits int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "quantize failed",
			"rows", rows,
			"elems", elems,
			"quant_bits", quantBits,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "quantize completed",
		"rows", rows,
		"elems", elems,
		"quant_bits", quantBits,
		"duration", duration,
	)
}

// LogMultiply logs a matrix multiply.
func (l *Logger) LogMultiply(ctx context.Context, rows, cols, words int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "multiply failed",
			"rows", rows,
			"cols", cols,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "multiply completed",
		"rows", rows,
		"cols", cols,
		"words", words,
		"duration", duration,
	)
}

// LogSave logs a save to the blob store.
func (l *Logger) LogSave(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "matrix saved",
		"name", name,
	)
}

// LogLoad logs a load from the blob store.
func (l *Logger) LogLoad(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "matrix loaded",
		"name", name,
	)
}
