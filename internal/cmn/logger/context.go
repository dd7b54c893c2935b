package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithLogger returns a new context with the given logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// WithValues returns a context whose logger carries the given attributes.
func WithValues(ctx context.Context, attrs ...slog.Attr) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(attrs...))
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) Logger {
	if value, ok := ctx.Value(contextKey{}).(Logger); ok {
		return value
	}
	return defaultLogger
}

// Debug logs a message with debug level.
func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelDebug, msg, attrs)
}

// Info logs a message with info level.
func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelInfo, msg, attrs)
}

// Warn logs a message with warn level.
func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelWarn, msg, attrs)
}

// Error logs a message with error level.
func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelError, msg, attrs)
}

func logAt(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	l := FromContext(ctx)
	if app, ok := l.(*appLogger); ok {
		app.log(level, msg, attrs, 1)
		return
	}
	switch level {
	case slog.LevelDebug:
		l.Debug(msg, attrs...)
	case slog.LevelWarn:
		l.Warn(msg, attrs...)
	case slog.LevelError:
		l.Error(msg, attrs...)
	default:
		l.Info(msg, attrs...)
	}
}
