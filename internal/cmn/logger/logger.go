package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the structured logger used across nbsynth.
type Logger interface {
	Debug(msg string, attrs ...slog.Attr)
	Info(msg string, attrs ...slog.Attr)
	Warn(msg string, attrs ...slog.Attr)
	Error(msg string, attrs ...slog.Attr)

	With(attrs ...slog.Attr) Logger
}

var _ Logger = (*appLogger)(nil)

type appLogger struct {
	logger *slog.Logger
	debug  bool
}

// Config holds the options a Logger is built from.
type Config struct {
	debug   bool
	format  string
	writers []io.Writer
	quiet   bool
	stderr  io.Writer
}

// Option configures a Logger.
type Option func(*Config)

// WithDebug sets the level of the logger to debug.
func WithDebug() Option {
	return func(o *Config) {
		o.debug = true
	}
}

// WithFormat sets the format of the logger (text or json).
func WithFormat(format string) Option {
	return func(o *Config) {
		o.format = format
	}
}

// WithWriter adds a writer (usually a log file) the logger writes to in
// addition to stderr. It can be given more than once.
func WithWriter(w io.Writer) Option {
	return func(o *Config) {
		if w != nil {
			o.writers = append(o.writers, w)
		}
	}
}

// WithQuiet suppresses output to stderr.
func WithQuiet() Option {
	return func(o *Config) {
		o.quiet = true
	}
}

// WithConsole replaces stderr as the console destination. Used in tests.
func WithConsole(w io.Writer) Option {
	return func(o *Config) {
		o.stderr = w
	}
}

var defaultLogger = NewLogger(WithFormat("text"))

// Default returns the process-wide fallback logger.
func Default() Logger {
	return defaultLogger
}

// NewLogger builds a Logger from the given options.
func NewLogger(opts ...Option) Logger {
	cfg := &Config{stderr: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.debug,
	}

	var handlers []slog.Handler
	if !cfg.quiet {
		handlers = append(handlers, newHandler(cfg.stderr, cfg.format, handlerOpts))
	}
	for _, w := range cfg.writers {
		handlers = append(handlers, newHandler(w, cfg.format, handlerOpts))
	}

	return &appLogger{
		logger: slog.New(slogmulti.Fanout(handlers...)),
		debug:  cfg.debug,
	}
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Debug implements Logger.
func (a *appLogger) Debug(msg string, attrs ...slog.Attr) {
	a.log(slog.LevelDebug, msg, attrs, 0)
}

// Info implements Logger.
func (a *appLogger) Info(msg string, attrs ...slog.Attr) {
	a.log(slog.LevelInfo, msg, attrs, 0)
}

// Warn implements Logger.
func (a *appLogger) Warn(msg string, attrs ...slog.Attr) {
	a.log(slog.LevelWarn, msg, attrs, 0)
}

// Error implements Logger.
func (a *appLogger) Error(msg string, attrs ...slog.Attr) {
	a.log(slog.LevelError, msg, attrs, 0)
}

// log records the message with the caller's program counter so that
// AddSource points at the call site instead of this package.
func (a *appLogger) log(level slog.Level, msg string, attrs []slog.Attr, depth int) {
	ctx := context.Background()
	if !a.logger.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	if a.debug {
		var pcs [1]uintptr
		// Skip runtime.Callers, log and the Logger method or package helper.
		runtime.Callers(3+depth, pcs[:])
		pc = pcs[0]
	}

	record := slog.NewRecord(time.Now(), level, msg, pc)
	record.AddAttrs(attrs...)
	_ = a.logger.Handler().Handle(ctx, record)
}

// With implements Logger.
func (a *appLogger) With(attrs ...slog.Attr) Logger {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return &appLogger{
		logger: a.logger.With(args...),
		debug:  a.debug,
	}
}
