// Package logger provides structured logging for wiki2docs.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	// Default to discarding debug logs
	current.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}

// Options configures the logger.
type Options struct {
	Debug  bool         // Enable debug level logging
	Quiet  bool         // Only show errors
	JSON   bool         // Output as JSON
	Output io.Writer    // Output destination (default: stderr)
	Logger *slog.Logger // Custom logger (overrides all other options)
}

// Init initializes the logger with the specified options.
func Init(opts Options) {
	// If a custom logger is provided, use it directly
	if opts.Logger != nil {
		current.Store(opts.Logger)
		return
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	if opts.Quiet {
		level = slog.LevelError
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(output, handlerOpts)
	}

	current.Store(slog.New(handler))
}

// SetLogger sets a custom slog.Logger, for embedding the migration in an
// application that already configures logging.
func SetLogger(l *slog.Logger) {
	current.Store(l)
}

// Enabled reports whether messages at level would be written.
func Enabled(level slog.Level) bool {
	return current.Load().Enabled(context.Background(), level)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) { current.Load().Debug(msg, args...) }

// Info logs an info message.
func Info(msg string, args ...any) { current.Load().Info(msg, args...) }

// Warn logs a warning message.
func Warn(msg string, args ...any) { current.Load().Warn(msg, args...) }

// Error logs an error message.
func Error(msg string, args ...any) { current.Load().Error(msg, args...) }

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return current.Load().With(args...)
}

// DebugContext logs a debug message with context.
func DebugContext(ctx context.Context, msg string, args ...any) {
	current.Load().DebugContext(ctx, msg, args...)
}

// InfoContext logs an info message with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	current.Load().InfoContext(ctx, msg, args...)
}

// WarnContext logs a warning message with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	current.Load().WarnContext(ctx, msg, args...)
}

// ErrorContext logs an error message with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	current.Load().ErrorContext(ctx, msg, args...)
}
