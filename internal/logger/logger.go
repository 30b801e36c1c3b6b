// Package logger wraps log/slog with the process-tracking helpers used across
// the booking backend. Attributes stored on a context with WithAttrs follow
// the request into every logger obtained through FromContext.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// ParseLevel maps a config level name onto slog. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Initialize sets up the global logger on stdout with the given level and
// format ("json" or "text").
func Initialize(level, format string) {
	InitializeWithWriter(os.Stdout, level, format)
}

// InitializeWithWriter is Initialize with a custom destination.
func InitializeWithWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
}

// Get returns the default logger
func Get() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		Initialize("info", "text")
		return Get()
	}
	return l
}

type attrsKey struct{}

// WithAttrs returns a context whose loggers carry args in addition to any
// attributes already stored on ctx.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(attrsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

// FromContext returns the default logger with the attributes stored on ctx.
func FromContext(ctx context.Context) *slog.Logger {
	if attrs, ok := ctx.Value(attrsKey{}).([]any); ok && len(attrs) > 0 {
		return Get().With(attrs...)
	}
	return Get()
}

// WithBooking returns the request logger with the booking id attached
func WithBooking(ctx context.Context, bookingID string) *slog.Logger {
	return FromContext(ctx).With("booking_id", bookingID)
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

// track logs one process-tracking event with its leading fields first.
func track(level slog.Level, msg string, lead []any, args []any) {
	l := Get()
	if !l.Enabled(context.Background(), level) {
		return
	}
	l.Log(context.Background(), level, msg, append(lead, args...)...)
}

// EnterMethod logs method entry (process tracking)
func EnterMethod(methodName string, args ...any) {
	track(slog.LevelDebug, "→ Method entered", []any{"method", methodName, "event", "enter"}, args)
}

// ExitMethod logs method exit (process tracking)
func ExitMethod(methodName string, args ...any) {
	track(slog.LevelDebug, "← Method exited", []any{"method", methodName, "event", "exit"}, args)
}

// ExitMethodWithError logs method exit with error (process tracking)
func ExitMethodWithError(methodName string, err error, args ...any) {
	track(slog.LevelError, "← Method exited with error", []any{"method", methodName, "event", "exit", "error", err}, args)
}

// DatabaseCall logs a statement about to run
func DatabaseCall(operation, query string, args ...any) {
	track(slog.LevelDebug, "→ Database call", []any{"operation", operation, "query", query}, args)
}

// DatabaseResult logs the outcome of a statement. Failures are errors.
func DatabaseResult(operation string, rowsAffected int64, err error, args ...any) {
	lead := []any{"operation", operation, "rows_affected", rowsAffected}
	if err != nil {
		track(slog.LevelError, "← Database call failed", append(lead, "error", err), args)
		return
	}
	track(slog.LevelDebug, "← Database call succeeded", lead, args)
}

// ExternalServiceCall logs a call to the payment gateway, mail or push providers
func ExternalServiceCall(service, operation string, args ...any) {
	track(slog.LevelDebug, "→ External service call", []any{"service", service, "operation", operation}, args)
}

// ExternalServiceResult logs the outcome of an external call. Failures are errors.
func ExternalServiceResult(service, operation string, err error, args ...any) {
	lead := []any{"service", service, "operation", operation}
	if err != nil {
		track(slog.LevelError, "← External service call failed", append(lead, "error", err), args)
		return
	}
	track(slog.LevelDebug, "← External service call succeeded", lead, args)
}
