package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// TraceKey is the context key the api layer stores the request trace id under.
// It mirrors config.TRACE_ID_KEY; logger_i cannot import config without a cycle.
const TraceKey = "traceId"

type Logger struct {
	inner *slog.Logger
}

// Init installs the process-wide slog handler. JSON in prod, text otherwise.
func Init(level string, isProd bool) {
	InitWithWriter(os.Stdout, level, isProd)
}

func InitWithWriter(w io.Writer, level string, isProd bool) {
	options := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if isProd {
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}
	slog.SetDefault(slog.New(handler))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func NewLogger(section string) *Logger {
	return &Logger{
		inner: slog.Default().With("component", section),
	}
}

func (l *Logger) Info(msg string, args ...any) {
	l.inner.Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.inner.Error(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.inner.Warn(msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.inner.Debug(msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		inner: l.inner.With(args...),
	}
}

// WithTrace returns a child logger tagged with the trace id carried by ctx, if any.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	if trace, ok := ctx.Value(TraceKey).(string); ok && trace != "" {
		return l.With("traceId", trace)
	}
	return l
}
