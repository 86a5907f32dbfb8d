package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// CorrelationIDKey is the gin context key holding the request correlation id
const CorrelationIDKey = "correlation_id"

// Logger wraps logrus with correlation-aware helpers
type Logger struct {
	*logrus.Logger
}

// New builds a logger for the given level and format ("json" or "text")
func New(level, format string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Logger{Logger: l}
}

// NewDefault returns an info-level JSON logger
func NewDefault() *Logger {
	return New("info", "json")
}

// Discard returns a logger that drops everything, used in tests
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}

// WithCorrelationID stores a correlation id in ctx
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// CorrelationID returns the correlation id stored in ctx, if any
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// FromContext returns an entry tagged with the request correlation id
func (l *Logger) FromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(l.Logger)
	if id := CorrelationID(ctx); id != "" {
		entry = entry.WithField(CorrelationIDKey, id)
	}
	return entry
}
