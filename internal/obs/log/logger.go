// Package log provides structured logging with trace/connection ID propagation
// for the realm server.
package log

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys carried alongside a request/tick.
type ContextKey string

const (
	// TraceIDKey is the context key for a request/command trace ID.
	TraceIDKey ContextKey = "trace_id"
	// ConnectionIDKey is the context key for the originating network connection.
	ConnectionIDKey ContextKey = "connection_id"
	// RealmKey is the context key for the realm name.
	RealmKey ContextKey = "realm"
)

// Logger wraps logrus.Logger with realm-server specific helpers.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a new Logger instance for the named component.
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, component: component}
}

// NewFromEnv constructs a logger using LOG_LEVEL and LOG_FORMAT environment
// variables, defaulting to "info" and "text".
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "text"
	}
	return New(component, level, format)
}

// WithContext returns a logrus entry carrying any trace/connection/realm
// values found on ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)
	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		entry = entry.WithField("trace_id", traceID)
	}
	if connID := ctx.Value(ConnectionIDKey); connID != nil {
		entry = entry.WithField("connection_id", connID)
	}
	if realm := ctx.Value(RealmKey); realm != nil {
		entry = entry.WithField("realm", realm)
	}
	return entry
}

// WithField returns a new entry tagged with the component and the given field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{"component": l.component, key: value})
}

// WithFields returns a new entry tagged with the component and the given fields.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	tagged := logrus.Fields{"component": l.component}
	for k, v := range fields {
		tagged[k] = v
	}
	return l.Logger.WithFields(tagged)
}

// WithError returns a new entry tagged with the component and an error field.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{"component": l.component, "error": err.Error()})
}

// NewTraceID generates a new trace ID for a command or connection.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID attaches a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithConnectionID attaches a connection ID to the context.
func WithConnectionID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, ConnectionIDKey, id)
}

// WithRealm attaches a realm name to the context.
func WithRealm(ctx context.Context, realm string) context.Context {
	return context.WithValue(ctx, RealmKey, realm)
}
