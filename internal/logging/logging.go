// Package logging configures the process-wide structured logger.
//
// It mirrors algrv-server's internal/logger shape (a package-level default
// instance, a With() for field-scoped loggers, and a context carrier) but is
// backed by logrus rather than log/slog, following the structured-logging
// library EternisAI-enchanted-proxy uses throughout its handler layers.
package logging

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var defaultLogger = newLogger(os.Getenv("ENVIRONMENT"))

func newLogger(env string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	if env == "production" {
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(logrus.InfoLevel)
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Default returns the process-wide logger.
func Default() *logrus.Logger { return defaultLogger }

// With returns an entry carrying the given structured fields.
func With(fields logrus.Fields) *logrus.Entry { return defaultLogger.WithFields(fields) }

// FromContext returns the logger entry stashed in ctx, or a bare entry on
// the default logger if none was attached.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(defaultLogger)
}

// WithContext attaches entry to ctx so downstream calls can recover it via
// FromContext.
func WithContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}
