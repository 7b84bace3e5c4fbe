package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const stacktraceKey = "stacktrace"

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Logger wraps a zap.SugaredLogger so that callers don't need to depend on zap directly.
type Logger struct {
	underlying *zap.SugaredLogger
}

// FromZap returns a new Logger backed by the supplied zap logger
func FromZap(l *zap.Logger) *Logger {
	return &Logger{underlying: l.Sugar()}
}

// Debug logs a message at level Debug
func (l *Logger) Debug(args ...any) {
	l.underlying.Debug(args...)
}

// Info logs a message at level Info
func (l *Logger) Info(args ...any) {
	l.underlying.Info(args...)
}

// Warn logs a message at level Warn
func (l *Logger) Warn(args ...any) {
	l.underlying.Warn(args...)
}

// Error logs a message at level Error
func (l *Logger) Error(args ...any) {
	l.underlying.Error(args...)
}

// Debugf logs a message at level Debug.
func (l *Logger) Debugf(format string, args ...any) {
	l.underlying.Debugf(format, args...)
}

// Infof logs a message at level Info.
func (l *Logger) Infof(format string, args ...any) {
	l.underlying.Infof(format, args...)
}

// Warnf logs a message at level Warn.
func (l *Logger) Warnf(format string, args ...any) {
	l.underlying.Warnf(format, args...)
}

// Errorf logs a message at level Error.
func (l *Logger) Errorf(format string, args ...any) {
	l.underlying.Errorf(format, args...)
}

// WithField returns a new Logger with the key-value pair added as a new field
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{underlying: l.underlying.With(key, value)}
}

// WithFields returns a new Logger with all key-value pairs in the map added as new fields
func (l *Logger) WithFields(args map[string]any) *Logger {
	fields := make([]any, 0, len(args)*2)
	for key, value := range args {
		fields = append(fields, key, value)
	}
	return &Logger{underlying: l.underlying.With(fields...)}
}

// WithError returns a new Logger with the error added as a field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{underlying: l.underlying.With("error", err.Error())}
}

// WithStacktrace returns a new Logger with the error and, if one is recorded anywhere in its chain, the
// innermost stacktrace of pkg/errors added as fields.
func (l *Logger) WithStacktrace(err error) *Logger {
	logger := l.WithError(err)
	if stack := stackOf(err); stack != nil {
		return logger.WithField(stacktraceKey, stack)
	}
	return logger
}

// stackOf follows both Unwrap and Cause links, so typed errors such as a dispatch failure are looked through too.
func stackOf(err error) errors.StackTrace {
	var stack errors.StackTrace
	for err != nil {
		if tracer, ok := err.(stackTracer); ok {
			stack = tracer.StackTrace()
		}
		next := errors.Unwrap(err)
		if next == nil {
			next = errors.Cause(err)
			if next == err {
				break
			}
		}
		err = next
	}
	return stack
}
