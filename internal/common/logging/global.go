package logging

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stdLogger serves code that runs before ConfigureApplicationLogging, such as config loading, and the
// package level helpers below.
var stdLogger atomic.Pointer[Logger]

func init() {
	stdLogger.Store(newDefaultLogger())
}

// ReplaceStdLogger swaps the global logger. ConfigureApplicationLogging calls it once the config is known.
func ReplaceStdLogger(l *Logger) {
	stdLogger.Store(l)
}

func StdLogger() *Logger {
	return stdLogger.Load()
}

func Debugf(format string, args ...any) {
	StdLogger().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	StdLogger().Infof(format, args...)
}

func Errorf(format string, args ...any) {
	StdLogger().Errorf(format, args...)
}

func WithField(key string, value any) *Logger {
	return StdLogger().WithField(key, value)
}

func WithError(err error) *Logger {
	return StdLogger().WithError(err)
}

// newDefaultLogger writes text at info level to stdout, the same as an unconfigured application logger.
func newDefaultLogger() *Logger {
	core := zapcore.NewCore(newEncoder(FormatText), zapcore.Lock(os.Stdout), zapcore.InfoLevel)
	return FromZap(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)))
}
