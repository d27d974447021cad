package log

import (
	"io"
	"os"
	"sync"
)

var (
	mu  sync.RWMutex
	std = New(os.Stderr)
)

func standard() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// SetLogger replaces the standard logger.
func SetLogger(logger Logger) {
	mu.Lock()
	defer mu.Unlock()
	std = logger
}

// SetOutput sets the standard logger output.
func SetOutput(out io.Writer) {
	standard().SetOutput(out)
}

// SetLevel sets the standard logger level.
func SetLevel(level Level) {
	standard().SetLevel(level)
}

// GetLevel returns the standard logger level.
func GetLevel() Level {
	return standard().GetLevel()
}

// IsDebug reports whether the standard logger emits debug entries.
func IsDebug() bool {
	return GetLevel() >= DebugLevel
}

// WithError creates an entry from the standard logger and adds an error to it.
func WithError(err error) LogEntry {
	return standard().WithError(err)
}

// WithField creates an entry from the standard logger and adds a field to
// it. If you want multiple fields, use `WithFields`.
func WithField(key string, value interface{}) LogEntry {
	return standard().WithField(key, value)
}

// WithFields creates an entry from the standard logger and adds multiple
// fields to it.
func WithFields(fields Fields) LogEntry {
	return standard().WithFields(fields)
}

// Debugf logs a message at level Debug on the standard logger.
func Debugf(format string, args ...interface{}) {
	standard().Debugf(format, args...)
}

// Infof logs a message at level Info on the standard logger.
func Infof(format string, args ...interface{}) {
	standard().Infof(format, args...)
}

// Warnf logs a message at level Warn on the standard logger.
func Warnf(format string, args ...interface{}) {
	standard().Warnf(format, args...)
}

// Errorf logs a message at level Error on the standard logger.
func Errorf(format string, args ...interface{}) {
	standard().Errorf(format, args...)
}
