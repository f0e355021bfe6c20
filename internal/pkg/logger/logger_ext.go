package logger

import (
	"go.uber.org/zap"
)

// Logger wraps zap.Logger so call sites report the caller of the wrapper,
// not the wrapper itself.
type Logger struct {
	*zap.Logger
}

// Wrap turns a zap.Logger into a Logger.
func Wrap(zl *zap.Logger) *Logger {
	return &Logger{Logger: zl}
}

// Skip returns a Logger that skips the given number of stack frames when
// resolving the caller.
func (l *Logger) Skip(skip int) *Logger {
	if skip <= 0 {
		return l
	}
	return &Logger{Logger: l.Logger.WithOptions(zap.AddCallerSkip(skip))}
}

// Debug logs at DebugLevel, attributing the caller of this method.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.Logger.WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Info logs at InfoLevel, attributing the caller of this method.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.Logger.WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Warn logs at WarnLevel, attributing the caller of this method.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.Logger.WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

// Error logs at ErrorLevel, attributing the caller of this method.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.Logger.WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// With adds fields and returns a new Logger.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named adds a name segment and returns a new Logger.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}
