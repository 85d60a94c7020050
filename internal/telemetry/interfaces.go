// Package telemetry holds the narrow logging seam between the overlay
// process wiring and callers that hand in a plain standard-library logger.
package telemetry

import "log"

// Logger is the minimal surface the process bootstrap logs through before
// the structured router is up.
type Logger interface {
	Printf(format string, args ...any)
}

// WrapLogger adapts a standard library logger to the Logger interface. A nil
// logger yields a silent implementation.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}
