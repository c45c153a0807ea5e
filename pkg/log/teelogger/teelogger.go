// Package teelogger sends every log line to several go-kit loggers.
package teelogger

import (
	"github.com/go-kit/kit/log"
)

type teeLogger struct {
	loggers []log.Logger
}

// New returns a logger writing to each of loggers. nil loggers are
// skipped, so optional sinks can be passed unconditionally.
func New(loggers ...log.Logger) log.Logger {
	l := &teeLogger{}
	for _, logger := range loggers {
		if logger == nil {
			continue
		}
		l.loggers = append(l.loggers, logger)
	}
	return l
}

// Log writes to every logger, even after a failure. The last error is
// returned.
func (l *teeLogger) Log(keyvals ...interface{}) error {
	var lastErr error
	for _, logger := range l.loggers {
		if err := logger.Log(keyvals...); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
