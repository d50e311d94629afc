package common

import "io"

// Logger is the logging interface used throughout the coordinator. The core
// never logs to a concrete sink itself; a Logger is injected everywhere one
// is needed.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	HTTPLoggingHandler() io.Writer
}
