package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// slogLogger implements Logger on top of log/slog.
type slogLogger struct {
	logger  *slog.Logger
	verbose bool
	out     io.Writer
}

// NewLogger returns a Logger writing to stdout. With json set, records are
// emitted as JSON lines; otherwise as logfmt-style text. Verbose enables
// debug-level records.
func NewLogger(verbose, json bool) Logger {
	return newLoggerTo(os.Stdout, verbose, json)
}

func newLoggerTo(out io.Writer, verbose, json bool) Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &slogLogger{
		logger:  slog.New(handler),
		verbose: verbose,
		out:     out,
	}
}

func (l *slogLogger) Debug(msg string) {
	l.logger.Debug(msg)
}

func (l *slogLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *slogLogger) Info(msg string) {
	l.logger.Info(msg)
}

func (l *slogLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *slogLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *slogLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *slogLogger) WithField(key string, value interface{}) Logger {
	return &slogLogger{
		logger:  l.logger.With(key, value),
		verbose: l.verbose,
		out:     l.out,
	}
}

// HTTPLoggingHandler returns the writer used for HTTP access logs, or nil
// when access logging is disabled. Access logs are only emitted in verbose
// mode; they are too chatty for normal operation.
func (l *slogLogger) HTTPLoggingHandler() io.Writer {
	if !l.verbose {
		return nil
	}

	return l.out
}
