package utils

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger provides leveled, printf-style logging throughout the application.
type Logger struct {
	l *log.Logger
}

// NewLoggerTo creates a Logger writing to w at the named level
// (debug, info, warn, error). Unknown levels fall back to info.
func NewLoggerTo(w io.Writer, level string) *Logger {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	return &Logger{l: log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
	})}
}

// NewNopLogger returns a Logger that drops everything below error to io.Discard.
func NewNopLogger() *Logger {
	return NewLoggerTo(io.Discard, "error")
}

// With returns a child logger carrying the given key/value pair on every line.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{l: l.l.With(key, value)}
}

func (l *Logger) Info(format string, args ...any) {
	l.l.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.l.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.l.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.l.Debugf(format, args...)
}
