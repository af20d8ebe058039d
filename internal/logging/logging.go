// Package logging is a small leveled wrapper over the standard logger.
// Output goes to stderr by default because stdout carries the MCP protocol.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Logger writes leveled lines with a [LEVEL] prefix
type Logger struct {
	out     *log.Logger
	verbose atomic.Bool
}

// New creates a logger writing to w
func New(w io.Writer) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags)}
}

var std = New(os.Stderr)

// Default returns the process-wide logger
func Default() *Logger {
	return std
}

// SetOutput redirects the logger
func (l *Logger) SetOutput(w io.Writer) {
	l.out.SetOutput(w)
}

// SetVerbose enables debug output
func (l *Logger) SetVerbose(v bool) {
	l.verbose.Store(v)
}

// Verbose reports whether debug output is enabled
func (l *Logger) Verbose() bool {
	return l.verbose.Load()
}

func (l *Logger) logf(level, format string, args ...any) {
	_ = l.out.Output(3, "["+level+"] "+fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.verbose.Load() {
		l.logf("DEBUG", format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	l.logf("INFO", format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logf("WARN", format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logf("ERROR", format, args...)
}

// Package-level helpers on the default logger

func SetOutput(w io.Writer) { std.SetOutput(w) }
func SetVerbose(v bool)     { std.SetVerbose(v) }

func Debugf(format string, args ...any) {
	if std.verbose.Load() {
		std.logf("DEBUG", format, args...)
	}
}

func Infof(format string, args ...any)  { std.logf("INFO", format, args...) }
func Warnf(format string, args ...any)  { std.logf("WARN", format, args...) }
func Errorf(format string, args ...any) { std.logf("ERROR", format, args...) }
