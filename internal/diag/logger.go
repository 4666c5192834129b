// Package diag provides the diagnostic logger used across the pipeline. Every line
// carries the correlation id of the request that produced it.
package diag

import (
	"fmt"
	"io"
	"log"
)

// Logger writes leveled diagnostics. Debug lines are emitted only when verbose.
// The zero value and a nil *Logger discard everything.
type Logger struct {
	out     *log.Logger
	verbose bool
	traceID string
}

// New returns a Logger writing to w with standard timestamps.
func New(w io.Writer, verbose bool) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{out: log.New(w, "", log.LstdFlags), verbose: verbose}
}

// Discard returns a Logger that drops every line.
func Discard() *Logger { return New(io.Discard, false) }

// With returns a copy of l tagged with traceID.
func (l *Logger) With(traceID string) *Logger {
	if l == nil {
		return nil
	}
	cp := *l
	cp.traceID = traceID
	return &cp
}

// Verbose reports whether debug output is enabled.
func (l *Logger) Verbose() bool { return l != nil && l.verbose }

func (l *Logger) Debugf(format string, args ...any) {
	if !l.Verbose() {
		return
	}
	l.emit("DEBUG", format, args...)
}

func (l *Logger) Infof(format string, args ...any)  { l.emit("INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.emit("WARN", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.emit("ERROR", format, args...) }

func (l *Logger) emit(level, format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.traceID != "" {
		l.out.Printf("[%s] [traceId=%s] %s", level, l.traceID, msg)
		return
	}
	l.out.Printf("[%s] %s", level, msg)
}
