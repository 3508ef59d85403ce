// Package logging provides the three log streams used across the module.
//
// Ops carries lifecycle events and failures, Diag carries per-location
// decisions (error codes, classifier verdicts), Trace carries per-stage
// counts. A stream with a nil writer is silent. Stdout is never a default
// writer because the MCP transport owns it.
package logging

import (
	"io"
	"log"
	"strings"
	"sync"
)

// Writers holds the io.Writer for each stream.
type Writers struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	mu          sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetWriters configures all three streams at once.
func SetWriters(w Writers) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger("[ops] ", w.Ops)
	diagLogger = newLogger("[diag] ", w.Diag)
	traceLogger = newLogger("[trace] ", w.Trace)
}

// ForLevel maps a STREET_WIDTH_LOG_LEVEL value to stream writers: "ops"
// (or empty) enables Ops, "diag" adds Diag, "debug" and "trace" enable all.
func ForLevel(level string, w io.Writer) Writers {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return Writers{Ops: w, Diag: w, Trace: w}
	case "diag":
		return Writers{Ops: w, Diag: w}
	case "off", "none":
		return Writers{}
	default:
		return Writers{Ops: w}
	}
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// Opsf logs to the ops stream.
func Opsf(format string, args ...interface{}) {
	mu.RLock()
	l := opsLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) {
	mu.RLock()
	l := diagLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) {
	mu.RLock()
	l := traceLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}
