// myclaw - personal AI assistant runtime
// License: MIT

package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// The agent code logs through package-level helpers tagged with a component
// name ("agent", "session", "provider.anthropic", ...). The backend is a
// single zerolog logger that can be re-pointed at startup.

var (
	mu   sync.RWMutex
	root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
)

// Init replaces the process logger. If w is nil, pretty console output on
// stderr is used. Level accepts trace/debug/info/warn/error/silent.
func Init(w io.Writer, level string) {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).With().Timestamp().Logger().Level(parseLevel(level))
	mu.Lock()
	root = zl
	mu.Unlock()
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "silent":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func emit(ev *zerolog.Event, component, msg string, fields map[string]interface{}) {
	ev.Str("component", component).Fields(fields).Msg(msg)
}

// DebugCF logs a component-tagged debug message with structured fields.
func DebugCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	emit(root.Debug(), component, msg, fields)
}

// InfoCF logs a component-tagged info message with structured fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	emit(root.Info(), component, msg, fields)
}

// WarnCF logs a component-tagged warning with structured fields.
func WarnCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	emit(root.Warn(), component, msg, fields)
}

// ErrorCF logs a component-tagged error with structured fields.
func ErrorCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	emit(root.Error(), component, msg, fields)
}
