package logging

import (
	"strings"
)

// Level is the minimum severity a logger emits.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a Level. Unknown names fall back to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is a key-value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// Logger is the structured logging interface used across the knowledge base,
// the inference engine and the binaries.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger carrying the given fields on every line.
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// NopLogger discards everything. Engines default to it.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field)     {}
func (NopLogger) Info(string, ...Field)      {}
func (NopLogger) Warn(string, ...Field)      {}
func (NopLogger) Error(string, ...Field)     {}
func (n NopLogger) With(...Field) Logger     { return n }
func (NopLogger) SetLevel(Level)             {}
func (NopLogger) GetLevel() Level            { return InfoLevel }

// NewNopLogger returns a Logger that writes nothing.
func NewNopLogger() Logger {
	return NopLogger{}
}
