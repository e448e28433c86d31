// Package logger wraps charmbracelet/log with a process-wide default
// logger and level parsing from configuration.
package logger

import (
	"fmt"
	"io"
	"strings"

	charm "github.com/charmbracelet/log"
)

// Logger is a thin wrapper around a charmbracelet logger.
type Logger struct {
	*charm.Logger
}

// New creates a Logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{charm.New(w)}
}

// ParseLevel converts a configuration string into a charm log level.
// The empty string maps to Info.
func ParseLevel(level string) (charm.Level, error) {
	switch strings.ToLower(level) {
	case "":
		return charm.InfoLevel, nil
	case "debug":
		return charm.DebugLevel, nil
	case "info":
		return charm.InfoLevel, nil
	case "warn", "warning":
		return charm.WarnLevel, nil
	case "error":
		return charm.ErrorLevel, nil
	default:
		return charm.InfoLevel, fmt.Errorf("invalid log level %q. Supported log levels are Debug, Info, Warn, Error", level)
	}
}
