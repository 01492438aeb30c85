package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// ParseLogLevel converts a user supplied level name into a LogLevel.
// Matching is case-insensitive; "warning" is accepted as an alias for warn.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", s)
	}
}

// SubsystemKey is the attribute key used to tag log records with their origin.
const SubsystemKey = "subsystem"

// New builds a text logger writing to output at the given level.
//
// The returned logger is meant to be passed explicitly to the components that
// need it. Nothing in this package keeps a reference to it.
func New(level LogLevel, output io.Writer) *slog.Logger {
	if output == nil {
		output = io.Discard
	}
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level.SlogLevel(),
	})
	return slog.New(handler)
}

// Discard returns a logger that drops every record. Handy as a default for
// components constructed without a logger, and in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// With returns a child logger tagged with the given subsystem. A nil logger
// yields a discarding logger so callers never need a nil check.
func With(logger *slog.Logger, subsystem string) *slog.Logger {
	if logger == nil {
		logger = Discard()
	}
	return logger.With(slog.String(SubsystemKey, subsystem))
}

// BridgeControllerRuntime routes controller-runtime and client-go logging
// through the given logger. Without it controller-runtime prints a warning
// about an uninitialized logger the first time it is used.
func BridgeControllerRuntime(logger *slog.Logger) {
	if logger == nil {
		return
	}
	ctrl.SetLogger(logr.FromSlogHandler(logger.Handler()))
}

// Redact shortens a secret for log output, keeping only enough characters to
// tell two values apart.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 12 {
		return "[REDACTED]"
	}
	return secret[:6] + "…[REDACTED]"
}
