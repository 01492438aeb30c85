package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	ctrl "sigs.k8s.io/controller-runtime"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, result, test.expected)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo}, // Default for unknown
	}

	for _, test := range tests {
		result := test.level.SlogLevel()
		if result != test.expected {
			t.Errorf("LogLevel(%d).SlogLevel() = %v, expected %v", test.level, result, test.expected)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"", LevelInfo, false},
		{"info", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" warn ", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLogLevel(test.input)
			if test.wantErr {
				if err == nil {
					t.Errorf("ParseLogLevel(%q) expected error", test.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLogLevel(%q) unexpected error: %v", test.input, err)
			}
			if level != test.expected {
				t.Errorf("ParseLogLevel(%q) = %s, expected %s", test.input, level, test.expected)
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf)

	logger.Debug("debug message")
	logger.Info("info message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered out at INFO level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Info message should appear at INFO level")
	}
}

func TestNew_InstancesAreIndependent(t *testing.T) {
	var first, second bytes.Buffer
	a := New(LevelInfo, &first)
	b := New(LevelInfo, &second)
	_ = b

	a.Info("only in first")

	if !strings.Contains(first.String(), "only in first") {
		t.Error("Expected message in first logger output")
	}
	if second.Len() != 0 {
		t.Errorf("Expected second logger to be untouched, got %q", second.String())
	}
}

func TestWith_AddsSubsystem(t *testing.T) {
	var buf bytes.Buffer
	logger := With(New(LevelDebug, &buf), "Token")

	logger.Info("refreshed")

	if !strings.Contains(buf.String(), "subsystem=Token") {
		t.Errorf("Expected subsystem attribute in output, got %q", buf.String())
	}
}

func TestWith_NilLogger(t *testing.T) {
	logger := With(nil, "Token")
	if logger == nil {
		t.Fatal("Expected a usable logger for nil input")
	}
	// Must not panic
	logger.Info("dropped")
}

func TestRedact(t *testing.T) {
	if got := Redact(""); got != "" {
		t.Errorf("Redact(\"\") = %q, expected empty", got)
	}
	if got := Redact("short"); got != "[REDACTED]" {
		t.Errorf("Redact(short) = %q, expected [REDACTED]", got)
	}
	got := Redact("eyJ0eXAiOiJKV1QiLCJhbGciOiJSUzI1NiJ9.payload.sig")
	if !strings.HasPrefix(got, "eyJ0eX") || strings.Contains(got, "payload") {
		t.Errorf("Redact leaked token content: %q", got)
	}
}

func TestBridgeControllerRuntime(t *testing.T) {
	var buf bytes.Buffer
	BridgeControllerRuntime(New(LevelInfo, &buf))

	logger := ctrl.Log
	if logger.GetSink() == nil {
		t.Error("Expected controller-runtime logger sink to be initialized")
	}

	logger.Info("test message from controller-runtime logger", "key", "value")
	if !strings.Contains(buf.String(), "test message from controller-runtime logger") {
		t.Error("Expected controller-runtime log to reach the bridged handler")
	}
}
