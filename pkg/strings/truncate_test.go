package strings

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world this is a long string", 15, "hello world ..."},
		{"newlines kept", "a\nb", 10, "a\nb"},
		{"unicode not split", "日本語のテキストです", 6, "日本語..."},
		{"tiny max clamped", "abcdefgh", 1, "a..."},
		{"empty", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestTruncateDescription(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"newlines replaced with spaces", "hello\nworld", 20, "hello world"},
		{"whitespace collapsed", "  hello \t\n\n world  ", 20, "hello world"},
		{"collapsed then truncated", "Delegated\nMicrosoft Graph access", 16, "Delegated Mic..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateDescription(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("TruncateDescription(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}
