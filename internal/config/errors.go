package config

import (
	"fmt"
	"strings"
)

// ConfigurationError is returned when the configuration file cannot be used.
type ConfigurationError struct {
	FilePath  string `json:"filePath"`
	ErrorType string `json:"errorType"` // io, parse or validation
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// Error implements the error interface
func (ce *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s error in %s: %s", ce.ErrorType, ce.FilePath, ce.Message)
}

// Unwrap returns the underlying error.
func (ce *ConfigurationError) Unwrap() error {
	return ce.Err
}

// ProfileNotFoundError is returned by Get for unknown profile names.
type ProfileNotFoundError struct {
	Name      string
	Available []string
}

// Error implements the error interface
func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("unknown profile %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}
