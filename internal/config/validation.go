package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError reports one invalid configuration field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s %s", ve.Field, ve.Message)
}

// ValidationErrors collects every invalid field of a profile.
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	switch len(ve) {
	case 0:
		return "no validation errors"
	case 1:
		return ve[0].Error()
	}

	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// requireField records field as missing when value is blank. It reports
// whether the value was present.
func (ve *ValidationErrors) requireField(field, value string) bool {
	if strings.TrimSpace(value) != "" {
		return true
	}
	*ve = append(*ve, ValidationError{Field: field, Value: value, Message: "is required"})
	return false
}

// requireAbsoluteURL records field when value does not parse as an absolute URL.
func (ve *ValidationErrors) requireAbsoluteURL(field, value string) {
	u, err := url.Parse(value)
	if err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "") {
		return
	}
	*ve = append(*ve, ValidationError{Field: field, Value: value, Message: "must be an absolute URL"})
}

// orNil returns ve as an error, or nil when nothing was recorded.
func (ve ValidationErrors) orNil() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}

// FormatValidationError prefixes err with the kind and name of the invalid entity.
func FormatValidationError(entityType, entityName string, err error) error {
	if err == nil {
		return nil
	}
	if entityName != "" {
		return fmt.Errorf("invalid %s %q: %w", entityType, entityName, err)
	}
	return fmt.Errorf("invalid %s: %w", entityType, err)
}
