package models

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel all input-validation failures wrap.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError wraps field-specific validation errors.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match any validation error.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
