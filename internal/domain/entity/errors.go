package entity

import (
	"errors"
	"fmt"
)

// ErrValidationFailed indicates that a decoded record does not satisfy the ContentItem shape.
var ErrValidationFailed = errors.New("validation failed")

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Is reports ErrValidationFailed as a match so callers can test with errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
