package model

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Validation errors
var (
	ErrValidation      = goerr.New("validation failed")
	ErrMissingRequired = goerr.New("required field is missing")
	ErrInvalidValue    = goerr.New("invalid field value")
)

// Context keys for error values
const (
	FieldKey      = "field"
	FieldValueKey = "field_value"
)

// ValidationError lists the fields that blocked an operation. It matches
// both ErrValidation and ErrMissingRequired with errors.Is.
type ValidationError struct {
	Fields []string
}

// NewValidationError builds a ValidationError for missing fields
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("required field is missing: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == ErrMissingRequired
}

// NewInvalidValueError wraps ErrInvalidValue with the offending field
func NewInvalidValueError(field, value string) error {
	return goerr.Wrap(ErrInvalidValue, "invalid field value",
		goerr.V(FieldKey, field),
		goerr.V(FieldValueKey, value))
}
