package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrPrecondition = errors.New("precondition failed")
)

// FieldError describes a single rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError is returned when an entity or its external representation
// is missing a required field, has a malformed one, or breaks an invariant.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationError creates a ValidationError for one field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add appends a field error.
func (e *ValidationError) Add(field, format string, args ...interface{}) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Has reports whether field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) merge(err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		e.Errors = append(e.Errors, ve.Errors...)
		return
	}
	e.Add("", "%v", err)
}

// orNil returns nil when no field errors were collected.
func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// PreconditionError is returned when an operation is applied to an entity
// whose current state does not allow it.
type PreconditionError struct {
	Op     string
	Reason string
}

// NewPreconditionError reports that op cannot be applied in the current state.
func NewPreconditionError(op, format string, args ...interface{}) *PreconditionError {
	return &PreconditionError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot %s: %s", e.Op, e.Reason)
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}
