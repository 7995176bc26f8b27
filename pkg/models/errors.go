package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used across the engine.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrStorage           = errors.New("storage failure")
	ErrPermissionDenied  = errors.New("notification permission denied")
	ErrBackendScheduling = errors.New("backend scheduling failure")
	ErrNoSession         = errors.New("no ringing session")
	ErrSnoozeDisabled    = errors.New("snooze disabled for this alarm")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// SchedulingError reports registrations that failed while the rest were attempted.
type SchedulingError struct {
	AlarmID   string
	Attempted int
	Failures  []error
}

func (e *SchedulingError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, err := range e.Failures {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("alarm %s: %d of %d registrations failed: %s",
		e.AlarmID, len(e.Failures), e.Attempted, strings.Join(msgs, "; "))
}

// Unwrap exposes ErrBackendScheduling and the individual failures to errors.Is.
func (e *SchedulingError) Unwrap() []error {
	return append([]error{ErrBackendScheduling}, e.Failures...)
}

// Partial reports whether at least one registration succeeded.
func (e *SchedulingError) Partial() bool {
	return len(e.Failures) < e.Attempted
}

// NeedsWarning reports whether err means an alarm may not ring and the user must be told.
func NeedsWarning(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrBackendScheduling)
}
