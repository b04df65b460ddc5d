package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by repositories and services.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrDuplicate       = errors.New("already exists")
	ErrValidation      = errors.New("validation failed")
	ErrCapacityReached = errors.New("maximum number of invited participants reached")
)

// ValidationError carries the human-readable messages produced by validating
// a Person or Membership. It matches ErrValidation, and ErrCapacityReached when
// the capacity rule was one of the failures.
type ValidationError struct {
	Kind     string
	Messages []string
	capacity bool
}

// NewValidationError returns a ValidationError for the given entity kind.
func NewValidationError(kind string, messages []string, capacity bool) *ValidationError {
	return &ValidationError{Kind: kind, Messages: messages, capacity: capacity}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", strings.ToLower(e.Kind), strings.Join(e.Messages, ", "))
}

// Unwrap exposes the sentinels this error matches.
func (e *ValidationError) Unwrap() []error {
	if e.capacity {
		return []error{ErrValidation, ErrCapacityReached}
	}
	return []error{ErrValidation}
}
