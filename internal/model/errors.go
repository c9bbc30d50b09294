package model

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrTagNotFound      = errors.New("tag not found")

	ErrPredefinedImmutable = errors.New("predefined category is immutable")
)

// ValidationError reports input that fails an entity invariant. It is
// raised before the store is touched.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s %s", e.Entity, e.Field, e.Reason)
}

// StateError reports an operation that violates a business rule while the
// input itself is structurally valid.
type StateError struct {
	Err error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error: %v", e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// StoreError wraps an unexpected fault from the underlying store. The cause
// is preserved for diagnostics and reachable through errors.Is/As.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsState reports whether err is a StateError.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}
