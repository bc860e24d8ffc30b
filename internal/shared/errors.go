package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the record does not exist for the acting user.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated indicates no acting user could be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotConfigured indicates an optional collaborator was not wired.
	ErrNotConfigured = errors.New("not configured")
)

// ValidationError reports bad or missing input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// PersistenceError wraps a generic record store failure. Message keeps the
// store's own wording so it can be surfaced to the user.
type PersistenceError struct {
	Op      string
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %s", e.Op, e.Message)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ReferentialError reports a foreign key violation raised by the record store,
// i.e. dependent records still point at the row being removed.
type ReferentialError struct {
	Entity  string
	Message string
	Err     error
}

func (e *ReferentialError) Error() string {
	return e.Message
}

func (e *ReferentialError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsReferential reports whether err is a ReferentialError.
func IsReferential(err error) bool {
	var target *ReferentialError
	return errors.As(err, &target)
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

// UserSafeMessage returns text that can be shown to the shop owner.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var vErr *ValidationError
	var rErr *ReferentialError
	var pErr *PersistenceError
	switch {
	case errors.As(err, &vErr):
		return vErr.Error()
	case errors.As(err, &rErr):
		return rErr.Message
	case errors.As(err, &pErr):
		return pErr.Message
	case errors.Is(err, ErrUnauthenticated):
		return "please log in to continue"
	case errors.Is(err, ErrNotFound):
		return "record not found"
	case errors.Is(err, ErrIdempotencyConflict):
		return "this request was already processed"
	default:
		return "something went wrong, please try again"
	}
}
