/*
errors.go - Business error kinds shared by every package

PURPOSE:
  One place for the five business error kinds raised by the overtime ledger
  and the timesheet lifecycle. Each structured error unwraps to a sentinel so
  the HTTP boundary can classify with errors.Is() without string matching.

ERROR KINDS:
  ValidationError     malformed or out-of-range input, missing field
  ConflictError       uniqueness violation (duplicate period, overlapping week)
  AuthorizationError  wrong owner or role
  StateError          operation invalid for the current status
  NotFoundError       id does not resolve

  Anything that does not unwrap to one of these sentinels is an
  infrastructure failure (store unavailable, driver error) and must be
  reported as such.

STORE CONTRACT:
  Stores never build ConflictError themselves. A unique index violation is
  reported as ErrDuplicate and the service translates it into the same
  ConflictError its pre-check would have produced.

SEE ALSO:
  - api/errors.go: maps kinds to HTTP status codes
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrNotFound     = errors.New("not found")

	// ErrDuplicate is returned by stores when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field (or calendar day) and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// AuthorizationError reports an actor acting on something it does not own
// or without the required role.
type AuthorizationError struct {
	ActorID string
	Action  string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized to %s", e.Action)
}

func (e *AuthorizationError) Unwrap() error { return ErrForbidden }

// StateError reports an operation that the current status does not allow.
type StateError struct {
	Op     string
	Status string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while status is %s", e.Op, e.Status)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// NotFoundError reports an id that does not resolve.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(actorID, action string) error {
	return &AuthorizationError{ActorID: actorID, Action: action}
}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is one of the business kinds,
// i.e. the request was wrong rather than the system being unavailable.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrNotFound)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
