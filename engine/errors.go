/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP statuses; nothing in the engine
  fails silently.

ERROR CATEGORIES:
  1. Expected outcomes - Overload, RequestNotFound (not system failures)
  2. Validation errors - Missing or malformed citizen fields
  3. Transient errors  - MaintenanceInProgress (reset in flight)

USAGE:
  Callers classify with errors.Is / errors.As:

    if errors.Is(err, engine.ErrOverload) {
        var ov *engine.OverloadError
        errors.As(err, &ov) // names the exhausted preferred center
    }

SEE ALSO:
  - allocator.go: Produces OverloadError
  - engine.go: Produces ErrMaintenanceInProgress
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrOverload is returned when no candidate center has capacity anywhere
	// within the look-ahead window. Expected, user-facing, recoverable by
	// redistribution or waiting.
	ErrOverload = errors.New("no capacity within look-ahead window")

	// ErrCenterNotFound is returned when a referenced center doesn't exist.
	ErrCenterNotFound = errors.New("center not found")

	// ErrRequestNotFound is returned on a tracking lookup miss.
	ErrRequestNotFound = errors.New("request not found")

	// ErrInvalidInput is returned when required citizen fields are missing
	// or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMaintenanceInProgress is returned while a reset holds the global
	// write barrier. Callers should retry.
	ErrMaintenanceInProgress = errors.New("maintenance in progress")

	// ErrDuplicateRequestID is returned when a generated request identifier
	// collides with an existing record. The tracker retries with a fresh ID.
	ErrDuplicateRequestID = errors.New("duplicate request id")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OverloadError names the originally preferred center whose saturation
// triggered the overload, plus the window that was searched. This is the
// signal the redistribution controller watches for.
type OverloadError struct {
	CenterID   CenterID
	WindowDays int
}

func (e *OverloadError) Error() string {
	return fmt.Sprintf("center %s and all alternates are full for the next %d days", e.CenterID, e.WindowDays)
}

func (e *OverloadError) Unwrap() error { return ErrOverload }

// ValidationError reports a single missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: field %q %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry. The API
// layer maps these onto 503 so clients back off and come again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrMaintenanceInProgress)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrCenterNotFound)
}

// IsExpected returns true for outcomes that are part of normal operation
// rather than failures of the system.
func IsExpected(err error) bool {
	return errors.Is(err, ErrOverload) || IsNotFound(err)
}
