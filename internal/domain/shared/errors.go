// Package shared contains common domain types and errors that are used across
// all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrInvalidInstant  = errors.New("invalid instant")
	ErrInvalidDuration = errors.New("invalid duration")

	// State errors
	ErrInvalidState = errors.New("invalid state")
	ErrExpired      = errors.New("expired")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// Session transition errors. All of them except ErrSessionTooShort chain to
// ErrInvalidTransition so callers can match the whole family with one
// errors.Is() check. A too-short end is a policy rejection, not an illegal
// transition: the session stays active and can be ended again later.
var (
	ErrInvalidTransition = errors.New("invalid session transition")

	ErrAlreadyActive   = fmt.Errorf("%w: session already active", ErrInvalidTransition)
	ErrNoActiveSession = fmt.Errorf("%w: no active session", ErrInvalidTransition)
	ErrAlreadyPaused   = fmt.Errorf("%w: session already paused", ErrInvalidTransition)
	ErrNotPaused       = fmt.Errorf("%w: session is not paused", ErrInvalidTransition)

	ErrSessionTooShort = errors.New("session too short to record")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "session", "stats", "calendar"
	Op      string // Operation that failed, e.g., "Start", "Commit"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// User domain errors
var (
	ErrUserNotFound   = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrInvalidUserID  = NewDomainError("user", "Validate", ErrInvalidID, "invalid user ID")
	ErrEmptyUserID    = NewDomainError("user", "Validate", ErrEmptyValue, "user ID cannot be empty")
	ErrEmptyDisplay   = NewDomainError("user", "Validate", ErrEmptyValue, "display name cannot be empty")
	ErrUserRowMissing = NewDomainError("session", "Transition", ErrNotFound, "user row missing")
)

// Stats domain errors
var (
	ErrNegativeSeconds = NewDomainError("stats", "Commit", ErrInvalidDuration, "committed seconds cannot be negative")
	ErrUnknownPeriod   = NewDomainError("stats", "Validate", ErrInvalidInput, "unknown period kind")
	ErrEntryNotFound   = NewDomainError("stats", "Find", ErrNotFound, "stat entry not found")
)

// Calendar domain errors
var (
	ErrZeroInstant = NewDomainError("calendar", "Resolve", ErrInvalidInstant, "instant has no wall-clock value")
)

// Report domain errors
var (
	ErrAnchorNotFound    = NewDomainError("report", "FindAnchor", ErrNotFound, "report anchor not found")
	ErrTelegramAPIFailed = NewDomainError("telegram", "Send", ErrExternalService, "Telegram API request failed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidTransition checks if the error is a session transition error.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsSessionTooShort checks if the error is a too-short session rejection.
func IsSessionTooShort(err error) bool {
	return errors.Is(err, ErrSessionTooShort)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrInvalidInstant) ||
		errors.Is(err, ErrInvalidDuration)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
