// Package errs defines Lattice's stable error taxonomy. Codes are the
// contract callers depend on; messages are for humans.
package errs

import (
	"errors"
	"fmt"
)

// Code is a stable SCREAMING_SNAKE_CASE error identifier.
type Code string

const (
	NotInitialized      Code = "NOT_INITIALIZED"
	InvalidID           Code = "INVALID_ID"
	InvalidActor        Code = "INVALID_ACTOR"
	ValidationError     Code = "VALIDATION_ERROR"
	NotFound            Code = "NOT_FOUND"
	IdempotencyConflict Code = "IDEMPOTENCY_CONFLICT"
	InvalidTransition   Code = "INVALID_TRANSITION"
	CompletionBlocked   Code = "COMPLETION_BLOCKED"
	ReviewCycleExceeded Code = "REVIEW_CYCLE_EXCEEDED"
	LockTimeout         Code = "LOCK_TIMEOUT"
	IOError             Code = "IO_ERROR"
	Drift               Code = "DRIFT"
	Corrupt             Code = "CORRUPT"
)

// Error is the single error type the core returns. It carries a stable
// Code, a human Message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, errs.New(code, "")) by comparing codes only.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// New constructs an *Error with no wrapped cause.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error carrying cause as its Unwrap target.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// OfCode reports whether err (or any error it wraps) is a *Error with the
// given code.
func OfCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// Sentinel errors for use with errors.Is in places that need a simple
// marker rather than a constructed message (e.g. comparing wrapped causes).
var (
	ErrInvalidID      = New(InvalidID, "invalid id")
	ErrInvalidActor   = New(InvalidActor, "invalid actor")
	ErrNotFound       = New(NotFound, "not found")
	ErrLockTimeout    = New(LockTimeout, "lock timeout")
	ErrNotInitialized = New(NotInitialized, "lattice root not initialized")
)
