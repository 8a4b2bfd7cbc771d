package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound   = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict   = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrTenantUnavailable marks a tenant whose device API or storage cannot be
	// reached (or was never configured). Callers treat it as a per-tenant
	// warning, never as a batch-wide failure.
	ErrTenantUnavailable = New("TENANT_UNAVAILABLE", http.StatusServiceUnavailable, "tenant unavailable")

	// ErrEmptyScope marks a session whose audience resolves to no students.
	ErrEmptyScope = New("EMPTY_SCOPE", http.StatusUnprocessableEntity, "no students in session scope")

	ErrQRExpired   = New("QR_EXPIRED", http.StatusGone, "qr session expired")
	ErrQRDuplicate = New("QR_DUPLICATE", http.StatusConflict, "scan already recorded for student")

	// ErrAmbiguousTime rejects local wall times that fall inside a DST
	// transition; a silently shifted hour would flip Present/Late/Absent.
	ErrAmbiguousTime = New("AMBIGUOUS_LOCAL_TIME", http.StatusUnprocessableEntity, "local time is ambiguous or non-existent")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Is reports whether err carries the given domain error code.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == target.Code
	}
	return false
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
