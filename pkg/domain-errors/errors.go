// Package domainerrors defines the code-based error taxonomy shared by every
// layer of the service. Handlers translate codes to HTTP statuses; services
// attach display-ready messages at the point of failure so no raw platform
// error ever reaches a caller.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	// Location acquisition failures. Recoverable by caller retry or manual
	// address entry; never retried internally.
	CodeUnsupported      Code = "unsupported"
	CodePermissionDenied Code = "permission_denied"
	CodeUnavailable      Code = "unavailable"
	CodeTimeout          Code = "timeout"

	// CodeLocationUnavailable wraps any of the four location codes when a
	// check-in or check-out cannot acquire a fix.
	CodeLocationUnavailable Code = "location_unavailable"

	// Visit workflow precondition violations.
	CodeAlreadyCheckedIn   Code = "already_checked_in"
	CodeVisitNotInProgress Code = "visit_not_in_progress"
	CodeVisitNotCompleted  Code = "visit_not_completed"
	CodeProximityViolation Code = "proximity_violation"

	// CodePersistenceFailed marks a store boundary failure; retryable by the caller.
	CodePersistenceFailed Code = "persistence_failed"

	// Transport-level codes.
	CodeBadRequest  Code = "bad_request"
	CodeNotFound    Code = "not_found"
	CodeRateLimited Code = "rate_limited"
	CodeInternal    Code = "internal"
)

// Error carries a code, a message suitable for direct display, and an
// optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a domain error with the given code and display message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a domain error that retains err as its cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf extracts the outermost domain error code, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the outermost display message, defaulting to a generic one.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code onto the HTTP status handlers should respond with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeProximityViolation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyCheckedIn, CodeVisitNotInProgress, CodeVisitNotCompleted:
		return http.StatusConflict
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnsupported, CodeUnavailable, CodeLocationUnavailable:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodePersistenceFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
