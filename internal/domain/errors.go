package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling (OCP compliance).
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrBusy indicates a send is already in flight for the chat.
	// Callers should disable submission rather than alarm the user.
	ErrBusy = errors.New("send already in flight")

	// ErrStoreWrite indicates the message store rejected a write.
	// The send is considered not to have happened; the caller may retry.
	ErrStoreWrite = errors.New("store write failed")

	// ErrStoreSubscription indicates the live message feed could not be established.
	ErrStoreSubscription = errors.New("store subscription failed")
)

// Upstream completion errors. The session controller treats all three
// identically (fallback-message path) but preserves the detail for logging.
var (
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamRateLimited = errors.New("upstream rate limited")
	ErrUpstream            = errors.New("upstream error")
)

// BusyError carries the correlation id of the in-flight exchange so the
// presentation layer can key its busy indicator to the right submission.
type BusyError struct {
	ChatID        string
	CorrelationID string
}

// Error implements the error interface
func (e *BusyError) Error() string {
	return "chat " + e.ChatID + ": send already in flight"
}

// StatusCode implements the HTTPError interface
func (e *BusyError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrBusy
func (e *BusyError) Is(target error) bool {
	return target == ErrBusy
}

// UpstreamError wraps a completion API failure with its detail for operator
// logging. Kind is one of the upstream sentinels above.
type UpstreamError struct {
	Kind   error
	Detail string
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

// Unwrap allows errors.Is() to match against the upstream sentinels
func (e *UpstreamError) Unwrap() error { return e.Kind }
