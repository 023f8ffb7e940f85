package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the class of failure a fetch attempt ran into
type ErrorType string

const (
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeHTTPStatus ErrorType = "http_status"
	ErrorTypeNotImage   ErrorType = "not_image"
	ErrorTypeTooLarge   ErrorType = "too_large"
	ErrorTypeManifest   ErrorType = "manifest"
	ErrorTypeFilesystem ErrorType = "filesystem"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error represents a fetch error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
	// RetryAfter is the delay the server asked for, zero when it gave none
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given type wrapping err
func New(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// Network wraps a transport failure (dial, TLS, timeout, broken body)
func Network(err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: err.Error(), Err: err}
}

// Status creates an error for a non-success HTTP status
func Status(code int) *Error {
	return &Error{
		Type:    ErrorTypeHTTPStatus,
		Message: http.StatusText(code),
		Code:    code,
	}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsTransport reports whether err came from the network or an HTTP status
func IsTransport(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeNetwork, ErrorTypeHTTPStatus:
		return true
	default:
		return false
	}
}

// RetryAfterHint returns the server requested delay carried by err
func RetryAfterHint(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.RetryAfter > 0 {
		return e.RetryAfter, true
	}
	return 0, false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeHTTPStatus:
		return IsRetryableStatusCode(e.Code)
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 429: // Too Many Requests
		return true
	case 401, 403, 404, 410:
		return false
	default:
		return statusCode >= 500
	}
}
