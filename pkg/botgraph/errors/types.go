package errors

import (
	"fmt"
	"time"
)

// Matrix error codes with special handling.
const (
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeMissingToken  = "M_MISSING_TOKEN"
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeNotFound      = "M_NOT_FOUND"
)

// HTTPError is a non-2xx response from the homeserver.
type HTTPError struct {
	StatusCode int
	// ErrCode is the Matrix errcode from the response body, if any.
	ErrCode  string
	Message  string
	Endpoint string
	// RetryAfter is set for rate-limited responses.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := e.Message
	if e.ErrCode != "" {
		msg = e.ErrCode + ": " + msg
	}
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, msg)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
}

// IsAuthFailure reports whether the response means the credentials or access
// token are unusable, or the account is not allowed to make the request.
func (e *HTTPError) IsAuthFailure() bool {
	switch e.ErrCode {
	case ErrCodeUnknownToken, ErrCodeMissingToken, ErrCodeForbidden:
		return true
	}
	return e.StatusCode == 401 || e.StatusCode == 403
}

// TimeoutError indicates an operation timed out.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}
