// Package errors classifies transport failures so the main loop can decide
// whether to keep polling or give up.
//
// Transient failures (timeouts, rate limits, server errors, an open circuit
// breaker) are logged and retried on the next poll cycle. Authentication
// failures are permanent: retrying with the same credentials cannot succeed.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/sony/gobreaker"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: rate limits, timeouts, temporary network issues.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: authentication failures, malformed requests.
	CategoryPermanent
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s)", e.Context, e.Err, e.Category)
	}
	return fmt.Sprintf("%s (category: %s)", e.Err, e.Category)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: category, Context: context}
}

// Transient creates a transient error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Permanent creates a permanent error.
func Permanent(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryPermanent, context)
}

// Categorize determines how an error should be handled.
// Errors it does not recognise are permanent.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return categorizeHTTP(httpErr)
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return CategoryTransient
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return CategoryTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryTransient
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return CategoryTransient
	}

	return CategoryPermanent
}

func categorizeHTTP(e *HTTPError) Category {
	if e.IsAuthFailure() {
		return CategoryPermanent
	}
	switch {
	case e.StatusCode == 429 || e.ErrCode == ErrCodeLimitExceeded:
		return CategoryTransient
	case e.StatusCode == 408:
		return CategoryTransient
	case e.StatusCode >= 500:
		return CategoryTransient
	default:
		return CategoryPermanent
	}
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsAuthFailure reports whether err is an authentication or authorization
// failure from the homeserver.
func IsAuthFailure(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.IsAuthFailure()
}
