package llm

import (
	"errors"
	"fmt"
)

// Error is a failed LLM operation.
type Error struct {
	Op        string
	Err       error
	Retryable bool
}

// NewError wraps err for op.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is an *Error marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
