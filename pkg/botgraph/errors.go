package botgraph

import (
	"errors"
	"fmt"
)

// Sentinel errors for tree construction.
var (
	// ErrInvalidName indicates an empty node name or one containing whitespace.
	ErrInvalidName = errors.New("invalid node name")

	// ErrNilNode indicates Register was called with a nil node.
	ErrNilNode = errors.New("node cannot be nil")

	// ErrDuplicateNode indicates the name is already registered.
	ErrDuplicateNode = errors.New("node already registered")

	// ErrParentNotFound indicates the named parent is not registered.
	ErrParentNotFound = errors.New("parent not found")

	// ErrNotParent indicates the named parent cannot hold children.
	ErrNotParent = errors.New("parent does not accept children")

	// ErrEngineRunning indicates the tree was modified while the main loop runs.
	ErrEngineRunning = errors.New("engine is running")
)

// Sentinel errors for dispatch.
var (
	// ErrNodeNotFound indicates a child name that resolves to no registered node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrRevisit indicates a node was reached twice in one dispatch pass.
	ErrRevisit = errors.New("node already visited in this pass")

	// ErrOutsideDispatch indicates Propagate was called without an active pass,
	// for example from a query callback or background worker.
	ErrOutsideDispatch = errors.New("propagate called outside a dispatch pass")

	// ErrNilContext indicates Run was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")
)

// Sentinel errors for background work.
var (
	// ErrWorkersBusy indicates the background worker limit is reached.
	ErrWorkersBusy = errors.New("background worker limit reached")

	// ErrWorkersStopped indicates background work was requested during shutdown.
	ErrWorkersStopped = errors.New("background workers stopped")

	// ErrShutdownTimeout indicates background work outlived the shutdown grace period.
	ErrShutdownTimeout = errors.New("background work did not finish before shutdown deadline")
)

// ConfigError reports a tree-construction failure. Wiring code should treat
// it as fatal: the registry is left exactly as it was before the call.
type ConfigError struct {
	// Node is the name being registered.
	Node string
	// Op is the step that failed ("validate", "load", "link").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("register %s: %s: %v", e.Node, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NodeError wraps an error with node context.
type NodeError struct {
	// Node is the name of the node that failed.
	Node string
	// Op is the operation that failed ("handle", "ask", "receive", "exit").
	Op string
	// Err is the underlying error from the node.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.Node, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic recovered from node code.
type PanicError struct {
	// Node is the name of the node that panicked.
	Node string
	// Op is the operation that panicked.
	Op string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked during %s: %v", e.Node, e.Op, e.Value)
}

// LookupError reports a child name that is not registered.
type LookupError struct {
	Parent string
	Child  string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("child %q of %s: %v", e.Child, e.Parent, ErrNodeNotFound)
}

// Unwrap returns ErrNodeNotFound for errors.Is support.
func (e *LookupError) Unwrap() error {
	return ErrNodeNotFound
}
