package graph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNodeNotFound = errors.New("node not found")
	ErrEdgeNotFound = errors.New("edge not found")
	ErrSelfLoop     = errors.New("edge endpoints must differ")
	ErrInvalidInput = errors.New("invalid input")
)

// GraphError provides structured error information for store operations.
type GraphError struct {
	Op      string // Operation that failed (e.g., "CreateEdge", "RemoveNode")
	Entity  string // Entity type ("node", "edge")
	ID      NodeID // Offending node ID
	HasID   bool
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.HasID {
		if e.Context != "" {
			return fmt.Sprintf("%s %s %d (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s %s %d: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *GraphError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building GraphErrors.
type ErrorBuilder struct {
	err GraphError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: GraphError{Op: op}}
}

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id NodeID) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	b.err.HasID = true
	return b
}

// Edge sets the entity to "edge" described by its endpoints.
func (b *ErrorBuilder) Edge(a, c NodeID) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.Context = fmt.Sprintf("%d-%d", a, c)
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Invalid marks the cause as an invalid-input failure.
func (b *ErrorBuilder) Invalid(err error) *ErrorBuilder {
	b.err.Cause = fmt.Errorf("%w: %w", ErrInvalidInput, err)
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// NodeNotFoundError creates a node not found error.
func NodeNotFoundError(op string, id NodeID) error {
	return NewError(op).Node(id).Cause(ErrNodeNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrEdgeNotFound)
}

// IsInvalidInput returns true if the error rejected caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
