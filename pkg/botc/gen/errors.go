// Package gen compiles a flow-graph document into a runnable bot program.
package gen

import (
	"errors"
	"fmt"

	"github.com/botforge/botc/pkg/botc/graph"
)

// Sentinel errors for compilation.
var (
	// ErrNilWriter indicates an emitter was invoked without an output buffer.
	ErrNilWriter = errors.New("nil emission writer")

	// ErrConflictingFlags indicates a feature-flag combination that cannot
	// be lowered to a consistent import set.
	ErrConflictingFlags = errors.New("conflicting feature flags")
)

// ValidationError indicates a malformed input graph, such as a required
// field missing on a typed node. Node-level problems are normally downgraded
// to warnings; ValidationError is reserved for documents the pipeline cannot
// compile around.
type ValidationError struct {
	// Component is the emitter or builder that detected the problem.
	Component string
	// NodeID is the offending node, if the problem is node-scoped.
	NodeID string
	// Field is the offending data field, if any.
	Field string
	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.NodeID != "" && e.Field != "":
		return fmt.Sprintf("%s: node %s: field %s: %s", e.Component, e.NodeID, e.Field, e.Message)
	case e.NodeID != "":
		return fmt.Sprintf("%s: node %s: %s", e.Component, e.NodeID, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Component, e.Message)
	}
}

// TemplateError indicates an emitter's internal formatting precondition was
// violated while rendering a text template.
type TemplateError struct {
	// Component is the emitter that failed.
	Component string
	// Template names the built-in template being rendered.
	Template string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s: template %s: %v", e.Component, e.Template, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TemplateError) Unwrap() error {
	return e.Err
}

// HandlerGenerationError indicates a specific node could not be lowered to a
// handler.
type HandlerGenerationError struct {
	// NodeID is the node that failed to lower.
	NodeID string
	// NodeType is the node's declared type.
	NodeType graph.NodeType
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerGenerationError) Error() string {
	return fmt.Sprintf("handler generation for node %s (%s): %v", e.NodeID, e.NodeType, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HandlerGenerationError) Unwrap() error {
	return e.Err
}

// ImportError indicates the import/bootstrap emitter was given a flag
// combination it cannot satisfy.
type ImportError struct {
	// Component is always the import emitter, kept for symmetry with the
	// other error types.
	Component string
	// Message describes the conflict.
	Message string
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Component, e.Message)
}

// Unwrap returns ErrConflictingFlags for errors.Is support.
func (e *ImportError) Unwrap() error {
	return ErrConflictingFlags
}

// UnknownError is the catch-all wrapper for failures that do not fit the
// taxonomy, typically a recovered panic from an emitter.
type UnknownError struct {
	// Component is the pipeline stage that failed.
	Component string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *UnknownError) Error() string {
	return fmt.Sprintf("%s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *UnknownError) Unwrap() error {
	return e.Err
}

// Warning is a recoverable, node-scoped problem the compiler compiled
// around. The calling layer surfaces warnings as editor annotations keyed by
// node id.
type Warning struct {
	// NodeID is the node the warning is anchored to, empty for
	// document-level warnings.
	NodeID string
	// Message is the human-readable description.
	Message string
}

// String formats the warning for logs.
func (w Warning) String() string {
	if w.NodeID == "" {
		return w.Message
	}
	return fmt.Sprintf("node %s: %s", w.NodeID, w.Message)
}
