// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound indicates no shared workflow exists for the fingerprint.
	ErrWorkflowNotFound = errors.New("shared workflow not found")

	// ErrDuplicateFingerprint indicates a workflow with the same fingerprint
	// is already stored. The fingerprint is the deduplication key; this is a
	// conflict, not a storage failure.
	ErrDuplicateFingerprint = errors.New("workflow with this fingerprint already exists")
)

// WorkflowError wraps storage errors with operation context.
type WorkflowError struct {
	Op          string // Operation being performed (e.g. "Save", "ByFingerprint")
	Fingerprint string
	Err         error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s failed for workflow %s: %v", e.Op, e.Fingerprint, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a storage error with context.
func NewWorkflowError(op, fingerprint string, err error) *WorkflowError {
	return &WorkflowError{Op: op, Fingerprint: fingerprint, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a missing shared workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsDuplicateFingerprint checks if an error indicates a fingerprint collision.
func IsDuplicateFingerprint(err error) bool {
	return errors.Is(err, ErrDuplicateFingerprint)
}
