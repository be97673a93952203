package workspace

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNotFound     = errors.New("workspace not found")
	ErrNameRequired = errors.New("workspace name required")
	ErrCorrupt      = errors.New("workspace data corrupt")
)

// StoreError provides structured error information for store operations.
type StoreError struct {
	Op    string // Operation that failed (e.g., "save", "load")
	Name  string // Workspace name, as the caller gave it
	Cause error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s workspace %q: %v", e.Op, e.Name, e.Cause)
	}
	return fmt.Sprintf("%s workspace: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *StoreError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// storeError builds a StoreError as an error value.
func storeError(op, name string, cause error) error {
	return &StoreError{Op: op, Name: name, Cause: cause}
}

// IsNotFound returns true if the error means the named workspace does not
// exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
