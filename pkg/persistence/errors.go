// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrRunNotFound indicates a run was not found by the given identifier.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunAlreadyExists indicates a run with the same identifier exists.
	ErrRunAlreadyExists = errors.New("run already exists")
)

// IsRunNotFound checks whether err is a run-not-found failure.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

// StoreError wraps storage errors with operation context.
type StoreError struct {
	Op    string
	RunID string
	Err   error
}

func (e *StoreError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s failed for run %s: %v", e.Op, e.RunID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
