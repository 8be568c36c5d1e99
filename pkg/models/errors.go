// Package models provides standardized error types shared across the engine.
package models

import (
	"errors"
	"fmt"
)

// Request and definition validation errors.
var (
	ErrInvalidRequest         = errors.New("invalid analysis request")
	ErrInvalidStageDefinition = errors.New("invalid stage definition")
	ErrUnknownDependency      = errors.New("stage depends on unknown stage")
	ErrCyclicDependency       = errors.New("stage graph contains a cycle")
	ErrEmptyProfile           = errors.New("depth profile has no stages")
)

// CapabilityError carries the classification of a failed capability call.
type CapabilityError struct {
	Capability string
	Class      ErrorClass
	Message    string
	Err        error
}

func (e *CapabilityError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("capability %s failed (%s): %s", e.Capability, e.Class, e.Message)
	}

	return fmt.Sprintf("capability %s failed (%s): %v", e.Capability, e.Class, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// NewCapabilityError wraps a capability failure with its classification.
func NewCapabilityError(capability string, class ErrorClass, message string, err error) *CapabilityError {
	return &CapabilityError{
		Capability: capability,
		Class:      class,
		Message:    message,
		Err:        err,
	}
}

// IsPermanent reports whether err is a permanently-classified capability error.
func IsPermanent(err error) bool {
	var capErr *CapabilityError
	if errors.As(err, &capErr) {
		return capErr.Class == ErrorClassPermanent
	}

	return false
}

// IsValidationError checks if an error is a request or definition
// validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidStageDefinition) ||
		errors.Is(err, ErrUnknownDependency) ||
		errors.Is(err, ErrCyclicDependency) ||
		errors.Is(err, ErrEmptyProfile)
}
