package runner

import "errors"

var (
	// ErrRunNotFound indicates an unknown run handle.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunFinished indicates an operation on an already-terminal run.
	ErrRunFinished = errors.New("run already finished")

	// ErrAgentUnavailable indicates a stage declared instructions but no
	// agent is configured.
	ErrAgentUnavailable = errors.New("no agent configured")
)
