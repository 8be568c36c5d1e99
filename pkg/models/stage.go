package models

import "time"

// StageDefinition declares one unit of pipeline work: the capability it
// invokes, the context keys it consumes and produces, and its position in
// the stage graph. Stages sharing a Group run concurrently once all of
// their dependencies are terminal.
type StageDefinition struct {
	Name         string   `json:"name"`
	Capability   string   `json:"capability,omitempty"`
	Instructions string   `json:"instructions"`
	Requires     []string `json:"requires,omitempty"`
	Produces     []string `json:"produces,omitempty"`
	DependsOn    []string `json:"depends_on,omitempty"`
	Group        string   `json:"group,omitempty"`
}

// StageStatus defines the lifecycle states of a stage execution.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusSucceeded StageStatus = "succeeded"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// Terminal reports whether the status is a final one.
func (s StageStatus) Terminal() bool {
	return s == StageStatusSucceeded || s == StageStatusFailed || s == StageStatusSkipped
}

// StageExecution is the per-run audit record for one stage. It is mutated
// only by the executor driving the stage and becomes immutable once its
// status is terminal.
type StageExecution struct {
	RunID         string          `json:"run_id"`
	Stage         string          `json:"stage"`
	Status        StageStatus     `json:"status"`
	RawOutput     string          `json:"raw_output,omitempty"`
	Payload       map[string]any  `json:"payload,omitempty"`
	LowConfidence bool            `json:"low_confidence,omitempty"`
	Error         string          `json:"error,omitempty"`
	ErrorClass    ErrorClass      `json:"error_class,omitempty"`
	SideEffect    SideEffectState `json:"side_effect,omitempty"`
	RetryCount    int             `json:"retry_count"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
}

// Finish moves the execution to a terminal status and stamps the time.
func (e *StageExecution) Finish(status StageStatus) {
	now := time.Now().UTC()
	e.Status = status
	e.FinishedAt = &now
}
