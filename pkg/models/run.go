package models

import "time"

// RunState defines the lifecycle states of a run.
type RunState string

const (
	RunStatePending   RunState = "pending"
	RunStateRunning   RunState = "running"
	RunStateFinished  RunState = "finished"
	RunStateCancelled RunState = "cancelled"
)

// RunOutcome distinguishes the three user-visible endings of a run.
// Degraded output must never be presented as a full success.
type RunOutcome string

const (
	RunOutcomeCompleted RunOutcome = "completed"
	RunOutcomeDegraded  RunOutcome = "completed_degraded"
	RunOutcomeFailed    RunOutcome = "failed"
)

// DegradedSection names one pipeline section that did not fully complete
// and why.
type DegradedSection struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// RunRecord is the audit record of one analysis run: the request, the
// per-stage executions, and the final outcome including whatever context
// the run produced before finishing.
type RunRecord struct {
	ID         string                     `json:"id"`
	Request    AnalysisRequest            `json:"request"`
	State      RunState                   `json:"state"`
	Outcome    RunOutcome                 `json:"outcome,omitempty"`
	Stages     map[string]*StageExecution `json:"stages"`
	Degraded   []DegradedSection          `json:"degraded,omitempty"`
	FatalStage string                     `json:"fatal_stage,omitempty"`
	Error      string                     `json:"error,omitempty"`
	Context    map[string]any             `json:"context,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	FinishedAt *time.Time                 `json:"finished_at,omitempty"`
}

// Progress summarizes how far a run has advanced.
type Progress struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Progress counts terminal stage executions.
func (r *RunRecord) Progress() Progress {
	p := Progress{Total: len(r.Stages)}

	for _, execution := range r.Stages {
		switch execution.Status {
		case StageStatusSucceeded:
			p.Succeeded++
		case StageStatusFailed:
			p.Failed++
		case StageStatusSkipped:
			p.Skipped++
		}
	}

	return p
}
