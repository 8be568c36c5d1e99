// Package web provides HTTP request and response types for the run API.
package web

import (
	"time"

	"github.com/dmelo/skein/pkg/models"
)

// SubmitRunRequest is the request body for starting an analysis run.
type SubmitRunRequest struct {
	TargetURL   string         `json:"target_url"   validate:"required,url"`
	Depth       string         `json:"depth"`
	TenantID    string         `json:"tenant_id"    validate:"required"`
	WorkspaceID string         `json:"workspace_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RunResponse is the run record view returned by the API.
type RunResponse struct {
	ID         string                   `json:"id"`
	State      models.RunState          `json:"state"`
	Outcome    models.RunOutcome        `json:"outcome,omitempty"`
	Depth      models.Depth             `json:"depth"`
	TargetURL  string                   `json:"target_url"`
	TenantID   string                   `json:"tenant_id"`
	Stages     []StageResponse          `json:"stages,omitempty"`
	Degraded   []models.DegradedSection `json:"degraded,omitempty"`
	FatalStage string                   `json:"fatal_stage,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Context    map[string]any           `json:"context,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
	FinishedAt *time.Time               `json:"finished_at,omitempty"`
}

// StageResponse is the per-stage execution view.
type StageResponse struct {
	Stage         string                 `json:"stage"`
	Status        models.StageStatus     `json:"status"`
	Payload       map[string]any         `json:"payload,omitempty"`
	LowConfidence bool                   `json:"low_confidence,omitempty"`
	Error         string                 `json:"error,omitempty"`
	ErrorClass    models.ErrorClass      `json:"error_class,omitempty"`
	SideEffect    models.SideEffectState `json:"side_effect,omitempty"`
	RetryCount    int                    `json:"retry_count"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    *time.Time             `json:"finished_at,omitempty"`
}

// TransformRunResponse converts a run record into its API view.
func TransformRunResponse(run *models.RunRecord, includeContext bool) RunResponse {
	response := RunResponse{
		ID:         run.ID,
		State:      run.State,
		Outcome:    run.Outcome,
		Depth:      run.Request.Depth,
		TargetURL:  run.Request.TargetURL,
		TenantID:   run.Request.TenantID,
		Degraded:   run.Degraded,
		FatalStage: run.FatalStage,
		Error:      run.Error,
		CreatedAt:  run.CreatedAt,
		FinishedAt: run.FinishedAt,
	}

	if includeContext {
		response.Context = run.Context
	}

	for _, execution := range run.Stages {
		response.Stages = append(response.Stages, StageResponse{
			Stage:         execution.Stage,
			Status:        execution.Status,
			Payload:       execution.Payload,
			LowConfidence: execution.LowConfidence,
			Error:         execution.Error,
			ErrorClass:    execution.ErrorClass,
			SideEffect:    execution.SideEffect,
			RetryCount:    execution.RetryCount,
			StartedAt:     execution.StartedAt,
			FinishedAt:    execution.FinishedAt,
		})
	}

	return response
}
