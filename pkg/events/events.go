// Package events defines event types for run lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmelo/skein/pkg/models"
)

type EventType string

// Topic carries every run lifecycle event.
const Topic = "skein.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunRequestedEvent  EventType = "run.requested"
	RunStartedEvent    EventType = "run.started"
	RunFinishedEvent   EventType = "run.finished"
	RunFailedEvent     EventType = "run.failed"
	RunCancelledEvent  EventType = "run.cancelled"
	DepthCanonicalized EventType = "run.depth_canonicalized"

	StageStartedEvent  EventType = "stage.started"
	StageFinishedEvent EventType = "stage.finished"
	StageFailedEvent   EventType = "stage.failed"
	StageSkippedEvent  EventType = "stage.skipped"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, runID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
	}
}

type RunRequested struct {
	BaseEvent

	Request models.AnalysisRequest `json:"request"`
}

func (e RunRequested) GetType() EventType { return RunRequestedEvent }

type RunStarted struct {
	BaseEvent

	Depth          models.Depth `json:"depth"`
	ProfileVersion string       `json:"profile_version"`
	StageCount     int          `json:"stage_count"`
}

func (e RunStarted) GetType() EventType { return RunStartedEvent }

type RunFinished struct {
	BaseEvent

	Outcome  models.RunOutcome        `json:"outcome"`
	Degraded []models.DegradedSection `json:"degraded,omitempty"`
	Duration time.Duration            `json:"duration"`
}

func (e RunFinished) GetType() EventType { return RunFinishedEvent }

type RunFailed struct {
	BaseEvent

	FatalStage string        `json:"fatal_stage,omitempty"`
	Error      string        `json:"error"`
	Duration   time.Duration `json:"duration"`
}

func (e RunFailed) GetType() EventType { return RunFailedEvent }

type RunCancelled struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (e RunCancelled) GetType() EventType { return RunCancelledEvent }

// DepthFallback notifies that an unsupported depth value was canonicalized
// to the default profile.
type DepthFallback struct {
	BaseEvent

	Requested string       `json:"requested"`
	Applied   models.Depth `json:"applied"`
}

func (e DepthFallback) GetType() EventType { return DepthCanonicalized }

type StageStarted struct {
	BaseEvent

	Stage string `json:"stage"`
}

func (e StageStarted) GetType() EventType { return StageStartedEvent }

type StageFinished struct {
	BaseEvent

	Stage      string        `json:"stage"`
	RetryCount int           `json:"retry_count"`
	Duration   time.Duration `json:"duration"`
}

func (e StageFinished) GetType() EventType { return StageFinishedEvent }

type StageFailed struct {
	BaseEvent

	Stage      string            `json:"stage"`
	Error      string            `json:"error"`
	ErrorClass models.ErrorClass `json:"error_class,omitempty"`
	RetryCount int               `json:"retry_count"`
}

func (e StageFailed) GetType() EventType { return StageFailedEvent }

type StageSkipped struct {
	BaseEvent

	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

func (e StageSkipped) GetType() EventType { return StageSkippedEvent }
