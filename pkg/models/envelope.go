package models

import "time"

// ErrorClass buckets a capability failure for retry handling.
type ErrorClass string

const (
	ErrorClassNone        ErrorClass = ""
	ErrorClassPermanent   ErrorClass = "permanent"
	ErrorClassTransient   ErrorClass = "transient"
	ErrorClassRateLimited ErrorClass = "rate_limited"
)

// SideEffectState records what is known about a capability call's side
// effect, so a controller can decide whether compensation is needed after
// a cancellation.
type SideEffectState string

const (
	SideEffectNone          SideEffectState = "none"
	SideEffectCompleted     SideEffectState = "completed"
	SideEffectFailed        SideEffectState = "failed"
	SideEffectIndeterminate SideEffectState = "indeterminate"
)

// Envelope is the uniform outcome of every capability call. Retryable=false
// must never be retried, regardless of Class.
type Envelope struct {
	Success    bool            `json:"success"`
	Payload    map[string]any  `json:"payload,omitempty"`
	Error      string          `json:"error,omitempty"`
	Class      ErrorClass      `json:"error_class,omitempty"`
	Retryable  bool            `json:"retryable"`
	RetryAfter time.Duration   `json:"retry_after,omitempty"`
	SideEffect SideEffectState `json:"side_effect,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// OkEnvelope builds a successful envelope with a completed side effect.
func OkEnvelope(payload map[string]any) *Envelope {
	return &Envelope{
		Success:    true,
		Payload:    payload,
		SideEffect: SideEffectCompleted,
	}
}

// FailEnvelope builds a failed envelope. Transient and rate-limited
// failures are retryable, permanent ones are not.
func FailEnvelope(class ErrorClass, message string) *Envelope {
	return &Envelope{
		Success:    false,
		Error:      message,
		Class:      class,
		Retryable:  class != ErrorClassPermanent,
		SideEffect: SideEffectFailed,
	}
}
