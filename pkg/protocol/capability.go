// Package protocol defines the contracts between the orchestration core and
// its external collaborators: capabilities and the text-generation agent.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dmelo/skein/pkg/models"
)

// ParameterSpec declares one capability parameter. Enum-typed parameters
// bypass placeholder length checks during context propagation.
type ParameterSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Enum        bool   `json:"enum,omitempty"`
}

// CapabilitySchema is the declared parameter surface of a capability.
// DataDependent marks capabilities whose required parameters carry semantic
// weight: they must never be invoked with placeholder values.
type CapabilitySchema struct {
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Parameters    []ParameterSpec `json:"parameters"`
	DataDependent bool            `json:"data_dependent"`
	Service       string          `json:"service"` // External service identity, keys the circuit breaker
}

// ParameterNames returns the declared parameter names.
func (s *CapabilitySchema) ParameterNames() []string {
	names := make([]string, 0, len(s.Parameters))
	for _, p := range s.Parameters {
		names = append(names, p.Name)
	}

	return names
}

// RequiredParameters returns the names of required parameters.
func (s *CapabilitySchema) RequiredParameters() []string {
	var names []string

	for _, p := range s.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}

	return names
}

// Parameter looks up one parameter spec by name.
func (s *CapabilitySchema) Parameter(name string) (ParameterSpec, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}

	return ParameterSpec{}, false
}

// Capability is one external operation invoked with materialized inputs.
// Implementations must return an Envelope rather than raising: the envelope
// carries the failure classification the resilience layer acts on.
type Capability interface {
	Schema() *CapabilitySchema
	Execute(ctx context.Context, inputs map[string]any) *models.Envelope
}

// CapabilityFactory creates capability instances from raw configuration.
type CapabilityFactory interface {
	ID() string
	Create(ctx context.Context, config map[string]any, logger *slog.Logger) (Capability, error)
	ConfigSchema() map[string]any
}

// Agent is the external text-generation collaborator. Its output is always
// untrusted free-form text and must pass through the interpreter.
type Agent interface {
	Generate(ctx context.Context, instructions string, contextData map[string]any) (string, error)
}
