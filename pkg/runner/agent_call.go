package runner

import (
	"context"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/protocol"
)

// AgentService is the circuit-breaker identity of the text-generation agent.
const AgentService = "agent"

// agentCall adapts one rendered agent invocation to the capability
// contract so the resilience pipeline (retries, breaker, timeout) applies
// to the agent exactly as it does to any other external service.
type agentCall struct {
	agent        protocol.Agent
	stage        string
	instructions string
	contextData  map[string]any
}

func (c *agentCall) Schema() *protocol.CapabilitySchema {
	return &protocol.CapabilitySchema{
		Name:    "agent:" + c.stage,
		Service: AgentService,
	}
}

func (c *agentCall) Execute(ctx context.Context, _ map[string]any) *models.Envelope {
	text, err := c.agent.Generate(ctx, c.instructions, c.contextData)
	if err != nil {
		return &models.Envelope{
			Success:    false,
			Error:      err.Error(),
			SideEffect: models.SideEffectNone, // Generation has no side effect to compensate
		}
	}

	return &models.Envelope{
		Success:    true,
		Payload:    map[string]any{"text": text},
		SideEffect: models.SideEffectNone,
	}
}
