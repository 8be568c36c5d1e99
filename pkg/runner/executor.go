package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dmelo/skein/pkg/interpreter"
	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/propagation"
	"github.com/dmelo/skein/pkg/protocol"
	"github.com/dmelo/skein/pkg/registry"
	"github.com/dmelo/skein/pkg/resilience"
	"github.com/dmelo/skein/pkg/template"
)

// StageExecutor runs one stage: materialize inputs, invoke the agent and
// capability through the resilience layer, interpret output, and hand the
// produced payload back for the layer's join-point merge.
type StageExecutor struct {
	registry   *registry.Registry
	agent      protocol.Agent
	propagator *propagation.Propagator
	invoker    *resilience.Invoker
	logger     *slog.Logger
}

// NewStageExecutor wires a stage executor.
func NewStageExecutor(
	reg *registry.Registry,
	agent protocol.Agent,
	propagator *propagation.Propagator,
	invoker *resilience.Invoker,
	logger *slog.Logger,
) *StageExecutor {
	return &StageExecutor{
		registry:   reg,
		agent:      agent,
		propagator: propagator,
		invoker:    invoker,
		logger:     logger.With("module", "stage_executor"),
	}
}

// Execute runs one stage to a terminal StageExecution. It never panics and
// never returns a non-terminal record.
func (e *StageExecutor) Execute(
	ctx context.Context,
	runID, tenantID string,
	def models.StageDefinition,
	deps map[string]any,
	shared *propagation.SharedContext,
	limiter *resilience.RateLimiter,
) *models.StageExecution {
	logger := e.logger.With("run_id", runID, "stage", def.Name)

	execution := &models.StageExecution{
		RunID:      runID,
		Stage:      def.Name,
		Status:     models.StageStatusRunning,
		SideEffect: models.SideEffectNone,
		StartedAt:  time.Now().UTC(),
	}

	outputs := make(map[string]any)

	var agentPayload map[string]any

	if def.Instructions != "" {
		payload, failed := e.runAgent(ctx, runID, tenantID, def, deps, shared, limiter, execution, logger)
		if failed {
			return execution
		}

		agentPayload = payload

		maps.Copy(outputs, agentPayload)
	}

	if def.Capability != "" {
		payload, failed := e.runCapability(ctx, runID, tenantID, def, agentPayload, deps, shared, limiter, execution, logger)
		if failed {
			return execution
		}

		maps.Copy(outputs, payload)
	}

	if execution.Status == models.StageStatusSkipped {
		return execution
	}

	execution.Payload = outputs
	execution.Finish(models.StageStatusSucceeded)
	logger.Info("Stage succeeded", "retries", execution.RetryCount, "outputs", len(outputs))

	return execution
}

// runAgent renders the stage instructions, invokes the agent through the
// resilience pipeline, and interprets its output. Returns the interpreted
// payload, or failed=true with the execution already terminal.
func (e *StageExecutor) runAgent(
	ctx context.Context,
	runID, tenantID string,
	def models.StageDefinition,
	deps map[string]any,
	shared *propagation.SharedContext,
	limiter *resilience.RateLimiter,
	execution *models.StageExecution,
	logger *slog.Logger,
) (map[string]any, bool) {
	if e.agent == nil {
		e.fail(execution, models.ErrorClassPermanent, ErrAgentUnavailable.Error())

		return nil, true
	}

	data := shared.Snapshot()
	maps.Copy(data, deps)

	// Instructions reference canonical keys; fill them from aliased
	// context keys the same way capability inputs resolve.
	for _, key := range def.Requires {
		if _, ok := data[key]; ok {
			continue
		}

		for _, alias := range propagation.Aliases(key) {
			if value, ok := data[alias]; ok {
				data[key] = value

				break
			}
		}
	}

	rendered, err := template.Render(def.Instructions, data)
	if err != nil {
		e.fail(execution, models.ErrorClassPermanent, err.Error())

		return nil, true
	}

	call := resilience.Call{
		Capability: &agentCall{
			agent:        e.agent,
			stage:        def.Name,
			instructions: rendered,
			contextData:  data,
		},
		TenantID: tenantID,
		RunID:    runID,
		Limiter:  limiter,
	}

	envelope, attempts, err := e.invoker.Invoke(ctx, call)
	execution.RetryCount += retries(attempts)

	if err != nil {
		e.failFromInvoke(execution, envelope, err, logger)

		return nil, true
	}

	text, _ := envelope.Payload["text"].(string)
	execution.RawOutput = text

	result := interpreter.Interpret(text)
	execution.LowConfidence = result.LowConfidence

	return result.Payload, false
}

// runCapability materializes inputs from the agent payload, dependency
// outputs, and shared context, then invokes the bound capability. An
// unregistered capability degrades the stage rather than failing the run.
func (e *StageExecutor) runCapability(
	ctx context.Context,
	runID, tenantID string,
	def models.StageDefinition,
	agentPayload map[string]any,
	deps map[string]any,
	shared *propagation.SharedContext,
	limiter *resilience.RateLimiter,
	execution *models.StageExecution,
	logger *slog.Logger,
) (map[string]any, bool) {
	capability, ok := e.registry.Capability(def.Capability)
	if !ok {
		e.invoker.Degradations().MarkDegraded(def.Capability, "capability not registered", resilience.ScopeRun, runID)

		if len(agentPayload) > 0 {
			// The agent half of the stage produced usable output; keep it
			// and let the degradation registry carry the capability gap.
			logger.Warn("Capability not registered, keeping agent output", "capability", def.Capability)

			return nil, false
		}

		e.skip(execution, fmt.Sprintf("capability %s not registered", def.Capability))
		logger.Warn("Stage skipped", "reason", execution.Error)

		return nil, true
	}

	inputs, err := e.propagator.Materialize(capability.Schema(), agentPayload, deps, shared)
	if err != nil {
		// Data-dependent capability with unresolved required inputs:
		// fail the stage with the diagnostic, not the capability.
		e.fail(execution, models.ErrorClassPermanent, err.Error())
		logger.Error("Stage input materialization failed", "error", err)

		return nil, true
	}

	call := resilience.Call{
		Capability: capability,
		Inputs:     inputs,
		TenantID:   tenantID,
		RunID:      runID,
		Limiter:    limiter,
	}

	envelope, attempts, err := e.invoker.Invoke(ctx, call)
	execution.RetryCount += retries(attempts)

	if envelope != nil && envelope.SideEffect != "" {
		execution.SideEffect = envelope.SideEffect
	}

	if err != nil {
		if errors.Is(err, resilience.ErrCapabilityDegraded) {
			e.skip(execution, err.Error())
			logger.Warn("Stage skipped", "reason", execution.Error)

			return nil, true
		}

		e.failFromInvoke(execution, envelope, err, logger)

		return nil, true
	}

	return envelope.Payload, false
}

func (e *StageExecutor) fail(execution *models.StageExecution, class models.ErrorClass, message string) {
	execution.Error = message
	execution.ErrorClass = class
	execution.Finish(models.StageStatusFailed)
}

func (e *StageExecutor) skip(execution *models.StageExecution, reason string) {
	execution.Error = reason
	execution.Finish(models.StageStatusSkipped)
}

func (e *StageExecutor) failFromInvoke(
	execution *models.StageExecution,
	envelope *models.Envelope,
	err error,
	logger *slog.Logger,
) {
	class := models.ErrorClassTransient

	switch {
	case envelope != nil && envelope.Class != models.ErrorClassNone:
		class = envelope.Class
	case errors.Is(err, resilience.ErrRateLimitExceeded):
		class = models.ErrorClassRateLimited
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		class = models.ErrorClassNone
	}

	if envelope != nil && envelope.SideEffect != "" {
		execution.SideEffect = envelope.SideEffect
	}

	e.fail(execution, class, err.Error())
	logger.Error("Stage failed", "error", err, "class", class, "retries", execution.RetryCount)
}

func retries(attempts int) int {
	if attempts <= 1 {
		return 0
	}

	return attempts - 1
}
