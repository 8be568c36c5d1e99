package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmelo/skein/pkg/eventbus"
	"github.com/dmelo/skein/pkg/events"
	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/otelhelper"
	"github.com/dmelo/skein/pkg/persistence"
	"github.com/dmelo/skein/pkg/plan"
	"github.com/dmelo/skein/pkg/propagation"
	"github.com/dmelo/skein/pkg/resilience"
)

// ControllerConfig tunes per-run resources.
type ControllerConfig struct {
	// DefaultRateLimit is the per-capability invocation budget within one
	// run. Zero disables limiting.
	DefaultRateLimit int

	// RateLimits overrides the budget per capability name.
	RateLimits map[string]int
}

// DefaultControllerConfig returns the shipping controller defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{DefaultRateLimit: 25}
}

// Controller drives one run across the stage graph: per-layer fan-out and
// fan-in, join-point context merging, cooperative sibling cancellation,
// and the three-valued outcome.
type Controller struct {
	config    ControllerConfig
	executor  *StageExecutor
	store     persistence.Persistence
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	logger    *slog.Logger
	workerID  string
}

// NewController wires a run controller. publisher and tracer may be nil.
func NewController(
	config ControllerConfig,
	executor *StageExecutor,
	store persistence.Persistence,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
	workerID string,
) *Controller {
	return &Controller{
		config:    config,
		executor:  executor,
		store:     store,
		publisher: publisher,
		tracer:    tracer,
		logger:    logger.With("module", "run_controller", "worker_id", workerID),
		workerID:  workerID,
	}
}

// Run executes the graph for run to a terminal state. The record is
// mutated in place and persisted after every layer, so a timeout or crash
// still leaves the produced stage executions and partial context behind.
func (c *Controller) Run(ctx context.Context, run *models.RunRecord, graph *plan.Graph, policy Policy) error {
	logger := c.logger.With("run_id", run.ID, "depth", graph.Depth)
	started := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, policy.timeout())
	defer cancel()

	var span trace.Span

	if c.tracer != nil {
		runCtx, span = otelhelper.StartSpan(runCtx, c.tracer, "run",
			attribute.String(otelhelper.RunIDKey, run.ID),
			attribute.String(otelhelper.DepthKey, string(graph.Depth)))
		defer span.End()
	}

	// One shared context per run. Request fields are seeded so every stage
	// can reach them; context-only keys among them never leak into
	// capability calls.
	shared := propagation.NewSharedContext()
	shared.Seed(map[string]any{
		"url":          run.Request.TargetURL,
		"target_url":   run.Request.TargetURL,
		"depth":        string(graph.Depth),
		"tenant_id":    run.Request.TenantID,
		"workspace_id": run.Request.WorkspaceID,
		"run_id":       run.ID,
	})

	limiter := resilience.NewRateLimiter(c.config.DefaultRateLimit, c.config.RateLimits)

	run.State = models.RunStateRunning
	if run.Stages == nil {
		run.Stages = make(map[string]*models.StageExecution, len(graph.Stages))
	}

	c.save(ctx, run, logger)
	c.publish(ctx, run.ID, events.RunStarted{
		BaseEvent:      c.base(events.RunStartedEvent, run.ID),
		Depth:          graph.Depth,
		ProfileVersion: graph.Version,
		StageCount:     len(graph.Stages),
	})

	logger.Info("Run started", "stages", len(graph.Stages), "profile_version", graph.Version)

	aborted := false

	for _, layerStages := range graph.Layers() {
		if aborted || runCtx.Err() != nil {
			c.skipLayer(ctx, run, layerStages, abortReason(aborted, runCtx))

			continue
		}

		c.executeLayer(runCtx, run, layerStages, shared, limiter)

		for _, def := range layerStages {
			execution := run.Stages[def.Name]

			if execution.Status == models.StageStatusFailed && policy.AbortOnFailure {
				aborted = true
				run.FatalStage = def.Name
				run.Error = execution.Error
			}
		}

		c.save(ctx, run, logger)
	}

	run.Context = shared.Snapshot()
	c.executor.invoker.Degradations().ClearRun(run.ID)
	c.finalize(ctx, run, runCtx, aborted, started, logger)
	c.save(ctx, run, logger)

	if run.Outcome == models.RunOutcomeFailed {
		err := fmt.Errorf("run %s failed at stage %s: %s", run.ID, run.FatalStage, run.Error)
		if span != nil {
			otelhelper.SetError(span, err,
				attribute.String(otelhelper.StageKey, run.FatalStage))
		}

		return err
	}

	return nil
}

// executeLayer fans the layer's stages out as concurrent tasks and joins
// them. A permanently failed sibling cooperatively cancels the rest of the
// layer; every sibling's outcome is still observed before the join
// completes. Succeeded stages merge their outputs into the shared context
// only at the join point, one atomic batch per stage.
func (c *Controller) executeLayer(
	runCtx context.Context,
	run *models.RunRecord,
	layerStages []models.StageDefinition,
	shared *propagation.SharedContext,
	limiter *resilience.RateLimiter,
) {
	layerCtx, layerCancel := context.WithCancel(runCtx)
	defer layerCancel()

	results := make([]*models.StageExecution, len(layerStages))

	var wg sync.WaitGroup

	for i, def := range layerStages {
		wg.Add(1)

		go func(i int, def models.StageDefinition) {
			defer wg.Done()

			c.publish(layerCtx, run.ID, events.StageStarted{
				BaseEvent: c.base(events.StageStartedEvent, run.ID),
				Stage:     def.Name,
			})

			deps := dependencyOutputs(run, def)
			execution := c.executor.Execute(layerCtx, run.ID, run.Request.TenantID, def, deps, shared, limiter)
			results[i] = execution

			if execution.Status == models.StageStatusFailed && execution.ErrorClass == models.ErrorClassPermanent {
				// Non-retryable: stop siblings cooperatively.
				layerCancel()
			}
		}(i, def)
	}

	wg.Wait()

	for i, def := range layerStages {
		execution := results[i]
		run.Stages[def.Name] = execution

		switch execution.Status {
		case models.StageStatusSucceeded:
			shared.MergeBatch(execution.Payload)
			c.publish(runCtx, run.ID, events.StageFinished{
				BaseEvent:  c.base(events.StageFinishedEvent, run.ID),
				Stage:      def.Name,
				RetryCount: execution.RetryCount,
				Duration:   sinceStart(execution),
			})
		case models.StageStatusSkipped:
			run.Degraded = append(run.Degraded, models.DegradedSection{Stage: def.Name, Reason: execution.Error})
			c.publish(runCtx, run.ID, events.StageSkipped{
				BaseEvent: c.base(events.StageSkippedEvent, run.ID),
				Stage:     def.Name,
				Reason:    execution.Error,
			})
		case models.StageStatusFailed:
			run.Degraded = append(run.Degraded, models.DegradedSection{Stage: def.Name, Reason: execution.Error})
			c.publish(runCtx, run.ID, events.StageFailed{
				BaseEvent:  c.base(events.StageFailedEvent, run.ID),
				Stage:      def.Name,
				Error:      execution.Error,
				ErrorClass: execution.ErrorClass,
				RetryCount: execution.RetryCount,
			})
		}
	}
}

// skipLayer records skipped executions for stages that never started
// because the run aborted or timed out earlier. Exactly one terminal
// execution exists per definition either way.
func (c *Controller) skipLayer(ctx context.Context, run *models.RunRecord, layerStages []models.StageDefinition, reason string) {
	for _, def := range layerStages {
		if _, exists := run.Stages[def.Name]; exists {
			continue
		}

		execution := &models.StageExecution{
			RunID:     run.ID,
			Stage:     def.Name,
			Status:    models.StageStatusPending,
			StartedAt: time.Now().UTC(),
		}
		execution.Error = reason
		execution.Finish(models.StageStatusSkipped)

		run.Stages[def.Name] = execution
		run.Degraded = append(run.Degraded, models.DegradedSection{Stage: def.Name, Reason: reason})

		c.publish(ctx, run.ID, events.StageSkipped{
			BaseEvent: c.base(events.StageSkippedEvent, run.ID),
			Stage:     def.Name,
			Reason:    reason,
		})
	}
}

// finalize computes the three-valued outcome and emits the terminal event.
func (c *Controller) finalize(
	ctx context.Context,
	run *models.RunRecord,
	runCtx context.Context,
	aborted bool,
	started time.Time,
	logger *slog.Logger,
) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	duration := time.Since(started)

	switch {
	case errors.Is(runCtx.Err(), context.Canceled) && ctx.Err() != nil:
		run.State = models.RunStateCancelled
		run.Outcome = models.RunOutcomeFailed

		if run.Error == "" {
			run.Error = "run cancelled"
		}

		c.publish(context.WithoutCancel(ctx), run.ID, events.RunCancelled{
			BaseEvent: c.base(events.RunCancelledEvent, run.ID),
			Reason:    run.Error,
		})
		logger.Warn("Run cancelled", "duration", duration)

		return
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		run.State = models.RunStateFinished
		run.Outcome = models.RunOutcomeFailed
		run.Error = fmt.Sprintf("run exceeded %s budget", duration.Round(time.Millisecond))
	case aborted:
		run.State = models.RunStateFinished
		run.Outcome = models.RunOutcomeFailed
	case len(run.Degraded) > 0:
		run.State = models.RunStateFinished
		run.Outcome = models.RunOutcomeDegraded
	default:
		run.State = models.RunStateFinished
		run.Outcome = models.RunOutcomeCompleted
	}

	if run.Outcome == models.RunOutcomeFailed {
		c.publish(ctx, run.ID, events.RunFailed{
			BaseEvent:  c.base(events.RunFailedEvent, run.ID),
			FatalStage: run.FatalStage,
			Error:      run.Error,
			Duration:   duration,
		})
		logger.Error("Run failed", "fatal_stage", run.FatalStage, "error", run.Error, "duration", duration)

		return
	}

	c.publish(ctx, run.ID, events.RunFinished{
		BaseEvent: c.base(events.RunFinishedEvent, run.ID),
		Outcome:   run.Outcome,
		Degraded:  run.Degraded,
		Duration:  duration,
	})
	logger.Info("Run finished", "outcome", run.Outcome, "degraded", len(run.Degraded), "duration", duration)
}

// dependencyOutputs merges the payloads of the stage's declared
// dependencies, later dependencies winning per key.
func dependencyOutputs(run *models.RunRecord, def models.StageDefinition) map[string]any {
	outputs := make(map[string]any)

	for _, dep := range def.DependsOn {
		execution, ok := run.Stages[dep]
		if !ok || execution.Status != models.StageStatusSucceeded {
			continue
		}

		for key, value := range execution.Payload {
			outputs[key] = value
		}
	}

	return outputs
}

func (c *Controller) base(eventType events.EventType, runID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, runID)
	base.WorkerID = c.workerID

	return base
}

func (c *Controller) publish(ctx context.Context, runID string, event eventbus.Event) {
	if c.publisher == nil {
		return
	}

	err := c.publisher.Publish(context.WithoutCancel(ctx), runID, event)
	if err != nil {
		c.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (c *Controller) save(ctx context.Context, run *models.RunRecord, logger *slog.Logger) {
	if c.store == nil {
		return
	}

	err := c.store.SaveRun(context.WithoutCancel(ctx), run)
	if err != nil {
		logger.Error("Failed to persist run", "error", err)
	}
}

func abortReason(aborted bool, runCtx context.Context) string {
	if aborted {
		return "run aborted by failure policy"
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "run timeout"
	}

	return "run cancelled"
}

func sinceStart(execution *models.StageExecution) time.Duration {
	if execution.FinishedAt == nil {
		return 0
	}

	return execution.FinishedAt.Sub(execution.StartedAt)
}
