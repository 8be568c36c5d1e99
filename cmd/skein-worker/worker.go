// Package main provides the event-driven run execution worker.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/dmelo/skein/pkg/agent"
	"github.com/dmelo/skein/pkg/eventbus"
	"github.com/dmelo/skein/pkg/events"
	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/persistence"
	"github.com/dmelo/skein/pkg/plan"
	"github.com/dmelo/skein/pkg/propagation"
	"github.com/dmelo/skein/pkg/protocol"
	"github.com/dmelo/skein/pkg/registry"
	"github.com/dmelo/skein/pkg/resilience"
	"github.com/dmelo/skein/pkg/runner"
)

// WorkerConfig carries the runtime options of the worker binary.
type WorkerConfig struct {
	AgentURL    string
	AgentAPIKey string
}

// Worker consumes run.requested events and executes runs through the
// controller. Multiple workers share the load when the event bus is Kafka.
type Worker struct {
	logger   *slog.Logger
	store    persistence.Persistence
	registry *registry.Registry
	eventBus eventbus.EventBus
	config   WorkerConfig
	tracer   trace.Tracer
}

func NewWorker(
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	config WorkerConfig,
) *Worker {
	return &Worker{
		logger:   logger,
		store:    store,
		registry: reg,
		eventBus: eventBus,
		config:   config,
	}
}

// Run subscribes to the event bus and blocks until the context ends.
func (w *Worker) Run(ctx context.Context) error {
	controller := w.buildController()

	err := w.eventBus.Handle(events.RunRequestedEvent, func(ctx context.Context, event any) error {
		requested, ok := event.(*events.RunRequested)
		if !ok {
			return fmt.Errorf("unexpected event payload for %s", events.RunRequestedEvent)
		}

		return w.executeRun(ctx, controller, requested)
	})
	if err != nil {
		return fmt.Errorf("failed to register event handler: %w", err)
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker started", "topic", events.Topic)

	<-ctx.Done()
	w.logger.Info("Worker shutting down")

	return nil
}

func (w *Worker) executeRun(ctx context.Context, controller *runner.Controller, requested *events.RunRequested) error {
	logger := w.logger.With("run_id", requested.RunID)

	run, err := w.store.RunByID(ctx, requested.RunID)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			// The request event outlived its record; nothing to execute.
			logger.Warn("Run record not found, dropping request")

			return nil
		}

		return err
	}

	if run.State != models.RunStatePending {
		logger.Info("Run already picked up, skipping", "state", run.State)

		return nil
	}

	depth, _ := plan.Canonicalize(string(run.Request.Depth))

	graph, err := plan.BuildForDepth(depth)
	if err != nil {
		return err
	}

	// Run failures are terminal states, not processing errors; the message
	// must not be redelivered.
	if err := controller.Run(ctx, run, graph, runner.DefaultPolicy()); err != nil {
		logger.Warn("Run finished with failure", "error", err)
	}

	return nil
}

func (w *Worker) buildController() *runner.Controller {
	breakers := resilience.NewBreakerRegistry(resilience.DefaultCircuitBreakerConfig())
	degradations := resilience.NewDegradationRegistry()
	invoker := resilience.NewInvoker(resilience.DefaultInvokerConfig(), breakers, degradations, w.logger)

	var textAgent *agent.HTTPAgent
	if w.config.AgentURL != "" {
		textAgent = agent.NewHTTPAgent(agent.Config{
			Endpoint: w.config.AgentURL,
			APIKey:   w.config.AgentAPIKey,
		}, w.logger)
	}

	classifier := propagation.NewClassifier(propagation.DefaultPlaceholderConfig())
	propagator := propagation.NewPropagator(classifier, w.logger)
	executor := runner.NewStageExecutor(w.registry, agentOrNil(textAgent), propagator, invoker, w.logger)

	return runner.NewController(
		runner.DefaultControllerConfig(),
		executor,
		w.store,
		w.eventBus,
		w.tracer,
		w.logger,
		w.eventBus.GenerateID(),
	)
}

func agentOrNil(textAgent *agent.HTTPAgent) protocol.Agent {
	if textAgent == nil {
		return nil
	}

	return textAgent
}
