package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmelo/skein/pkg/eventbus"
	"github.com/dmelo/skein/pkg/events"
	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/persistence"
	"github.com/dmelo/skein/pkg/plan"
)

// Manager accepts analysis requests, resolves the depth profile, and owns
// the lifecycle of the controller goroutine for each active run. With a
// nil controller the manager only persists and publishes the request; a
// worker consuming run.requested events executes it.
type Manager struct {
	controller *Controller
	store      persistence.Persistence
	publisher  eventbus.EventPublisher
	policy     Policy
	logger     *slog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager wires a run manager. publisher may be nil.
func NewManager(
	controller *Controller,
	store persistence.Persistence,
	publisher eventbus.EventPublisher,
	policy Policy,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		controller: controller,
		store:      store,
		publisher:  publisher,
		policy:     policy,
		logger:     logger.With("module", "run_manager"),
		active:     make(map[string]context.CancelFunc),
	}
}

// Submit validates the request, canonicalizes its depth, persists the
// pending record, and starts the run asynchronously. It returns the run
// handle immediately.
func (m *Manager) Submit(ctx context.Context, request models.AnalysisRequest) (*models.RunRecord, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	requested := string(request.Depth)

	depth, known := plan.Canonicalize(requested)
	if !known {
		m.logger.Warn("Unknown depth requested, falling back to default",
			"requested", requested, "applied", depth)
	}

	request.Depth = depth

	graph, err := plan.BuildForDepth(depth)
	if err != nil {
		return nil, err
	}

	run := &models.RunRecord{
		ID:        "run-" + uuid.New().String(),
		Request:   request,
		State:     models.RunStatePending,
		Stages:    make(map[string]*models.StageExecution, len(graph.Stages)),
		CreatedAt: time.Now().UTC(),
	}

	if m.store != nil {
		if err := m.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("persist run %s: %w", run.ID, err)
		}
	}

	m.publishRequested(ctx, run, requested, known, depth)

	if m.controller != nil {
		m.launch(run, graph)
	}

	return run, nil
}

// Status returns the current record for the given run handle.
func (m *Manager) Status(ctx context.Context, runID string) (*models.RunRecord, error) {
	if m.store == nil {
		return nil, ErrRunNotFound
	}

	run, err := m.store.RunByID(ctx, runID)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return nil, ErrRunNotFound
		}

		return nil, err
	}

	return run, nil
}

// Cancel stops a running run. The controller observes the cancellation,
// records skipped executions for unstarted stages, and finalizes the
// record with the partial results kept.
func (m *Manager) Cancel(runID string) error {
	m.mu.Lock()
	cancel, ok := m.active[runID]
	m.mu.Unlock()

	if !ok {
		return ErrRunFinished
	}

	cancel()

	return nil
}

// Wait blocks until every active run has reached a terminal state. Used
// on shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) launch(run *models.RunRecord, graph *plan.Graph) {
	runCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.active[run.ID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer cancel()
		defer func() {
			m.mu.Lock()
			delete(m.active, run.ID)
			m.mu.Unlock()
		}()

		err := m.controller.Run(runCtx, run, graph, m.policy)
		if err != nil {
			m.logger.Error("Run ended with failure", "run_id", run.ID, "error", err)
		}
	}()
}

func (m *Manager) publishRequested(
	ctx context.Context,
	run *models.RunRecord,
	requested string,
	known bool,
	applied models.Depth,
) {
	if m.publisher == nil {
		return
	}

	event := events.RunRequested{
		BaseEvent: events.NewBaseEvent(events.RunRequestedEvent, run.ID),
		Request:   run.Request,
	}
	if err := m.publisher.Publish(ctx, run.ID, event); err != nil {
		m.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}

	if known {
		return
	}

	fallback := events.DepthFallback{
		BaseEvent: events.NewBaseEvent(events.DepthCanonicalized, run.ID),
		Requested: requested,
		Applied:   applied,
	}
	if err := m.publisher.Publish(ctx, run.ID, fallback); err != nil {
		m.logger.Warn("Failed to publish event", "event_type", fallback.GetType(), "error", err)
	}
}
