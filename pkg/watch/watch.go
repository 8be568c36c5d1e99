// Package watch schedules recurring re-analysis of monitored resources.
// Each watch binds a cron expression to an analysis request; on every tick
// a fresh run is submitted through the manager.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/runner"
)

// Watch binds a cron schedule to a recurring analysis request.
type Watch struct {
	ID       string                 `json:"id"`
	CronExpr string                 `json:"cron"`
	Request  models.AnalysisRequest `json:"request"`
	Enabled  bool                   `json:"enabled"`
}

// Validate checks the watch configuration.
func (w *Watch) Validate() error {
	if w.ID == "" {
		return errors.New("watch ID is required")
	}

	if w.CronExpr == "" {
		return errors.New("watch cron expression is required")
	}

	if _, err := cron.ParseStandard(w.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return w.Request.Validate()
}

// Watcher owns the cron scheduler and the registered watches.
type Watcher struct {
	manager *runner.Manager
	logger  *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

func NewWatcher(manager *runner.Manager, logger *slog.Logger) *Watcher {
	return &Watcher{
		manager: manager,
		logger:  logger.With("module", "watcher"),
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers a watch and schedules it. Disabled watches are validated
// but not scheduled.
func (w *Watcher) Add(watch Watch) error {
	if err := watch.Validate(); err != nil {
		return err
	}

	if !watch.Enabled {
		w.logger.Info("Watch is disabled", "watch_id", watch.ID)

		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.entries[watch.ID]; exists {
		return fmt.Errorf("watch %s already registered", watch.ID)
	}

	entryID, err := w.cron.AddFunc(watch.CronExpr, func() {
		w.tick(watch)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule watch %s: %w", watch.ID, err)
	}

	w.entries[watch.ID] = entryID
	w.logger.Info("Watch scheduled", "watch_id", watch.ID, "cron", watch.CronExpr)

	return nil
}

// Remove unschedules a watch.
func (w *Watcher) Remove(watchID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entryID, ok := w.entries[watchID]
	if !ok {
		return
	}

	w.cron.Remove(entryID)
	delete(w.entries, watchID)
	w.logger.Info("Watch removed", "watch_id", watchID)
}

// Start begins running scheduled watches.
func (w *Watcher) Start() {
	w.cron.Start()
}

// Stop halts scheduling and waits for in-flight submissions.
func (w *Watcher) Stop(ctx context.Context) error {
	stopped := w.cron.Stop()

	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Watcher) tick(watch Watch) {
	logger := w.logger.With("watch_id", watch.ID)

	run, err := w.manager.Submit(context.Background(), watch.Request)
	if err != nil {
		logger.Error("Failed to submit scheduled run", "error", err)

		return
	}

	logger.Info("Scheduled run submitted", "run_id", run.ID)
}
