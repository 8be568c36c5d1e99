// Package propagation materializes capability inputs from explicit
// arguments, chained stage outputs, and a run-scoped shared context.
package propagation

import (
	"maps"
	"sync"
)

// SharedContext is the run-scoped accumulating key-value store passing data
// between stages. One instance exists per run; it is never shared across
// runs. Writes happen only through MergeBatch, one atomic batch per
// completed stage, last-writer-wins per key.
type SharedContext struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewSharedContext creates an empty shared context.
func NewSharedContext() *SharedContext {
	return &SharedContext{
		values: make(map[string]any),
	}
}

// Seed pre-populates the context with request-level fields before the
// first stage starts.
func (c *SharedContext) Seed(values map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	maps.Copy(c.values, values)
}

// Get returns the value for key if present.
func (c *SharedContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.values[key]

	return value, ok
}

// MergeBatch applies one completed stage's outputs as a single atomic
// batch. Concurrent siblings each merge their own batch at their join
// point; interleaving within a batch is impossible.
func (c *SharedContext) MergeBatch(outputs map[string]any) {
	if len(outputs) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	maps.Copy(c.values, outputs)
}

// Snapshot returns a copy of the current context values.
func (c *SharedContext) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]any, len(c.values))
	maps.Copy(snapshot, c.values)

	return snapshot
}

// Keys returns the currently known context keys.
func (c *SharedContext) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}

	return keys
}

// Len returns the number of stored keys.
func (c *SharedContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.values)
}
