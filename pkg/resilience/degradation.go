package resilience

import (
	"sync"
	"time"
)

// DegradationScope bounds how long a degradation record applies.
type DegradationScope string

const (
	ScopeRun     DegradationScope = "run"
	ScopeProcess DegradationScope = "process"
)

// DegradationRecord marks a capability whose dependencies are unavailable.
// Later stages consult the registry and short-circuit instead of retrying
// a known-broken path.
type DegradationRecord struct {
	Capability string           `json:"capability"`
	Reason     string           `json:"reason"`
	Scope      DegradationScope `json:"scope"`
	RunID      string           `json:"run_id,omitempty"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// DegradationRegistry is the queryable store of degraded capabilities.
// One instance lives for the process; run-scoped records are keyed by run
// and ignored for other runs.
type DegradationRegistry struct {
	mu      sync.RWMutex
	records map[string]DegradationRecord
}

// NewDegradationRegistry creates an empty registry.
func NewDegradationRegistry() *DegradationRegistry {
	return &DegradationRegistry{
		records: make(map[string]DegradationRecord),
	}
}

// MarkDegraded records a capability as unavailable. runID is only used for
// run-scoped records.
func (r *DegradationRegistry) MarkDegraded(capability, reason string, scope DegradationScope, runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record := DegradationRecord{
		Capability: capability,
		Reason:     reason,
		Scope:      scope,
		RecordedAt: time.Now().UTC(),
	}

	if scope == ScopeRun {
		record.RunID = runID
	}

	r.records[r.key(capability, scope, runID)] = record
}

// Check returns the degradation record applying to capability within runID,
// if any. Process-scoped records win over run-scoped ones.
func (r *DegradationRegistry) Check(capability, runID string) (DegradationRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if record, ok := r.records[r.key(capability, ScopeProcess, "")]; ok {
		return record, true
	}

	if record, ok := r.records[r.key(capability, ScopeRun, runID)]; ok {
		return record, true
	}

	return DegradationRecord{}, false
}

// ClearRun drops all run-scoped records for runID, typically at run end.
func (r *DegradationRegistry) ClearRun(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, record := range r.records {
		if record.Scope == ScopeRun && record.RunID == runID {
			delete(r.records, key)
		}
	}
}

// Snapshot returns every active degradation record.
func (r *DegradationRegistry) Snapshot() []DegradationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]DegradationRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}

	return records
}

func (r *DegradationRegistry) key(capability string, scope DegradationScope, runID string) string {
	if scope == ScopeRun {
		return capability + "|run|" + runID
	}

	return capability + "|process"
}
