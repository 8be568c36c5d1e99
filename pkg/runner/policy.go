// Package runner drives analysis runs across the stage graph: per-layer
// fan-out/fan-in, cooperative cancellation, context merging, and the
// submit/status/cancel surface.
package runner

import "time"

// Policy is the explicit per-run failure policy. Whether a failed
// concurrency-group sibling aborts the whole run or permits continuation
// with partial context is decided here, never incidentally by error
// handling at a call site.
type Policy struct {
	// AbortOnFailure aborts the run at the first non-retryable stage
	// failure. When false the run continues into later layers with
	// whatever context the succeeding siblings produced.
	AbortOnFailure bool

	// RunTimeout bounds the whole run. Zero applies the default; runs are
	// never unbounded.
	RunTimeout time.Duration
}

// DefaultRunTimeout applies when a policy does not set one.
const DefaultRunTimeout = 15 * time.Minute

// DefaultPolicy returns the shipping run policy: continue degraded, with
// the run-level timeout enforced.
func DefaultPolicy() Policy {
	return Policy{
		AbortOnFailure: false,
		RunTimeout:     DefaultRunTimeout,
	}
}

func (p Policy) timeout() time.Duration {
	if p.RunTimeout <= 0 {
		return DefaultRunTimeout
	}

	return p.RunTimeout
}
