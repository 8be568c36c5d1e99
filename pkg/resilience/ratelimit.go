package resilience

import (
	"fmt"
	"sync"
)

// RateLimiter counts capability invocations per tenant within one run and
// fails fast past a configured maximum. This is the primary defense
// against an agent looping on the same capability with near-identical
// inputs. One limiter exists per run.
type RateLimiter struct {
	mu       sync.Mutex
	limits   map[string]int // per-capability overrides
	fallback int            // default per-capability maximum
	counts   map[string]int
}

// NewRateLimiter creates a limiter with a default per-capability budget
// and optional per-capability overrides.
func NewRateLimiter(defaultLimit int, overrides map[string]int) *RateLimiter {
	return &RateLimiter{
		limits:   overrides,
		fallback: defaultLimit,
		counts:   make(map[string]int),
	}
}

// Acquire consumes one invocation slot for capability+tenant, returning a
// RateLimitError once the budget is spent.
func (l *RateLimiter) Acquire(capability, tenant string) error {
	limit := l.fallback
	if override, ok := l.limits[capability]; ok {
		limit = override
	}

	if limit <= 0 {
		return nil
	}

	key := fmt.Sprintf("%s|%s", capability, tenant)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.counts[key] >= limit {
		return &RateLimitError{Capability: capability, Tenant: tenant, Limit: limit}
	}

	l.counts[key]++

	return nil
}

// Count returns the invocations consumed so far for capability+tenant.
func (l *RateLimiter) Count(capability, tenant string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.counts[fmt.Sprintf("%s|%s", capability, tenant)]
}
