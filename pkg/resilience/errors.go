// Package resilience wraps capability calls with retry classification,
// backoff, circuit breaking, rate limiting, and degradation tracking.
package resilience

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned when a call fails fast because the
	// service's breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRateLimitExceeded is returned when a capability exceeds its
	// per-run invocation budget.
	ErrRateLimitExceeded = errors.New("capability rate limit exceeded")

	// ErrCapabilityDegraded is returned when a capability is marked
	// degraded and calls are short-circuited.
	ErrCapabilityDegraded = errors.New("capability degraded")

	// ErrRetryBudgetExhausted is returned when all configured attempts
	// failed with retryable errors.
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
)

// RateLimitError names the capability and the budget that was exceeded.
type RateLimitError struct {
	Capability string
	Tenant     string
	Limit      int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("capability %s exceeded %d invocations for tenant %s in this run",
		e.Capability, e.Limit, e.Tenant)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}

// DegradedError carries the recorded degradation reason.
type DegradedError struct {
	Capability string
	Reason     string
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("capability %s degraded: %s", e.Capability, e.Reason)
}

func (e *DegradedError) Unwrap() error {
	return ErrCapabilityDegraded
}
