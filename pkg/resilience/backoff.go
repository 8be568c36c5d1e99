package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffConfig tunes the retry backoff schedule.
type BackoffConfig struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	Jitter      float64 // Fraction of the delay randomized, 0..1
}

// DefaultBackoffConfig returns the shipping backoff defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 3,
		Jitter:      0.2,
	}
}

// Delay computes the sleep after the given zero-based failed attempt:
// base × 2^attempt × jitter, capped at MaxDelay.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if c.BaseDelay <= 0 {
		return 0
	}

	delay := float64(c.BaseDelay) * math.Pow(2, float64(attempt))
	if c.Jitter > 0 {
		spread := delay * c.Jitter
		delay = delay - spread/2 + rand.Float64()*spread
	}

	if max := float64(c.MaxDelay); c.MaxDelay > 0 && delay > max {
		delay = max
	}

	return time.Duration(delay)
}

// SleepWithContext blocks for d, returning early when ctx is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
