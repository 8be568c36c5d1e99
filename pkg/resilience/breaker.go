package resilience

import (
	"sync"
	"time"
)

// CircuitBreakerState defines the breaker states.
type CircuitBreakerState string

const (
	CircuitClosed   CircuitBreakerState = "closed"
	CircuitOpen     CircuitBreakerState = "open"
	CircuitHalfOpen CircuitBreakerState = "half_open"
)

// CircuitBreakerConfig tunes when a breaker opens and how it probes for
// recovery.
type CircuitBreakerConfig struct {
	WindowSize       int           // Rolling outcome window length
	FailureThreshold int           // Failures within the window that open the circuit
	FailureRate      float64       // Alternative rate threshold, evaluated on a full window
	Cooldown         time.Duration // Open duration before a half-open trial
}

// DefaultCircuitBreakerConfig returns the shipping breaker defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		WindowSize:       10,
		FailureThreshold: 5,
		FailureRate:      0.6,
		Cooldown:         30 * time.Second,
	}
}

// CircuitSnapshot is the queryable state of one breaker.
type CircuitSnapshot struct {
	Service  string              `json:"service"`
	State    CircuitBreakerState `json:"state"`
	Failures int                 `json:"failures"`
	Window   int                 `json:"window"`
	OpenedAt *time.Time          `json:"opened_at,omitempty"`
}

// CircuitBreaker guards one external service. While open, calls fail fast
// without invoking the underlying capability; after the cooldown exactly
// one trial call is admitted.
type CircuitBreaker struct {
	mu       sync.Mutex
	service  string
	config   CircuitBreakerConfig
	state    CircuitBreakerState
	window   []bool // true = failure
	openedAt time.Time
	trialing bool
}

// NewCircuitBreaker creates a closed breaker for the given service.
func NewCircuitBreaker(service string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.WindowSize <= 0 {
		config.WindowSize = DefaultCircuitBreakerConfig().WindowSize
	}

	return &CircuitBreaker{
		service: service,
		config:  config,
		state:   CircuitClosed,
	}
}

// Allow reports whether a call may proceed. In half-open state only the
// single trial call is admitted.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if time.Since(b.openedAt) < b.config.Cooldown {
			return ErrCircuitOpen
		}

		b.state = CircuitHalfOpen
		b.trialing = true

		return nil
	case CircuitHalfOpen:
		if b.trialing {
			return ErrCircuitOpen
		}

		b.trialing = true

		return nil
	}

	return nil
}

// RecordSuccess registers a successful call outcome.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen {
		b.state = CircuitClosed
		b.trialing = false
		b.window = nil

		return
	}

	b.push(false)
}

// RecordFailure registers a failed call outcome, opening the circuit when
// the window threshold is exceeded.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen {
		b.open()

		return
	}

	b.push(true)

	failures := b.failures()
	rateExceeded := len(b.window) == b.config.WindowSize &&
		b.config.FailureRate > 0 &&
		float64(failures)/float64(len(b.window)) >= b.config.FailureRate

	if (b.config.FailureThreshold > 0 && failures >= b.config.FailureThreshold) || rateExceeded {
		b.open()
	}
}

// Snapshot returns the current breaker state.
func (b *CircuitBreaker) Snapshot() CircuitSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := CircuitSnapshot{
		Service:  b.service,
		State:    b.state,
		Failures: b.failures(),
		Window:   len(b.window),
	}

	if b.state != CircuitClosed {
		openedAt := b.openedAt
		snapshot.OpenedAt = &openedAt
	}

	return snapshot
}

func (b *CircuitBreaker) open() {
	b.state = CircuitOpen
	b.openedAt = time.Now()
	b.trialing = false
	b.window = nil
}

func (b *CircuitBreaker) push(failure bool) {
	b.window = append(b.window, failure)
	if len(b.window) > b.config.WindowSize {
		b.window = b.window[1:]
	}
}

func (b *CircuitBreaker) failures() int {
	count := 0

	for _, failed := range b.window {
		if failed {
			count++
		}
	}

	return count
}

// BreakerRegistry holds one breaker per external service, created lazily
// on first call and kept for the process lifetime.
type BreakerRegistry struct {
	mu       sync.Mutex
	config   CircuitBreakerConfig
	breakers map[string]*CircuitBreaker
}

// NewBreakerRegistry creates a registry applying config to every breaker.
func NewBreakerRegistry(config CircuitBreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for service, creating it if needed.
func (r *BreakerRegistry) Get(service string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	breaker, ok := r.breakers[service]
	if !ok {
		breaker = NewCircuitBreaker(service, r.config)
		r.breakers[service] = breaker
	}

	return breaker
}

// Reset discards the breaker for service, returning it to closed on next use.
func (r *BreakerRegistry) Reset(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.breakers, service)
}

// Snapshots returns the state of every known breaker.
func (r *BreakerRegistry) Snapshots() []CircuitSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make([]CircuitSnapshot, 0, len(r.breakers))
	for _, breaker := range r.breakers {
		snapshots = append(snapshots, breaker.Snapshot())
	}

	return snapshots
}
