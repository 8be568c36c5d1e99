package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/protocol"
)

// FallbackFunc produces a substitute envelope while a service's breaker is
// open.
type FallbackFunc func() *models.Envelope

// InvokerConfig tunes the composed resilience pipeline.
type InvokerConfig struct {
	Backoff     BackoffConfig
	Breaker     CircuitBreakerConfig
	Classifier  ClassifierConfig
	CallTimeout time.Duration
}

// DefaultInvokerConfig returns the shipping invoker defaults.
func DefaultInvokerConfig() InvokerConfig {
	return InvokerConfig{
		Backoff:     DefaultBackoffConfig(),
		Breaker:     DefaultCircuitBreakerConfig(),
		Classifier:  DefaultClassifierConfig(),
		CallTimeout: 60 * time.Second,
	}
}

// Call is one capability invocation request.
type Call struct {
	Capability protocol.Capability
	Inputs     map[string]any
	TenantID   string
	RunID      string
	Limiter    *RateLimiter
}

// Invoker wraps capability calls with the full resilience pipeline:
// degradation check, rate limit, circuit breaker, per-call timeout,
// classification, and classified retry with backoff. Breakers and the
// degradation registry are process-scoped and shared across runs; the rate
// limiter is run-scoped and supplied per call.
type Invoker struct {
	config       InvokerConfig
	classifier   *Classifier
	breakers     *BreakerRegistry
	degradations *DegradationRegistry
	fallbacks    map[string]FallbackFunc
	logger       *slog.Logger
}

// NewInvoker builds an invoker sharing the given breaker and degradation
// registries.
func NewInvoker(
	config InvokerConfig,
	breakers *BreakerRegistry,
	degradations *DegradationRegistry,
	logger *slog.Logger,
) *Invoker {
	return &Invoker{
		config:       config,
		classifier:   NewClassifier(config.Classifier),
		breakers:     breakers,
		degradations: degradations,
		fallbacks:    make(map[string]FallbackFunc),
		logger:       logger.With("module", "resilience"),
	}
}

// RegisterFallback installs a fallback producer used while the named
// service's breaker is open.
func (i *Invoker) RegisterFallback(service string, fallback FallbackFunc) {
	i.fallbacks[service] = fallback
}

// Breakers exposes the shared breaker registry for snapshot queries.
func (i *Invoker) Breakers() *BreakerRegistry {
	return i.breakers
}

// Degradations exposes the shared degradation registry.
func (i *Invoker) Degradations() *DegradationRegistry {
	return i.degradations
}

// Invoke executes one capability call through the resilience pipeline.
// It returns the final envelope, the number of attempts actually made,
// and an error when the call could not complete successfully. Permanent
// classification short-circuits with the attempt count staying at 1.
func (i *Invoker) Invoke(ctx context.Context, call Call) (*models.Envelope, int, error) {
	schema := call.Capability.Schema()
	logger := i.logger.With("capability", schema.Name, "service", schema.Service, "run_id", call.RunID)

	if record, degraded := i.degradations.Check(schema.Name, call.RunID); degraded {
		logger.Warn("skipping degraded capability", "reason", record.Reason)

		return nil, 0, &DegradedError{Capability: schema.Name, Reason: record.Reason}
	}

	if call.Limiter != nil {
		if err := call.Limiter.Acquire(schema.Name, call.TenantID); err != nil {
			logger.Warn("capability rate limit exceeded", "error", err)

			return nil, 0, err
		}
	}

	breaker := i.breakers.Get(schema.Service)

	var envelope *models.Envelope

	for attempt := 0; attempt < i.maxAttempts(); attempt++ {
		if err := breaker.Allow(); err != nil {
			if fallback, ok := i.fallbacks[schema.Service]; ok {
				logger.Warn("circuit open, serving fallback")

				substitute := fallback()
				if substitute.Metadata == nil {
					substitute.Metadata = make(map[string]any)
				}

				substitute.Metadata["fallback"] = true

				return substitute, attempt, nil
			}

			return envelope, attempt, fmt.Errorf("service %s: %w", schema.Service, err)
		}

		envelope = i.executeOnce(ctx, call)

		if envelope.Success {
			// A call that completed counts as a success even when the run
			// was cancelled while it was in flight.
			breaker.RecordSuccess()

			return envelope, attempt + 1, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			// Cancelled mid-flight: the side effect may or may not have
			// happened on the remote side.
			envelope = i.indeterminate(envelope, ctxErr)

			return envelope, attempt + 1, ctxErr
		}

		class := i.classifier.Classify(envelope)
		envelope.Class = class

		breaker.RecordFailure()

		if !i.classifier.Retryable(envelope, class) {
			logger.Error("capability failed permanently", "error", envelope.Error, "class", class)

			return envelope, attempt + 1, models.NewCapabilityError(schema.Name, class, envelope.Error, nil)
		}

		if attempt+1 >= i.maxAttempts() {
			break
		}

		delay := i.config.Backoff.Delay(attempt)
		if class == models.ErrorClassRateLimited && envelope.RetryAfter > 0 {
			// Server-provided hints beat the computed schedule.
			delay = envelope.RetryAfter
		}

		logger.Warn("capability failed, retrying",
			"attempt", attempt+1, "class", class, "delay", delay, "error", envelope.Error)

		if err := SleepWithContext(ctx, delay); err != nil {
			return envelope, attempt + 1, err
		}
	}

	return envelope, i.maxAttempts(), fmt.Errorf(
		"capability %s: %w after %d attempts: %s",
		schema.Name, ErrRetryBudgetExhausted, i.maxAttempts(), envelope.Error)
}

func (i *Invoker) executeOnce(ctx context.Context, call Call) *models.Envelope {
	callCtx := ctx

	if i.config.CallTimeout > 0 {
		var cancel context.CancelFunc

		callCtx, cancel = context.WithTimeout(ctx, i.config.CallTimeout)
		defer cancel()
	}

	envelope := call.Capability.Execute(callCtx, call.Inputs)
	if envelope == nil {
		envelope = models.FailEnvelope(models.ErrorClassTransient, "capability returned no envelope")
	}

	if !envelope.Success && envelope.Error == "" && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		envelope.Error = "capability call timeout"
	}

	return envelope
}

func (i *Invoker) indeterminate(envelope *models.Envelope, cause error) *models.Envelope {
	if envelope == nil {
		envelope = &models.Envelope{}
	}

	envelope.Success = false
	envelope.SideEffect = models.SideEffectIndeterminate

	if envelope.Error == "" {
		envelope.Error = cause.Error()
	}

	return envelope
}

func (i *Invoker) maxAttempts() int {
	if i.config.Backoff.MaxAttempts <= 0 {
		return 1
	}

	return i.config.Backoff.MaxAttempts
}
