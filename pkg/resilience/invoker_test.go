package resilience

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/protocol"
)

type scriptedCapability struct {
	schema  *protocol.CapabilitySchema
	results []*models.Envelope
	calls   int
}

func (c *scriptedCapability) Schema() *protocol.CapabilitySchema { return c.schema }

func (c *scriptedCapability) Execute(_ context.Context, _ map[string]any) *models.Envelope {
	c.calls++

	if c.calls > len(c.results) {
		return models.OkEnvelope(map[string]any{"ok": true})
	}

	return c.results[c.calls-1]
}

func scripted(results ...*models.Envelope) *scriptedCapability {
	return &scriptedCapability{
		schema:  &protocol.CapabilitySchema{Name: "fetch", Service: "http_origin"},
		results: results,
	}
}

func testInvokerConfig() InvokerConfig {
	return InvokerConfig{
		Backoff: BackoffConfig{
			BaseDelay:   time.Millisecond,
			MaxDelay:    10 * time.Millisecond,
			MaxAttempts: 3,
		},
		Breaker:    testBreakerConfig(),
		Classifier: DefaultClassifierConfig(),
	}
}

func newTestInvoker(config InvokerConfig) (*Invoker, *BreakerRegistry, *DegradationRegistry) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	breakers := NewBreakerRegistry(config.Breaker)
	degradations := NewDegradationRegistry()

	return NewInvoker(config, breakers, degradations, logger), breakers, degradations
}

func TestInvokeSuccessFirstAttempt(t *testing.T) {
	invoker, _, _ := newTestInvoker(testInvokerConfig())
	capability := scripted()

	envelope, attempts, err := invoker.Invoke(context.Background(), Call{
		Capability: capability,
		TenantID:   "tenant-1",
		RunID:      "run-1",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, envelope.Success)
	assert.Equal(t, 1, capability.calls)
}

func TestInvokeRetriesTransientThenSucceeds(t *testing.T) {
	invoker, _, _ := newTestInvoker(testInvokerConfig())
	capability := scripted(
		models.FailEnvelope(models.ErrorClassTransient, "connection reset"),
		models.FailEnvelope(models.ErrorClassTransient, "connection reset"),
	)

	envelope, attempts, err := invoker.Invoke(context.Background(), Call{
		Capability: capability,
		RunID:      "run-1",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, envelope.Success)
}

func TestInvokePermanentShortCircuits(t *testing.T) {
	invoker, _, _ := newTestInvoker(testInvokerConfig())
	capability := scripted(
		models.FailEnvelope(models.ErrorClassPermanent, "404 not found"),
	)

	envelope, attempts, err := invoker.Invoke(context.Background(), Call{
		Capability: capability,
		RunID:      "run-1",
	})

	require.Error(t, err)
	assert.True(t, models.IsPermanent(err))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, capability.calls)
	assert.Equal(t, models.ErrorClassPermanent, envelope.Class)
}

func TestInvokeRetryableVetoStopsRetry(t *testing.T) {
	invoker, _, _ := newTestInvoker(testInvokerConfig())
	capability := scripted(&models.Envelope{
		Error:     "insufficient quota",
		Class:     models.ErrorClassTransient,
		Retryable: false,
	})

	_, attempts, err := invoker.Invoke(context.Background(), Call{
		Capability: capability,
		RunID:      "run-1",
	})

	require.Error(t, err)

	var capErr *models.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, models.ErrorClassTransient, capErr.Class)
	assert.Equal(t, 1, attempts)
}

func TestInvokeRetryBudgetExhausted(t *testing.T) {
	invoker, _, _ := newTestInvoker(testInvokerConfig())
	capability := scripted(
		models.FailEnvelope(models.ErrorClassTransient, "i/o timeout"),
		models.FailEnvelope(models.ErrorClassTransient, "i/o timeout"),
		models.FailEnvelope(models.ErrorClassTransient, "i/o timeout"),
	)

	envelope, attempts, err := invoker.Invoke(context.Background(), Call{
		Capability: capability,
		RunID:      "run-1",
	})

	require.ErrorIs(t, err, ErrRetryBudgetExhausted)
	assert.Equal(t, 3, attempts)
	assert.False(t, envelope.Success)
	assert.Equal(t, models.ErrorClassTransient, envelope.Class)
}

func TestInvokeRateLimitHintOverridesBackoff(t *testing.T) {
	config := testInvokerConfig()
	config.Backoff.BaseDelay = time.Minute
	config.Backoff.MaxDelay = time.Minute
	config.Backoff.MaxAttempts = 2

	invoker, _, _ := newTestInvoker(config)

	limited := models.FailEnvelope(models.ErrorClassRateLimited, "too many requests")
	limited.RetryAfter = 5 * time.Millisecond
	capability := scripted(limited)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	envelope, attempts, err := invoker.Invoke(ctx, Call{
		Capability: capability,
		RunID:      "run-1",
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.True(t, envelope.Success)
}

func TestInvokeDegradedShortCircuits(t *testing.T) {
	invoker, _, degradations := newTestInvoker(testInvokerConfig())
	degradations.MarkDegraded("fetch", "origin unreachable", ScopeRun, "run-1")

	capability := scripted()

	_, attempts, err := invoker.Invoke(context.Background(), Call{
		Capability: capability,
		RunID:      "run-1",
	})

	require.ErrorIs(t, err, ErrCapabilityDegraded)
	assert.Equal(t, 0, attempts)
	assert.Equal(t, 0, capability.calls)

	var degradedErr *DegradedError
	require.ErrorAs(t, err, &degradedErr)
	assert.Equal(t, "origin unreachable", degradedErr.Reason)
}

func TestInvokeRateLimiterEnforced(t *testing.T) {
	invoker, _, _ := newTestInvoker(testInvokerConfig())
	limiter := NewRateLimiter(1, nil)
	capability := scripted()

	call := Call{Capability: capability, TenantID: "tenant-1", RunID: "run-1", Limiter: limiter}

	_, _, err := invoker.Invoke(context.Background(), call)
	require.NoError(t, err)

	_, attempts, err := invoker.Invoke(context.Background(), call)
	require.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, 0, attempts)
	assert.Equal(t, 1, capability.calls)
}

func TestInvokeBreakerOpenFailsFast(t *testing.T) {
	invoker, breakers, _ := newTestInvoker(testInvokerConfig())

	breaker := breakers.Get("http_origin")
	for range 3 {
		breaker.RecordFailure()
	}

	capability := scripted()

	_, attempts, err := invoker.Invoke(context.Background(), Call{
		Capability: capability,
		RunID:      "run-1",
	})

	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 0, attempts)
	assert.Equal(t, 0, capability.calls)
}

func TestInvokeBreakerOpenServesFallback(t *testing.T) {
	invoker, breakers, _ := newTestInvoker(testInvokerConfig())
	invoker.RegisterFallback("http_origin", func() *models.Envelope {
		return models.OkEnvelope(map[string]any{"raw_text": "cached copy"})
	})

	breaker := breakers.Get("http_origin")
	for range 3 {
		breaker.RecordFailure()
	}

	envelope, _, err := invoker.Invoke(context.Background(), Call{
		Capability: scripted(),
		RunID:      "run-1",
	})

	require.NoError(t, err)
	assert.True(t, envelope.Success)
	assert.Equal(t, true, envelope.Metadata["fallback"])
	assert.Equal(t, "cached copy", envelope.Payload["raw_text"])
}

func TestInvokeNilEnvelopeTreatedAsTransient(t *testing.T) {
	config := testInvokerConfig()
	config.Backoff.MaxAttempts = 1

	invoker, _, _ := newTestInvoker(config)
	capability := &scriptedCapability{
		schema:  &protocol.CapabilitySchema{Name: "fetch", Service: "http_origin"},
		results: []*models.Envelope{nil},
	}

	envelope, _, err := invoker.Invoke(context.Background(), Call{
		Capability: capability,
		RunID:      "run-1",
	})

	require.ErrorIs(t, err, ErrRetryBudgetExhausted)
	assert.Equal(t, models.ErrorClassTransient, envelope.Class)
}

func TestInvokeCancelledMidFlightMarksIndeterminate(t *testing.T) {
	invoker, _, _ := newTestInvoker(testInvokerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	capability := &cancellingCapability{cancel: cancel}

	envelope, attempts, err := invoker.Invoke(ctx, Call{
		Capability: capability,
		RunID:      "run-1",
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, models.SideEffectIndeterminate, envelope.SideEffect)
}

type cancellingCapability struct {
	cancel context.CancelFunc
}

func (c *cancellingCapability) Schema() *protocol.CapabilitySchema {
	return &protocol.CapabilitySchema{Name: "notify", Service: "messaging"}
}

func (c *cancellingCapability) Execute(_ context.Context, _ map[string]any) *models.Envelope {
	c.cancel()

	return models.FailEnvelope(models.ErrorClassTransient, "interrupted")
}
