package resilience

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUpToBudget(t *testing.T) {
	limiter := NewRateLimiter(3, nil)

	for range 3 {
		require.NoError(t, limiter.Acquire("web_search", "tenant-1"))
	}

	err := limiter.Acquire("web_search", "tenant-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimitExceeded)

	var rateLimitErr *RateLimitError
	require.ErrorAs(t, err, &rateLimitErr)
	assert.Equal(t, "web_search", rateLimitErr.Capability)
	assert.Equal(t, 3, rateLimitErr.Limit)
}

func TestRateLimiterSeparatesTenants(t *testing.T) {
	limiter := NewRateLimiter(1, nil)

	require.NoError(t, limiter.Acquire("fetch", "tenant-1"))
	require.NoError(t, limiter.Acquire("fetch", "tenant-2"))

	assert.Error(t, limiter.Acquire("fetch", "tenant-1"))
}

func TestRateLimiterSeparatesCapabilities(t *testing.T) {
	limiter := NewRateLimiter(1, nil)

	require.NoError(t, limiter.Acquire("fetch", "tenant-1"))
	require.NoError(t, limiter.Acquire("web_search", "tenant-1"))
}

func TestRateLimiterOverride(t *testing.T) {
	limiter := NewRateLimiter(10, map[string]int{"messaging": 1})

	require.NoError(t, limiter.Acquire("messaging", "tenant-1"))
	assert.Error(t, limiter.Acquire("messaging", "tenant-1"))
}

func TestRateLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewRateLimiter(0, nil)

	for range 100 {
		require.NoError(t, limiter.Acquire("fetch", "tenant-1"))
	}

	assert.Equal(t, 0, limiter.Count("fetch", "tenant-1"))
}

func TestRateLimiterCount(t *testing.T) {
	limiter := NewRateLimiter(5, nil)

	require.NoError(t, limiter.Acquire("fetch", "tenant-1"))
	require.NoError(t, limiter.Acquire("fetch", "tenant-1"))

	assert.Equal(t, 2, limiter.Count("fetch", "tenant-1"))
	assert.Equal(t, 0, limiter.Count("fetch", "tenant-2"))
}

func TestRateLimitErrorUnwrapsToSentinel(t *testing.T) {
	err := &RateLimitError{Capability: "fetch", Tenant: "tenant-1", Limit: 1}

	assert.True(t, errors.Is(err, ErrRateLimitExceeded))
}
