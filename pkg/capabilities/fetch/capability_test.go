package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmelo/skein/pkg/models"
)

func newFetch(t *testing.T, config map[string]any) *FetchCapability {
	t.Helper()

	capability, err := NewFetchCapability(config, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return capability
}

func TestExecuteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "skein/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>article body</html>"))
	}))
	defer server.Close()

	envelope := newFetch(t, nil).Execute(context.Background(), map[string]any{"url": server.URL})

	require.True(t, envelope.Success)
	assert.Equal(t, "<html>article body</html>", envelope.Payload["raw_text"])
	assert.Equal(t, "text/html; charset=utf-8", envelope.Payload["content_type"])
	assert.Equal(t, http.StatusOK, envelope.Payload["status_code"])
}

func TestExecuteNotFoundIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	envelope := newFetch(t, nil).Execute(context.Background(), map[string]any{"url": server.URL})

	require.False(t, envelope.Success)
	assert.Equal(t, models.ErrorClassPermanent, envelope.Class)
	assert.False(t, envelope.Retryable)
	assert.Equal(t, http.StatusNotFound, envelope.Metadata["status_code"])
}

func TestExecuteServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	envelope := newFetch(t, nil).Execute(context.Background(), map[string]any{"url": server.URL})

	require.False(t, envelope.Success)
	assert.Equal(t, models.ErrorClassTransient, envelope.Class)
	assert.True(t, envelope.Retryable)
}

func TestExecuteRateLimitedCarriesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	envelope := newFetch(t, nil).Execute(context.Background(), map[string]any{"url": server.URL})

	require.False(t, envelope.Success)
	assert.Equal(t, models.ErrorClassRateLimited, envelope.Class)
	assert.Equal(t, 7*time.Second, envelope.RetryAfter)
}

func TestExecuteMissingURL(t *testing.T) {
	envelope := newFetch(t, nil).Execute(context.Background(), map[string]any{})

	require.False(t, envelope.Success)
	assert.Equal(t, models.ErrorClassPermanent, envelope.Class)
	assert.Contains(t, envelope.Error, "url")
}

func TestExecuteConnectionRefusedIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	server.Close()

	envelope := newFetch(t, nil).Execute(context.Background(), map[string]any{"url": server.URL})

	require.False(t, envelope.Success)
	assert.Equal(t, models.ErrorClassTransient, envelope.Class)
}

func TestExecuteRespectsBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 1024)))
	}))
	defer server.Close()

	capability := newFetch(t, map[string]any{"max_body_bytes": float64(16)})

	envelope := capability.Execute(context.Background(), map[string]any{"url": server.URL})

	require.True(t, envelope.Success)
	assert.Len(t, envelope.Payload["raw_text"], 16)
}

func TestExecuteCustomMethod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
	}))
	defer server.Close()

	envelope := newFetch(t, nil).Execute(context.Background(), map[string]any{
		"url":    server.URL,
		"method": "head",
	})

	assert.True(t, envelope.Success)
}
