// Package fetch provides the built-in HTTP content retrieval capability.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/protocol"
)

// Config defines the fetch capability configuration.
type Config struct {
	Timeout      int    `json:"timeout"`
	MaxBodyBytes int64  `json:"max_body_bytes"`
	UserAgent    string `json:"user_agent"`
}

const (
	defaultTimeout      = 30
	defaultMaxBodyBytes = 4 << 20
	defaultUserAgent    = "skein/1.0"
)

// FetchCapability retrieves content over HTTP. Failures are classified in
// the returned envelope: 4xx is permanent, 429 rate limited with the
// server's Retry-After hint, 5xx and network errors transient.
type FetchCapability struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

func NewFetchCapability(config map[string]any, logger *slog.Logger) (*FetchCapability, error) {
	cfg := Config{
		Timeout:      defaultTimeout,
		MaxBodyBytes: defaultMaxBodyBytes,
		UserAgent:    defaultUserAgent,
	}

	// Numbers arrive as float64 from JSON and as int from YAML.
	if timeout, ok := toInt64(config["timeout"]); ok {
		cfg.Timeout = int(timeout)
	}

	if maxBody, ok := toInt64(config["max_body_bytes"]); ok {
		cfg.MaxBodyBytes = maxBody
	}

	if userAgent, ok := config["user_agent"].(string); ok && userAgent != "" {
		cfg.UserAgent = userAgent
	}

	return &FetchCapability{
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		logger: logger.With("module", "fetch_capability"),
	}, nil
}

func (c *FetchCapability) Schema() *protocol.CapabilitySchema {
	return &protocol.CapabilitySchema{
		Name:        "fetch",
		Description: "Retrieves content from a URL over HTTP",
		Parameters: []protocol.ParameterSpec{
			{Name: "url", Description: "Target URL to retrieve", Required: true},
			{Name: "method", Description: "HTTP method", Enum: true},
		},
		DataDependent: true,
		Service:       "http_origin",
	}
}

func (c *FetchCapability) Execute(ctx context.Context, inputs map[string]any) *models.Envelope {
	url, _ := inputs["url"].(string)
	if url == "" {
		return models.FailEnvelope(models.ErrorClassPermanent, "missing required input 'url'")
	}

	method := http.MethodGet
	if m, ok := inputs["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return models.FailEnvelope(models.ErrorClassPermanent, fmt.Sprintf("failed to create request: %v", err))
	}

	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return models.FailEnvelope(models.ErrorClassTransient, fmt.Sprintf("request failed: %v", err))
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.failFromStatus(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes))
	if err != nil {
		return models.FailEnvelope(models.ErrorClassTransient, fmt.Sprintf("failed to read response: %v", err))
	}

	c.logger.Debug("Fetched content", "url", url, "status", resp.StatusCode, "bytes", len(body))

	return models.OkEnvelope(map[string]any{
		"raw_text":     string(body),
		"content_type": resp.Header.Get("Content-Type"),
		"status_code":  resp.StatusCode,
	})
}

func (c *FetchCapability) failFromStatus(resp *http.Response) *models.Envelope {
	message := fmt.Sprintf("origin returned status %d", resp.StatusCode)

	var envelope *models.Envelope

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		envelope = models.FailEnvelope(models.ErrorClassRateLimited, message)
		envelope.RetryAfter = retryAfter(resp.Header.Get("Retry-After"))
	case resp.StatusCode >= http.StatusInternalServerError:
		envelope = models.FailEnvelope(models.ErrorClassTransient, message)
	default:
		envelope = models.FailEnvelope(models.ErrorClassPermanent, message)
	}

	envelope.Metadata = map[string]any{"status_code": resp.StatusCode}

	return envelope
}

func toInt64(value any) (int64, bool) {
	switch n := value.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}

	return 0, false
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}
