// Package agent provides the HTTP client for the external text-generation
// service. Its output is free-form text; callers must interpret it before
// trusting any structure in it.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Config defines the agent client configuration.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

const defaultTimeout = 120 * time.Second

// HTTPAgent implements protocol.Agent against a completion-style HTTP API.
type HTTPAgent struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

func NewHTTPAgent(config Config, logger *slog.Logger) *HTTPAgent {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &HTTPAgent{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With("module", "agent"),
	}
}

type generateRequest struct {
	Model        string         `json:"model,omitempty"`
	Instructions string         `json:"instructions"`
	Context      map[string]any `json:"context,omitempty"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Generate sends the rendered instructions and the accumulated context to
// the generation endpoint and returns the raw response text.
func (a *HTTPAgent) Generate(ctx context.Context, instructions string, contextData map[string]any) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:        a.config.Model,
		Instructions: instructions,
		Context:      contextData,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create generation request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if a.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation service returned status %d: %s", resp.StatusCode, truncate(respBody, 256))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		// Some backends return plain text.
		return string(respBody), nil
	}

	if parsed.Error != "" {
		return "", fmt.Errorf("generation service error: %s", parsed.Error)
	}

	a.logger.Debug("Generated text", "bytes", len(parsed.Text))

	return parsed.Text, nil
}

func truncate(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}

	return string(body[:max]) + "..."
}
