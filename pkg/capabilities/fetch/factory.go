package fetch

import (
	"context"
	"log/slog"

	"github.com/dmelo/skein/pkg/protocol"
)

// Factory creates FetchCapability instances.
type Factory struct{}

func NewFactory() protocol.CapabilityFactory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "fetch"
}

func (f *Factory) Create(ctx context.Context, config map[string]any, logger *slog.Logger) (protocol.Capability, error) {
	return NewFetchCapability(config, logger)
}

func (f *Factory) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     defaultTimeout,
				"minimum":     1,
				"maximum":     300,
			},
			"max_body_bytes": map[string]any{
				"type":        "number",
				"description": "Maximum response body size read",
				"default":     defaultMaxBodyBytes,
				"minimum":     1,
			},
			"user_agent": map[string]any{
				"type":        "string",
				"description": "User-Agent header sent with every request",
			},
		},
	}
}
