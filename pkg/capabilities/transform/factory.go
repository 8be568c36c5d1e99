package transform

import (
	"context"
	"log/slog"

	"github.com/dmelo/skein/pkg/protocol"
)

// Factory creates TransformCapability instances.
type Factory struct{}

func NewFactory() protocol.CapabilityFactory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "transform"
}

func (f *Factory) Create(ctx context.Context, config map[string]any, logger *slog.Logger) (protocol.Capability, error) {
	return NewTransformCapability(config, logger)
}

func (f *Factory) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Capability name to register under",
				"default":     "transform",
			},
			"expression": map[string]any{
				"type":        "string",
				"description": "Go template evaluated against the materialized inputs",
				"examples": []string{
					"{{.text}}",
					"{{join \"; \" .claims}}",
				},
			},
			"output_key": map[string]any{
				"type":        "string",
				"description": "Payload key the rendered result is stored under",
				"default":     "result",
			},
		},
		"required": []string{"expression"},
	}
}
