// Package transform provides the built-in template transformation
// capability.
package transform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/protocol"
	"github.com/dmelo/skein/pkg/template"
)

// TransformCapability reshapes stage data with a Go template expression
// configured at registration time. It runs locally and never talks to an
// external service, so its failures are always permanent.
type TransformCapability struct {
	name       string
	expression string
	outputKey  string
	logger     *slog.Logger
}

func NewTransformCapability(config map[string]any, logger *slog.Logger) (*TransformCapability, error) {
	expression, ok := config["expression"].(string)
	if !ok || expression == "" {
		return nil, fmt.Errorf("missing required field 'expression'")
	}

	name := "transform"
	if n, ok := config["name"].(string); ok && n != "" {
		name = n
	}

	outputKey := "result"
	if key, ok := config["output_key"].(string); ok && key != "" {
		outputKey = key
	}

	return &TransformCapability{
		name:       name,
		expression: expression,
		outputKey:  outputKey,
		logger:     logger.With("module", "transform_capability"),
	}, nil
}

func (c *TransformCapability) Schema() *protocol.CapabilitySchema {
	return &protocol.CapabilitySchema{
		Name:        c.name,
		Description: "Reshapes accumulated data with a template expression",
		Parameters: []protocol.ParameterSpec{
			{Name: "text", Description: "Primary text made available to the expression"},
		},
		Service: "local",
	}
}

func (c *TransformCapability) Execute(ctx context.Context, inputs map[string]any) *models.Envelope {
	rendered, err := template.Render(c.expression, inputs)
	if err != nil {
		return models.FailEnvelope(models.ErrorClassPermanent, fmt.Sprintf("transformation failed: %v", err))
	}

	return models.OkEnvelope(map[string]any{c.outputKey: rendered})
}
