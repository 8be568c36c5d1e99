package report

import (
	"context"
	"log/slog"

	"github.com/dmelo/skein/pkg/protocol"
)

// Factory creates ReportCapability instances.
type Factory struct{}

func NewFactory() protocol.CapabilityFactory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "report"
}

func (f *Factory) Create(ctx context.Context, config map[string]any, logger *slog.Logger) (protocol.Capability, error) {
	return NewReportCapability(config, logger)
}

func (f *Factory) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level": map[string]any{
				"type":        "string",
				"description": "Log level used when recording the report",
				"default":     "info",
				"enum":        []string{"debug", "info", "warn"},
			},
		},
	}
}
