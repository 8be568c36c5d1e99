// Package report provides the built-in report delivery capability.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/protocol"
)

// ReportCapability records the final analysis report. The default sink is
// the structured log; embedding applications register their own capability
// under the same name to deliver elsewhere.
type ReportCapability struct {
	level  string
	logger *slog.Logger
}

func NewReportCapability(config map[string]any, logger *slog.Logger) (*ReportCapability, error) {
	level := "info"
	if lvl, ok := config["level"].(string); ok && lvl != "" {
		level = lvl
	}

	return &ReportCapability{
		level:  level,
		logger: logger.With("module", "report_capability"),
	}, nil
}

func (c *ReportCapability) Schema() *protocol.CapabilitySchema {
	return &protocol.CapabilitySchema{
		Name:        "report",
		Description: "Records the composed analysis report",
		Parameters: []protocol.ParameterSpec{
			{Name: "report_text", Description: "Final report body", Required: true},
			{Name: "summary", Description: "Short summary attached to the report"},
		},
		DataDependent: true,
		Service:       "local",
	}
}

func (c *ReportCapability) Execute(ctx context.Context, inputs map[string]any) *models.Envelope {
	reportText := fmt.Sprintf("%v", inputs["report_text"])

	logger := c.logger
	if summary, ok := inputs["summary"].(string); ok && summary != "" {
		logger = logger.With("summary", summary)
	}

	switch c.level {
	case "debug":
		logger.Debug(reportText)
	case "warn":
		logger.Warn(reportText)
	default:
		logger.Info(reportText)
	}

	return models.OkEnvelope(map[string]any{
		"report_text": reportText,
	})
}
