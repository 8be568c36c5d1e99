// Package config provides YAML configuration loading for capabilities and
// scheduled watches.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmelo/skein/pkg/models"
)

// File is the structure of the skein.yaml configuration file.
type File struct {
	Capabilities []CapabilityConfig `yaml:"capabilities"`
	Watches      []WatchConfig      `yaml:"watches"`
}

// CapabilityConfig configures one capability instance from a factory.
type CapabilityConfig struct {
	Factory string         `yaml:"factory"`
	Config  map[string]any `yaml:"config"`
}

// WatchConfig schedules a recurring analysis of one resource.
type WatchConfig struct {
	ID          string         `yaml:"id"`
	Cron        string         `yaml:"cron"`
	TargetURL   string         `yaml:"target_url"`
	Depth       string         `yaml:"depth"`
	TenantID    string         `yaml:"tenant_id"`
	WorkspaceID string         `yaml:"workspace_id"`
	Metadata    map[string]any `yaml:"metadata"`
	Enabled     bool           `yaml:"enabled"`
}

// Request converts the watch entry into an analysis request.
func (w WatchConfig) Request() models.AnalysisRequest {
	depth := models.Depth(w.Depth)
	if depth == "" {
		depth = models.DepthStandard
	}

	return models.AnalysisRequest{
		TargetURL:   w.TargetURL,
		Depth:       depth,
		TenantID:    w.TenantID,
		WorkspaceID: w.WorkspaceID,
		Metadata:    w.Metadata,
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for i, capability := range file.Capabilities {
		if capability.Factory == "" {
			return nil, fmt.Errorf("capabilities[%d]: missing factory", i)
		}
	}

	return &file, nil
}
