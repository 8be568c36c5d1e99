// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"context"
	"log/slog"

	"github.com/dmelo/skein/pkg/capabilities/fetch"
	"github.com/dmelo/skein/pkg/capabilities/report"
	"github.com/dmelo/skein/pkg/capabilities/transform"
	"github.com/dmelo/skein/pkg/registry"
)

func registerNativeCapabilities(ctx context.Context, reg *registry.Registry) {
	reg.RegisterFactory(fetch.NewFactory())
	reg.RegisterFactory(transform.NewFactory())
	reg.RegisterFactory(report.NewFactory())

	// Native capabilities are configured with their defaults; embedding
	// applications reconfigure through the registry.
	for _, factoryID := range []string{"fetch", "report"} {
		if err := reg.Configure(ctx, factoryID, map[string]any{}); err != nil {
			panic(err)
		}
	}
}

func NewRegistry(ctx context.Context, logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativeCapabilities(ctx, reg)

	return reg
}
