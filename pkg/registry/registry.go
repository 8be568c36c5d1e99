// Package registry tracks the capability factories and configured
// capability instances available to the engine.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dmelo/skein/pkg/protocol"
)

type Registry struct {
	logger       *slog.Logger
	factories    map[string]protocol.CapabilityFactory
	capabilities map[string]protocol.Capability
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:       logger.With("module", "registry"),
		factories:    make(map[string]protocol.CapabilityFactory),
		capabilities: make(map[string]protocol.Capability),
	}
}

// RegisterFactory makes a capability factory available for configuration.
func (r *Registry) RegisterFactory(factory protocol.CapabilityFactory) {
	r.factories[factory.ID()] = factory
}

// Register installs an already-built capability instance under its schema
// name. Used by embedding applications and tests.
func (r *Registry) Register(capability protocol.Capability) {
	r.capabilities[capability.Schema().Name] = capability
}

// Configure instantiates a capability from its factory after validating
// config against the factory's declared JSON schema.
func (r *Registry) Configure(ctx context.Context, factoryID string, config map[string]any) error {
	factory, ok := r.factories[factoryID]
	if !ok {
		return fmt.Errorf("capability factory '%s' not registered", factoryID)
	}

	if schema := factory.ConfigSchema(); schema != nil {
		if err := validateConfig(schema, config); err != nil {
			return fmt.Errorf("capability %s config invalid: %w", factoryID, err)
		}
	}

	capability, err := factory.Create(ctx, config, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create capability %s: %w", factoryID, err)
	}

	r.capabilities[capability.Schema().Name] = capability
	r.logger.Info("Configured capability", "capability", capability.Schema().Name)

	return nil
}

// Capability looks up a configured capability by name.
func (r *Registry) Capability(name string) (protocol.Capability, bool) {
	capability, ok := r.capabilities[name]

	return capability, ok
}

// Schemas returns the schemas of every configured capability.
func (r *Registry) Schemas() []*protocol.CapabilitySchema {
	schemas := make([]*protocol.CapabilitySchema, 0, len(r.capabilities))
	for _, capability := range r.capabilities {
		schemas = append(schemas, capability.Schema())
	}

	return schemas
}

func validateConfig(schema map[string]any, config map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var messages []string
		for _, validationError := range result.Errors() {
			messages = append(messages, validationError.String())
		}

		return fmt.Errorf("JSON schema validation failed: %s", strings.Join(messages, "; "))
	}

	return nil
}
