package propagation

import (
	"log/slog"

	"github.com/dmelo/skein/pkg/protocol"
)

// Context-only keys carry orchestration state between stages and must never
// leak into a capability call, even for capabilities accepting arbitrary
// keyword input.
var contextOnlyKeys = map[string]struct{}{
	"depth":        {},
	"tenant_id":    {},
	"workspace_id": {},
	"run_id":       {},
	"stage":        {},
}

// Propagator resolves capability inputs in priority order: explicit
// argument (unless classified as placeholder), declared-dependency stage
// outputs, then the run-scoped shared context, then aliased context keys.
type Propagator struct {
	classifier *Classifier
	logger     *slog.Logger
}

// NewPropagator builds a propagator with the given placeholder classifier.
func NewPropagator(classifier *Classifier, logger *slog.Logger) *Propagator {
	return &Propagator{
		classifier: classifier,
		logger:     logger.With("module", "propagation"),
	}
}

// Materialize resolves the inputs for one capability call. Only declared
// parameters are forwarded; context-only keys are always stripped. For
// data-dependent capabilities a MissingContextError is returned when any
// required parameter stays unresolved after the full chain.
func (p *Propagator) Materialize(
	schema *protocol.CapabilitySchema,
	explicit map[string]any,
	depOutputs map[string]any,
	shared *SharedContext,
) (map[string]any, error) {
	inputs := make(map[string]any, len(schema.Parameters))

	for _, param := range schema.Parameters {
		if _, excluded := contextOnlyKeys[param.Name]; excluded {
			continue
		}

		value, ok := p.resolve(param, explicit, depOutputs, shared)
		if ok {
			inputs[param.Name] = value
		}
	}

	if schema.DataDependent {
		if err := p.validateRequired(schema, inputs, shared); err != nil {
			return nil, err
		}
	}

	return inputs, nil
}

// resolve walks the resolution chain for one parameter.
func (p *Propagator) resolve(
	param protocol.ParameterSpec,
	explicit map[string]any,
	depOutputs map[string]any,
	shared *SharedContext,
) (any, bool) {
	if value, ok := explicit[param.Name]; ok && p.concrete(param, value) {
		return value, true
	}

	if value, ok := depOutputs[param.Name]; ok && p.concrete(param, value) {
		return value, true
	}

	if value, ok := shared.Get(param.Name); ok && p.concrete(param, value) {
		return value, true
	}

	for _, alias := range Aliases(param.Name) {
		if value, ok := depOutputs[alias]; ok && p.concrete(param, value) {
			p.logger.Debug("resolved parameter via alias", "param", param.Name, "alias", alias)

			return value, true
		}

		if value, ok := shared.Get(alias); ok && p.concrete(param, value) {
			p.logger.Debug("resolved parameter via alias", "param", param.Name, "alias", alias)

			return value, true
		}
	}

	return nil, false
}

// concrete reports whether value is usable for param. Placeholder
// classification only applies to strings; structured values pass through.
func (p *Propagator) concrete(param protocol.ParameterSpec, value any) bool {
	str, isString := value.(string)
	if !isString {
		return value != nil
	}

	return !p.classifier.IsPlaceholder(param.Name, str, param.Enum)
}

// validateRequired fails fast when a data-dependent capability would be
// invoked with unresolved required parameters.
func (p *Propagator) validateRequired(
	schema *protocol.CapabilitySchema,
	inputs map[string]any,
	shared *SharedContext,
) error {
	var missing []string

	for _, name := range schema.RequiredParameters() {
		if _, excluded := contextOnlyKeys[name]; excluded {
			continue
		}

		if _, ok := inputs[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	return &MissingContextError{
		Capability:    schema.Name,
		Missing:       missing,
		AvailableKeys: shared.Keys(),
	}
}
