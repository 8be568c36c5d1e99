package plan

import (
	"fmt"

	"github.com/dmelo/skein/pkg/models"
)

// Graph is a validated stage DAG ready for layered execution.
type Graph struct {
	Depth   models.Depth
	Version string
	Stages  []models.StageDefinition

	byName map[string]models.StageDefinition
	layers [][]models.StageDefinition
}

// Build validates the stage list for a depth and computes its topological
// layers. Stages in the same layer have all dependencies satisfied by
// earlier layers and run concurrently.
func Build(depth models.Depth, stages []models.StageDefinition) (*Graph, error) {
	if len(stages) == 0 {
		return nil, models.ErrEmptyProfile
	}

	byName := make(map[string]models.StageDefinition, len(stages))

	for _, stage := range stages {
		if stage.Name == "" || (stage.Capability == "" && stage.Instructions == "") {
			return nil, fmt.Errorf("%w: stage %q needs a name and a capability or instructions",
				models.ErrInvalidStageDefinition, stage.Name)
		}

		if _, dup := byName[stage.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate stage %q", models.ErrInvalidStageDefinition, stage.Name)
		}

		byName[stage.Name] = stage
	}

	for _, stage := range stages {
		for _, dep := range stage.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("%w: stage %q depends on %q", models.ErrUnknownDependency, stage.Name, dep)
			}
		}
	}

	layers, err := layer(stages)
	if err != nil {
		return nil, err
	}

	return &Graph{
		Depth:   depth,
		Version: ProfileVersion,
		Stages:  stages,
		byName:  byName,
		layers:  layers,
	}, nil
}

// BuildForDepth expands a depth into its profile and builds the graph.
func BuildForDepth(depth models.Depth) (*Graph, error) {
	return Build(depth, Profile(depth))
}

// Layers returns the topological execution layers in order.
func (g *Graph) Layers() [][]models.StageDefinition {
	return g.layers
}

// Stage looks up a stage definition by name.
func (g *Graph) Stage(name string) (models.StageDefinition, bool) {
	stage, ok := g.byName[name]

	return stage, ok
}

// layer performs Kahn-style leveling: every stage lands in the first layer
// where all of its dependencies are already placed. A leftover stage means
// a dependency cycle.
func layer(stages []models.StageDefinition) ([][]models.StageDefinition, error) {
	placed := make(map[string]bool, len(stages))
	remaining := make([]models.StageDefinition, len(stages))
	copy(remaining, stages)

	var layers [][]models.StageDefinition

	for len(remaining) > 0 {
		var current []models.StageDefinition

		var next []models.StageDefinition

		for _, stage := range remaining {
			ready := true

			for _, dep := range stage.DependsOn {
				if !placed[dep] {
					ready = false

					break
				}
			}

			if ready {
				current = append(current, stage)
			} else {
				next = append(next, stage)
			}
		}

		if len(current) == 0 {
			return nil, fmt.Errorf("%w: stages %v", models.ErrCyclicDependency, names(next))
		}

		for _, stage := range current {
			placed[stage.Name] = true
		}

		layers = append(layers, current)
		remaining = next
	}

	return layers, nil
}

func names(stages []models.StageDefinition) []string {
	out := make([]string, 0, len(stages))
	for _, stage := range stages {
		out = append(out, stage.Name)
	}

	return out
}
