package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmelo/skein/pkg/models"
)

func TestCanonicalizeSupportedDepths(t *testing.T) {
	for _, raw := range []string{"quick", "standard", "deep"} {
		depth, known := Canonicalize(raw)

		assert.True(t, known, raw)
		assert.Equal(t, models.Depth(raw), depth)
	}
}

func TestCanonicalizeUnknownFallsBackToDefault(t *testing.T) {
	depth, known := Canonicalize("exhaustive")

	assert.False(t, known)
	assert.Equal(t, DefaultDepth, depth)
}

func TestBuildForDepthQuick(t *testing.T) {
	graph, err := BuildForDepth(models.DepthQuick)

	require.NoError(t, err)
	assert.Equal(t, ProfileVersion, graph.Version)
	assert.Len(t, graph.Stages, 3)

	layers := graph.Layers()
	require.Len(t, layers, 3)
	assert.Equal(t, "fetch", layers[0][0].Name)
	assert.Equal(t, "summarize", layers[1][0].Name)
	assert.Equal(t, "report", layers[2][0].Name)
}

func TestBuildForDepthStandardLayersSiblings(t *testing.T) {
	graph, err := BuildForDepth(models.DepthStandard)

	require.NoError(t, err)

	layers := graph.Layers()
	require.Len(t, layers, 5)

	// summarize and claims both depend only on transcribe and run together.
	analysisLayer := names(layers[2])
	assert.ElementsMatch(t, []string{"summarize", "claims"}, analysisLayer)
}

func TestBuildForDepthDeep(t *testing.T) {
	graph, err := BuildForDepth(models.DepthDeep)

	require.NoError(t, err)

	stage, ok := graph.Stage("store")
	require.True(t, ok)
	assert.Equal(t, "vector_store", stage.Capability)
	assert.Equal(t, "persist", stage.Group)
}

func TestBuildRejectsEmptyProfile(t *testing.T) {
	_, err := Build(models.DepthQuick, nil)

	assert.ErrorIs(t, err, models.ErrEmptyProfile)
}

func TestBuildRejectsStageWithoutWork(t *testing.T) {
	_, err := Build(models.DepthQuick, []models.StageDefinition{
		{Name: "idle"},
	})

	assert.ErrorIs(t, err, models.ErrInvalidStageDefinition)
}

func TestBuildAcceptsAgentOnlyStage(t *testing.T) {
	graph, err := Build(models.DepthQuick, []models.StageDefinition{
		{Name: "fetch", Capability: "fetch"},
		{Name: "summarize", Instructions: "Summarize {{.raw_text}}", DependsOn: []string{"fetch"}},
	})

	require.NoError(t, err)

	stage, ok := graph.Stage("summarize")
	require.True(t, ok)
	assert.Empty(t, stage.Capability)
}

func TestBuildRejectsDuplicateStage(t *testing.T) {
	_, err := Build(models.DepthQuick, []models.StageDefinition{
		{Name: "fetch", Capability: "fetch"},
		{Name: "fetch", Capability: "fetch"},
	})

	assert.ErrorIs(t, err, models.ErrInvalidStageDefinition)
}

func TestBuildRejectsUnknownDependency(t *testing.T) {
	_, err := Build(models.DepthQuick, []models.StageDefinition{
		{Name: "report", Capability: "report", DependsOn: []string{"missing"}},
	})

	assert.ErrorIs(t, err, models.ErrUnknownDependency)
}

func TestBuildRejectsCycle(t *testing.T) {
	_, err := Build(models.DepthQuick, []models.StageDefinition{
		{Name: "a", Capability: "x", DependsOn: []string{"b"}},
		{Name: "b", Capability: "x", DependsOn: []string{"a"}},
	})

	assert.ErrorIs(t, err, models.ErrCyclicDependency)
}

func TestProfileReturnsCopy(t *testing.T) {
	first := Profile(models.DepthQuick)
	first[0].Name = "mutated"

	second := Profile(models.DepthQuick)
	assert.Equal(t, "fetch", second[0].Name)
}
