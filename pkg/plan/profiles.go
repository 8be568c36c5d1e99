// Package plan expands a requested analysis depth into a versioned,
// ordered stage graph and computes its execution layers.
package plan

import (
	"github.com/dmelo/skein/pkg/models"
)

// ProfileVersion identifies the stage-list revision, recorded with every
// run so audit trails stay interpretable after profile changes.
const ProfileVersion = "v1"

// DefaultDepth is the canonical fallback for unknown depth values.
const DefaultDepth = models.DepthStandard

// Canonicalize maps a raw depth value onto a supported one. The second
// return value is false when the input was unknown and the default was
// substituted; callers must surface that, never silently execute an
// undefined stage set.
func Canonicalize(raw string) (models.Depth, bool) {
	switch models.Depth(raw) {
	case models.DepthQuick, models.DepthStandard, models.DepthDeep:
		return models.Depth(raw), true
	}

	return DefaultDepth, false
}

// Profile returns the fixed stage list for a depth. The returned slice is
// a fresh copy; callers may not mutate shared state through it.
func Profile(depth models.Depth) []models.StageDefinition {
	var stages []models.StageDefinition

	switch depth {
	case models.DepthQuick:
		stages = quickStages
	case models.DepthDeep:
		stages = deepStages
	default:
		stages = standardStages
	}

	out := make([]models.StageDefinition, len(stages))
	copy(out, stages)

	return out
}

var quickStages = []models.StageDefinition{
	{
		Name:       "fetch",
		Capability: "fetch",
		Requires:   []string{"url"},
		Produces:   []string{"raw_text", "content_type"},
	},
	{
		Name:         "summarize",
		Instructions: summarizeInstructions,
		Requires:     []string{"primary_text"},
		Produces:     []string{"summary_text", "key_points"},
		DependsOn:    []string{"fetch"},
	},
	{
		Name:         "report",
		Capability:   "report",
		Instructions: reportInstructions,
		Requires:     []string{"summary_text"},
		Produces:     []string{"report_text"},
		DependsOn:    []string{"summarize"},
	},
}

var standardStages = []models.StageDefinition{
	{
		Name:       "fetch",
		Capability: "fetch",
		Requires:   []string{"url"},
		Produces:   []string{"raw_text", "content_type"},
	},
	{
		Name:       "transcribe",
		Capability: "transcription",
		Requires:   []string{"media_url"},
		Produces:   []string{"transcript", "detected_language"},
		DependsOn:  []string{"fetch"},
	},
	{
		Name:         "summarize",
		Instructions: summarizeInstructions,
		Requires:     []string{"primary_text"},
		Produces:     []string{"summary_text", "key_points"},
		DependsOn:    []string{"transcribe"},
		Group:        "analysis",
	},
	{
		Name:         "claims",
		Instructions: claimsInstructions,
		Requires:     []string{"primary_text"},
		Produces:     []string{"claims"},
		DependsOn:    []string{"transcribe"},
		Group:        "analysis",
	},
	{
		Name:         "verify",
		Capability:   "web_search",
		Instructions: verifyInstructions,
		Requires:     []string{"claims"},
		Produces:     []string{"verdicts"},
		DependsOn:    []string{"claims"},
	},
	{
		Name:         "report",
		Capability:   "report",
		Instructions: reportInstructions,
		Requires:     []string{"summary_text"},
		Produces:     []string{"report_text"},
		DependsOn:    []string{"summarize", "verify"},
	},
}

var deepStages = []models.StageDefinition{
	{
		Name:       "fetch",
		Capability: "fetch",
		Requires:   []string{"url"},
		Produces:   []string{"raw_text", "content_type"},
	},
	{
		Name:       "transcribe",
		Capability: "transcription",
		Requires:   []string{"media_url"},
		Produces:   []string{"transcript", "detected_language"},
		DependsOn:  []string{"fetch"},
	},
	{
		Name:         "summarize",
		Instructions: summarizeInstructions,
		Requires:     []string{"primary_text"},
		Produces:     []string{"summary_text", "key_points"},
		DependsOn:    []string{"transcribe"},
		Group:        "analysis",
	},
	{
		Name:         "claims",
		Instructions: claimsInstructions,
		Requires:     []string{"primary_text"},
		Produces:     []string{"claims"},
		DependsOn:    []string{"transcribe"},
		Group:        "analysis",
	},
	{
		Name:         "topics",
		Instructions: topicsInstructions,
		Requires:     []string{"primary_text"},
		Produces:     []string{"topics", "sentiment"},
		DependsOn:    []string{"transcribe"},
		Group:        "analysis",
	},
	{
		Name:         "verify",
		Capability:   "web_search",
		Instructions: verifyInstructions,
		Requires:     []string{"claims"},
		Produces:     []string{"verdicts"},
		DependsOn:    []string{"claims"},
	},
	{
		Name:       "store",
		Capability: "vector_store",
		Requires:   []string{"summary_text"},
		Produces:   []string{"stored"},
		DependsOn:  []string{"summarize", "verify"},
		Group:      "persist",
	},
	{
		Name:       "notify",
		Capability: "messaging",
		Requires:   []string{"summary_text"},
		Produces:   []string{"notified"},
		DependsOn:  []string{"verify"},
		Group:      "persist",
	},
	{
		Name:         "report",
		Capability:   "report",
		Instructions: reportInstructions,
		Requires:     []string{"summary_text"},
		Produces:     []string{"report_text"},
		DependsOn:    []string{"store", "notify"},
	},
}

const summarizeInstructions = `Summarize the content below. Respond with a JSON object containing ` +
	`"summary_text" (a faithful summary in the source language) and "key_points" ` +
	`(an array of the most important statements).

Content:
{{.primary_text}}`

const claimsInstructions = `Extract every verifiable factual claim from the content below. Respond ` +
	`with a JSON object containing "claims": an array of short, self-contained claim strings.

Content:
{{.primary_text}}`

const topicsInstructions = `Identify the main topics and the overall sentiment of the content below. ` +
	`Respond with a JSON object containing "topics" (array of topic strings) and ` +
	`"sentiment" (one of "positive", "neutral", "negative").

Content:
{{.primary_text}}`

const verifyInstructions = `For each claim below, assess whether it is supported, contradicted, or ` +
	`unverifiable. Respond with a JSON object containing "verdicts": an array of ` +
	`{"claim", "verdict", "rationale"} objects.

Claims:
{{.claims}}`

const reportInstructions = `Compose a final analysis report from the accumulated findings. Respond ` +
	`with a JSON object containing "report_text".

Summary:
{{.summary_text}}

Verdicts:
{{.verdicts}}`
