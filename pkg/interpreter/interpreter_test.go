package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretLabeledFence(t *testing.T) {
	raw := "Here is the summary you asked for:\n```json\n{\"summary_text\": \"short summary\", \"key_points\": [\"a\", \"b\"]}\n```\nLet me know if you need more."

	result := Interpret(raw)

	require.False(t, result.LowConfidence)
	assert.Equal(t, "short summary", result.Payload["summary_text"])
	assert.Len(t, result.Payload["key_points"], 2)
	assert.Equal(t, raw, result.Raw)
}

func TestInterpretUnlabeledFence(t *testing.T) {
	raw := "```\n{\"claims\": [\"water boils at 100C\"]}\n```"

	result := Interpret(raw)

	require.False(t, result.LowConfidence)
	assert.Len(t, result.Payload["claims"], 1)
}

func TestInterpretLabeledFenceWinsOverUnlabeled(t *testing.T) {
	raw := "```\n{\"from\": \"plain\"}\n```\n```json\n{\"from\": \"labeled\"}\n```"

	result := Interpret(raw)

	require.False(t, result.LowConfidence)
	assert.Equal(t, "labeled", result.Payload["from"])
}

func TestInterpretInlineObject(t *testing.T) {
	raw := `The result is {"topics": ["energy"], "sentiment": "neutral"} as requested.`

	result := Interpret(raw)

	require.False(t, result.LowConfidence)
	assert.Equal(t, "neutral", result.Payload["sentiment"])
}

func TestInterpretNestedInlineObject(t *testing.T) {
	raw := `Output: {"outer": {"inner": 1}} trailing prose with } brace`

	result := Interpret(raw)

	require.False(t, result.LowConfidence)
	assert.Contains(t, result.Payload, "outer")
}

func TestInterpretTrailingComma(t *testing.T) {
	raw := "```json\n{\"summary_text\": \"ok\", \"key_points\": [\"a\", \"b\",],}\n```"

	result := Interpret(raw)

	require.False(t, result.LowConfidence)
	assert.Equal(t, "ok", result.Payload["summary_text"])
}

func TestInterpretSingleQuotes(t *testing.T) {
	raw := "{'summary_text': 'fine'}"

	result := Interpret(raw)

	require.False(t, result.LowConfidence)
	assert.Equal(t, "fine", result.Payload["summary_text"])
}

func TestInterpretRawNewlinesInStrings(t *testing.T) {
	raw := "{\"report_text\": \"line one\nline two\"}"

	result := Interpret(raw)

	require.False(t, result.LowConfidence)
	assert.Equal(t, "line one\nline two", result.Payload["report_text"])
}

func TestInterpretTopLevelArray(t *testing.T) {
	raw := "```json\n[\"first claim\", \"second claim\"]\n```"

	result := Interpret(raw)

	require.False(t, result.LowConfidence)
	assert.Len(t, result.Payload["items"], 2)
}

func TestInterpretKeyValueFallback(t *testing.T) {
	raw := "summary: the content is about cooking\nsentiment: positive"

	result := Interpret(raw)

	require.True(t, result.LowConfidence)
	assert.Equal(t, "the content is about cooking", result.Payload["summary"])
	assert.Equal(t, "positive", result.Payload["sentiment"])
}

func TestInterpretNothingUsable(t *testing.T) {
	raw := "I could not produce anything useful."

	result := Interpret(raw)

	require.True(t, result.LowConfidence)
	assert.Empty(t, result.Payload)
	assert.Equal(t, raw, result.Raw)
}

func TestRepairsIdempotentOnValidJSON(t *testing.T) {
	valid := `{"key": "value", "items": [1, 2]}`

	for _, repair := range repairs {
		repaired := repair(valid)

		payload, ok := parse(repaired)
		require.True(t, ok)
		assert.Equal(t, "value", payload["key"])
	}
}

func TestStripTrailingCommas(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, stripTrailingCommas(`{"a": 1,}`))
	assert.Equal(t, `[1, 2]`, stripTrailingCommas(`[1, 2,]`))
}

func TestBalancedBracesSkipsStrings(t *testing.T) {
	raw := `{"text": "brace } inside"} extra`

	assert.Equal(t, `{"text": "brace } inside"}`, balancedBraces(raw))
}
