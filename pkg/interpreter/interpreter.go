// Package interpreter extracts structured payloads from free-form agent
// output. Agents are asked for JSON but routinely wrap it in prose, fences,
// or slightly broken syntax; the interpreter layers extraction strategies
// and textual repairs before falling back to a line scanner. It never
// fails: worst case is an empty low-confidence payload with the raw text
// preserved for audit.
package interpreter

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Result is the interpreter outcome. LowConfidence marks payloads
// synthesized by the fallback line scanner rather than a verified parse;
// downstream consumers must treat those differently.
type Result struct {
	Payload       map[string]any `json:"payload"`
	LowConfidence bool           `json:"low_confidence"`
	Raw           string         `json:"raw"`
}

var (
	labeledFence = regexp.MustCompile("(?s)```(?:json|JSON)[ \t]*\n(.*?)```")
	anyFence     = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \t]*\n(.*?)```")
	keyValueLine = regexp.MustCompile(`^\s*"?([A-Za-z_][A-Za-z0-9_ -]*?)"?\s*[:=]\s*(.+?)\s*,?\s*$`)
)

// Interpret extracts a structured payload from raw agent text.
func Interpret(raw string) *Result {
	for _, candidate := range candidates(raw) {
		if payload, ok := parse(candidate); ok {
			return &Result{Payload: payload, Raw: raw}
		}

		if payload, ok := repairAndParse(candidate); ok {
			return &Result{Payload: payload, Raw: raw}
		}
	}

	return &Result{
		Payload:       scanKeyValues(raw),
		LowConfidence: true,
		Raw:           raw,
	}
}

// candidates yields extraction candidates, first match wins: labeled fence,
// any fence, balanced-brace inline, then a greedy multi-line scan.
func candidates(raw string) []string {
	var out []string

	if m := labeledFence.FindStringSubmatch(raw); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}

	if m := anyFence.FindStringSubmatch(raw); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}

	if inline := balancedBraces(raw); inline != "" {
		out = append(out, inline)
	}

	if greedy := greedyScan(raw); greedy != "" {
		out = append(out, greedy)
	}

	return out
}

// balancedBraces returns the first brace-balanced region of raw, tracking
// nesting and skipping string literals.
func balancedBraces(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		ch := raw[i]

		if escaped {
			escaped = false

			continue
		}

		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case ch == '{' && !inString:
			depth++
		case ch == '}' && !inString:
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}

	return ""
}

// greedyScan takes everything between the first '{' and the last '}'.
// Last resort: tolerates prose interleaved with the payload.
func greedyScan(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')

	if start < 0 || end <= start {
		return ""
	}

	return raw[start : end+1]
}

func parse(candidate string) (map[string]any, bool) {
	if candidate == "" {
		return nil, false
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(candidate), &payload); err == nil {
		return payload, true
	}

	// Top-level arrays are valid agent output; wrap them so the payload
	// stays a map.
	var items []any
	if err := json.Unmarshal([]byte(candidate), &items); err == nil {
		return map[string]any{"items": items}, true
	}

	return nil, false
}

// scanKeyValues synthesizes a flat map from `key: value` / `key = value`
// lines when nothing parses.
func scanKeyValues(raw string) map[string]any {
	payload := make(map[string]any)

	for _, line := range strings.Split(raw, "\n") {
		m := keyValueLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "_"))
		value := strings.Trim(strings.TrimSpace(m[2]), `"'`)

		if key == "" || value == "" || strings.HasPrefix(value, "{") || strings.HasPrefix(value, "[") {
			continue
		}

		payload[key] = value
	}

	return payload
}
