package interpreter

import (
	"regexp"
	"strings"
)

// Repair transforms are each idempotent: applying one to already-valid
// JSON leaves the parse result unchanged. They are applied in order with a
// re-parse attempt after each, stopping at the first success.
var repairs = []func(string) string{
	stripTrailingCommas,
	normalizeQuotes,
	escapeInnerQuotes,
	collapseNewlines,
}

func repairAndParse(candidate string) (map[string]any, bool) {
	repaired := candidate

	for _, repair := range repairs {
		repaired = repair(repaired)

		if payload, ok := parse(repaired); ok {
			return payload, true
		}
	}

	return nil, false
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// stripTrailingCommas removes separators left dangling before a closing
// bracket, the most common agent syntax slip.
func stripTrailingCommas(s string) string {
	return trailingComma.ReplaceAllString(s, "$1")
}

var singleQuoted = regexp.MustCompile(`'([^'\\]*)'`)

// normalizeQuotes rewrites single-quoted keys and values to double quotes.
func normalizeQuotes(s string) string {
	if strings.Contains(s, `"`) && !strings.Contains(s, "'") {
		return s
	}

	return singleQuoted.ReplaceAllString(s, `"$1"`)
}

var innerQuotedValue = regexp.MustCompile(`(:\s*")((?:[^"\\]|\\.)*"(?:[^"\\]|\\.)*?)("\s*[,}\]\n])`)

// escapeInnerQuotes heuristically escapes unescaped double quotes inside
// string values, detected by a quote appearing before the value's closing
// delimiter.
func escapeInnerQuotes(s string) string {
	return innerQuotedValue.ReplaceAllStringFunc(s, func(match string) string {
		m := innerQuotedValue.FindStringSubmatch(match)
		if m == nil {
			return match
		}

		escaped := strings.ReplaceAll(m[2], `\"`, `"`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)

		return m[1] + escaped + m[3]
	})
}

// collapseNewlines escapes raw newlines embedded inside string literals.
func collapseNewlines(s string) string {
	var b strings.Builder

	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false

			b.WriteByte(ch)

			continue
		}

		switch {
		case ch == '\\' && inString:
			escaped = true

			b.WriteByte(ch)
		case ch == '"':
			inString = !inString

			b.WriteByte(ch)
		case ch == '\n' && inString:
			b.WriteString(`\n`)
		default:
			b.WriteByte(ch)
		}
	}

	return b.String()
}
