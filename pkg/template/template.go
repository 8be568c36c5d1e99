// Package template renders agent instructions against accumulated run
// context.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Render executes instructions as a Go text template over data. Missing
// keys render as empty rather than failing: instructions routinely
// reference context keys an earlier degraded stage never produced.
func Render(instructions string, data map[string]any) (string, error) {
	tmpl, err := template.
		New("instructions").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"join": func(sep string, items []any) string {
				parts := make([]string, 0, len(items))
				for _, item := range items {
					parts = append(parts, fmt.Sprint(item))
				}

				return strings.Join(parts, sep)
			},
		}).Parse(instructions)
	if err != nil {
		return "", fmt.Errorf("failed to parse instructions template: %w", err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to render instructions: %w", err)
	}

	// text/template renders missing map keys as "<no value>".
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}
