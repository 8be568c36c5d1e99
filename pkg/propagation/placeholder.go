package propagation

import (
	"regexp"
	"strings"
)

// PlaceholderConfig tunes the placeholder classifier. Allow-listed values
// and enum-typed parameters bypass the minimum-length check unconditionally:
// a 4-character quality enum like "720p" is a legitimate value, not filler.
type PlaceholderConfig struct {
	MinLength int
	AllowList []string
}

// DefaultPlaceholderConfig returns the classifier defaults.
func DefaultPlaceholderConfig() PlaceholderConfig {
	return PlaceholderConfig{
		MinLength: 8,
		AllowList: []string{
			"720p", "1080p", "480p", "4k", "best", "worst",
			"mp3", "mp4", "wav", "srt", "vtt",
			"en", "es", "pt", "fr", "de",
			"true", "false", "asc", "desc",
		},
	}
}

// Filler phrases agents emit when they restate a parameter instead of
// supplying a value.
var fillerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^please\s+provide`),
	regexp.MustCompile(`(?i)^(insert|enter|add|put)\s+(the\s+)?\w+(\s+here)?$`),
	regexp.MustCompile(`(?i)^<[^>]*>$`),
	regexp.MustCompile(`(?i)^\[[^\]]*\]$`),
	regexp.MustCompile(`(?i)^(value|string|text|data|content|input|placeholder|example|sample|tbd|todo|n/?a|none|null|undefined|unknown|xxx+)$`),
	regexp.MustCompile(`(?i)^(the|a|an|some|your)\s+\w+$`),
	regexp.MustCompile(`(?i)^\{\{?\s*\w+\s*\}?\}$`),
}

// Classifier decides whether a candidate parameter value is a placeholder:
// syntactically present but semantically meaningless.
type Classifier struct {
	config PlaceholderConfig
	allow  map[string]struct{}
}

// NewClassifier builds a classifier from config.
func NewClassifier(config PlaceholderConfig) *Classifier {
	allow := make(map[string]struct{}, len(config.AllowList))
	for _, value := range config.AllowList {
		allow[strings.ToLower(value)] = struct{}{}
	}

	return &Classifier{config: config, allow: allow}
}

// IsPlaceholder classifies value for the named parameter. enumTyped marks
// parameters declared as enums in the capability schema.
func (c *Classifier) IsPlaceholder(param, value string, enumTyped bool) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return true
	}

	lower := strings.ToLower(trimmed)

	if _, allowed := c.allow[lower]; allowed {
		return false
	}

	// Self-referential restatement of the parameter name.
	if param != "" {
		normalized := strings.NewReplacer("_", "", "-", "", " ", "").Replace(lower)
		paramNormalized := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(param))

		if normalized == paramNormalized {
			return true
		}
	}

	for _, pattern := range fillerPatterns {
		if pattern.MatchString(trimmed) {
			return true
		}
	}

	if enumTyped {
		return false
	}

	return len(trimmed) < c.config.MinLength
}
