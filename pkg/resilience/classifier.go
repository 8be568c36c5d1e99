package resilience

import (
	"strings"

	"github.com/dmelo/skein/pkg/models"
)

// Transient markers recognized in unclassified error text.
var transientMarkers = []string{
	"timeout",
	"timed out",
	"temporarily",
	"connection reset",
	"connection refused",
	"dns",
	"unavailable",
	"deadline exceeded",
	"502",
	"503",
	"504",
}

var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"too many requests",
}

// ClassifierConfig tunes retry classification. DefaultClass decides how
// unclassified failures are treated; shipping default is transient, which
// trades wasted retries on unrecognized permanent errors for resilience
// against unrecognized transient ones.
type ClassifierConfig struct {
	DefaultClass models.ErrorClass
}

// DefaultClassifierConfig returns the shipping classifier defaults.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{DefaultClass: models.ErrorClassTransient}
}

// Classifier assigns an ErrorClass to failed capability envelopes.
type Classifier struct {
	config ClassifierConfig
}

// NewClassifier builds a classifier from config.
func NewClassifier(config ClassifierConfig) *Classifier {
	if config.DefaultClass == models.ErrorClassNone {
		config.DefaultClass = models.ErrorClassTransient
	}

	return &Classifier{config: config}
}

// Classify determines the error class of a failed envelope. An explicit
// class set by the capability always wins; otherwise an HTTP status code
// in the metadata is consulted, then known markers in the error text, then
// the configured default.
func (c *Classifier) Classify(envelope *models.Envelope) models.ErrorClass {
	if envelope.Class != models.ErrorClassNone {
		return envelope.Class
	}

	if code, ok := statusCode(envelope.Metadata); ok {
		switch {
		case code == 429:
			return models.ErrorClassRateLimited
		case code >= 400 && code < 500:
			return models.ErrorClassPermanent
		case code >= 500:
			return models.ErrorClassTransient
		}
	}

	message := strings.ToLower(envelope.Error)

	for _, marker := range rateLimitMarkers {
		if strings.Contains(message, marker) {
			return models.ErrorClassRateLimited
		}
	}

	for _, marker := range transientMarkers {
		if strings.Contains(message, marker) {
			return models.ErrorClassTransient
		}
	}

	return c.config.DefaultClass
}

// Retryable reports whether a failure of the given class may be retried.
// A capability that classified its own failure and set Retryable=false has
// made the retry decision already; that veto always wins.
func (c *Classifier) Retryable(envelope *models.Envelope, class models.ErrorClass) bool {
	if envelope.Class != models.ErrorClassNone && !envelope.Retryable {
		return false
	}

	return class != models.ErrorClassPermanent
}

func statusCode(metadata map[string]any) (int, bool) {
	raw, ok := metadata["status_code"]
	if !ok {
		return 0, false
	}

	switch v := raw.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
