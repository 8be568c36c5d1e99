package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmelo/skein/pkg/models"
)

func TestClassifyExplicitClassWins(t *testing.T) {
	classifier := NewClassifier(DefaultClassifierConfig())

	envelope := &models.Envelope{
		Error: "connection reset by peer",
		Class: models.ErrorClassPermanent,
	}

	assert.Equal(t, models.ErrorClassPermanent, classifier.Classify(envelope))
}

func TestClassifyStatusCodes(t *testing.T) {
	classifier := NewClassifier(DefaultClassifierConfig())

	cases := []struct {
		code     int
		expected models.ErrorClass
	}{
		{400, models.ErrorClassPermanent},
		{404, models.ErrorClassPermanent},
		{422, models.ErrorClassPermanent},
		{429, models.ErrorClassRateLimited},
		{500, models.ErrorClassTransient},
		{503, models.ErrorClassTransient},
	}

	for _, tc := range cases {
		envelope := &models.Envelope{
			Error:    "request failed",
			Metadata: map[string]any{"status_code": tc.code},
		}

		assert.Equal(t, tc.expected, classifier.Classify(envelope), "status %d", tc.code)
	}
}

func TestClassifyTextMarkers(t *testing.T) {
	classifier := NewClassifier(DefaultClassifierConfig())

	transient := &models.Envelope{Error: "dial tcp: i/o timeout"}
	assert.Equal(t, models.ErrorClassTransient, classifier.Classify(transient))

	rateLimited := &models.Envelope{Error: "upstream said: too many requests"}
	assert.Equal(t, models.ErrorClassRateLimited, classifier.Classify(rateLimited))
}

func TestClassifyUnrecognizedUsesDefault(t *testing.T) {
	classifier := NewClassifier(DefaultClassifierConfig())

	envelope := &models.Envelope{Error: "something odd happened"}
	assert.Equal(t, models.ErrorClassTransient, classifier.Classify(envelope))

	strict := NewClassifier(ClassifierConfig{DefaultClass: models.ErrorClassPermanent})
	assert.Equal(t, models.ErrorClassPermanent, strict.Classify(envelope))
}

func TestRetryableVetoWins(t *testing.T) {
	classifier := NewClassifier(DefaultClassifierConfig())

	// Capability classified its own failure and forbade retrying.
	envelope := &models.Envelope{
		Error:     "insufficient quota",
		Class:     models.ErrorClassTransient,
		Retryable: false,
	}

	assert.False(t, classifier.Retryable(envelope, models.ErrorClassTransient))
}

func TestRetryableByClass(t *testing.T) {
	classifier := NewClassifier(DefaultClassifierConfig())

	unclassified := &models.Envelope{Error: "boom"}

	assert.True(t, classifier.Retryable(unclassified, models.ErrorClassTransient))
	assert.True(t, classifier.Retryable(unclassified, models.ErrorClassRateLimited))
	assert.False(t, classifier.Retryable(unclassified, models.ErrorClassPermanent))
}
