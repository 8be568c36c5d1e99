package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisRequestValidate(t *testing.T) {
	request := AnalysisRequest{
		TargetURL: "https://example.com/article",
		Depth:     DepthStandard,
		TenantID:  "tenant-1",
	}

	require.NoError(t, request.Validate())
}

func TestAnalysisRequestValidateFailures(t *testing.T) {
	cases := []struct {
		name    string
		request AnalysisRequest
	}{
		{
			name:    "missing target url",
			request: AnalysisRequest{Depth: DepthQuick, TenantID: "tenant-1"},
		},
		{
			name:    "malformed target url",
			request: AnalysisRequest{TargetURL: "not a url", Depth: DepthQuick, TenantID: "tenant-1"},
		},
		{
			name:    "missing tenant",
			request: AnalysisRequest{TargetURL: "https://example.com", Depth: DepthQuick},
		},
		{
			name:    "missing depth",
			request: AnalysisRequest{TargetURL: "https://example.com", TenantID: "tenant-1"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.request.Validate()

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestIsValidationError(t *testing.T) {
	request := AnalysisRequest{Depth: DepthQuick}

	err := request.Validate()
	require.Error(t, err)

	assert.True(t, IsValidationError(err))
	assert.True(t, IsValidationError(ErrUnknownDependency))
	assert.False(t, IsValidationError(errors.New("origin unreachable")))
}

func TestRunRecordProgress(t *testing.T) {
	run := &RunRecord{
		Stages: map[string]*StageExecution{
			"fetch":     {Status: StageStatusSucceeded},
			"summarize": {Status: StageStatusSucceeded},
			"claims":    {Status: StageStatusFailed},
			"store":     {Status: StageStatusSkipped},
			"report":    {Status: StageStatusRunning},
		},
	}

	progress := run.Progress()

	assert.Equal(t, 5, progress.Total)
	assert.Equal(t, 2, progress.Succeeded)
	assert.Equal(t, 1, progress.Failed)
	assert.Equal(t, 1, progress.Skipped)
}

func TestStageStatusTerminal(t *testing.T) {
	assert.True(t, StageStatusSucceeded.Terminal())
	assert.True(t, StageStatusFailed.Terminal())
	assert.True(t, StageStatusSkipped.Terminal())
	assert.False(t, StageStatusPending.Terminal())
	assert.False(t, StageStatusRunning.Terminal())
}

func TestFailEnvelopeRetryable(t *testing.T) {
	assert.True(t, FailEnvelope(ErrorClassTransient, "x").Retryable)
	assert.True(t, FailEnvelope(ErrorClassRateLimited, "x").Retryable)
	assert.False(t, FailEnvelope(ErrorClassPermanent, "x").Retryable)
}
