package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/persistence"
)

func sampleRun(id, tenantID string) *models.RunRecord {
	return &models.RunRecord{
		ID: id,
		Request: models.AnalysisRequest{
			TargetURL: "https://example.com/article",
			Depth:     models.DepthQuick,
			TenantID:  tenantID,
		},
		State: models.RunStatePending,
		Stages: map[string]*models.StageExecution{
			"fetch": {
				RunID:  id,
				Stage:  "fetch",
				Status: models.StageStatusSucceeded,
				Payload: map[string]any{
					"raw_text": "body",
				},
			},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	store := NewFilePersistence(t.TempDir())
	ctx := context.Background()

	run := sampleRun("run-1", "tenant-1")
	require.NoError(t, store.SaveRun(ctx, run))

	loaded, err := store.RunByID(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, run.ID, loaded.ID)
	assert.Equal(t, run.Request.TenantID, loaded.Request.TenantID)
	assert.Equal(t, models.StageStatusSucceeded, loaded.Stages["fetch"].Status)
	assert.Equal(t, "body", loaded.Stages["fetch"].Payload["raw_text"])
}

func TestSaveRunOverwrites(t *testing.T) {
	store := NewFilePersistence(t.TempDir())
	ctx := context.Background()

	run := sampleRun("run-1", "tenant-1")
	require.NoError(t, store.SaveRun(ctx, run))

	run.State = models.RunStateFinished
	run.Outcome = models.RunOutcomeCompleted
	require.NoError(t, store.SaveRun(ctx, run))

	loaded, err := store.RunByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStateFinished, loaded.State)
	assert.Equal(t, models.RunOutcomeCompleted, loaded.Outcome)
}

func TestRunByIDNotFound(t *testing.T) {
	store := NewFilePersistence(t.TempDir())

	_, err := store.RunByID(context.Background(), "run-missing")

	assert.ErrorIs(t, err, persistence.ErrRunNotFound)
}

func TestRunsFiltersByTenant(t *testing.T) {
	store := NewFilePersistence(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, sampleRun("run-1", "tenant-1")))
	require.NoError(t, store.SaveRun(ctx, sampleRun("run-2", "tenant-1")))
	require.NoError(t, store.SaveRun(ctx, sampleRun("run-3", "tenant-2")))

	runs, err := store.Runs(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	all, err := store.Runs(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRunsEmptyStore(t *testing.T) {
	store := NewFilePersistence(t.TempDir())

	runs, err := store.Runs(context.Background(), "tenant-1")

	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestHealthCheckCreatesRoot(t *testing.T) {
	store := NewFilePersistence(t.TempDir())

	assert.NoError(t, store.HealthCheck(context.Background()))
}
