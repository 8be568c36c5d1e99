// Package persistence provides the storage abstraction for the run audit
// trail. Records are written by the run controller and exposed read-only
// through the query API.
package persistence

import (
	"context"

	"github.com/dmelo/skein/pkg/models"
)

type Persistence interface {
	SaveRun(ctx context.Context, run *models.RunRecord) error
	RunByID(ctx context.Context, id string) (*models.RunRecord, error)
	Runs(ctx context.Context, tenantID string) ([]*models.RunRecord, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
