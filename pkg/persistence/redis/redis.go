// Package redis provides Redis-backed run storage for multi-process
// deployments where api and worker share the audit trail.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/persistence"
)

const (
	runKeyPrefix  = "skein:runs:"
	tenantSetKey  = "skein:tenants:"
	defaultRunTTL = 7 * 24 * time.Hour
)

type RedisPersistence struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewRedisPersistence connects using a redis:// URL.
func NewRedisPersistence(url string) (*RedisPersistence, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, &persistence.StoreError{Op: "Connect", Err: err}
	}

	return &RedisPersistence{
		client: goredis.NewClient(opts),
		ttl:    defaultRunTTL,
	}, nil
}

func (rp *RedisPersistence) SaveRun(ctx context.Context, run *models.RunRecord) error {
	body, err := json.Marshal(run)
	if err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: run.ID, Err: err}
	}

	pipe := rp.client.TxPipeline()
	pipe.Set(ctx, runKeyPrefix+run.ID, body, rp.ttl)
	pipe.SAdd(ctx, tenantSetKey+run.Request.TenantID, run.ID)
	pipe.Expire(ctx, tenantSetKey+run.Request.TenantID, rp.ttl)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: run.ID, Err: err}
	}

	return nil
}

func (rp *RedisPersistence) RunByID(ctx context.Context, id string) (*models.RunRecord, error) {
	body, err := rp.client.Get(ctx, runKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, &persistence.StoreError{Op: "RunByID", RunID: id, Err: err}
	}

	var run models.RunRecord

	err = json.Unmarshal(body, &run)
	if err != nil {
		return nil, &persistence.StoreError{Op: "RunByID", RunID: id, Err: err}
	}

	return &run, nil
}

func (rp *RedisPersistence) Runs(ctx context.Context, tenantID string) ([]*models.RunRecord, error) {
	ids, err := rp.client.SMembers(ctx, tenantSetKey+tenantID).Result()
	if err != nil {
		return nil, &persistence.StoreError{Op: "Runs", Err: err}
	}

	runs := make([]*models.RunRecord, 0, len(ids))

	for _, id := range ids {
		run, err := rp.RunByID(ctx, id)
		if err != nil {
			// Expired run entries linger in the tenant index.
			continue
		}

		runs = append(runs, run)
	}

	return runs, nil
}

func (rp *RedisPersistence) HealthCheck(ctx context.Context) error {
	return rp.client.Ping(ctx).Err()
}

func (rp *RedisPersistence) Close(ctx context.Context) error {
	return rp.client.Close()
}
