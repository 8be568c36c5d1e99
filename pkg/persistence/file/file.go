// Package file provides JSON-file-backed run storage for development and
// single-node deployments.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path"
	"sync"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/persistence"
)

type FilePersistence struct {
	mu   sync.RWMutex
	root string
}

func NewFilePersistence(root string) *FilePersistence {
	return &FilePersistence{root: root}
}

func (fp *FilePersistence) SaveRun(ctx context.Context, run *models.RunRecord) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	dir := path.Join(fp.root, "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: run.ID, Err: err}
	}

	body, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: run.ID, Err: err}
	}

	err = os.WriteFile(path.Join(dir, run.ID+".json"), body, 0o644)
	if err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: run.ID, Err: err}
	}

	return nil
}

func (fp *FilePersistence) RunByID(ctx context.Context, id string) (*models.RunRecord, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	body, err := os.ReadFile(path.Join(fp.root, "runs", id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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

func (fp *FilePersistence) Runs(ctx context.Context, tenantID string) ([]*models.RunRecord, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	dir := path.Join(fp.root, "runs")

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil || len(jsonFiles) == 0 {
		return []*models.RunRecord{}, nil
	}

	runs := make([]*models.RunRecord, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		body, err := os.ReadFile(path.Join(dir, name))
		if err != nil {
			continue
		}

		var run models.RunRecord
		if err := json.Unmarshal(body, &run); err != nil {
			continue
		}

		if tenantID != "" && run.Request.TenantID != tenantID {
			continue
		}

		runs = append(runs, &run)
	}

	return runs, nil
}

func (fp *FilePersistence) HealthCheck(ctx context.Context) error {
	return os.MkdirAll(path.Join(fp.root, "runs"), 0o755)
}

func (fp *FilePersistence) Close(ctx context.Context) error {
	return nil
}
