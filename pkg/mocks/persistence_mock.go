package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmelo/skein/pkg/models"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) SaveRun(ctx context.Context, run *models.RunRecord) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}

func (m *MockPersistence) RunByID(ctx context.Context, id string) (*models.RunRecord, error) {
	args := m.Called(ctx, id)

	if run := args.Get(0); run != nil {
		return run.(*models.RunRecord), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockPersistence) Runs(ctx context.Context, tenantID string) ([]*models.RunRecord, error) {
	args := m.Called(ctx, tenantID)

	if runs := args.Get(0); runs != nil {
		return runs.([]*models.RunRecord), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
