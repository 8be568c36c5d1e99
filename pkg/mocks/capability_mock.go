// Package mocks provides testify mocks for the engine's collaborator
// interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/protocol"
)

// MockCapability is a mock implementation of protocol.Capability.
type MockCapability struct {
	mock.Mock

	CapabilitySchema *protocol.CapabilitySchema
}

func (m *MockCapability) Schema() *protocol.CapabilitySchema {
	if m.CapabilitySchema != nil {
		return m.CapabilitySchema
	}

	args := m.Called()

	return args.Get(0).(*protocol.CapabilitySchema)
}

func (m *MockCapability) Execute(ctx context.Context, inputs map[string]any) *models.Envelope {
	args := m.Called(ctx, inputs)

	if envelope := args.Get(0); envelope != nil {
		return envelope.(*models.Envelope)
	}

	return nil
}

// MockAgent is a mock implementation of protocol.Agent.
type MockAgent struct {
	mock.Mock
}

func (m *MockAgent) Generate(ctx context.Context, instructions string, contextData map[string]any) (string, error) {
	args := m.Called(ctx, instructions, contextData)

	return args.String(0), args.Error(1)
}
