package mocks

import (
	"context"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of gateway.Gateway interface.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ListWorkflows(ctx context.Context, filter models.WorkflowFilter) (*models.Page[models.WorkflowSummary], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Page[models.WorkflowSummary]), args.Error(1)
}

func (m *MockGateway) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockGateway) CreateWorkflow(ctx context.Context, input models.WorkflowInput) (*models.Workflow, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockGateway) DuplicateWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockGateway) DeleteWorkflow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockGateway) ListNodes(ctx context.Context, workflowID string) ([]models.Node, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Node), args.Error(1)
}

func (m *MockGateway) CreateNode(ctx context.Context, workflowID string, draft models.NodeDraft) (*models.Node, error) {
	args := m.Called(ctx, workflowID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Node), args.Error(1)
}

func (m *MockGateway) UpdateNode(ctx context.Context, workflowID, nodeID string, update models.NodeUpdate) (*models.Node, error) {
	args := m.Called(ctx, workflowID, nodeID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Node), args.Error(1)
}

func (m *MockGateway) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	args := m.Called(ctx, workflowID, nodeID)

	return args.Error(0)
}

func (m *MockGateway) ListConnections(ctx context.Context, workflowID string) ([]models.Connection, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Connection), args.Error(1)
}

func (m *MockGateway) CreateConnection(ctx context.Context, workflowID string, draft models.ConnectionDraft) (*models.Connection, error) {
	args := m.Called(ctx, workflowID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Connection), args.Error(1)
}

func (m *MockGateway) UpdateConnection(ctx context.Context, workflowID, connectionID string, update models.ConnectionUpdate) (*models.Connection, error) {
	args := m.Called(ctx, workflowID, connectionID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Connection), args.Error(1)
}

func (m *MockGateway) DeleteConnection(ctx context.Context, workflowID, connectionID string) error {
	args := m.Called(ctx, workflowID, connectionID)

	return args.Error(0)
}
