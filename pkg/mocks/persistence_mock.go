package mocks

import (
	"context"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Workflows   *MockWorkflowRepository
	Nodes       *MockNodeRepository
	Connections *MockConnectionRepository
}

// NewMockPersistence returns a MockPersistence wired to fresh repository mocks.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Workflows:   &MockWorkflowRepository{},
		Nodes:       &MockNodeRepository{},
		Connections: &MockConnectionRepository{},
	}
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

func (m *MockPersistence) NodeRepository() persistence.NodeRepository {
	return m.Nodes
}

func (m *MockPersistence) ConnectionRepository() persistence.ConnectionRepository {
	return m.Connections
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) ListWorkflows(
	ctx context.Context,
	opts persistence.ListWorkflowsOptions,
) (*persistence.WorkflowListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.WorkflowListResult), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockNodeRepository is a mock implementation of persistence.NodeRepository interface.
type MockNodeRepository struct {
	mock.Mock
}

func (m *MockNodeRepository) GetNodesByWorkflow(ctx context.Context, workflowID string) ([]*models.Node, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Node), args.Error(1)
}

func (m *MockNodeRepository) GetNodeByWorkflow(ctx context.Context, workflowID, nodeID string) (*models.Node, error) {
	args := m.Called(ctx, workflowID, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Node), args.Error(1)
}

func (m *MockNodeRepository) SaveNode(ctx context.Context, workflowID string, node *models.Node) error {
	args := m.Called(ctx, workflowID, node)

	return args.Error(0)
}

func (m *MockNodeRepository) UpdateNode(ctx context.Context, workflowID string, node *models.Node) error {
	args := m.Called(ctx, workflowID, node)

	return args.Error(0)
}

func (m *MockNodeRepository) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	args := m.Called(ctx, workflowID, nodeID)

	return args.Error(0)
}

// MockConnectionRepository is a mock implementation of persistence.ConnectionRepository interface.
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) GetConnectionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Connection, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Connection), args.Error(1)
}

func (m *MockConnectionRepository) GetConnection(
	ctx context.Context,
	workflowID, connectionID string,
) (*models.Connection, error) {
	args := m.Called(ctx, workflowID, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Connection), args.Error(1)
}

func (m *MockConnectionRepository) SaveConnection(ctx context.Context, workflowID string, connection *models.Connection) error {
	args := m.Called(ctx, workflowID, connection)

	return args.Error(0)
}

func (m *MockConnectionRepository) UpdateConnection(ctx context.Context, workflowID string, connection *models.Connection) error {
	args := m.Called(ctx, workflowID, connection)

	return args.Error(0)
}

func (m *MockConnectionRepository) DeleteConnection(ctx context.Context, workflowID, connectionID string) error {
	args := m.Called(ctx, workflowID, connectionID)

	return args.Error(0)
}
