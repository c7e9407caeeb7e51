package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
	"github.com/dukex/opsflow/pkg/services"
)

// Local implements Gateway in-process on top of the backend services.
type Local struct {
	workflows   *services.Workflow
	nodes       *services.Node
	connections *services.Connection
}

// NewLocal builds the backend services over p and serves the Gateway contract from them.
func NewLocal(p persistence.Persistence, opts ...services.Option) *Local {
	return &Local{
		workflows:   services.NewWorkflow(p, opts...),
		nodes:       services.NewNode(p, opts...),
		connections: services.NewConnection(p, opts...),
	}
}

func (l *Local) ListWorkflows(ctx context.Context, filter models.WorkflowFilter) (*models.Page[models.WorkflowSummary], error) {
	page, err := l.workflows.ListWorkflows(ctx, services.ListWorkflowsRequest{WorkflowFilter: filter})

	return page, localError("ListWorkflows", err)
}

func (l *Local) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := l.workflows.FetchByID(ctx, id)

	return workflow, localError("GetWorkflow", err)
}

func (l *Local) CreateWorkflow(ctx context.Context, input models.WorkflowInput) (*models.Workflow, error) {
	workflow, err := l.workflows.Create(ctx, input)

	return workflow, localError("CreateWorkflow", err)
}

func (l *Local) DuplicateWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := l.workflows.Duplicate(ctx, id)

	return workflow, localError("DuplicateWorkflow", err)
}

func (l *Local) DeleteWorkflow(ctx context.Context, id string) error {
	return localError("DeleteWorkflow", l.workflows.Delete(ctx, id))
}

func (l *Local) ListNodes(ctx context.Context, workflowID string) ([]models.Node, error) {
	nodes, err := l.nodes.ListNodes(ctx, workflowID)

	return nodes, localError("ListNodes", err)
}

func (l *Local) CreateNode(ctx context.Context, workflowID string, draft models.NodeDraft) (*models.Node, error) {
	node, err := l.nodes.CreateNode(ctx, workflowID, draft)

	return node, localError("CreateNode", err)
}

func (l *Local) UpdateNode(ctx context.Context, workflowID, nodeID string, update models.NodeUpdate) (*models.Node, error) {
	node, err := l.nodes.UpdateNode(ctx, workflowID, nodeID, update)

	return node, localError("UpdateNode", err)
}

func (l *Local) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	return localError("DeleteNode", l.nodes.DeleteNode(ctx, workflowID, nodeID))
}

func (l *Local) ListConnections(ctx context.Context, workflowID string) ([]models.Connection, error) {
	connections, err := l.connections.ListConnections(ctx, workflowID)

	return connections, localError("ListConnections", err)
}

func (l *Local) CreateConnection(ctx context.Context, workflowID string, draft models.ConnectionDraft) (*models.Connection, error) {
	connection, err := l.connections.CreateConnection(ctx, workflowID, draft)

	return connection, localError("CreateConnection", err)
}

func (l *Local) UpdateConnection(
	ctx context.Context,
	workflowID, connectionID string,
	update models.ConnectionUpdate,
) (*models.Connection, error) {
	connection, err := l.connections.UpdateConnection(ctx, workflowID, connectionID, update)

	return connection, localError("UpdateConnection", err)
}

func (l *Local) DeleteConnection(ctx context.Context, workflowID, connectionID string) error {
	return localError("DeleteConnection", l.connections.DeleteConnection(ctx, workflowID, connectionID))
}

// localError classifies a service error the same way Client classifies HTTP statuses.
func localError(op string, err error) error {
	if err == nil {
		return nil
	}

	gwErr := &Error{Op: op, Message: err.Error()}

	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		gwErr.Message = svcErr.Message
	}

	switch {
	case services.IsNotFoundError(err):
		gwErr.Err = fmt.Errorf("%w: %w", ErrNotFound, err)
	case services.IsValidationError(err), services.IsConflictError(err):
		gwErr.Err = fmt.Errorf("%w: %w", ErrRejected, err)
	default:
		gwErr.Err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return gwErr
}
