// Package gateway is the boundary between the editor core and the workflow backend.
package gateway

import (
	"context"

	"github.com/dukex/opsflow/pkg/models"
)

// Gateway is the CRUD contract the editor core needs from the backend. Implementations do no
// business logic of their own.
type Gateway interface {
	ListWorkflows(ctx context.Context, filter models.WorkflowFilter) (*models.Page[models.WorkflowSummary], error)
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	CreateWorkflow(ctx context.Context, input models.WorkflowInput) (*models.Workflow, error)
	DuplicateWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error

	ListNodes(ctx context.Context, workflowID string) ([]models.Node, error)
	CreateNode(ctx context.Context, workflowID string, draft models.NodeDraft) (*models.Node, error)
	UpdateNode(ctx context.Context, workflowID, nodeID string, update models.NodeUpdate) (*models.Node, error)
	DeleteNode(ctx context.Context, workflowID, nodeID string) error

	ListConnections(ctx context.Context, workflowID string) ([]models.Connection, error)
	CreateConnection(ctx context.Context, workflowID string, draft models.ConnectionDraft) (*models.Connection, error)
	UpdateConnection(ctx context.Context, workflowID, connectionID string, update models.ConnectionUpdate) (*models.Connection, error)
	DeleteConnection(ctx context.Context, workflowID, connectionID string) error
}
