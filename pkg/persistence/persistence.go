// Package persistence provides the storage abstraction of the workflow backend.
package persistence

import (
	"context"

	"github.com/dukex/opsflow/pkg/models"
)

// Persistence groups the repositories of one storage backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	NodeRepository() NodeRepository
	ConnectionRepository() ConnectionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListWorkflowsOptions filters and pages a workflow listing.
type ListWorkflowsOptions struct {
	Status    *models.WorkflowStatus
	Search    string // Case-insensitive match on name and description
	Limit     int
	Offset    int
	SortBy    string // created_at, updated_at or name
	SortOrder string // asc or desc
}

// WorkflowListResult is one page of workflow summaries.
type WorkflowListResult struct {
	Workflows   []models.WorkflowSummary
	TotalCount  int64
	HasNextPage bool
}

// WorkflowRepository stores workflow headers.
type WorkflowRepository interface {
	ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	// Delete removes the workflow with all its nodes and connections.
	Delete(ctx context.Context, id string) error
}

// NodeRepository stores the nodes of a workflow in creation order.
type NodeRepository interface {
	GetNodesByWorkflow(ctx context.Context, workflowID string) ([]*models.Node, error)
	GetNodeByWorkflow(ctx context.Context, workflowID, nodeID string) (*models.Node, error)
	SaveNode(ctx context.Context, workflowID string, node *models.Node) error
	UpdateNode(ctx context.Context, workflowID string, node *models.Node) error
	// DeleteNode removes the node and every connection touching it.
	DeleteNode(ctx context.Context, workflowID, nodeID string) error
}

// ConnectionRepository stores the connections of a workflow in creation order.
type ConnectionRepository interface {
	GetConnectionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Connection, error)
	GetConnection(ctx context.Context, workflowID, connectionID string) (*models.Connection, error)
	SaveConnection(ctx context.Context, workflowID string, connection *models.Connection) error
	UpdateConnection(ctx context.Context, workflowID string, connection *models.Connection) error
	DeleteConnection(ctx context.Context, workflowID, connectionID string) error
}

// NormalizeListOptions applies the listing defaults shared by every backend.
func NormalizeListOptions(opts ListWorkflowsOptions) (ListWorkflowsOptions, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.Offset < 0 {
		opts.Offset = 0
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	switch opts.SortBy {
	case "created_at", "updated_at", "name":
	default:
		return opts, ErrInvalidSort
	}

	if opts.SortOrder != "asc" && opts.SortOrder != "desc" {
		return opts, ErrInvalidSort
	}

	return opts, nil
}
