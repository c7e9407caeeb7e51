package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/opsflow/pkg/events"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
	"github.com/google/uuid"
)

// StartNodeLabel and StartNodeColor describe the start node seeded into every new workflow.
const (
	StartNodeLabel = "Start"
	StartNodeColor = "#22c55e"
)

type Workflow struct {
	base

	persistence persistence.Persistence
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, opts ...Option) *Workflow {
	return &Workflow{
		base:        newBase("workflow-service", opts),
		persistence: persistence,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest contains options for listing workflows.
type ListWorkflowsRequest struct {
	models.WorkflowFilter

	SortBy    string
	SortOrder string
}

// ListWorkflows retrieves workflow summaries with filtering, sorting, and pagination.
func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*models.Page[models.WorkflowSummary], error) {
	if req.Status != nil && !req.Status.IsValid() {
		return nil, NewValidationError("ListWorkflows", "INVALID_STATUS",
			fmt.Sprintf("invalid status '%s'", *req.Status), ErrInvalidStatus)
	}

	opts := persistence.ListWorkflowsOptions{
		Status:    req.Status,
		Search:    strings.TrimSpace(req.Search),
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	result, err := w.persistence.WorkflowRepository().ListWorkflows(ctx, opts)
	if err != nil {
		if errors.Is(err, persistence.ErrInvalidSort) {
			return nil, NewValidationError("ListWorkflows", "INVALID_SORT_FIELD",
				fmt.Sprintf("invalid sort '%s %s', allowed: created_at, updated_at, name / asc, desc",
					req.SortBy, req.SortOrder),
				ErrInvalidSortField)
		}

		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return &models.Page[models.WorkflowSummary]{
		Items:       result.Workflows,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create adds a new draft workflow seeded with its start node.
func (w *Workflow) Create(ctx context.Context, input models.WorkflowInput) (*models.Workflow, error) {
	input.Name = strings.TrimSpace(input.Name)

	err := w.validate.Struct(input)
	if err != nil {
		return nil, invalid("Create", ErrInvalidRequest, err)
	}

	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		Status:      models.WorkflowStatusDraft,
		Version:     1,
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	start := &models.Node{
		ID:       uuid.New().String(),
		Category: models.NodeCategoryStart,
		Label:    StartNodeLabel,
		Color:    StartNodeColor,
	}

	err = w.persistence.NodeRepository().SaveNode(ctx, workflow.ID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to seed start node: %w", err)
	}

	w.logger.InfoContext(ctx, "workflow created", "workflow_id", workflow.ID, "name", workflow.Name)
	w.publish(ctx, workflow.ID, events.WorkflowCreated{
		BaseEvent:  events.NewBaseEvent(events.WorkflowCreatedEvent, workflow.ID),
		Name:       workflow.Name,
		StartNodes: 1,
	})

	return workflow, nil
}

// Update renames or re-describes a workflow.
func (w *Workflow) Update(ctx context.Context, workflowID string, update models.WorkflowUpdate) (*models.Workflow, error) {
	if update.Name == nil && update.Description == nil {
		return nil, NewValidationError("Update", "NOTHING_TO_UPDATE", "", ErrNothingToUpdate)
	}

	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}

	err := w.validate.Struct(update)
	if err != nil {
		return nil, invalid("Update", ErrInvalidRequest, err)
	}

	workflow, err := modifiableWorkflow(ctx, w.persistence, workflowID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		workflow.Name = *update.Name
	}

	if update.Description != nil {
		workflow.Description = *update.Description
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	w.publish(ctx, workflow.ID, events.WorkflowUpdated{
		BaseEvent:   events.NewBaseEvent(events.WorkflowUpdatedEvent, workflow.ID),
		Name:        workflow.Name,
		Description: workflow.Description,
	})

	return workflow, nil
}

// Duplicate copies a workflow with its whole graph into a new draft. Node and connection ids are
// regenerated and connection endpoints remapped.
func (w *Workflow) Duplicate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	source, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	nodes, err := w.persistence.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}

	connections, err := w.persistence.ConnectionRepository().GetConnectionsByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}

	copied := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        source.Name + " (copy)",
		Description: source.Description,
		Status:      models.WorkflowStatusDraft,
		Version:     1,
	}

	err = w.persistence.WorkflowRepository().Save(ctx, copied)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	ids := make(map[string]string, len(nodes))
	starts := 0

	for _, n := range nodes {
		node := n.Clone()
		node.ID = uuid.New().String()
		ids[n.ID] = node.ID

		if node.IsStart() {
			starts++
		}

		err = w.persistence.NodeRepository().SaveNode(ctx, copied.ID, &node)
		if err != nil {
			return nil, fmt.Errorf("failed to copy node %s: %w", n.ID, err)
		}
	}

	for _, c := range connections {
		connection := c.Clone()
		connection.ID = uuid.New().String()
		connection.SourceID = ids[c.SourceID]
		connection.TargetID = ids[c.TargetID]

		err = w.persistence.ConnectionRepository().SaveConnection(ctx, copied.ID, &connection)
		if err != nil {
			return nil, fmt.Errorf("failed to copy connection %s: %w", c.ID, err)
		}
	}

	w.logger.InfoContext(ctx, "workflow duplicated", "workflow_id", copied.ID, "source_id", workflowID,
		"nodes", len(nodes), "connections", len(connections))
	w.publish(ctx, copied.ID, events.WorkflowCreated{
		BaseEvent:  events.NewBaseEvent(events.WorkflowCreatedEvent, copied.ID),
		Name:       copied.Name,
		SourceID:   workflowID,
		StartNodes: starts,
	})

	return copied, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	err := w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return err
		}

		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.publish(ctx, workflowID, events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, workflowID),
	})

	return nil
}

// modifiableWorkflow loads a workflow and refuses archived ones.
func modifiableWorkflow(ctx context.Context, p persistence.Persistence, workflowID string) (*models.Workflow, error) {
	workflow, err := p.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return nil, &ServiceError{
			Op:      "modify",
			Code:    "WORKFLOW_ARCHIVED",
			Message: fmt.Sprintf("workflow %s is archived", workflowID),
			Err:     ErrWorkflowArchived,
		}
	}

	return workflow, nil
}
