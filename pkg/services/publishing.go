package services

import (
	"context"
	"fmt"

	"github.com/dukex/opsflow/pkg/events"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
)

// Publishing moves workflows through the draft, published and archived states.
type Publishing struct {
	base

	persistence persistence.Persistence
}

// NewPublishing creates a new workflow publishing service.
func NewPublishing(persistence persistence.Persistence, opts ...Option) *Publishing {
	return &Publishing{
		base:        newBase("publishing-service", opts),
		persistence: persistence,
	}
}

// PublishWorkflow makes a workflow live. Every publish bumps the version.
func (p *Publishing) PublishWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := modifiableWorkflow(ctx, p.persistence, workflowID)
	if err != nil {
		return nil, err
	}

	nodes, err := p.persistence.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}

	err = p.validateForPublishing(workflow, nodes)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusPublished {
		workflow.Version++
	}

	workflow.Status = models.WorkflowStatusPublished

	err = p.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to publish workflow: %w", err)
	}

	p.logger.InfoContext(ctx, "workflow published", "workflow_id", workflowID, "version", workflow.Version)
	p.publish(ctx, workflowID, events.WorkflowPublished{
		BaseEvent: events.NewBaseEvent(events.WorkflowPublishedEvent, workflowID),
		Version:   workflow.Version,
	})

	return workflow, nil
}

// ArchiveWorkflow makes a workflow read-only. Archiving twice is a no-op.
func (p *Publishing) ArchiveWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := p.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return workflow, nil
	}

	workflow.Status = models.WorkflowStatusArchived

	err = p.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to archive workflow: %w", err)
	}

	p.publish(ctx, workflowID, events.WorkflowArchived{
		BaseEvent: events.NewBaseEvent(events.WorkflowArchivedEvent, workflowID),
	})

	return workflow, nil
}

// validateForPublishing ensures a workflow is ready to be published.
func (p *Publishing) validateForPublishing(workflow *models.Workflow, nodes []*models.Node) error {
	if workflow.Name == "" {
		return NewValidationError("PublishWorkflow", "NAME_REQUIRED", "", ErrWorkflowNameNeeded)
	}

	var hasStart, hasDone bool

	for _, node := range nodes {
		switch node.Category {
		case models.NodeCategoryStart:
			hasStart = true
		case models.NodeCategoryDone:
			hasDone = true
		}
	}

	if !hasStart {
		return NewValidationError("PublishWorkflow", "START_REQUIRED", "", ErrStartNodeRequired)
	}

	if !hasDone {
		return NewValidationError("PublishWorkflow", "DONE_REQUIRED", "", ErrDoneNodeRequired)
	}

	return nil
}
