package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/opsflow/pkg/events"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
	"github.com/google/uuid"
)

// Node handles node-related business operations.
type Node struct {
	base

	persistence persistence.Persistence
}

// NewNode creates a new node service.
func NewNode(persistence persistence.Persistence, opts ...Option) *Node {
	return &Node{
		base:        newBase("node-service", opts),
		persistence: persistence,
	}
}

// ListNodes returns the nodes of a workflow in creation order.
func (n *Node) ListNodes(ctx context.Context, workflowID string) ([]models.Node, error) {
	stored, err := n.persistence.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	nodes := make([]models.Node, 0, len(stored))
	for _, node := range stored {
		nodes = append(nodes, *node)
	}

	return nodes, nil
}

// CreateNode creates a new node in the specified workflow.
func (n *Node) CreateNode(ctx context.Context, workflowID string, draft models.NodeDraft) (*models.Node, error) {
	const op = "CreateNode"

	draft.Label = strings.TrimSpace(draft.Label)

	err := n.validate.Struct(draft)
	if err != nil {
		return nil, invalid(op, ErrInvalidRequest, err)
	}

	err = validateNodeData(op, draft.Data)
	if err != nil {
		return nil, err
	}

	_, err = modifiableWorkflow(ctx, n.persistence, workflowID)
	if err != nil {
		return nil, err
	}

	if draft.Category == models.NodeCategoryStart {
		nodes, err := n.persistence.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load nodes: %w", err)
		}

		if hasStart(nodes, "") {
			return nil, ruleViolation(op, models.ErrDuplicateStart)
		}
	}

	node := &models.Node{
		ID:       uuid.New().String(),
		Category: draft.Category,
		Label:    draft.Label,
		Color:    draft.Color,
		Data:     draft.Data.Clone(),
	}

	err = n.persistence.NodeRepository().SaveNode(ctx, workflowID, node)
	if err != nil {
		return nil, fmt.Errorf("failed to save node: %w", err)
	}

	node.WorkflowID = workflowID

	n.publish(ctx, workflowID, events.NodeCreated{
		BaseEvent: events.NewBaseEvent(events.NodeCreatedEvent, workflowID),
		Node:      *node,
	})

	return node, nil
}

// UpdateNode applies a partial update to a node, enforcing the category rules of the graph.
func (n *Node) UpdateNode(ctx context.Context, workflowID, nodeID string, update models.NodeUpdate) (*models.Node, error) {
	const op = "UpdateNode"

	if update.IsEmpty() {
		return nil, NewValidationError(op, "NOTHING_TO_UPDATE", "", ErrNothingToUpdate)
	}

	if update.Label != nil {
		label := strings.TrimSpace(*update.Label)
		if label == "" {
			return nil, NewValidationError(op, "INVALID_LABEL", "label cannot be blank", ErrInvalidRequest)
		}

		update.Label = &label
	}

	if update.Color != nil {
		err := n.validate.Var(*update.Color, "omitempty,hexcolor")
		if err != nil {
			return nil, NewValidationError(op, "INVALID_COLOR",
				fmt.Sprintf("color %q is not a hex color", *update.Color), ErrInvalidRequest)
		}
	}

	if update.Category != nil && !update.Category.IsValid() {
		return nil, NewValidationError(op, "INVALID_CATEGORY",
			fmt.Sprintf("invalid category '%s'", *update.Category), ErrInvalidRequest)
	}

	if update.Data != nil {
		err := validateNodeData(op, *update.Data)
		if err != nil {
			return nil, err
		}
	}

	_, err := modifiableWorkflow(ctx, n.persistence, workflowID)
	if err != nil {
		return nil, err
	}

	node, err := n.persistence.NodeRepository().GetNodeByWorkflow(ctx, workflowID, nodeID)
	if err != nil {
		return nil, err
	}

	if update.Category != nil && *update.Category != node.Category {
		err = n.checkRecategorize(ctx, workflowID, node, *update.Category)
		if err != nil {
			return nil, err
		}
	}

	update.Apply(node)

	err = n.persistence.NodeRepository().UpdateNode(ctx, workflowID, node)
	if err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}

	n.publish(ctx, workflowID, events.NodeUpdated{
		BaseEvent: events.NewBaseEvent(events.NodeUpdatedEvent, workflowID),
		Node:      *node,
	})

	return node, nil
}

func (n *Node) checkRecategorize(ctx context.Context, workflowID string, node *models.Node, category models.NodeCategory) error {
	const op = "UpdateNode"

	if node.IsStart() {
		return ruleViolation(op, models.ErrStartNodeFixed)
	}

	if category == models.NodeCategoryStart {
		nodes, err := n.persistence.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
		if err != nil {
			return fmt.Errorf("failed to load nodes: %w", err)
		}

		if hasStart(nodes, node.ID) {
			return ruleViolation(op, models.ErrDuplicateStart)
		}
	}

	if category != models.NodeCategoryStart && category != models.NodeCategoryDone {
		return nil
	}

	connections, err := n.persistence.ConnectionRepository().GetConnectionsByWorkflow(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to load connections: %w", err)
	}

	for _, c := range connections {
		if category == models.NodeCategoryStart && c.TargetID == node.ID {
			return ruleViolation(op, models.ErrTargetIsStart)
		}

		if category == models.NodeCategoryDone && c.SourceID == node.ID {
			return ruleViolation(op, models.ErrSourceIsDone)
		}
	}

	return nil
}

// DeleteNode removes a node and every connection touching it. The start node cannot be deleted.
func (n *Node) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	const op = "DeleteNode"

	_, err := modifiableWorkflow(ctx, n.persistence, workflowID)
	if err != nil {
		return err
	}

	node, err := n.persistence.NodeRepository().GetNodeByWorkflow(ctx, workflowID, nodeID)
	if err != nil {
		return err
	}

	if node.IsStart() {
		return ruleViolation(op, models.ErrStartNodeFixed)
	}

	connections, err := n.persistence.ConnectionRepository().GetConnectionsByWorkflow(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to load connections: %w", err)
	}

	var cascaded []string

	for _, c := range connections {
		if c.Touches(nodeID) {
			cascaded = append(cascaded, c.ID)
		}
	}

	err = n.persistence.NodeRepository().DeleteNode(ctx, workflowID, nodeID)
	if err != nil {
		return err
	}

	n.publish(ctx, workflowID, events.NodeDeleted{
		BaseEvent:     events.NewBaseEvent(events.NodeDeletedEvent, workflowID),
		NodeID:        nodeID,
		ConnectionIDs: cascaded,
	})

	return nil
}

func hasStart(nodes []*models.Node, exceptID string) bool {
	for _, node := range nodes {
		if node.IsStart() && node.ID != exceptID {
			return true
		}
	}

	return false
}

// ruleViolation wraps a graph invariant violation.
func ruleViolation(op string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: "GRAPH_RULE", Message: err.Error(), Err: err}
}
