package services

import (
	"context"
	"fmt"
	"maps"

	"github.com/dukex/opsflow/pkg/events"
	"github.com/dukex/opsflow/pkg/geometry"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
	"github.com/google/uuid"
)

// Connection handles connection-related business operations.
type Connection struct {
	base

	persistence persistence.Persistence
}

// NewConnection creates a new connection service.
func NewConnection(persistence persistence.Persistence, opts ...Option) *Connection {
	return &Connection{
		base:        newBase("connection-service", opts),
		persistence: persistence,
	}
}

// ListConnections returns the connections of a workflow in creation order.
func (c *Connection) ListConnections(ctx context.Context, workflowID string) ([]models.Connection, error) {
	stored, err := c.persistence.ConnectionRepository().GetConnectionsByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	connections := make([]models.Connection, 0, len(stored))
	for _, connection := range stored {
		connections = append(connections, *connection)
	}

	return connections, nil
}

// CreateConnection creates a connection between two nodes of a workflow. Missing kind, event type
// and handles are defaulted: loop for a self-connection, manual, and the facing sides of the two
// node positions.
func (c *Connection) CreateConnection(ctx context.Context, workflowID string, draft models.ConnectionDraft) (*models.Connection, error) {
	const op = "CreateConnection"

	err := c.validate.Struct(draft)
	if err != nil {
		return nil, invalid(op, ErrInvalidRequest, err)
	}

	_, err = modifiableWorkflow(ctx, c.persistence, workflowID)
	if err != nil {
		return nil, err
	}

	source, target, err := c.endpoints(ctx, op, workflowID, draft.SourceID, draft.TargetID)
	if err != nil {
		return nil, err
	}

	if draft.Kind == "" {
		draft.Kind = models.ConnectionKindSequential
		if draft.SourceID == draft.TargetID {
			draft.Kind = models.ConnectionKindLoop
		}
	}

	if draft.EventType == "" {
		draft.EventType = models.EventTypeManual
	}

	handles := geometry.SelectHandles(source.Data.Position, target.Data.Position)
	if draft.SourceHandle == "" {
		draft.SourceHandle = handles.Source
	}

	if draft.TargetHandle == "" {
		draft.TargetHandle = handles.Target
	}

	err = models.ValidateEndpoints(*source, *target, draft.Kind)
	if err != nil {
		return nil, ruleViolation(op, err)
	}

	connection := &models.Connection{
		ID:           uuid.New().String(),
		SourceID:     draft.SourceID,
		TargetID:     draft.TargetID,
		Kind:         draft.Kind,
		Name:         draft.Name,
		EventType:    draft.EventType,
		Priority:     draft.Priority,
		SourceHandle: draft.SourceHandle,
		TargetHandle: draft.TargetHandle,
		Properties:   maps.Clone(draft.Properties),
	}

	if len(connection.Properties) == 0 {
		connection.Properties = nil
	}

	err = c.persistence.ConnectionRepository().SaveConnection(ctx, workflowID, connection)
	if err != nil {
		return nil, fmt.Errorf("failed to save connection: %w", err)
	}

	connection.WorkflowID = workflowID

	c.publish(ctx, workflowID, events.ConnectionCreated{
		BaseEvent:  events.NewBaseEvent(events.ConnectionCreatedEvent, workflowID),
		Connection: *connection,
	})

	return connection, nil
}

// UpdateConnection applies a partial update, re-checking the endpoint rules against the result.
func (c *Connection) UpdateConnection(
	ctx context.Context,
	workflowID, connectionID string,
	update models.ConnectionUpdate,
) (*models.Connection, error) {
	const op = "UpdateConnection"

	if update.IsEmpty() {
		return nil, NewValidationError(op, "NOTHING_TO_UPDATE", "", ErrNothingToUpdate)
	}

	_, err := modifiableWorkflow(ctx, c.persistence, workflowID)
	if err != nil {
		return nil, err
	}

	connection, err := c.persistence.ConnectionRepository().GetConnection(ctx, workflowID, connectionID)
	if err != nil {
		return nil, err
	}

	update.Apply(connection)

	err = checkConnectionFields(op, connection)
	if err != nil {
		return nil, err
	}

	source, target, err := c.endpoints(ctx, op, workflowID, connection.SourceID, connection.TargetID)
	if err != nil {
		return nil, err
	}

	err = models.ValidateEndpoints(*source, *target, connection.Kind)
	if err != nil {
		return nil, ruleViolation(op, err)
	}

	err = c.persistence.ConnectionRepository().UpdateConnection(ctx, workflowID, connection)
	if err != nil {
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}

	c.publish(ctx, workflowID, events.ConnectionUpdated{
		BaseEvent:  events.NewBaseEvent(events.ConnectionUpdatedEvent, workflowID),
		Connection: *connection,
	})

	return connection, nil
}

func (c *Connection) DeleteConnection(ctx context.Context, workflowID, connectionID string) error {
	_, err := modifiableWorkflow(ctx, c.persistence, workflowID)
	if err != nil {
		return err
	}

	err = c.persistence.ConnectionRepository().DeleteConnection(ctx, workflowID, connectionID)
	if err != nil {
		return err
	}

	c.publish(ctx, workflowID, events.ConnectionDeleted{
		BaseEvent:    events.NewBaseEvent(events.ConnectionDeletedEvent, workflowID),
		ConnectionID: connectionID,
	})

	return nil
}

// endpoints loads both ends of a connection. A missing endpoint is a validation error.
func (c *Connection) endpoints(ctx context.Context, op, workflowID, sourceID, targetID string) (*models.Node, *models.Node, error) {
	repo := c.persistence.NodeRepository()

	source, err := repo.GetNodeByWorkflow(ctx, workflowID, sourceID)
	if persistence.IsNodeNotFound(err) {
		return nil, nil, NewValidationError(op, "INVALID_SOURCE",
			fmt.Sprintf("source node %s does not exist", sourceID), ErrInvalidConnection)
	}

	if err != nil {
		return nil, nil, err
	}

	target, err := repo.GetNodeByWorkflow(ctx, workflowID, targetID)
	if persistence.IsNodeNotFound(err) {
		return nil, nil, NewValidationError(op, "INVALID_TARGET",
			fmt.Sprintf("target node %s does not exist", targetID), ErrInvalidConnection)
	}

	if err != nil {
		return nil, nil, err
	}

	return source, target, nil
}

func checkConnectionFields(op string, connection *models.Connection) error {
	switch {
	case connection.Kind != models.ConnectionKindSequential && connection.Kind != models.ConnectionKindLoop:
		return NewValidationError(op, "INVALID_KIND", fmt.Sprintf("invalid kind '%s'", connection.Kind), ErrInvalidConnection)
	case !connection.EventType.IsValid():
		return NewValidationError(op, "INVALID_EVENT_TYPE",
			fmt.Sprintf("invalid event type '%s'", connection.EventType), ErrInvalidConnection)
	case !connection.SourceHandle.IsValid() || !connection.TargetHandle.IsValid():
		return NewValidationError(op, "INVALID_HANDLE", "handles must be one of top, right, bottom, left", ErrInvalidConnection)
	case connection.Priority < 0:
		return NewValidationError(op, "INVALID_PRIORITY", "priority cannot be negative", ErrInvalidConnection)
	}

	return nil
}
