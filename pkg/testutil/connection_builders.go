package testutil

import (
	"github.com/dukex/opsflow/pkg/models"
	"github.com/google/uuid"
)

// CreateTestConnection creates a sequential connection from source to target with default values
// that can be overridden.
func CreateTestConnection(sourceID, targetID string, overrides ...func(*models.Connection)) models.Connection {
	connection := models.Connection{
		ID:           uuid.New().String(),
		WorkflowID:   TestWorkflowID,
		SourceID:     sourceID,
		TargetID:     targetID,
		Kind:         models.ConnectionKindSequential,
		Name:         "Test Connection",
		EventType:    models.EventTypeManual,
		SourceHandle: models.HandleRight,
		TargetHandle: models.HandleLeft,
	}

	for _, override := range overrides {
		override(&connection)
	}

	return connection
}

// WithConnectionID sets the connection id.
func WithConnectionID(id string) func(*models.Connection) {
	return func(c *models.Connection) {
		c.ID = id
	}
}

// WithConnectionName sets the connection name.
func WithConnectionName(name string) func(*models.Connection) {
	return func(c *models.Connection) {
		c.Name = name
	}
}

// WithLoop marks the connection as a loop.
func WithLoop() func(*models.Connection) {
	return func(c *models.Connection) {
		c.Kind = models.ConnectionKindLoop
	}
}

// WithHandles sets both handles.
func WithHandles(source, target models.Handle) func(*models.Connection) {
	return func(c *models.Connection) {
		c.SourceHandle = source
		c.TargetHandle = target
	}
}

// CreateTestGraph builds a graph of the given nodes and connections under TestWorkflowID.
func CreateTestGraph(nodes []models.Node, connections []models.Connection) models.Graph {
	return models.Graph{WorkflowID: TestWorkflowID, Nodes: nodes, Connections: connections}
}
