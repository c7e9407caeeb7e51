package file

import (
	"context"
	"slices"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
)

// ConnectionRepository reads and writes the connections stored inside workflow documents.
type ConnectionRepository struct {
	fp *Persistence
}

func (cr *ConnectionRepository) GetConnectionsByWorkflow(_ context.Context, workflowID string) ([]*models.Connection, error) {
	var connections []*models.Connection

	err := cr.fp.view("GetConnectionsByWorkflow", workflowID, func(doc *document) error {
		connections = doc.Connections

		return nil
	})
	if err != nil {
		return nil, err
	}

	if connections == nil {
		connections = []*models.Connection{}
	}

	return connections, nil
}

func (cr *ConnectionRepository) GetConnection(_ context.Context, workflowID, connectionID string) (*models.Connection, error) {
	var connection *models.Connection

	err := cr.fp.view("GetConnection", workflowID, func(doc *document) error {
		i := connectionIndex(doc, connectionID)
		if i < 0 {
			return persistence.NewConnectionError("GetConnection", workflowID, connectionID, persistence.ErrConnectionNotFound)
		}

		connection = doc.Connections[i]

		return nil
	})
	if err != nil {
		return nil, err
	}

	return connection, nil
}

// SaveConnection appends the connection, or replaces it in place when it already exists.
func (cr *ConnectionRepository) SaveConnection(_ context.Context, workflowID string, connection *models.Connection) error {
	return cr.fp.update("SaveConnection", workflowID, func(doc *document) error {
		stored := connection.Clone()
		stored.WorkflowID = workflowID

		if i := connectionIndex(doc, connection.ID); i >= 0 {
			doc.Connections[i] = &stored

			return nil
		}

		doc.Connections = append(doc.Connections, &stored)

		return nil
	})
}

func (cr *ConnectionRepository) UpdateConnection(_ context.Context, workflowID string, connection *models.Connection) error {
	return cr.fp.update("UpdateConnection", workflowID, func(doc *document) error {
		i := connectionIndex(doc, connection.ID)
		if i < 0 {
			return persistence.NewConnectionError("UpdateConnection", workflowID, connection.ID, persistence.ErrConnectionNotFound)
		}

		stored := connection.Clone()
		stored.WorkflowID = workflowID
		doc.Connections[i] = &stored

		return nil
	})
}

func (cr *ConnectionRepository) DeleteConnection(_ context.Context, workflowID, connectionID string) error {
	return cr.fp.update("DeleteConnection", workflowID, func(doc *document) error {
		i := connectionIndex(doc, connectionID)
		if i < 0 {
			return persistence.NewConnectionError("DeleteConnection", workflowID, connectionID, persistence.ErrConnectionNotFound)
		}

		doc.Connections = slices.Delete(doc.Connections, i, i+1)

		return nil
	})
}

func connectionIndex(doc *document, connectionID string) int {
	return slices.IndexFunc(doc.Connections, func(c *models.Connection) bool { return c.ID == connectionID })
}
