package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
)

// ConnectionRepository handles connection-related database operations.
type ConnectionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConnectionRepository creates a new connection repository.
func NewConnectionRepository(db *sql.DB, logger *slog.Logger) *ConnectionRepository {
	return &ConnectionRepository{db: db, logger: logger}
}

const connectionColumns = `
	id
  , workflow_id
  , source_node_id
  , target_node_id
  , kind
  , name
  , event_type
  , priority
  , source_handle
  , target_handle
  , properties
`

// GetConnectionsByWorkflow returns the connections of a workflow in creation order.
func (cr *ConnectionRepository) GetConnectionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Connection, error) {
	err := ensureWorkflow(ctx, cr.db, "GetConnectionsByWorkflow", workflowID)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + connectionColumns + `FROM workflow_connections WHERE workflow_id = $1 ORDER BY seq`

	rows, err := cr.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}

	defer closeRows(ctx, cr.logger, rows)

	connections := make([]*models.Connection, 0)

	for rows.Next() {
		connection, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}

		connections = append(connections, connection)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return connections, nil
}

func (cr *ConnectionRepository) GetConnection(ctx context.Context, workflowID, connectionID string) (*models.Connection, error) {
	err := ensureWorkflow(ctx, cr.db, "GetConnection", workflowID)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + connectionColumns + `FROM workflow_connections WHERE workflow_id = $1 AND id = $2`

	connection, err := scanConnection(cr.db.QueryRowContext(ctx, query, workflowID, connectionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewConnectionError("GetConnection", workflowID, connectionID, persistence.ErrConnectionNotFound)
	}

	return connection, err
}

// SaveConnection inserts the connection, or replaces it in place when it already exists.
func (cr *ConnectionRepository) SaveConnection(ctx context.Context, workflowID string, connection *models.Connection) error {
	err := ensureWorkflow(ctx, cr.db, "SaveConnection", workflowID)
	if err != nil {
		return err
	}

	properties, err := marshalProperties(connection.Properties)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_connections (
			workflow_id, id, source_node_id, target_node_id, kind, name,
			event_type, priority, source_handle, target_handle, properties
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (workflow_id, id) DO UPDATE SET
			source_node_id = EXCLUDED.source_node_id,
			target_node_id = EXCLUDED.target_node_id,
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			event_type = EXCLUDED.event_type,
			priority = EXCLUDED.priority,
			source_handle = EXCLUDED.source_handle,
			target_handle = EXCLUDED.target_handle,
			properties = EXCLUDED.properties
	`

	_, err = cr.db.ExecContext(ctx, query,
		workflowID,
		connection.ID,
		connection.SourceID,
		connection.TargetID,
		connection.Kind,
		connection.Name,
		connection.EventType,
		connection.Priority,
		connection.SourceHandle,
		connection.TargetHandle,
		properties,
	)
	if err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}

	return nil
}

func (cr *ConnectionRepository) UpdateConnection(ctx context.Context, workflowID string, connection *models.Connection) error {
	err := ensureWorkflow(ctx, cr.db, "UpdateConnection", workflowID)
	if err != nil {
		return err
	}

	properties, err := marshalProperties(connection.Properties)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_connections
		SET source_node_id = $3
		  , target_node_id = $4
		  , kind = $5
		  , name = $6
		  , event_type = $7
		  , priority = $8
		  , source_handle = $9
		  , target_handle = $10
		  , properties = $11
		WHERE workflow_id = $1 AND id = $2
	`

	result, err := cr.db.ExecContext(ctx, query,
		workflowID,
		connection.ID,
		connection.SourceID,
		connection.TargetID,
		connection.Kind,
		connection.Name,
		connection.EventType,
		connection.Priority,
		connection.SourceHandle,
		connection.TargetHandle,
		properties,
	)
	if err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}

	return requireAffected(result,
		persistence.NewConnectionError("UpdateConnection", workflowID, connection.ID, persistence.ErrConnectionNotFound))
}

func (cr *ConnectionRepository) DeleteConnection(ctx context.Context, workflowID, connectionID string) error {
	err := ensureWorkflow(ctx, cr.db, "DeleteConnection", workflowID)
	if err != nil {
		return err
	}

	result, err := cr.db.ExecContext(ctx,
		`DELETE FROM workflow_connections WHERE workflow_id = $1 AND id = $2`, workflowID, connectionID)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	return requireAffected(result,
		persistence.NewConnectionError("DeleteConnection", workflowID, connectionID, persistence.ErrConnectionNotFound))
}

func scanConnection(row rowScanner) (*models.Connection, error) {
	var (
		connection models.Connection
		properties []byte
	)

	err := row.Scan(
		&connection.ID,
		&connection.WorkflowID,
		&connection.SourceID,
		&connection.TargetID,
		&connection.Kind,
		&connection.Name,
		&connection.EventType,
		&connection.Priority,
		&connection.SourceHandle,
		&connection.TargetHandle,
		&properties,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}

	if len(properties) > 0 {
		err = json.Unmarshal(properties, &connection.Properties)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal connection properties: %w", err)
		}
	}

	return &connection, nil
}

// marshalProperties stores nil for an empty map so a cleared property bag reads back as nil.
func marshalProperties(properties map[string]string) ([]byte, error) {
	if len(properties) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal connection properties: %w", err)
	}

	return data, nil
}
