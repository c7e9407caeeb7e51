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

// NodeRepository handles node-related database operations.
type NodeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewNodeRepository creates a new node repository.
func NewNodeRepository(db *sql.DB, logger *slog.Logger) *NodeRepository {
	return &NodeRepository{db: db, logger: logger}
}

const nodeColumns = `
	id
  , workflow_id
  , category
  , label
  , color
  , data
`

// GetNodesByWorkflow returns the nodes of a workflow in creation order.
func (nr *NodeRepository) GetNodesByWorkflow(ctx context.Context, workflowID string) ([]*models.Node, error) {
	err := ensureWorkflow(ctx, nr.db, "GetNodesByWorkflow", workflowID)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + nodeColumns + `FROM workflow_nodes WHERE workflow_id = $1 ORDER BY seq`

	rows, err := nr.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}

	defer closeRows(ctx, nr.logger, rows)

	nodes := make([]*models.Node, 0)

	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, node)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

func (nr *NodeRepository) GetNodeByWorkflow(ctx context.Context, workflowID, nodeID string) (*models.Node, error) {
	err := ensureWorkflow(ctx, nr.db, "GetNodeByWorkflow", workflowID)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + nodeColumns + `FROM workflow_nodes WHERE workflow_id = $1 AND id = $2`

	node, err := scanNode(nr.db.QueryRowContext(ctx, query, workflowID, nodeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewNodeError("GetNodeByWorkflow", workflowID, nodeID, persistence.ErrNodeNotFound)
	}

	return node, err
}

// SaveNode inserts the node, or replaces it in place when it already exists.
func (nr *NodeRepository) SaveNode(ctx context.Context, workflowID string, node *models.Node) error {
	err := ensureWorkflow(ctx, nr.db, "SaveNode", workflowID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(node.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal node data: %w", err)
	}

	query := `
		INSERT INTO workflow_nodes (workflow_id, id, category, label, color, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workflow_id, id) DO UPDATE SET
			category = EXCLUDED.category,
			label = EXCLUDED.label,
			color = EXCLUDED.color,
			data = EXCLUDED.data,
			updated_at = NOW()
	`

	_, err = nr.db.ExecContext(ctx, query, workflowID, node.ID, node.Category, node.Label, node.Color, data)
	if err != nil {
		return fmt.Errorf("failed to save node: %w", err)
	}

	return nil
}

func (nr *NodeRepository) UpdateNode(ctx context.Context, workflowID string, node *models.Node) error {
	err := ensureWorkflow(ctx, nr.db, "UpdateNode", workflowID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(node.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal node data: %w", err)
	}

	query := `
		UPDATE workflow_nodes
		SET category = $3, label = $4, color = $5, data = $6, updated_at = NOW()
		WHERE workflow_id = $1 AND id = $2
	`

	result, err := nr.db.ExecContext(ctx, query, workflowID, node.ID, node.Category, node.Label, node.Color, data)
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}

	return requireAffected(result, persistence.NewNodeError("UpdateNode", workflowID, node.ID, persistence.ErrNodeNotFound))
}

// DeleteNode removes the node. Connections touching it are removed by the foreign key cascade.
func (nr *NodeRepository) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	err := ensureWorkflow(ctx, nr.db, "DeleteNode", workflowID)
	if err != nil {
		return err
	}

	result, err := nr.db.ExecContext(ctx, `DELETE FROM workflow_nodes WHERE workflow_id = $1 AND id = $2`, workflowID, nodeID)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}

	return requireAffected(result, persistence.NewNodeError("DeleteNode", workflowID, nodeID, persistence.ErrNodeNotFound))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var (
		node models.Node
		data []byte
	)

	err := row.Scan(&node.ID, &node.WorkflowID, &node.Category, &node.Label, &node.Color, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan node: %w", err)
	}

	err = json.Unmarshal(data, &node.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal node data: %w", err)
	}

	return &node, nil
}

func requireAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}
