package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// ListWorkflows returns one page of live workflows with their node and connection counts.
func (r *WorkflowRepository) ListWorkflows(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	opts, err := persistence.NormalizeListOptions(opts)
	if err != nil {
		return nil, err
	}

	var status sql.NullString
	if opts.Status != nil {
		status = sql.NullString{String: string(*opts.Status), Valid: true}
	}

	where := `
		WHERE w.deleted_at IS NULL
		  AND ($1::text IS NULL OR w.status = $1)
		  AND ($2 = '' OR w.name ILIKE '%' || $2 || '%' OR w.description ILIKE '%' || $2 || '%')
	`

	var totalCount int64

	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflows w`+where, status, opts.Search).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	// SortBy and SortOrder are allowlisted by NormalizeListOptions.
	query := fmt.Sprintf(`
		SELECT
			w.id
		  , w.name
		  , w.description
		  , w.status
		  , w.version
		  , w.created_at
		  , w.updated_at
		  , (SELECT COUNT(*) FROM workflow_nodes n WHERE n.workflow_id = w.id)
		  , (SELECT COUNT(*) FROM workflow_connections c WHERE c.workflow_id = w.id)
		FROM workflows w
		%s
		ORDER BY w.%s %s, w.id
		LIMIT $3 OFFSET $4
	`, where, opts.SortBy, opts.SortOrder)

	rows, err := r.db.QueryContext(ctx, query, status, opts.Search, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	summaries := make([]models.WorkflowSummary, 0)

	for rows.Next() {
		var s models.WorkflowSummary

		err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt,
			&s.NodeCount, &s.ConnectionCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		summaries = append(summaries, s)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return &persistence.WorkflowListResult{
		Workflows:   summaries,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(summaries)) < totalCount,
	}, nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , status
		  , version
		  , created_at
		  , updated_at
		FROM workflows
		WHERE id = $1 AND deleted_at IS NULL
	`

	var workflow models.Workflow

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&workflow.Version,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return &workflow, nil
}

// Save inserts or updates a workflow header.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	query := `
		INSERT INTO workflows (id, name, description, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		workflow.Version,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

// Delete soft deletes a workflow by setting its deleted_at timestamp.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflows SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}
