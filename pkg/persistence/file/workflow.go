package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	fp *Persistence
}

// ListWorkflows returns paginated and filtered workflow summaries with in-memory operations.
func (wr *WorkflowRepository) ListWorkflows(_ context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	opts, err := persistence.NormalizeListOptions(opts)
	if err != nil {
		return nil, err
	}

	wr.fp.mu.RLock()
	defer wr.fp.mu.RUnlock()

	jsonFiles, err := fs.Glob(os.DirFS(wr.fp.workflowsDir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(opts.Search))
	summaries := make([]models.WorkflowSummary, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflowID := strings.TrimSuffix(file, ".json")

		doc, err := wr.fp.read("ListWorkflows", workflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
		}

		if opts.Status != nil && doc.Workflow.Status != *opts.Status {
			continue
		}

		if search != "" &&
			!strings.Contains(strings.ToLower(doc.Workflow.Name), search) &&
			!strings.Contains(strings.ToLower(doc.Workflow.Description), search) {
			continue
		}

		summaries = append(summaries, doc.Workflow.Summarize(len(doc.Nodes), len(doc.Connections)))
	}

	sortSummaries(summaries, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(summaries))
	if opts.Offset >= len(summaries) {
		return &persistence.WorkflowListResult{
			Workflows:   make([]models.WorkflowSummary, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	endIdx := min(opts.Offset+opts.Limit, len(summaries))

	return &persistence.WorkflowListResult{
		Workflows:   summaries[opts.Offset:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(summaries),
	}, nil
}

// sortSummaries sorts workflows in-place based on the specified field and order.
func sortSummaries(workflows []models.WorkflowSummary, sortBy, sortOrder string) {
	sort.SliceStable(workflows, func(i, j int) bool {
		a, b := workflows[i], workflows[j]
		if sortOrder == "desc" {
			a, b = b, a
		}

		switch sortBy {
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "name":
			return a.Name < b.Name
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := wr.fp.view("GetByID", workflowID, func(doc *document) error {
		workflow = doc.Workflow

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

// Save creates the workflow document or replaces its header, keeping nodes and connections.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.fp.mu.Lock()
	defer wr.fp.mu.Unlock()

	doc, err := wr.fp.read("Save", workflow.ID)
	if err != nil {
		if !persistence.IsWorkflowNotFound(err) {
			return err
		}

		doc = &document{Nodes: []*models.Node{}, Connections: []*models.Connection{}}
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now
	doc.Workflow = *workflow

	return wr.fp.write(doc)
}

// Delete removes a workflow document by its ID.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.fp.mu.Lock()
	defer wr.fp.mu.Unlock()

	err := os.Remove(wr.fp.documentPath(id))
	if err != nil && os.IsNotExist(err) {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}
