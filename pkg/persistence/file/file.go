// Package file provides file-based persistence: one JSON document per workflow holding its header,
// nodes and connections.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root string

	// mu serializes every read-modify-write of a workflow document.
	mu sync.RWMutex

	workflowRepo   *WorkflowRepository
	nodeRepo       *NodeRepository
	connectionRepo *ConnectionRepository
}

// document is the on-disk form of a workflow.
type document struct {
	Workflow    models.Workflow      `json:"workflow"`
	Nodes       []*models.Node       `json:"nodes"`
	Connections []*models.Connection `json:"connections"`
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	fp := &Persistence{root: cleanRoot}
	fp.workflowRepo = &WorkflowRepository{fp: fp}
	fp.nodeRepo = &NodeRepository{fp: fp}
	fp.connectionRepo = &ConnectionRepository{fp: fp}

	return fp
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// WorkflowRepository returns the workflow repository implementation for file persistence.
func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

// NodeRepository returns the node repository implementation for file persistence.
func (fp *Persistence) NodeRepository() persistence.NodeRepository {
	return fp.nodeRepo
}

// ConnectionRepository returns the connection repository implementation for file persistence.
func (fp *Persistence) ConnectionRepository() persistence.ConnectionRepository {
	return fp.connectionRepo
}

func (fp *Persistence) workflowsDir() string {
	return path.Join(fp.root, "workflows")
}

func (fp *Persistence) documentPath(workflowID string) string {
	return filepath.Clean(path.Join(fp.workflowsDir(), filepath.Base(workflowID)+".json"))
}

// read loads a workflow document. A missing file is ErrWorkflowNotFound.
func (fp *Persistence) read(op, workflowID string) (*document, error) {
	body, err := os.ReadFile(fp.documentPath(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError(op, workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	var doc document

	err = json.Unmarshal(body, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", workflowID, err)
	}

	return &doc, nil
}

func (fp *Persistence) write(doc *document) error {
	err := os.MkdirAll(fp.workflowsDir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", doc.Workflow.ID, err)
	}

	target := fp.documentPath(doc.Workflow.ID)
	tmp := target + ".tmp"

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", doc.Workflow.ID, err)
	}

	return os.Rename(tmp, target)
}

// update applies fn to a workflow document under the write lock and saves it when fn succeeds.
func (fp *Persistence) update(op, workflowID string, fn func(doc *document) error) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	doc, err := fp.read(op, workflowID)
	if err != nil {
		return err
	}

	err = fn(doc)
	if err != nil {
		return err
	}

	doc.Workflow.UpdatedAt = time.Now().UTC()

	return fp.write(doc)
}

// view runs fn on a workflow document under the read lock.
func (fp *Persistence) view(op, workflowID string, fn func(doc *document) error) error {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	doc, err := fp.read(op, workflowID)
	if err != nil {
		return err
	}

	return fn(doc)
}
