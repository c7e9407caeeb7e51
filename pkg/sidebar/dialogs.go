package sidebar

import (
	"context"
	"fmt"

	"github.com/dukex/opsflow/pkg/graphstore"
	"github.com/dukex/opsflow/pkg/models"
)

// CopyOffset is how far a copied node is placed from its original.
var CopyOffset = models.Position{X: 40, Y: 40}

// Dialogs creates nodes and connections. Connections are only ever created here, with a name.
type Dialogs struct {
	store *graphstore.Store
}

func NewDialogs(store *graphstore.Store) *Dialogs {
	return &Dialogs{store: store}
}

// CreateConnection links source to target. Kind and handles are left to the store defaults.
func (d *Dialogs) CreateConnection(
	ctx context.Context,
	sourceID, targetID, name string,
	eventType models.EventType,
) (*models.Connection, error) {
	return d.store.AddConnection(ctx, d.store.WorkflowID(), models.ConnectionDraft{
		SourceID:  sourceID,
		TargetID:  targetID,
		Name:      name,
		EventType: eventType,
	})
}

func (d *Dialogs) CreateNode(
	ctx context.Context,
	label string,
	category models.NodeCategory,
	position models.Position,
) (*models.Node, error) {
	return d.store.AddNode(ctx, d.store.WorkflowID(), models.NodeDraft{
		Category: category,
		Label:    label,
		Data:     models.NodeData{Position: position},
	})
}

// CopyNode duplicates a node next to the original. A copy of the start node becomes a to-do node.
func (d *Dialogs) CopyNode(ctx context.Context, nodeID string) (*models.Node, error) {
	node, ok := d.store.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("CopyNode %s: %w", nodeID, graphstore.ErrNodeNotFound)
	}

	category := node.Category
	if category == models.NodeCategoryStart {
		category = models.NodeCategoryToDo
	}

	position := models.Position{
		X: node.Data.Position.X + CopyOffset.X,
		Y: node.Data.Position.Y + CopyOffset.Y,
	}

	return d.store.AddNode(ctx, d.store.WorkflowID(), models.NodeDraft{
		Category: category,
		Label:    node.Label + " (copy)",
		Color:    node.Color,
		Data:     node.Data.WithPosition(position),
	})
}
