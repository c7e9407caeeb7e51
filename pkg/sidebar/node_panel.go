// Package sidebar holds the editing logic behind the node and connection side panels and the
// create/copy dialogs. Every edit goes through the graph store.
package sidebar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/opsflow/pkg/graphstore"
	"github.com/dukex/opsflow/pkg/models"
)

var ErrPropertyKeyRequired = errors.New("property key is required")

// NodePanel edits one node. Each setter sends an update carrying only the field it changes.
type NodePanel struct {
	store  *graphstore.Store
	nodeID string
}

func NewNodePanel(store *graphstore.Store, nodeID string) *NodePanel {
	return &NodePanel{store: store, nodeID: nodeID}
}

// Node returns the node as the store currently holds it.
func (p *NodePanel) Node() (models.Node, bool) {
	return p.store.Node(p.nodeID)
}

// Connections lists the connections entering or leaving the node.
func (p *NodePanel) Connections() []models.Connection {
	return p.store.ConnectionsOf(p.nodeID)
}

func (p *NodePanel) Rename(ctx context.Context, label string, opts ...graphstore.MutationOption) error {
	return p.update(ctx, models.NodeUpdate{Label: &label}, opts)
}

func (p *NodePanel) SetCategory(ctx context.Context, category models.NodeCategory, opts ...graphstore.MutationOption) error {
	return p.update(ctx, models.NodeUpdate{Category: &category}, opts)
}

func (p *NodePanel) SetColor(ctx context.Context, color string, opts ...graphstore.MutationOption) error {
	return p.update(ctx, models.NodeUpdate{Color: &color}, opts)
}

// SetProperty sets one property and keeps the rest of the data bag.
func (p *NodePanel) SetProperty(ctx context.Context, key, value string, opts ...graphstore.MutationOption) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrPropertyKeyRequired
	}

	node, err := p.current("SetProperty")
	if err != nil {
		return err
	}

	data := node.Data.WithProperty(key, value)

	return p.update(ctx, models.NodeUpdate{Data: &data}, opts)
}

// RemoveProperty drops one property. Removing a key that is not set changes nothing.
func (p *NodePanel) RemoveProperty(ctx context.Context, key string, opts ...graphstore.MutationOption) error {
	node, err := p.current("RemoveProperty")
	if err != nil {
		return err
	}

	if _, ok := node.Data.Properties[key]; !ok {
		return nil
	}

	data := node.Data.WithoutProperty(key)

	return p.update(ctx, models.NodeUpdate{Data: &data}, opts)
}

// MoveTo replaces the node position and keeps the rest of the data bag.
func (p *NodePanel) MoveTo(ctx context.Context, position models.Position, opts ...graphstore.MutationOption) error {
	node, err := p.current("MoveTo")
	if err != nil {
		return err
	}

	data := node.Data.WithPosition(position)

	return p.update(ctx, models.NodeUpdate{Data: &data}, opts)
}

func (p *NodePanel) Delete(ctx context.Context, opts ...graphstore.MutationOption) error {
	return p.store.RemoveNode(ctx, p.store.WorkflowID(), p.nodeID, opts...)
}

func (p *NodePanel) update(ctx context.Context, update models.NodeUpdate, opts []graphstore.MutationOption) error {
	return p.store.UpdateNode(ctx, p.store.WorkflowID(), p.nodeID, update, opts...)
}

func (p *NodePanel) current(op string) (models.Node, error) {
	node, ok := p.store.Node(p.nodeID)
	if !ok {
		return models.Node{}, fmt.Errorf("%s %s: %w", op, p.nodeID, graphstore.ErrNodeNotFound)
	}

	return node, nil
}
