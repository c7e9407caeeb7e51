package sidebar

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/dukex/opsflow/pkg/geometry"
	"github.com/dukex/opsflow/pkg/graphstore"
	"github.com/dukex/opsflow/pkg/models"
)

// ConnectionPanel edits one connection.
type ConnectionPanel struct {
	store        *graphstore.Store
	connectionID string
}

func NewConnectionPanel(store *graphstore.Store, connectionID string) *ConnectionPanel {
	return &ConnectionPanel{store: store, connectionID: connectionID}
}

func (p *ConnectionPanel) Connection() (models.Connection, bool) {
	return p.store.Connection(p.connectionID)
}

// Title is the custom name, or the "{source} → {target}" default when the name is empty.
func (p *ConnectionPanel) Title() string {
	connection, ok := p.store.Connection(p.connectionID)
	if !ok {
		return ""
	}

	source, _ := p.store.Node(connection.SourceID)
	target, _ := p.store.Node(connection.TargetID)

	return connection.DisplayName(source.Label, target.Label)
}

// Rename sets the custom name. An empty name falls back to the computed default.
func (p *ConnectionPanel) Rename(ctx context.Context, name string, opts ...graphstore.MutationOption) error {
	name = strings.TrimSpace(name)

	return p.update(ctx, models.ConnectionUpdate{Name: &name}, opts)
}

func (p *ConnectionPanel) SetEventType(ctx context.Context, eventType models.EventType, opts ...graphstore.MutationOption) error {
	return p.update(ctx, models.ConnectionUpdate{EventType: &eventType}, opts)
}

func (p *ConnectionPanel) SetPriority(ctx context.Context, priority int, opts ...graphstore.MutationOption) error {
	return p.update(ctx, models.ConnectionUpdate{Priority: &priority}, opts)
}

// SetPath moves both ends of the connection. Handles are recomputed from the node positions and
// the kind follows whether the connection now loops onto a single node.
func (p *ConnectionPanel) SetPath(ctx context.Context, sourceID, targetID string, opts ...graphstore.MutationOption) error {
	const op = "SetPath"

	source, ok := p.store.Node(sourceID)
	if !ok {
		return fmt.Errorf("%s %s: %w", op, sourceID, graphstore.ErrNodeNotFound)
	}

	target, ok := p.store.Node(targetID)
	if !ok {
		return fmt.Errorf("%s %s: %w", op, targetID, graphstore.ErrNodeNotFound)
	}

	handles := geometry.SelectHandles(source.Data.Position, target.Data.Position)

	kind := models.ConnectionKindSequential
	if sourceID == targetID {
		kind = models.ConnectionKindLoop
	}

	return p.update(ctx, models.ConnectionUpdate{
		SourceID:     &sourceID,
		TargetID:     &targetID,
		Kind:         &kind,
		SourceHandle: &handles.Source,
		TargetHandle: &handles.Target,
	}, opts)
}

func (p *ConnectionPanel) SetProperty(ctx context.Context, key, value string, opts ...graphstore.MutationOption) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrPropertyKeyRequired
	}

	connection, err := p.current("SetProperty")
	if err != nil {
		return err
	}

	properties := maps.Clone(connection.Properties)
	if properties == nil {
		properties = make(map[string]string)
	}

	properties[key] = value

	return p.update(ctx, models.ConnectionUpdate{Properties: properties}, opts)
}

// RemoveProperty drops one property. Removing the last one clears the mapping.
func (p *ConnectionPanel) RemoveProperty(ctx context.Context, key string, opts ...graphstore.MutationOption) error {
	connection, err := p.current("RemoveProperty")
	if err != nil {
		return err
	}

	if _, ok := connection.Properties[key]; !ok {
		return nil
	}

	properties := maps.Clone(connection.Properties)
	delete(properties, key)

	return p.update(ctx, models.ConnectionUpdate{Properties: properties}, opts)
}

func (p *ConnectionPanel) Delete(ctx context.Context, opts ...graphstore.MutationOption) error {
	return p.store.RemoveConnection(ctx, p.store.WorkflowID(), p.connectionID, opts...)
}

func (p *ConnectionPanel) update(ctx context.Context, update models.ConnectionUpdate, opts []graphstore.MutationOption) error {
	return p.store.UpdateConnection(ctx, p.store.WorkflowID(), p.connectionID, update, opts...)
}

func (p *ConnectionPanel) current(op string) (models.Connection, error) {
	connection, ok := p.store.Connection(p.connectionID)
	if !ok {
		return models.Connection{}, fmt.Errorf("%s %s: %w", op, p.connectionID, graphstore.ErrConnectionNotFound)
	}

	return connection, nil
}
