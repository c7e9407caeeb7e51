package editor

import (
	"context"
	"fmt"
	"maps"

	"github.com/dukex/opsflow/pkg/graphstore"
	"github.com/dukex/opsflow/pkg/models"
)

// discardPlan is the id diff between the snapshot and the current graph.
type discardPlan struct {
	addedConnections    []models.Connection
	addedNodes          []models.Node
	removedNodes        []models.Node
	removedConnections  []models.Connection
	modifiedNodes       []models.Node
	modifiedConnections []models.Connection
}

func (p discardPlan) empty() bool {
	return len(p.addedConnections) == 0 && len(p.addedNodes) == 0 &&
		len(p.removedNodes) == 0 && len(p.removedConnections) == 0 &&
		len(p.modifiedNodes) == 0 && len(p.modifiedConnections) == 0
}

// planDiscard diffs current against snapshot. Removed and modified entries carry the snapshot
// values. A snapshot connection now attached to an added node is planned as removed, since deleting
// that node takes the connection with it.
func planDiscard(snapshot, current models.Graph) discardPlan {
	var plan discardPlan

	added := make(map[string]bool)

	for _, node := range current.Nodes {
		if _, ok := snapshot.Node(node.ID); !ok {
			plan.addedNodes = append(plan.addedNodes, node)
			added[node.ID] = true
		}
	}

	for _, node := range snapshot.Nodes {
		now, ok := current.Node(node.ID)

		switch {
		case !ok:
			plan.removedNodes = append(plan.removedNodes, node)
		case !now.Equal(node):
			plan.modifiedNodes = append(plan.modifiedNodes, node)
		}
	}

	for _, connection := range current.Connections {
		if _, ok := snapshot.Connection(connection.ID); !ok {
			plan.addedConnections = append(plan.addedConnections, connection)
		}
	}

	for _, connection := range snapshot.Connections {
		now, ok := current.Connection(connection.ID)

		switch {
		case !ok, added[now.SourceID], added[now.TargetID]:
			plan.removedConnections = append(plan.removedConnections, connection)
		case !now.Equal(connection):
			plan.modifiedConnections = append(plan.modifiedConnections, connection)
		}
	}

	return plan
}

// apply runs the plan against the backend: deletions (connections before nodes), recreations
// (nodes before connections, remapping endpoints to the new node ids), then modifications.
func (s *Session) apply(ctx context.Context, workflowID string, plan discardPlan) []*DiscardStepError {
	if plan.empty() {
		return nil
	}

	var steps []*DiscardStepError

	fail := func(action StepAction, kind graphstore.EntityKind, id string, err error) {
		s.logger.WarnContext(ctx, "discard step failed",
			"action", action, "kind", kind, "id", id, "error", err)

		steps = append(steps, &DiscardStepError{Action: action, Kind: kind, ID: id, Err: err})
	}

	for _, connection := range plan.addedConnections {
		if err := s.gateway.DeleteConnection(ctx, workflowID, connection.ID); err != nil {
			fail(StepDelete, graphstore.EntityConnection, connection.ID, err)
		}
	}

	for _, node := range plan.addedNodes {
		if err := s.gateway.DeleteNode(ctx, workflowID, node.ID); err != nil {
			fail(StepDelete, graphstore.EntityNode, node.ID, err)
		}
	}

	ids := make(map[string]string, len(plan.removedNodes))

	for _, node := range plan.removedNodes {
		created, err := s.gateway.CreateNode(ctx, workflowID, models.NodeDraft{
			Category: node.Category,
			Label:    node.Label,
			Color:    node.Color,
			Data:     node.Data.Clone(),
		})
		if err != nil {
			fail(StepRecreate, graphstore.EntityNode, node.ID, err)

			continue
		}

		ids[node.ID] = created.ID
	}

	remap := func(id string) string {
		if newID, ok := ids[id]; ok {
			return newID
		}

		return id
	}

	for _, connection := range plan.removedConnections {
		_, err := s.gateway.CreateConnection(ctx, workflowID, models.ConnectionDraft{
			SourceID:     remap(connection.SourceID),
			TargetID:     remap(connection.TargetID),
			Kind:         connection.Kind,
			Name:         connection.Name,
			EventType:    connection.EventType,
			Priority:     connection.Priority,
			SourceHandle: connection.SourceHandle,
			TargetHandle: connection.TargetHandle,
			Properties:   maps.Clone(connection.Properties),
		})
		if err != nil {
			fail(StepRecreate, graphstore.EntityConnection, connection.ID, err)
		}
	}

	for _, node := range plan.modifiedNodes {
		current, _ := s.store.Node(node.ID)

		update := restoreNode(current, node)
		if update.IsEmpty() {
			continue
		}

		if _, err := s.gateway.UpdateNode(ctx, workflowID, node.ID, update); err != nil {
			fail(StepRestore, graphstore.EntityNode, node.ID, err)
		}
	}

	for _, connection := range plan.modifiedConnections {
		current, _ := s.store.Connection(connection.ID)

		update := restoreConnection(current, connection)
		if update.SourceID != nil {
			update.SourceID = ptr(remap(*update.SourceID))
		}

		if update.TargetID != nil {
			update.TargetID = ptr(remap(*update.TargetID))
		}

		if update.IsEmpty() {
			continue
		}

		if _, err := s.gateway.UpdateConnection(ctx, workflowID, connection.ID, update); err != nil {
			fail(StepRestore, graphstore.EntityConnection, connection.ID, err)
		}
	}

	return steps
}

// restoreNode builds the update that takes current back to snapshot, field by field.
func restoreNode(current, snapshot models.Node) models.NodeUpdate {
	var update models.NodeUpdate

	if current.Category != snapshot.Category {
		update.Category = ptr(snapshot.Category)
	}

	if current.Label != snapshot.Label {
		update.Label = ptr(snapshot.Label)
	}

	if current.Color != snapshot.Color {
		update.Color = ptr(snapshot.Color)
	}

	if !current.Data.Equal(snapshot.Data) {
		update.Data = ptr(snapshot.Data.Clone())
	}

	return update
}

func restoreConnection(current, snapshot models.Connection) models.ConnectionUpdate {
	var update models.ConnectionUpdate

	if current.SourceID != snapshot.SourceID {
		update.SourceID = ptr(snapshot.SourceID)
	}

	if current.TargetID != snapshot.TargetID {
		update.TargetID = ptr(snapshot.TargetID)
	}

	if current.Kind != snapshot.Kind {
		update.Kind = ptr(snapshot.Kind)
	}

	if current.Name != snapshot.Name {
		update.Name = ptr(snapshot.Name)
	}

	if current.EventType != snapshot.EventType {
		update.EventType = ptr(snapshot.EventType)
	}

	if current.Priority != snapshot.Priority {
		update.Priority = ptr(snapshot.Priority)
	}

	if current.SourceHandle != snapshot.SourceHandle {
		update.SourceHandle = ptr(snapshot.SourceHandle)
	}

	if current.TargetHandle != snapshot.TargetHandle {
		update.TargetHandle = ptr(snapshot.TargetHandle)
	}

	if !maps.Equal(current.Properties, snapshot.Properties) {
		update.Properties = maps.Clone(snapshot.Properties)
		if update.Properties == nil {
			update.Properties = map[string]string{}
		}
	}

	return update
}

func ptr[T any](v T) *T {
	return &v
}

func (p discardPlan) String() string {
	return fmt.Sprintf("added %d/%d, removed %d/%d, modified %d/%d (nodes/connections)",
		len(p.addedNodes), len(p.addedConnections),
		len(p.removedNodes), len(p.removedConnections),
		len(p.modifiedNodes), len(p.modifiedConnections))
}
