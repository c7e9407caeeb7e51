package graphstore

import (
	"context"
	"slices"
	"strings"

	"github.com/dukex/opsflow/pkg/models"
)

// AddNode creates a node remotely and appends the server's copy. It blocks until the backend
// answers because nothing may reference the node before it has a server id. On failure nothing is
// added and a *MutationError is returned and sent to the notifier.
func (s *Store) AddNode(ctx context.Context, workflowID string, draft models.NodeDraft) (*models.Node, error) {
	const op = "AddNode"

	draft.Label = strings.TrimSpace(draft.Label)
	draft.Data = draft.Data.Clone()

	s.mu.Lock()
	err := s.validateNodeDraftLocked(op, workflowID, draft)
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	var created *models.Node

	err = s.track(ctx, op, EntityNode,
		func(ctx context.Context) error {
			node, err := s.gateway.CreateNode(ctx, workflowID, draft)
			created = node

			return err
		},
		func(current bool, err error) {
			if err != nil || !current || created == nil {
				return
			}

			s.nodes = append(s.nodes, created.Clone())
			s.unsaved = true
		},
	)
	if err != nil {
		mutErr := &MutationError{Op: op, Kind: EntityNode, Err: err}
		s.reportFailure(ctx, mutErr)
		s.emit(Change{WorkflowID: workflowID, Kind: ChangeStatus})

		return nil, mutErr
	}

	s.emit(Change{WorkflowID: workflowID, Kind: ChangeNodes | ChangeStatus})

	node := created.Clone()

	return &node, nil
}

func (s *Store) validateNodeDraftLocked(op, workflowID string, draft models.NodeDraft) error {
	if err := s.checkWorkflowLocked(op, workflowID); err != nil {
		return err
	}

	if err := s.validate.Struct(draft); err != nil {
		return fromValidator(op, err)
	}

	if draft.Category == models.NodeCategoryStart && s.hasStartLocked("") {
		return invalid(op, models.ErrDuplicateStart)
	}

	return nil
}

// UpdateNode applies update to the local node at once and confirms it remotely in the background.
// If the backend rejects it, only the fields this call changed go back to the values they had
// right before it, and only where no newer update has written them since.
func (s *Store) UpdateNode(
	ctx context.Context,
	workflowID, nodeID string,
	update models.NodeUpdate,
	opts ...MutationOption,
) error {
	const op = "UpdateNode"

	update = cloneNodeUpdate(update)
	if update.Label != nil {
		label := strings.TrimSpace(*update.Label)
		update.Label = &label
	}

	key := entityKey(EntityNode, nodeID)

	var write *fieldWrite

	restore := func(field string, value any) {
		if i := s.nodeIndexLocked(nodeID); i >= 0 {
			restoreNodeField(&s.nodes[i], field, value)
		}
	}

	return s.optimisticMutate(ctx, mutation{
		op:       op,
		kind:     EntityNode,
		entityID: nodeID,
		change:   ChangeNodes,
		apply: func() error {
			i, err := s.validateNodeUpdateLocked(op, workflowID, nodeID, update)
			if err != nil {
				return err
			}

			write = s.recordWriteLocked(key, captureNodeFields(s.nodes[i], nodeUpdateFields(update)))
			update.Apply(&s.nodes[i])

			return nil
		},
		remote: func(ctx context.Context) error {
			_, err := s.gateway.UpdateNode(ctx, workflowID, nodeID, update)

			return err
		},
		commit: func() {
			s.settleWriteLocked(key, write, false, restore)
		},
		revert: func() {
			s.settleWriteLocked(key, write, true, restore)
		},
	}, opts)
}

func (s *Store) validateNodeUpdateLocked(op, workflowID, nodeID string, update models.NodeUpdate) (int, error) {
	if err := s.checkWorkflowLocked(op, workflowID); err != nil {
		return -1, err
	}

	if update.IsEmpty() {
		return -1, invalidField(op, "update", "nothing to update")
	}

	i := s.nodeIndexLocked(nodeID)
	if i < 0 {
		return -1, invalid(op, ErrNodeNotFound)
	}

	node := s.nodes[i]

	if update.Label != nil && *update.Label == "" {
		return -1, invalidField(op, "label", "label is required")
	}

	if update.Color != nil {
		if err := s.validate.Var(*update.Color, "omitempty,hexcolor"); err != nil {
			return -1, invalidField(op, "color", "color must be a hex color")
		}
	}

	if update.Category == nil || *update.Category == node.Category {
		return i, nil
	}

	category := *update.Category

	switch {
	case !category.IsValid():
		return -1, invalidField(op, "category", "unknown category "+string(category))
	case node.IsStart():
		return -1, invalid(op, models.ErrStartNodeFixed)
	case category == models.NodeCategoryStart && s.hasStartLocked(nodeID):
		return -1, invalid(op, models.ErrDuplicateStart)
	case category == models.NodeCategoryStart && s.hasConnectionLocked(func(c models.Connection) bool {
		return c.TargetID == nodeID
	}):
		return -1, invalid(op, models.ErrTargetIsStart)
	case category == models.NodeCategoryDone && s.hasConnectionLocked(func(c models.Connection) bool {
		return c.SourceID == nodeID
	}):
		return -1, invalid(op, models.ErrSourceIsDone)
	}

	return i, nil
}

// RemoveNode removes a node and every connection touching it. The start node is refused before
// any network call. If the backend fails, the node and its connections come back at their
// original positions.
func (s *Store) RemoveNode(ctx context.Context, workflowID, nodeID string, opts ...MutationOption) error {
	const op = "RemoveNode"

	var (
		removed     models.Node
		removedAt   int
		connections []indexedConnection
	)

	return s.optimisticMutate(ctx, mutation{
		op:       op,
		kind:     EntityNode,
		entityID: nodeID,
		change:   ChangeNodes | ChangeConnections,
		apply: func() error {
			if err := s.checkWorkflowLocked(op, workflowID); err != nil {
				return err
			}

			i := s.nodeIndexLocked(nodeID)
			if i < 0 {
				return invalid(op, ErrNodeNotFound)
			}

			if s.nodes[i].IsStart() {
				return invalid(op, models.ErrStartNodeFixed)
			}

			removed = s.nodes[i].Clone()
			removedAt = i
			s.nodes = slices.Delete(s.nodes, i, i+1)
			connections = s.detachConnectionsLocked(nodeID)

			return nil
		},
		remote: func(ctx context.Context) error {
			return s.gateway.DeleteNode(ctx, workflowID, nodeID)
		},
		commit: func() {
			s.dropWritesLocked(entityKey(EntityNode, nodeID))

			for _, c := range connections {
				s.dropWritesLocked(entityKey(EntityConnection, c.connection.ID))
			}
		},
		revert: func() {
			if s.nodeIndexLocked(nodeID) < 0 {
				s.nodes = slices.Insert(s.nodes, min(removedAt, len(s.nodes)), removed)
			}

			s.reattachConnectionsLocked(connections)
		},
	}, opts)
}

type indexedConnection struct {
	index      int
	connection models.Connection
}

// detachConnectionsLocked removes every connection touching nodeID and returns them with the
// indices they had.
func (s *Store) detachConnectionsLocked(nodeID string) []indexedConnection {
	var (
		detached []indexedConnection
		kept     = s.connections[:0:0]
	)

	for i, c := range s.connections {
		if c.Touches(nodeID) {
			detached = append(detached, indexedConnection{index: i, connection: c.Clone()})

			continue
		}

		kept = append(kept, c)
	}

	s.connections = kept

	return detached
}

// reattachConnectionsLocked puts detached connections back. Indices are applied in ascending order
// so each lands where it was, as far as the current list allows. A connection whose other endpoint
// has been removed in the meantime stays detached.
func (s *Store) reattachConnectionsLocked(detached []indexedConnection) {
	for _, c := range detached {
		if s.connectionIndexLocked(c.connection.ID) >= 0 {
			continue
		}

		if s.nodeIndexLocked(c.connection.SourceID) < 0 || s.nodeIndexLocked(c.connection.TargetID) < 0 {
			continue
		}

		s.connections = slices.Insert(s.connections, min(c.index, len(s.connections)), c.connection)
	}
}

func (s *Store) hasStartLocked(exceptID string) bool {
	return slices.ContainsFunc(s.nodes, func(n models.Node) bool {
		return n.IsStart() && n.ID != exceptID
	})
}

func (s *Store) hasConnectionLocked(match func(models.Connection) bool) bool {
	return slices.ContainsFunc(s.connections, match)
}
