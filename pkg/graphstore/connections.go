package graphstore

import (
	"context"
	"slices"
	"strings"

	"github.com/dukex/opsflow/pkg/geometry"
	"github.com/dukex/opsflow/pkg/models"
)

// AddConnection creates a named connection between two existing nodes. Missing handles are chosen
// from the node positions, a missing kind is loop for a self-connection and sequential otherwise,
// and a missing event type is manual. Like AddNode it blocks until the backend answers.
func (s *Store) AddConnection(
	ctx context.Context,
	workflowID string,
	draft models.ConnectionDraft,
) (*models.Connection, error) {
	const op = "AddConnection"

	draft.Name = strings.TrimSpace(draft.Name)

	s.mu.Lock()
	draft, err := s.prepareConnectionDraftLocked(op, workflowID, draft)
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	var created *models.Connection

	err = s.track(ctx, op, EntityConnection,
		func(ctx context.Context) error {
			connection, err := s.gateway.CreateConnection(ctx, workflowID, draft)
			created = connection

			return err
		},
		func(current bool, err error) {
			if err != nil || !current || created == nil {
				return
			}

			// The endpoints may have been removed while the request was in flight.
			if s.nodeIndexLocked(created.SourceID) < 0 || s.nodeIndexLocked(created.TargetID) < 0 {
				return
			}

			s.connections = append(s.connections, created.Clone())
			s.unsaved = true
		},
	)
	if err != nil {
		mutErr := &MutationError{Op: op, Kind: EntityConnection, Err: err}
		s.reportFailure(ctx, mutErr)
		s.emit(Change{WorkflowID: workflowID, Kind: ChangeStatus})

		return nil, mutErr
	}

	s.emit(Change{WorkflowID: workflowID, Kind: ChangeConnections | ChangeStatus})

	connection := created.Clone()

	return &connection, nil
}

func (s *Store) prepareConnectionDraftLocked(
	op, workflowID string,
	draft models.ConnectionDraft,
) (models.ConnectionDraft, error) {
	if err := s.checkWorkflowLocked(op, workflowID); err != nil {
		return draft, err
	}

	if err := s.validate.Struct(draft); err != nil {
		return draft, fromValidator(op, err)
	}

	source, target, err := s.endpointsLocked(op, draft.SourceID, draft.TargetID)
	if err != nil {
		return draft, err
	}

	if draft.Kind == "" {
		draft.Kind = models.ConnectionKindSequential
		if draft.SourceID == draft.TargetID {
			draft.Kind = models.ConnectionKindLoop
		}
	}

	if draft.EventType == "" {
		draft.EventType = models.EventTypeManual
	}

	if draft.SourceHandle == "" || draft.TargetHandle == "" {
		handles := geometry.SelectHandles(source.Data.Position, target.Data.Position)
		if draft.SourceHandle == "" {
			draft.SourceHandle = handles.Source
		}

		if draft.TargetHandle == "" {
			draft.TargetHandle = handles.Target
		}
	}

	if err := models.ValidateEndpoints(source, target, draft.Kind); err != nil {
		return draft, invalid(op, err)
	}

	return draft, nil
}

// UpdateConnection applies update to the local connection at once and confirms it remotely in the
// background, with the same field-level rollback as UpdateNode. The resulting connection must
// satisfy the endpoint rules before anything is sent.
func (s *Store) UpdateConnection(
	ctx context.Context,
	workflowID, connectionID string,
	update models.ConnectionUpdate,
	opts ...MutationOption,
) error {
	const op = "UpdateConnection"

	update = cloneConnectionUpdate(update)
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		update.Name = &name
	}

	key := entityKey(EntityConnection, connectionID)

	var write *fieldWrite

	restore := func(field string, value any) {
		if i := s.connectionIndexLocked(connectionID); i >= 0 {
			restoreConnectionField(&s.connections[i], field, value)
		}
	}

	return s.optimisticMutate(ctx, mutation{
		op:       op,
		kind:     EntityConnection,
		entityID: connectionID,
		change:   ChangeConnections,
		apply: func() error {
			i, candidate, err := s.validateConnectionUpdateLocked(op, workflowID, connectionID, update)
			if err != nil {
				return err
			}

			write = s.recordWriteLocked(key, captureConnectionFields(s.connections[i], connectionUpdateFields(update)))
			s.connections[i] = candidate

			return nil
		},
		remote: func(ctx context.Context) error {
			_, err := s.gateway.UpdateConnection(ctx, workflowID, connectionID, update)

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

func (s *Store) validateConnectionUpdateLocked(
	op, workflowID, connectionID string,
	update models.ConnectionUpdate,
) (int, models.Connection, error) {
	if err := s.checkWorkflowLocked(op, workflowID); err != nil {
		return -1, models.Connection{}, err
	}

	if update.IsEmpty() {
		return -1, models.Connection{}, invalidField(op, "update", "nothing to update")
	}

	i := s.connectionIndexLocked(connectionID)
	if i < 0 {
		return -1, models.Connection{}, invalid(op, ErrConnectionNotFound)
	}

	candidate := s.connections[i].Clone()
	update.Apply(&candidate)

	switch {
	case candidate.Kind != models.ConnectionKindSequential && candidate.Kind != models.ConnectionKindLoop:
		return -1, models.Connection{}, invalidField(op, "kind", "unknown connection kind "+string(candidate.Kind))
	case !candidate.EventType.IsValid():
		return -1, models.Connection{}, invalidField(op, "event_type", "unknown event type "+string(candidate.EventType))
	case !candidate.SourceHandle.IsValid():
		return -1, models.Connection{}, invalidField(op, "source_handle", "unknown handle "+string(candidate.SourceHandle))
	case !candidate.TargetHandle.IsValid():
		return -1, models.Connection{}, invalidField(op, "target_handle", "unknown handle "+string(candidate.TargetHandle))
	case candidate.Priority < 0:
		return -1, models.Connection{}, invalidField(op, "priority", "priority cannot be negative")
	}

	source, target, err := s.endpointsLocked(op, candidate.SourceID, candidate.TargetID)
	if err != nil {
		return -1, models.Connection{}, err
	}

	if err := models.ValidateEndpoints(source, target, candidate.Kind); err != nil {
		return -1, models.Connection{}, invalid(op, err)
	}

	return i, candidate, nil
}

// RemoveConnection removes a connection locally and deletes it remotely, putting it back at its
// original position on failure.
func (s *Store) RemoveConnection(ctx context.Context, workflowID, connectionID string, opts ...MutationOption) error {
	const op = "RemoveConnection"

	var removed indexedConnection

	return s.optimisticMutate(ctx, mutation{
		op:       op,
		kind:     EntityConnection,
		entityID: connectionID,
		change:   ChangeConnections,
		apply: func() error {
			if err := s.checkWorkflowLocked(op, workflowID); err != nil {
				return err
			}

			i := s.connectionIndexLocked(connectionID)
			if i < 0 {
				return invalid(op, ErrConnectionNotFound)
			}

			removed = indexedConnection{index: i, connection: s.connections[i].Clone()}
			s.connections = slices.Delete(s.connections, i, i+1)

			return nil
		},
		remote: func(ctx context.Context) error {
			return s.gateway.DeleteConnection(ctx, workflowID, connectionID)
		},
		commit: func() {
			s.dropWritesLocked(entityKey(EntityConnection, connectionID))
		},
		revert: func() {
			s.reattachConnectionsLocked([]indexedConnection{removed})
		},
	}, opts)
}

func (s *Store) endpointsLocked(op, sourceID, targetID string) (models.Node, models.Node, error) {
	si := s.nodeIndexLocked(sourceID)
	if si < 0 {
		return models.Node{}, models.Node{}, &ValidationError{Op: op, Field: "source_id", Err: ErrNodeNotFound}
	}

	ti := s.nodeIndexLocked(targetID)
	if ti < 0 {
		return models.Node{}, models.Node{}, &ValidationError{Op: op, Field: "target_id", Err: ErrNodeNotFound}
	}

	return s.nodes[si], s.nodes[ti], nil
}
