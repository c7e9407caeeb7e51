package graphstore

import (
	"context"
	"slices"

	"github.com/dukex/opsflow/pkg/gateway"
	"github.com/dukex/opsflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// mutation is one optimistic operation. apply, commit and revert run with the store lock held.
type mutation struct {
	op       string
	kind     EntityKind
	entityID string
	change   ChangeKind

	// apply validates and changes local state. A non-nil error aborts the operation before any
	// network call.
	apply  func() error
	remote func(ctx context.Context) error
	commit func()
	revert func()
}

// optimisticMutate applies m locally, then confirms it remotely in the background. On remote
// failure m.revert runs, the failure is sent to the notifier and to the OnFailure hook.
// Completions that belong to an older load generation change nothing.
func (s *Store) optimisticMutate(ctx context.Context, m mutation, opts []MutationOption) error {
	s.mu.Lock()

	err := m.apply()
	if err != nil {
		s.mu.Unlock()

		return err
	}

	s.unsaved = true
	opID := s.beginLocked(m.op)
	generation := s.generation
	workflowID := s.workflowID
	lane := s.joinLaneLocked(entityKey(m.kind, m.entityID))
	s.mu.Unlock()

	s.emit(Change{WorkflowID: workflowID, Kind: m.change | ChangeStatus})

	go s.settle(ctx, m, collectMutationOptions(opts), lane, opID, generation, workflowID)

	return nil
}

func (s *Store) settle(
	ctx context.Context,
	m mutation,
	o mutationOptions,
	lane laneTicket,
	opID, generation uint64,
	workflowID string,
) {
	lane.wait()

	ctx, cancel := s.remoteContext(context.WithoutCancel(ctx))
	defer cancel()

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "graphstore."+m.op,
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.EntityKindKey, string(m.kind)),
		attribute.String(otelhelper.OperationKey, m.op),
	)

	err := m.remote(ctx)
	otelhelper.End(span, err)

	s.mu.Lock()

	current := generation == s.generation
	if current {
		if err != nil {
			if m.revert != nil {
				m.revert()
			}
		} else if m.commit != nil {
			m.commit()
		}
	}

	s.leaveLaneLocked(lane)
	s.mu.Unlock()

	// Hooks run before the operation stops counting as pending so WaitIdle observes their effects.
	if err == nil {
		if o.onSuccess != nil {
			o.onSuccess()
		}
	} else {
		mutErr := &MutationError{Op: m.op, Kind: m.kind, EntityID: m.entityID, Err: err}
		s.reportFailure(ctx, mutErr)

		if current {
			s.emit(Change{WorkflowID: workflowID, Kind: m.change})
		}

		if o.onFailure != nil {
			o.onFailure(mutErr)
		}
	}

	s.mu.Lock()
	s.endLocked(opID)
	s.mu.Unlock()

	s.emit(Change{WorkflowID: workflowID, Kind: ChangeStatus})
}

// track runs a blocking remote call while counting it as a pending operation. finish runs with the
// lock held before the operation stops counting as pending; current is false when a newer load
// replaced the graph in the meantime.
func (s *Store) track(
	ctx context.Context,
	op string,
	kind EntityKind,
	call func(ctx context.Context) error,
	finish func(current bool, err error),
) error {
	s.mu.Lock()
	opID := s.beginLocked(op)
	generation := s.generation
	workflowID := s.workflowID
	s.mu.Unlock()

	s.emit(Change{WorkflowID: workflowID, Kind: ChangeStatus})

	ctx, cancel := s.remoteContext(ctx)
	defer cancel()

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "graphstore."+op,
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.EntityKindKey, string(kind)),
		attribute.String(otelhelper.OperationKey, op),
	)

	err := call(ctx)
	otelhelper.End(span, err)

	s.mu.Lock()
	finish(generation == s.generation, err)
	s.endLocked(opID)
	s.mu.Unlock()

	return err
}

func (s *Store) reportFailure(ctx context.Context, err *MutationError) {
	s.logger.WarnContext(ctx, "Graph change rolled back",
		"op", err.Op, "kind", err.Kind, "id", err.EntityID, "error", err.Err)

	s.notifier.Notify(ctx, Notification{
		Level:   LevelError,
		Title:   "Could not save " + string(err.Kind),
		Message: gateway.Message(err.Err),
		Err:     err,
	})
}

func (s *Store) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.requestTimeout)
}

func (s *Store) beginLocked(op string) uint64 {
	s.nextOpID++
	if len(s.pending) == 0 {
		s.idle = make(chan struct{})
	}

	s.pending[s.nextOpID] = op

	return s.nextOpID
}

func (s *Store) endLocked(opID uint64) {
	if _, ok := s.pending[opID]; !ok {
		return
	}

	delete(s.pending, opID)

	if len(s.pending) == 0 {
		close(s.idle)
	}
}

// laneTicket orders remote calls against one entity. A call waits for the previous call on the
// same lane to settle, so the backend sees updates of an entity in the order they were issued.
type laneTicket struct {
	key  string
	prev <-chan struct{}
	done chan struct{}
}

func (t laneTicket) wait() {
	if t.prev != nil {
		<-t.prev
	}
}

func (s *Store) joinLaneLocked(key string) laneTicket {
	t := laneTicket{key: key, prev: s.lanes[key], done: make(chan struct{})}
	s.lanes[key] = t.done

	return t
}

func (s *Store) leaveLaneLocked(t laneTicket) {
	if s.lanes[t.key] == t.done {
		delete(s.lanes, t.key)
	}

	close(t.done)
}

// fieldWrite is one in-flight update of an entity: the value every touched field had right
// before the update was applied. seq orders writes of the same entity by issue time.
type fieldWrite struct {
	seq    uint64
	before map[string]any
}

func entityKey(kind EntityKind, id string) string {
	return string(kind) + ":" + id
}

func (s *Store) recordWriteLocked(key string, before map[string]any) *fieldWrite {
	s.writeSeq++

	w := &fieldWrite{seq: s.writeSeq, before: before}
	s.writes[key] = append(s.writes[key], w)

	return w
}

// settleWriteLocked retires w. A confirmed write records itself as the newest confirmed writer of
// its fields. When the write failed, each of its fields goes back to its before-value unless a
// newer write of the field is already confirmed, or a newer write is still in flight; in the
// latter case that write inherits the before-value so its own failure restores the last
// confirmed value.
func (s *Store) settleWriteLocked(key string, w *fieldWrite, failed bool, restore func(field string, value any)) {
	list := s.writes[key]

	idx := slices.Index(list, w)
	if idx < 0 {
		return
	}

	if failed {
		confirmed := s.confirmed[key]

		for field, before := range w.before {
			if confirmed[field] > w.seq {
				continue
			}

			if next := nextWriterOf(list[idx+1:], field); next != nil {
				next.before[field] = before

				continue
			}

			restore(field, before)
		}
	} else {
		s.confirmLocked(key, w)
	}

	list = slices.Delete(list, idx, idx+1)
	if len(list) == 0 {
		s.dropWritesLocked(key)

		return
	}

	s.writes[key] = list
}

func (s *Store) confirmLocked(key string, w *fieldWrite) {
	confirmed := s.confirmed[key]
	if confirmed == nil {
		confirmed = make(map[string]uint64, len(w.before))
		s.confirmed[key] = confirmed
	}

	for field := range w.before {
		confirmed[field] = max(confirmed[field], w.seq)
	}
}

func (s *Store) dropWritesLocked(key string) {
	delete(s.writes, key)
	delete(s.confirmed, key)
}

func nextWriterOf(later []*fieldWrite, field string) *fieldWrite {
	for _, w := range later {
		if _, ok := w.before[field]; ok {
			return w
		}
	}

	return nil
}
