// Package editor coordinates one open workflow: it loads the graph, keeps the snapshot taken when
// the editor first became ready, and implements save and discard on top of the graph store.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/opsflow/pkg/gateway"
	"github.com/dukex/opsflow/pkg/graphstore"
	"github.com/dukex/opsflow/pkg/log"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// State is the lifecycle stage of a session.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSaving     State = "saving"
	StateDiscarding State = "discarding"
	StateClosed     State = "closed"
	StateFailed     State = "failed"
)

// Session owns the graph store of one workflow.
type Session struct {
	store         *graphstore.Store
	gateway       gateway.Gateway
	logger        *slog.Logger
	notifier      graphstore.Notifier
	tracer        trace.Tracer
	settleTimeout time.Duration

	mu          sync.Mutex
	state       State
	workflowID  string
	snapshot    models.Graph
	hasSnapshot bool
}

// New creates a session around store. gw must be the gateway the store talks to; discard uses it
// directly to reconcile the backend with the snapshot.
func New(store *graphstore.Store, gw gateway.Gateway, opts ...Option) *Session {
	s := &Session{
		store:         store,
		gateway:       gw,
		logger:        log.WithModule("editor"),
		tracer:        otelhelper.Tracer("opsflow/editor"),
		settleTimeout: defaultSettleTimeout,
		state:         StateIdle,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.notifier == nil {
		s.notifier = graphstore.LogNotifier{Logger: s.logger}
	}

	return s
}

func (s *Session) Store() *graphstore.Store {
	return s.store
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) WorkflowID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.workflowID
}

func (s *Session) HasUnsavedChanges() bool {
	return s.store.HasUnsavedChanges()
}

func (s *Session) HasPendingOperations() bool {
	return s.store.HasPendingOperations()
}

// Snapshot returns a copy of the graph captured when the workflow first became ready.
func (s *Session) Snapshot() (models.Graph, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasSnapshot {
		return models.Graph{}, false
	}

	return s.snapshot.Clone(), true
}

// Open loads workflowID into the store. The snapshot is captured the first time the session is
// ready for that workflow. A failed load leaves the session Failed; Open may be called again.
func (s *Session) Open(ctx context.Context, workflowID string) error {
	s.mu.Lock()
	if s.state == StateSaving || s.state == StateDiscarding {
		state := s.state
		s.mu.Unlock()

		return fmt.Errorf("%w: session is %s", ErrNotReady, state)
	}

	s.state = StateLoading
	s.mu.Unlock()

	logger := s.logger.With("workflow_id", workflowID)
	logger.DebugContext(ctx, "opening workflow")

	err := s.store.Load(ctx, workflowID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = StateFailed
		logger.ErrorContext(ctx, "failed to open workflow", "error", err)

		return err
	}

	if !s.hasSnapshot || s.workflowID != workflowID {
		s.snapshot = s.store.Graph()
		s.hasSnapshot = true
	}

	s.workflowID = workflowID
	s.state = StateReady

	logger.InfoContext(ctx, "workflow ready",
		"nodes", len(s.snapshot.Nodes),
		"connections", len(s.snapshot.Connections))

	return nil
}

// Save is a checkpoint: every change was already persisted by the store. It waits for in-flight
// operations up to the settle timeout, marks the store saved, replaces the snapshot and closes the
// session.
func (s *Session) Save(ctx context.Context) error {
	if err := s.begin(StateSaving); err != nil {
		return err
	}

	s.settle(ctx, "save")
	s.store.MarkAsSaved()

	s.mu.Lock()
	s.snapshot = s.store.Graph()
	s.hasSnapshot = true
	s.state = StateClosed
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "workflow saved", "workflow_id", s.store.WorkflowID())

	return nil
}

// Discard brings the backend back to the snapshot after the user confirms. Every step is best
// effort; failed steps are returned together as a *DiscardError and reported once to the
// notifier. The store is reloaded from the backend at the end either way.
func (s *Session) Discard(ctx context.Context, confirmer Confirmer) error {
	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()

		return fmt.Errorf("%w: session is %s", ErrNotReady, state)
	}

	if !s.hasSnapshot {
		s.mu.Unlock()

		return ErrNoSnapshot
	}
	s.mu.Unlock()

	if confirmer == nil || !confirmer.Confirm(ctx, "Discard all changes made since the workflow was opened?") {
		return ErrDiscardNotConfirmed
	}

	if err := s.begin(StateDiscarding); err != nil {
		return err
	}

	workflowID := s.store.WorkflowID()

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "editor.discard",
		attribute.String(otelhelper.WorkflowIDKey, workflowID))

	s.settle(ctx, "discard")

	s.mu.Lock()
	snapshot := s.snapshot.Clone()
	s.mu.Unlock()

	plan := planDiscard(snapshot, s.store.Graph())
	s.logger.DebugContext(ctx, "discard plan", "workflow_id", workflowID, "plan", plan.String())

	steps := s.apply(ctx, workflowID, plan)

	var discardErr error
	if len(steps) > 0 {
		discardErr = &DiscardError{Steps: steps}

		s.notifier.Notify(ctx, graphstore.Notification{
			Level:   graphstore.LevelWarning,
			Title:   "Some changes could not be discarded",
			Message: fmt.Sprintf("%d change(s) could not be reverted.", len(steps)),
			Err:     discardErr,
		})
	}

	loadErr := s.store.Load(ctx, workflowID)
	if loadErr == nil {
		s.store.MarkAsSaved()
	}

	s.mu.Lock()

	switch {
	case loadErr != nil:
		s.state = StateFailed
	case discardErr == nil:
		s.snapshot = s.store.Graph()
		s.state = StateReady
	default:
		s.state = StateReady
	}

	s.mu.Unlock()

	err := errors.Join(discardErr, loadErr)
	otelhelper.End(span, err)

	s.logger.InfoContext(ctx, "discard finished",
		"workflow_id", workflowID,
		"failed_steps", len(steps),
		"reloaded", loadErr == nil)

	return err
}

func (s *Session) begin(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return fmt.Errorf("%w: session is %s", ErrNotReady, s.state)
	}

	s.state = next

	return nil
}

// settle waits for in-flight store operations, giving up after the settle timeout.
func (s *Session) settle(ctx context.Context, action string) {
	if !s.store.HasPendingOperations() {
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.settleTimeout)
	defer cancel()

	if err := s.store.WaitIdle(waitCtx); err != nil {
		s.logger.WarnContext(ctx, "proceeding with operations still in flight",
			"action", action,
			"pending", s.store.PendingOperations())
	}
}
