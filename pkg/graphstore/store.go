// Package graphstore holds the in-memory graph of the workflow open in the editor and keeps it in
// sync with the backend through optimistic, individually rolled back mutations.
package graphstore

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukex/opsflow/pkg/gateway"
	"github.com/dukex/opsflow/pkg/log"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/otelhelper"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultRequestTimeout = 30 * time.Second

// ChangeKind is a bit set describing what part of the store changed.
type ChangeKind uint8

const (
	ChangeNodes ChangeKind = 1 << iota
	ChangeConnections
	ChangeStatus
	ChangeLoaded
)

// Change is delivered to subscribers after the store lock has been released.
type Change struct {
	WorkflowID string
	Kind       ChangeKind
}

// Has reports whether the change includes kind.
func (c Change) Has(kind ChangeKind) bool {
	return c.Kind&kind != 0
}

// Store is the single writer of one workflow's nodes and connections.
type Store struct {
	gateway        gateway.Gateway
	logger         *slog.Logger
	notifier       Notifier
	validate       *validator.Validate
	tracer         trace.Tracer
	requestTimeout time.Duration

	mu          sync.Mutex
	workflowID  string
	generation  uint64
	nodes       []models.Node
	connections []models.Connection
	loading     bool
	unsaved     bool
	nextOpID    uint64
	pending     map[uint64]string
	writes      map[string][]*fieldWrite
	writeSeq    uint64
	confirmed   map[string]map[string]uint64
	lanes       map[string]chan struct{}
	idle        chan struct{}

	listenersMu  sync.Mutex
	listeners    map[int]func(Change)
	nextListener int
}

// New creates an empty store backed by gw.
func New(gw gateway.Gateway, opts ...Option) *Store {
	idle := make(chan struct{})
	close(idle)

	s := &Store{
		gateway:        gw,
		logger:         log.WithModule("graphstore"),
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		tracer:         otelhelper.Tracer("opsflow/graphstore"),
		requestTimeout: defaultRequestTimeout,
		pending:        make(map[uint64]string),
		writes:         make(map[string][]*fieldWrite),
		confirmed:      make(map[string]map[string]uint64),
		lanes:          make(map[string]chan struct{}),
		idle:           idle,
		listeners:      make(map[int]func(Change)),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}

	return s
}

// Load replaces the local graph with the backend's nodes and connections of workflowID.
// On failure the previous state is kept and a *LoadError is returned.
func (s *Store) Load(ctx context.Context, workflowID string) error {
	if workflowID == "" {
		return invalidField("Load", "workflow_id", "workflow id is required")
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.emit(Change{WorkflowID: workflowID, Kind: ChangeStatus})

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "graphstore.Load",
		attribute.String(otelhelper.WorkflowIDKey, workflowID))

	nodes, err := s.gateway.ListNodes(ctx, workflowID)

	var connections []models.Connection
	if err == nil {
		connections, err = s.gateway.ListConnections(ctx, workflowID)
	}

	otelhelper.End(span, err)

	s.mu.Lock()
	s.loading = false

	if err != nil {
		s.mu.Unlock()
		s.emit(Change{WorkflowID: workflowID, Kind: ChangeStatus})
		s.logger.ErrorContext(ctx, "Failed to load workflow graph", "workflow_id", workflowID, "error", err)

		return &LoadError{WorkflowID: workflowID, Err: err}
	}

	s.workflowID = workflowID
	s.generation++
	s.nodes = cloneNodes(nodes)
	s.connections = cloneConnections(connections)
	s.unsaved = false
	s.writes = make(map[string][]*fieldWrite)
	s.confirmed = make(map[string]map[string]uint64)
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Workflow graph loaded",
		"workflow_id", workflowID, "nodes", len(nodes), "connections", len(connections))
	s.emit(Change{WorkflowID: workflowID, Kind: ChangeLoaded | ChangeNodes | ChangeConnections | ChangeStatus})

	return nil
}

// WorkflowID returns the id of the loaded workflow, or "" before the first successful load.
func (s *Store) WorkflowID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.workflowID
}

// Nodes returns a copy of the nodes in order.
func (s *Store) Nodes() []models.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneNodes(s.nodes)
}

// Connections returns a copy of the connections in order.
func (s *Store) Connections() []models.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneConnections(s.connections)
}

// Node returns a copy of one node.
func (s *Store) Node(id string) (models.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.nodeIndexLocked(id)
	if i < 0 {
		return models.Node{}, false
	}

	return s.nodes[i].Clone(), true
}

// Connection returns a copy of one connection.
func (s *Store) Connection(id string) (models.Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.connectionIndexLocked(id)
	if i < 0 {
		return models.Connection{}, false
	}

	return s.connections[i].Clone(), true
}

// ConnectionsOf returns the incoming and outgoing connections of a node.
func (s *Store) ConnectionsOf(nodeID string) []models.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Connection

	for _, c := range s.connections {
		if c.Touches(nodeID) {
			out = append(out, c.Clone())
		}
	}

	return out
}

// Graph returns a deep copy of the whole graph.
func (s *Store) Graph() models.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.Graph{
		WorkflowID:  s.workflowID,
		Nodes:       cloneNodes(s.nodes),
		Connections: cloneConnections(s.connections),
	}
}

// Loading reports whether a load is in progress.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loading
}

// HasUnsavedChanges reports whether local edits happened since the last load or MarkAsSaved.
func (s *Store) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.unsaved
}

// HasPendingOperations reports whether any remote call is in flight.
func (s *Store) HasPendingOperations() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending) > 0
}

// PendingOperations returns the names of in-flight operations.
func (s *Store) PendingOperations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops := make([]string, 0, len(s.pending))
	for _, op := range s.pending {
		ops = append(ops, op)
	}

	slices.Sort(ops)

	return ops
}

// MarkAsSaved clears the unsaved flag. It never touches the network.
func (s *Store) MarkAsSaved() {
	s.mu.Lock()
	changed := s.unsaved
	s.unsaved = false
	workflowID := s.workflowID
	s.mu.Unlock()

	if changed {
		s.emit(Change{WorkflowID: workflowID, Kind: ChangeStatus})
	}
}

// WaitIdle blocks until no remote call is in flight or ctx is done.
func (s *Store) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn for change notifications and returns a function that removes it.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()

		delete(s.listeners, id)
	}
}

func (s *Store) emit(change Change) {
	s.listenersMu.Lock()
	listeners := make([]func(Change), 0, len(s.listeners))

	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

func (s *Store) checkWorkflowLocked(op, workflowID string) error {
	if s.workflowID == "" {
		return invalid(op, ErrNotLoaded)
	}

	if workflowID != s.workflowID {
		return invalid(op, ErrWorkflowMismatch)
	}

	return nil
}

func (s *Store) nodeIndexLocked(id string) int {
	return slices.IndexFunc(s.nodes, func(n models.Node) bool { return n.ID == id })
}

func (s *Store) connectionIndexLocked(id string) int {
	return slices.IndexFunc(s.connections, func(c models.Connection) bool { return c.ID == id })
}

func cloneNodes(in []models.Node) []models.Node {
	out := make([]models.Node, len(in))
	for i, n := range in {
		out[i] = n.Clone()
	}

	return out
}

func cloneConnections(in []models.Connection) []models.Connection {
	out := make([]models.Connection, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}

	return out
}
