package diagram

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/opsflow/pkg/geometry"
	"github.com/dukex/opsflow/pkg/graphstore"
	"github.com/dukex/opsflow/pkg/log"
	"github.com/dukex/opsflow/pkg/models"
)

// ErrConnectByDragDisabled is returned for drag-to-connect gestures. Connections are created only
// through an explicit, named create action.
var ErrConnectByDragDisabled = errors.New("connections cannot be created by dragging")

// ErrUnknownEdge is returned when a gesture names an edge that is not rendered.
var ErrUnknownEdge = errors.New("edge is not rendered")

// Selection is what the user last clicked. At most one of NodeID and EdgeID is set.
type Selection struct {
	NodeID string
	EdgeID string
}

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool {
	return s.NodeID == "" && s.EdgeID == ""
}

// Reconnection is the endpoint set of an edge after the user dragged one of its ends. Handles use
// the render ids ("left-target") or bare sides.
type Reconnection struct {
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithOnChange registers fn to run after the render lists changed.
func WithOnChange(fn func()) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// Controller keeps a render list derived from a graph store.
type Controller struct {
	store    *graphstore.Store
	logger   *slog.Logger
	onChange func()

	mu          sync.Mutex
	workflowID  string
	nodes       []RenderNode
	edges       []RenderEdge
	selection   Selection
	unsubscribe func()
}

// NewController renders store and follows its changes until Close.
func NewController(store *graphstore.Store, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		logger: log.WithModule("diagram"),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.unsubscribe = store.Subscribe(func(change graphstore.Change) {
		if change.Has(graphstore.ChangeNodes | graphstore.ChangeConnections | graphstore.ChangeLoaded) {
			c.Sync()
		}
	})

	c.Sync()

	return c
}

// Close stops following the store.
func (c *Controller) Close() {
	c.unsubscribe()
}

// Sync rebuilds the render lists from the store. The first time a workflow is seen its lists are
// replaced outright; afterwards the transient state of existing objects is kept.
func (c *Controller) Sync() {
	c.mu.Lock()

	graph := c.store.Graph()
	nodes, edges := RenderGraph(graph)

	if graph.WorkflowID != c.workflowID {
		c.workflowID = graph.WorkflowID
		c.nodes = nodes
		c.edges = edges
		c.selection = Selection{}
	} else {
		c.nodes = MergeRenderState(c.nodes, nodes, DefaultTransientFields...)
		c.edges = MergeRenderState(c.edges, edges, DefaultTransientFields...)
		c.pruneSelectionLocked()
	}

	c.mu.Unlock()

	c.changed()
}

// Nodes returns a copy of the render nodes.
func (c *Controller) Nodes() []RenderNode {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.nodes)
}

// Edges returns a copy of the render edges.
func (c *Controller) Edges() []RenderEdge {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.edges)
}

// Node returns one render node.
func (c *Controller) Node(id string) (RenderNode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.nodeIndexLocked(id)
	if i < 0 {
		return RenderNode{}, false
	}

	return c.nodes[i], true
}

// Edge returns one render edge.
func (c *Controller) Edge(id string) (RenderEdge, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.edgeIndexLocked(id)
	if i < 0 {
		return RenderEdge{}, false
	}

	return c.edges[i], true
}

// Selection returns the current selection.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selection
}

// OnNodeDrag moves a node in the render list only. The store is untouched until the drag stops.
func (c *Controller) OnNodeDrag(nodeID string, position models.Position) {
	c.mu.Lock()

	i := c.nodeIndexLocked(nodeID)
	if i < 0 {
		c.mu.Unlock()

		return
	}

	c.nodes[i].Position = position
	c.nodes[i].Dragging = true
	c.mu.Unlock()

	c.changed()
}

// OnNodeDragStop writes the dropped position into the node's data bag, leaving the rest of the bag
// as it is.
func (c *Controller) OnNodeDragStop(ctx context.Context, nodeID string, position models.Position) error {
	c.mu.Lock()

	if i := c.nodeIndexLocked(nodeID); i >= 0 {
		c.nodes[i].Position = position
		c.nodes[i].Dragging = false
	}
	c.mu.Unlock()

	node, ok := c.store.Node(nodeID)
	if !ok {
		return &graphstore.ValidationError{Op: "OnNodeDragStop", Field: "node_id", Err: graphstore.ErrNodeNotFound}
	}

	if node.Data.Position == position {
		c.changed()

		return nil
	}

	data := node.Data.WithPosition(position)

	return c.store.UpdateNode(ctx, c.store.WorkflowID(), nodeID, models.NodeUpdate{Data: &data})
}

// OnReconnect handles a dragged edge endpoint. Only the endpoint fields that actually changed are
// sent to the store. The render edge is patched at once and goes back to its previous endpoints if
// the store rejects or the backend fails.
func (c *Controller) OnReconnect(ctx context.Context, edgeID string, to Reconnection) error {
	const op = "OnReconnect"

	sourceHandle, err := geometry.ParseHandle(to.SourceHandle)
	if err != nil {
		return &graphstore.ValidationError{Op: op, Field: "source_handle", Err: err}
	}

	targetHandle, err := geometry.ParseHandle(to.TargetHandle)
	if err != nil {
		return &graphstore.ValidationError{Op: op, Field: "target_handle", Err: err}
	}

	c.mu.Lock()

	i := c.edgeIndexLocked(edgeID)
	if i < 0 {
		c.mu.Unlock()

		return ErrUnknownEdge
	}

	previous := c.edges[i]
	patched := previous
	patched.Source = to.Source
	patched.Target = to.Target
	patched.SourceHandle = SourceHandleID(sourceHandle)
	patched.TargetHandle = TargetHandleID(targetHandle)

	update := reconnectUpdate(previous, patched, sourceHandle, targetHandle)
	if update.IsEmpty() {
		c.mu.Unlock()

		return nil
	}

	c.edges[i] = patched
	c.mu.Unlock()
	c.changed()

	// A newer reconnect of the same edge owns its endpoints once it has patched them.
	revert := func() {
		c.mu.Lock()
		if j := c.edgeIndexLocked(edgeID); j >= 0 && sameEndpoints(c.edges[j], patched) {
			c.edges[j].Source = previous.Source
			c.edges[j].Target = previous.Target
			c.edges[j].SourceHandle = previous.SourceHandle
			c.edges[j].TargetHandle = previous.TargetHandle
		}
		c.mu.Unlock()
		c.changed()
	}

	err = c.store.UpdateConnection(ctx, c.store.WorkflowID(), edgeID, update,
		graphstore.OnFailure(func(error) { revert() }))
	if err != nil {
		c.logger.DebugContext(ctx, "Reconnect refused", "edge_id", edgeID, "error", err)
		revert()

		return err
	}

	return nil
}

func sameEndpoints(a, b RenderEdge) bool {
	return a.Source == b.Source && a.Target == b.Target &&
		a.SourceHandle == b.SourceHandle && a.TargetHandle == b.TargetHandle
}

func reconnectUpdate(previous, patched RenderEdge, sourceHandle, targetHandle models.Handle) models.ConnectionUpdate {
	var update models.ConnectionUpdate

	if patched.Source != previous.Source {
		update.SourceID = &patched.Source
	}

	if patched.Target != previous.Target {
		update.TargetID = &patched.Target
	}

	if patched.SourceHandle != previous.SourceHandle {
		update.SourceHandle = &sourceHandle
	}

	if patched.TargetHandle != previous.TargetHandle {
		update.TargetHandle = &targetHandle
	}

	// A self-connection must be a loop; other kinds are left as the user set them.
	if (update.SourceID != nil || update.TargetID != nil) &&
		patched.Source == patched.Target && previous.Data.Kind != models.ConnectionKindLoop {
		kind := models.ConnectionKindLoop
		update.Kind = &kind
	}

	return update
}

// OnNodesDelete removes nodes through the store. Start nodes are refused; the others are still
// removed.
func (c *Controller) OnNodesDelete(ctx context.Context, nodeIDs []string) error {
	workflowID := c.store.WorkflowID()

	var errs []error

	for _, id := range nodeIDs {
		if node, ok := c.Node(id); ok && !node.Data.Deletable {
			errs = append(errs, &graphstore.ValidationError{Op: "OnNodesDelete", Field: "node_id", Err: models.ErrStartNodeFixed})

			continue
		}

		if err := c.store.RemoveNode(ctx, workflowID, id); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// OnEdgesDelete removes connections through the store.
func (c *Controller) OnEdgesDelete(ctx context.Context, edgeIDs []string) error {
	workflowID := c.store.WorkflowID()

	var errs []error

	for _, id := range edgeIDs {
		if err := c.store.RemoveConnection(ctx, workflowID, id); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// OnNodeClick selects a single node.
func (c *Controller) OnNodeClick(nodeID string) {
	c.selectOnly(Selection{NodeID: nodeID})
}

// OnEdgeClick selects a single edge.
func (c *Controller) OnEdgeClick(edgeID string) {
	c.selectOnly(Selection{EdgeID: edgeID})
}

// OnPaneClick clears the selection.
func (c *Controller) OnPaneClick() {
	c.selectOnly(Selection{})
}

// OnConnect always refuses.
func (c *Controller) OnConnect(string, string) error {
	return ErrConnectByDragDisabled
}

func (c *Controller) selectOnly(selection Selection) {
	c.mu.Lock()

	if selection.NodeID != "" && c.nodeIndexLocked(selection.NodeID) < 0 {
		selection = Selection{}
	}

	if selection.EdgeID != "" && c.edgeIndexLocked(selection.EdgeID) < 0 {
		selection = Selection{}
	}

	c.selection = selection

	for i := range c.nodes {
		c.nodes[i].Selected = c.nodes[i].ID == selection.NodeID
	}

	for i := range c.edges {
		c.edges[i].Selected = c.edges[i].ID == selection.EdgeID
	}

	c.mu.Unlock()

	c.changed()
}

func (c *Controller) pruneSelectionLocked() {
	if c.selection.NodeID != "" && c.nodeIndexLocked(c.selection.NodeID) < 0 {
		c.selection = Selection{}
	}

	if c.selection.EdgeID != "" && c.edgeIndexLocked(c.selection.EdgeID) < 0 {
		c.selection = Selection{}
	}
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) nodeIndexLocked(id string) int {
	return slices.IndexFunc(c.nodes, func(n RenderNode) bool { return n.ID == id })
}

func (c *Controller) edgeIndexLocked(id string) int {
	return slices.IndexFunc(c.edges, func(e RenderEdge) bool { return e.ID == id })
}
