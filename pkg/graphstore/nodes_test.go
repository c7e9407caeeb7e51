package graphstore_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/opsflow/pkg/graphstore"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStore_AddNode(t *testing.T) {
	t.Parallel()

	start := testutil.CreateTestNode(testutil.WithStartNode())

	t.Run("appends server copy", func(t *testing.T) {
		t.Parallel()

		store, gw, _ := newLoadedStore(t, []models.Node{start}, nil)
		draft := models.NodeDraft{Category: models.NodeCategoryToDo, Label: "Review", Color: "#ff0000"}
		created := testutil.CreateTestNode(testutil.WithLabel("Review"))
		gw.On("CreateNode", mock.Anything, wf, draft).Return(&created, nil).Once()

		node, err := store.AddNode(context.Background(), wf, draft)
		require.NoError(t, err)
		assert.Equal(t, created.ID, node.ID)

		nodes := store.Nodes()
		require.Len(t, nodes, 2)
		assert.Equal(t, created.ID, nodes[1].ID)
		assert.True(t, store.HasUnsavedChanges())
		assert.False(t, store.HasPendingOperations())
	})

	t.Run("failure adds nothing", func(t *testing.T) {
		t.Parallel()

		store, gw, notifier := newLoadedStore(t, []models.Node{start}, nil)
		gw.On("CreateNode", mock.Anything, wf, mock.Anything).Return(nil, errBackend).Once()

		node, err := store.AddNode(context.Background(), wf, models.NodeDraft{Category: models.NodeCategoryDone, Label: "Done"})
		require.Error(t, err)
		assert.Nil(t, node)
		assert.True(t, graphstore.IsMutationError(err))
		assert.Len(t, store.Nodes(), 1)
		assert.False(t, store.HasUnsavedChanges())

		notes := notifier.all()
		require.Len(t, notes, 1)
		assert.Equal(t, graphstore.LevelError, notes[0].Level)
		assert.Equal(t, "backend exploded", notes[0].Message)
	})

	tests := []struct {
		name  string
		draft models.NodeDraft
	}{
		{name: "missing label", draft: models.NodeDraft{Category: models.NodeCategoryToDo, Label: "  "}},
		{name: "unknown category", draft: models.NodeDraft{Category: "blocked", Label: "X"}},
		{name: "bad color", draft: models.NodeDraft{Category: models.NodeCategoryToDo, Label: "X", Color: "blue"}},
		{name: "second start", draft: models.NodeDraft{Category: models.NodeCategoryStart, Label: "Again"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, gw, _ := newLoadedStore(t, []models.Node{start}, nil)

			_, err := store.AddNode(context.Background(), wf, tt.draft)
			require.Error(t, err)
			assert.True(t, graphstore.IsValidationError(err))
			gw.AssertNotCalled(t, "CreateNode", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestStore_UpdateNodeRollsBackFailedFields(t *testing.T) {
	t.Parallel()

	node := testutil.CreateTestNode(testutil.WithLabel("A"), testutil.WithColor("#111111"), testutil.WithPosition(10, 20))
	store, gw, notifier := newLoadedStore(t, []models.Node{node}, nil)
	gw.On("UpdateNode", mock.Anything, wf, node.ID, labelIs("B")).Return(nil, errBackend).Once()

	var failure error

	require.NoError(t, store.UpdateNode(context.Background(), wf, node.ID,
		models.NodeUpdate{Label: ptr("B")},
		graphstore.OnFailure(func(err error) { failure = err }),
	))

	waitIdle(t, store)

	got, ok := store.Node(node.ID)
	require.True(t, ok)
	assert.Equal(t, "A", got.Label)
	assert.True(t, node.Equal(got))
	assert.True(t, graphstore.IsMutationError(failure))
	assert.Len(t, notifier.all(), 1)
}

func TestStore_UpdateNodeAppliesOptimistically(t *testing.T) {
	t.Parallel()

	node := testutil.CreateTestNode(testutil.WithLabel("A"))
	store, gw, _ := newLoadedStore(t, []models.Node{node}, nil)

	release := make(chan struct{})
	gw.On("UpdateNode", mock.Anything, wf, node.ID, labelIs("B")).
		Run(func(mock.Arguments) { <-release }).
		Return(&node, nil).Once()

	var succeeded bool

	require.NoError(t, store.UpdateNode(context.Background(), wf, node.ID,
		models.NodeUpdate{Label: ptr("B")},
		graphstore.OnSuccess(func() { succeeded = true }),
	))

	got, _ := store.Node(node.ID)
	assert.Equal(t, "B", got.Label)
	assert.True(t, store.HasPendingOperations())
	assert.True(t, store.HasUnsavedChanges())

	close(release)
	waitIdle(t, store)

	got, _ = store.Node(node.ID)
	assert.Equal(t, "B", got.Label)
	assert.True(t, succeeded)
}

func TestStore_UpdateNodeDispatchesInIssueOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		firstFails bool
		secondFail bool
		want       string
	}{
		{name: "older failure then newer success keeps newer", firstFails: true, want: "C"},
		{name: "older success then newer failure keeps older", secondFail: true, want: "B"},
		{name: "both fail restores original", firstFails: true, secondFail: true, want: "A"},
		{name: "both succeed keeps newer", want: "C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			node := testutil.CreateTestNode(testutil.WithLabel("A"))
			store, gw, _ := newLoadedStore(t, []models.Node{node}, nil)

			release := make(chan struct{})

			var firstReturned, secondSawFirst atomic.Bool

			first := gw.On("UpdateNode", mock.Anything, wf, node.ID, labelIs("B")).
				Run(func(mock.Arguments) {
					<-release
					firstReturned.Store(true)
				}).Once()
			second := gw.On("UpdateNode", mock.Anything, wf, node.ID, labelIs("C")).
				Run(func(mock.Arguments) { secondSawFirst.Store(firstReturned.Load()) }).Once()

			if tt.firstFails {
				first.Return(nil, errBackend)
			} else {
				first.Return(&node, nil)
			}

			if tt.secondFail {
				second.Return(nil, errBackend)
			} else {
				second.Return(&node, nil)
			}

			ctx := context.Background()
			require.NoError(t, store.UpdateNode(ctx, wf, node.ID, models.NodeUpdate{Label: ptr("B")}))
			require.NoError(t, store.UpdateNode(ctx, wf, node.ID, models.NodeUpdate{Label: ptr("C")}))

			got, _ := store.Node(node.ID)
			assert.Equal(t, "C", got.Label)

			close(release)
			waitIdle(t, store)

			got, _ = store.Node(node.ID)
			assert.Equal(t, tt.want, got.Label)
			assert.True(t, secondSawFirst.Load(), "second update reached the backend before the first settled")
			gw.AssertExpectations(t)
		})
	}
}

func TestStore_UpdateDifferentNodesDoNotWait(t *testing.T) {
	t.Parallel()

	slow := testutil.CreateTestNode(testutil.WithLabel("Slow"))
	fast := testutil.CreateTestNode(testutil.WithLabel("Fast"))
	store, gw, _ := newLoadedStore(t, []models.Node{slow, fast}, nil)

	release := make(chan struct{})
	fastDone := make(chan struct{})

	gw.On("UpdateNode", mock.Anything, wf, slow.ID, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&slow, nil).Once()
	gw.On("UpdateNode", mock.Anything, wf, fast.ID, mock.Anything).Return(&fast, nil).Once()

	ctx := context.Background()
	require.NoError(t, store.UpdateNode(ctx, wf, slow.ID, models.NodeUpdate{Label: ptr("Slower")}))
	require.NoError(t, store.UpdateNode(ctx, wf, fast.ID, models.NodeUpdate{Label: ptr("Faster")},
		graphstore.OnSuccess(func() { close(fastDone) })))

	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("update of another node waited for the blocked one")
	}

	close(release)
	waitIdle(t, store)
	gw.AssertExpectations(t)
}

func TestStore_UpdateNodeFieldLevelRevert(t *testing.T) {
	t.Parallel()

	node := testutil.CreateTestNode(testutil.WithLabel("A"), testutil.WithColor("#111111"))
	store, gw, _ := newLoadedStore(t, []models.Node{node}, nil)

	release := make(chan struct{})
	gw.On("UpdateNode", mock.Anything, wf, node.ID, mock.MatchedBy(func(u models.NodeUpdate) bool {
		return u.Color != nil
	})).Run(func(mock.Arguments) { <-release }).Return(nil, errBackend).Once()
	gw.On("UpdateNode", mock.Anything, wf, node.ID, labelIs("B")).Return(&node, nil).Once()

	ctx := context.Background()
	require.NoError(t, store.UpdateNode(ctx, wf, node.ID, models.NodeUpdate{Color: ptr("#222222")}))
	require.NoError(t, store.UpdateNode(ctx, wf, node.ID, models.NodeUpdate{Label: ptr("B")}))

	close(release)
	waitIdle(t, store)

	got, _ := store.Node(node.ID)
	assert.Equal(t, "B", got.Label)
	assert.Equal(t, "#111111", got.Color)
}

func TestStore_UpdateNodeValidation(t *testing.T) {
	t.Parallel()

	start := testutil.CreateTestNode(testutil.WithStartNode())
	todo := testutil.CreateTestNode()
	other := testutil.CreateTestNode()
	conn := testutil.CreateTestConnection(start.ID, todo.ID)
	fromOther := testutil.CreateTestConnection(other.ID, todo.ID)

	tests := []struct {
		name    string
		nodeID  string
		update  models.NodeUpdate
		wantErr error
	}{
		{name: "empty update", nodeID: todo.ID, update: models.NodeUpdate{}},
		{name: "unknown node", nodeID: "missing", update: models.NodeUpdate{Label: ptr("X")}, wantErr: graphstore.ErrNodeNotFound},
		{name: "blank label", nodeID: todo.ID, update: models.NodeUpdate{Label: ptr(" ")}},
		{name: "bad color", nodeID: todo.ID, update: models.NodeUpdate{Color: ptr("red")}},
		{name: "recategorize start", nodeID: start.ID, update: models.NodeUpdate{Category: ptr(models.NodeCategoryDone)}, wantErr: models.ErrStartNodeFixed},
		{name: "second start", nodeID: other.ID, update: models.NodeUpdate{Category: ptr(models.NodeCategoryStart)}, wantErr: models.ErrDuplicateStart},
		{name: "done with outgoing", nodeID: other.ID, update: models.NodeUpdate{Category: ptr(models.NodeCategoryDone)}, wantErr: models.ErrSourceIsDone},
		{name: "unknown category", nodeID: other.ID, update: models.NodeUpdate{Category: ptr(models.NodeCategory("x"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, gw, _ := newLoadedStore(t, []models.Node{start, todo, other}, []models.Connection{conn, fromOther})
			before := store.Graph()

			err := store.UpdateNode(context.Background(), wf, tt.nodeID, tt.update)
			require.Error(t, err)
			assert.True(t, graphstore.IsValidationError(err))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			assert.Equal(t, before, store.Graph())
			assert.False(t, store.HasUnsavedChanges())
			gw.AssertNotCalled(t, "UpdateNode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestStore_RemoveStartNodeNeverCallsBackend(t *testing.T) {
	t.Parallel()

	start := testutil.CreateTestNode(testutil.WithStartNode())
	todo := testutil.CreateTestNode()
	conn := testutil.CreateTestConnection(start.ID, todo.ID)

	store, gw, _ := newLoadedStore(t, []models.Node{start, todo}, []models.Connection{conn})
	before := store.Graph()

	err := store.RemoveNode(context.Background(), wf, start.ID)
	require.ErrorIs(t, err, models.ErrStartNodeFixed)
	assert.True(t, graphstore.IsValidationError(err))

	assert.Equal(t, before, store.Graph())
	assert.False(t, store.HasPendingOperations())
	gw.AssertNotCalled(t, "DeleteNode", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_RemoveNode(t *testing.T) {
	t.Parallel()

	start := testutil.CreateTestNode(testutil.WithStartNode())
	a := testutil.CreateTestNode(testutil.WithLabel("A"))
	b := testutil.CreateTestNode(testutil.WithLabel("B"))
	toA := testutil.CreateTestConnection(start.ID, a.ID)
	toB := testutil.CreateTestConnection(start.ID, b.ID)
	aToB := testutil.CreateTestConnection(a.ID, b.ID)

	nodes := []models.Node{start, a, b}
	connections := []models.Connection{toA, toB, aToB}

	t.Run("removes node and touching connections", func(t *testing.T) {
		t.Parallel()

		store, gw, _ := newLoadedStore(t, nodes, connections)
		gw.On("DeleteNode", mock.Anything, wf, a.ID).Return(nil).Once()

		require.NoError(t, store.RemoveNode(context.Background(), wf, a.ID))

		_, ok := store.Node(a.ID)
		assert.False(t, ok)
		require.Len(t, store.Connections(), 1)
		assert.Equal(t, toB.ID, store.Connections()[0].ID)

		waitIdle(t, store)
		assert.Len(t, store.Nodes(), 2)
		gw.AssertExpectations(t)
	})

	t.Run("failure restores node and connections in place", func(t *testing.T) {
		t.Parallel()

		store, gw, notifier := newLoadedStore(t, nodes, connections)
		gw.On("DeleteNode", mock.Anything, wf, a.ID).Return(errBackend).Once()

		before := store.Graph()

		require.NoError(t, store.RemoveNode(context.Background(), wf, a.ID))
		waitIdle(t, store)

		assert.Equal(t, before, store.Graph())
		assert.Len(t, notifier.all(), 1)
	})

	t.Run("failure skips connections to nodes removed meanwhile", func(t *testing.T) {
		t.Parallel()

		store, gw, _ := newLoadedStore(t, nodes, connections)
		release := make(chan struct{})
		bRemoved := make(chan struct{})

		gw.On("DeleteNode", mock.Anything, wf, a.ID).
			Run(func(mock.Arguments) { <-release }).
			Return(errBackend).Once()
		gw.On("DeleteNode", mock.Anything, wf, b.ID).Return(nil).Once()

		ctx := context.Background()
		require.NoError(t, store.RemoveNode(ctx, wf, a.ID))
		require.NoError(t, store.RemoveNode(ctx, wf, b.ID, graphstore.OnSuccess(func() { close(bRemoved) })))

		select {
		case <-bRemoved:
		case <-time.After(2 * time.Second):
			t.Fatal("removal of the second node did not settle")
		}

		close(release)
		waitIdle(t, store)

		_, ok := store.Node(a.ID)
		assert.True(t, ok)

		_, ok = store.Node(b.ID)
		assert.False(t, ok)

		got := store.Connections()
		require.Len(t, got, 1)
		assert.Equal(t, toA.ID, got[0].ID)

		for _, c := range got {
			_, hasSource := store.Node(c.SourceID)
			_, hasTarget := store.Node(c.TargetID)
			assert.True(t, hasSource && hasTarget, "connection %s points at a missing node", c.ID)
		}
	})

	t.Run("unknown node", func(t *testing.T) {
		t.Parallel()

		store, gw, _ := newLoadedStore(t, nodes, connections)

		err := store.RemoveNode(context.Background(), wf, "missing")
		require.ErrorIs(t, err, graphstore.ErrNodeNotFound)
		gw.AssertNotCalled(t, "DeleteNode", mock.Anything, mock.Anything, mock.Anything)
	})
}
