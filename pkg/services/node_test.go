package services

import (
	"context"
	"strings"
	"testing"

	"github.com/dukex/opsflow/pkg/events"
	"github.com/dukex/opsflow/pkg/mocks"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNode_CreateNode(t *testing.T) {
	t.Parallel()

	s := newTestServices(t)
	ctx := context.Background()
	f := newGraphFixture(t, s)

	created, err := s.nodes.CreateNode(ctx, f.workflowID, models.NodeDraft{
		Category: models.NodeCategoryInProgress,
		Label:    "  Working  ",
		Color:    "#f59e0b",
		Data: models.NodeData{
			Position:   models.Position{X: 10, Y: 20},
			Properties: map[string]string{"owner": "ops"},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Working", created.Label)
	assert.Equal(t, f.workflowID, created.WorkflowID)

	nodes, err := s.nodes.ListNodes(ctx, f.workflowID)
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	assert.Equal(t, created.ID, nodes[3].ID)
	assert.Equal(t, "ops", nodes[3].Data.Properties["owner"])

	s.bus.AssertCalled(t, "Publish", mock.Anything, f.workflowID, mocks.EventOfType(events.NodeCreatedEvent))
}

func TestNode_CreateNode_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		draft   models.NodeDraft
		wantErr error
	}{
		{
			name:    "second start",
			draft:   models.NodeDraft{Category: models.NodeCategoryStart, Label: "Another start"},
			wantErr: models.ErrDuplicateStart,
		},
		{
			name:    "blank label",
			draft:   models.NodeDraft{Category: models.NodeCategoryToDo, Label: "   "},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "bad color",
			draft:   models.NodeDraft{Category: models.NodeCategoryToDo, Label: "Todo", Color: "blue"},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "unknown category",
			draft:   models.NodeDraft{Category: "blocked", Label: "Todo"},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "empty property key",
			draft: models.NodeDraft{
				Category: models.NodeCategoryToDo,
				Label:    "Todo",
				Data:     models.NodeData{Properties: map[string]string{"": "x"}},
			},
			wantErr: ErrInvalidNodeData,
		},
		{
			name: "oversized property value",
			draft: models.NodeDraft{
				Category: models.NodeCategoryToDo,
				Label:    "Todo",
				Data:     models.NodeData{Properties: map[string]string{"note": strings.Repeat("x", 2000)}},
			},
			wantErr: ErrInvalidNodeData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServices(t)
			f := newGraphFixture(t, s)

			_, err := s.nodes.CreateNode(context.Background(), f.workflowID, tt.draft)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			nodes, err := s.nodes.ListNodes(context.Background(), f.workflowID)
			require.NoError(t, err)
			assert.Len(t, nodes, 3)
		})
	}
}

func TestNode_UpdateNode(t *testing.T) {
	t.Parallel()

	s := newTestServices(t)
	ctx := context.Background()
	f := newGraphFixture(t, s)

	label := "Legal review"
	color := "#0ea5e9"
	data := f.review.Data.WithPosition(models.Position{X: 250, Y: 40})

	updated, err := s.nodes.UpdateNode(ctx, f.workflowID, f.review.ID, models.NodeUpdate{
		Label: &label,
		Color: &color,
		Data:  &data,
	})
	require.NoError(t, err)
	assert.Equal(t, label, updated.Label)
	assert.Equal(t, color, updated.Color)
	assert.Equal(t, models.Position{X: 250, Y: 40}, updated.Data.Position)
	assert.Equal(t, models.NodeCategoryToDo, updated.Category)

	s.bus.AssertCalled(t, "Publish", mock.Anything, f.workflowID, mocks.EventOfType(events.NodeUpdatedEvent))
}

func TestNode_UpdateNode_Rules(t *testing.T) {
	t.Parallel()

	category := func(c models.NodeCategory) *models.NodeCategory { return &c }
	text := func(s string) *string { return &s }

	tests := []struct {
		name    string
		node    func(f graphFixture) string
		update  models.NodeUpdate
		wantErr error
	}{
		{
			name:    "nothing to update",
			node:    func(f graphFixture) string { return f.review.ID },
			wantErr: ErrNothingToUpdate,
		},
		{
			name:    "start cannot be recategorized",
			node:    func(f graphFixture) string { return f.start.ID },
			update:  models.NodeUpdate{Category: category(models.NodeCategoryToDo)},
			wantErr: models.ErrStartNodeFixed,
		},
		{
			name:    "second start",
			node:    func(f graphFixture) string { return f.done.ID },
			update:  models.NodeUpdate{Category: category(models.NodeCategoryStart)},
			wantErr: models.ErrDuplicateStart,
		},
		{
			name:    "blank label",
			node:    func(f graphFixture) string { return f.start.ID },
			update:  models.NodeUpdate{Label: text("  ")},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "bad color",
			node:    func(f graphFixture) string { return f.review.ID },
			update:  models.NodeUpdate{Color: text("#zzzzzz")},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "missing node",
			node:    func(graphFixture) string { return "ghost" },
			update:  models.NodeUpdate{Label: text("Ghost")},
			wantErr: ErrNodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServices(t)
			f := newGraphFixture(t, s)

			_, err := s.nodes.UpdateNode(context.Background(), f.workflowID, tt.node(f), tt.update)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNode_UpdateNode_CategoryAgainstConnections(t *testing.T) {
	t.Parallel()

	s := newTestServices(t)
	ctx := context.Background()
	f := newGraphFixture(t, s)

	_, err := s.connections.CreateConnection(ctx, f.workflowID, models.ConnectionDraft{
		SourceID: f.review.ID,
		TargetID: f.done.ID,
		Name:     "Finish",
	})
	require.NoError(t, err)

	done := models.NodeCategoryDone
	_, err = s.nodes.UpdateNode(ctx, f.workflowID, f.review.ID, models.NodeUpdate{Category: &done})
	assert.ErrorIs(t, err, models.ErrSourceIsDone)

	inProgress := models.NodeCategoryInProgress
	updated, err := s.nodes.UpdateNode(ctx, f.workflowID, f.review.ID, models.NodeUpdate{Category: &inProgress})
	require.NoError(t, err)
	assert.Equal(t, models.NodeCategoryInProgress, updated.Category)
}

func TestNode_DeleteNode(t *testing.T) {
	t.Parallel()

	s := newTestServices(t)
	ctx := context.Background()
	f := newGraphFixture(t, s)

	err := s.nodes.DeleteNode(ctx, f.workflowID, f.start.ID)
	assert.ErrorIs(t, err, models.ErrStartNodeFixed)
	assert.True(t, IsConflictError(err))

	require.NoError(t, s.nodes.DeleteNode(ctx, f.workflowID, f.review.ID))

	connections, err := s.connections.ListConnections(ctx, f.workflowID)
	require.NoError(t, err)
	assert.Empty(t, connections)

	s.bus.AssertCalled(t, "Publish", mock.Anything, f.workflowID, mock.MatchedBy(func(e events.NodeDeleted) bool {
		return e.NodeID == f.review.ID && assert.ObjectsAreEqual([]string{f.begin.ID}, e.ConnectionIDs)
	}))

	err = s.nodes.DeleteNode(ctx, f.workflowID, f.review.ID)
	assert.True(t, IsNotFoundError(err))
}
