package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/opsflow/pkg/events"
	"github.com/dukex/opsflow/pkg/mocks"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
	"github.com/dukex/opsflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_Create_SeedsStartNode(t *testing.T) {
	t.Parallel()

	s := newTestServices(t)
	ctx := context.Background()

	created, err := s.workflows.Create(ctx, models.WorkflowInput{Name: "  Renewals  ", Description: "Yearly renewals"})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Renewals", created.Name)
	assert.Equal(t, models.WorkflowStatusDraft, created.Status)
	assert.Equal(t, 1, created.Version)
	assert.False(t, created.CreatedAt.IsZero())

	nodes, err := s.nodes.ListNodes(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].IsStart())
	assert.Equal(t, StartNodeLabel, nodes[0].Label)

	s.bus.AssertCalled(t, "Publish", mock.Anything, created.ID, mocks.EventOfType(events.WorkflowCreatedEvent))
}

func TestWorkflow_Create_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input models.WorkflowInput
	}{
		{"empty name", models.WorkflowInput{}},
		{"short name", models.WorkflowInput{Name: "ab"}},
		{"blank padded name", models.WorkflowInput{Name: "   ab   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServices(t)

			_, err := s.workflows.Create(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.True(t, IsValidationError(err))
			s.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestWorkflow_Update(t *testing.T) {
	t.Parallel()

	s := newTestServices(t)
	ctx := context.Background()
	f := newGraphFixture(t, s)

	name := "Lead intake v2"
	updated, err := s.workflows.Update(ctx, f.workflowID, models.WorkflowUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	_, err = s.workflows.Update(ctx, f.workflowID, models.WorkflowUpdate{})
	assert.ErrorIs(t, err, ErrNothingToUpdate)

	_, err = s.workflows.Update(ctx, "missing", models.WorkflowUpdate{Name: &name})
	assert.True(t, IsNotFoundError(err))

	_, err = s.publishing.ArchiveWorkflow(ctx, f.workflowID)
	require.NoError(t, err)

	_, err = s.workflows.Update(ctx, f.workflowID, models.WorkflowUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrWorkflowArchived)
	assert.True(t, IsConflictError(err))
}

func TestWorkflow_Duplicate_RemapsGraph(t *testing.T) {
	t.Parallel()

	s := newTestServices(t)
	ctx := context.Background()
	f := newGraphFixture(t, s)

	copied, err := s.workflows.Duplicate(ctx, f.workflowID)
	require.NoError(t, err)
	assert.NotEqual(t, f.workflowID, copied.ID)
	assert.Equal(t, "Lead intake (copy)", copied.Name)
	assert.Equal(t, models.WorkflowStatusDraft, copied.Status)

	nodes, err := s.nodes.ListNodes(ctx, copied.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	byLabel := make(map[string]models.Node)
	for _, n := range nodes {
		assert.NotContains(t, []string{f.start.ID, f.review.ID, f.done.ID}, n.ID)
		byLabel[n.Label] = n
	}

	connections, err := s.connections.ListConnections(ctx, copied.ID)
	require.NoError(t, err)
	require.Len(t, connections, 1)
	assert.NotEqual(t, f.begin.ID, connections[0].ID)
	assert.Equal(t, byLabel[StartNodeLabel].ID, connections[0].SourceID)
	assert.Equal(t, byLabel["Review"].ID, connections[0].TargetID)
	assert.Equal(t, "Begin", connections[0].Name)

	original, err := s.connections.ListConnections(ctx, f.workflowID)
	require.NoError(t, err)
	assert.Len(t, original, 1)
}

func TestWorkflow_Delete(t *testing.T) {
	t.Parallel()

	s := newTestServices(t)
	ctx := context.Background()
	f := newGraphFixture(t, s)

	require.NoError(t, s.workflows.Delete(ctx, f.workflowID))

	_, err := s.workflows.FetchByID(ctx, f.workflowID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = s.workflows.Delete(ctx, f.workflowID)
	assert.True(t, IsNotFoundError(err))

	s.bus.AssertCalled(t, "Publish", mock.Anything, f.workflowID, mocks.EventOfType(events.WorkflowDeletedEvent))
}

func TestWorkflow_ListWorkflows(t *testing.T) {
	t.Parallel()

	s := newTestServices(t)
	ctx := context.Background()

	for _, name := range []string{"Alpha flow", "Beta flow", "Gamma flow"} {
		_, err := s.workflows.Create(ctx, models.WorkflowInput{Name: name})
		require.NoError(t, err)
	}

	page, err := s.workflows.ListWorkflows(ctx, ListWorkflowsRequest{
		WorkflowFilter: models.WorkflowFilter{Limit: 2},
		SortBy:         "name",
		SortOrder:      "asc",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Alpha flow", page.Items[0].Name)
	assert.Equal(t, 1, page.Items[0].NodeCount)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.True(t, page.HasNextPage)

	_, err = s.workflows.ListWorkflows(ctx, ListWorkflowsRequest{SortBy: "owner"})
	assert.ErrorIs(t, err, ErrInvalidSortField)

	bogus := models.WorkflowStatus("paused")
	_, err = s.workflows.ListWorkflows(ctx, ListWorkflowsRequest{WorkflowFilter: models.WorkflowFilter{Status: &bogus}})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestWorkflow_HealthCheck(t *testing.T) {
	t.Parallel()

	healthy := NewWorkflow(file.NewPersistence(t.TempDir()))
	message, ok := healthy.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	p := mocks.NewMockPersistence()
	p.On("HealthCheck", mock.Anything).Return(errors.New("disk gone"))

	message, ok = NewWorkflow(p).HealthCheck(context.Background())
	assert.False(t, ok)
	assert.Contains(t, message, "disk gone")
}

func TestWorkflow_PublishFailureDoesNotFailWrite(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	service := NewWorkflow(file.NewPersistence(t.TempDir()), WithPublisher(bus))

	created, err := service.Create(context.Background(), models.WorkflowInput{Name: "Win-back"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	bus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestWorkflow_SaveFailureIsWrapped(t *testing.T) {
	t.Parallel()

	p := mocks.NewMockPersistence()
	p.Workflows.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := NewWorkflow(p).Create(context.Background(), models.WorkflowInput{Name: "Win-back"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create workflow")
	assert.False(t, IsValidationError(err))
	p.Nodes.AssertNotCalled(t, "SaveNode", mock.Anything, mock.Anything, mock.Anything)
}
