package services

import (
	"context"
	"testing"

	"github.com/dukex/opsflow/pkg/mocks"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence/file"
	"github.com/stretchr/testify/require"
)

type testServices struct {
	workflows   *Workflow
	nodes       *Node
	connections *Connection
	publishing  *Publishing
	bus         *mocks.MockEventBus
}

func newTestServices(t *testing.T) testServices {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	bus := mocks.NewMockEventBus()

	return testServices{
		workflows:   NewWorkflow(p, WithPublisher(bus)),
		nodes:       NewNode(p, WithPublisher(bus)),
		connections: NewConnection(p, WithPublisher(bus)),
		publishing:  NewPublishing(p, WithPublisher(bus)),
		bus:         bus,
	}
}

// graphFixture creates a workflow with start (0,0), review (200,0) and done (400,0) and a
// start -> review connection.
type graphFixture struct {
	workflowID string
	start      models.Node
	review     models.Node
	done       models.Node
	begin      models.Connection
}

func newGraphFixture(t *testing.T, s testServices) graphFixture {
	t.Helper()

	ctx := context.Background()

	wf, err := s.workflows.Create(ctx, models.WorkflowInput{Name: "Lead intake"})
	require.NoError(t, err)

	nodes, err := s.nodes.ListNodes(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	review, err := s.nodes.CreateNode(ctx, wf.ID, models.NodeDraft{
		Category: models.NodeCategoryToDo,
		Label:    "Review",
		Data:     models.NodeData{Position: models.Position{X: 200, Y: 0}},
	})
	require.NoError(t, err)

	done, err := s.nodes.CreateNode(ctx, wf.ID, models.NodeDraft{
		Category: models.NodeCategoryDone,
		Label:    "Done",
		Data:     models.NodeData{Position: models.Position{X: 400, Y: 0}},
	})
	require.NoError(t, err)

	begin, err := s.connections.CreateConnection(ctx, wf.ID, models.ConnectionDraft{
		SourceID: nodes[0].ID,
		TargetID: review.ID,
		Name:     "Begin",
	})
	require.NoError(t, err)

	return graphFixture{
		workflowID: wf.ID,
		start:      nodes[0],
		review:     *review,
		done:       *done,
		begin:      *begin,
	}
}
