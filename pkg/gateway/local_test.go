package gateway_test

import (
	"context"
	"testing"

	"github.com/dukex/opsflow/pkg/gateway"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_RoundTrip(t *testing.T) {
	t.Parallel()

	var gw gateway.Gateway = gateway.NewLocal(file.NewPersistence(t.TempDir()))
	ctx := context.Background()

	wf, err := gw.CreateWorkflow(ctx, models.WorkflowInput{Name: "Onboarding"})
	require.NoError(t, err)

	nodes, err := gw.ListNodes(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	start := nodes[0]

	review, err := gw.CreateNode(ctx, wf.ID, models.NodeDraft{Category: models.NodeCategoryToDo, Label: "Review"})
	require.NoError(t, err)

	conn, err := gw.CreateConnection(ctx, wf.ID, models.ConnectionDraft{
		SourceID: start.ID, TargetID: review.ID, Name: "Begin",
	})
	require.NoError(t, err)

	page, err := gw.ListWorkflows(ctx, models.WorkflowFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Items[0].NodeCount)
	assert.Equal(t, 1, page.Items[0].ConnectionCount)

	require.NoError(t, gw.DeleteNode(ctx, wf.ID, review.ID))

	connections, err := gw.ListConnections(ctx, wf.ID)
	require.NoError(t, err)
	assert.Empty(t, connections)

	err = gw.DeleteConnection(ctx, wf.ID, conn.ID)
	assert.True(t, gateway.IsNotFound(err))
}

func TestLocal_ClassifiesErrors(t *testing.T) {
	t.Parallel()

	gw := gateway.NewLocal(file.NewPersistence(t.TempDir()))
	ctx := context.Background()

	_, err := gw.GetWorkflow(ctx, "missing")
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	wf, err := gw.CreateWorkflow(ctx, models.WorkflowInput{Name: "Onboarding"})
	require.NoError(t, err)

	nodes, err := gw.ListNodes(ctx, wf.ID)
	require.NoError(t, err)

	err = gw.DeleteNode(ctx, wf.ID, nodes[0].ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrRejected)
	assert.ErrorIs(t, err, models.ErrStartNodeFixed)
	assert.Equal(t, models.ErrStartNodeFixed.Error(), gateway.Message(err))

	_, err = gw.CreateWorkflow(ctx, models.WorkflowInput{Name: "x"})
	assert.ErrorIs(t, err, gateway.ErrRejected)
}
