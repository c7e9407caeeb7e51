package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
	"github.com/dukex/opsflow/pkg/persistence/postgresql"
	"github.com/dukex/opsflow/pkg/testutil"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Children first, parents last
	for _, table := range []string{"workflow_connections", "workflow_nodes", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("opsflow_test"),
			postgres.WithUsername("opsflow"),
			postgres.WithPassword("opsflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func saveWorkflow(ctx context.Context, t *testing.T, p *postgresql.Persistence, name string) *models.Workflow {
	t.Helper()

	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        name,
		Description: "Onboarding pipeline for " + name,
		Status:      models.WorkflowStatusDraft,
		Version:     1,
	}

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	return workflow
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"workflows", "workflow_nodes", "workflow_connections", "schema_migrations"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestWorkflowRepository_SaveGetDelete(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.WorkflowRepository()

	workflow := saveWorkflow(ctx, t, p, "Lead nurturing")

	got, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lead nurturing", got.Name)
	assert.Equal(t, models.WorkflowStatusDraft, got.Status)
	assert.False(t, got.CreatedAt.IsZero())

	workflow.Status = models.WorkflowStatusPublished
	workflow.Version = 2
	require.NoError(t, repo.Save(ctx, workflow))

	got, err = repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPublished, got.Status)
	assert.Equal(t, 2, got.Version)

	require.NoError(t, repo.Delete(ctx, workflow.ID))

	_, err = repo.GetByID(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = repo.Delete(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = p.NodeRepository().GetNodesByWorkflow(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_ListWorkflows(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.WorkflowRepository()

	alpha := saveWorkflow(ctx, t, p, "Alpha campaign")
	saveWorkflow(ctx, t, p, "Beta campaign")
	gamma := saveWorkflow(ctx, t, p, "Gamma review")

	gamma.Status = models.WorkflowStatusArchived
	require.NoError(t, repo.Save(ctx, gamma))

	start := testutil.CreateTestNode(testutil.WithNodeID("start"), testutil.WithStartNode())
	review := testutil.CreateTestNode(testutil.WithNodeID("review"))
	require.NoError(t, p.NodeRepository().SaveNode(ctx, alpha.ID, &start))
	require.NoError(t, p.NodeRepository().SaveNode(ctx, alpha.ID, &review))

	conn := testutil.CreateTestConnection("start", "review")
	require.NoError(t, p.ConnectionRepository().SaveConnection(ctx, alpha.ID, &conn))

	archived := models.WorkflowStatusArchived

	tests := []struct {
		name      string
		opts      persistence.ListWorkflowsOptions
		wantNames []string
		wantTotal int64
		wantNext  bool
	}{
		{
			name:      "sorted by name",
			opts:      persistence.ListWorkflowsOptions{SortBy: "name", SortOrder: "asc"},
			wantNames: []string{"Alpha campaign", "Beta campaign", "Gamma review"},
			wantTotal: 3,
		},
		{
			name:      "status filter",
			opts:      persistence.ListWorkflowsOptions{Status: &archived},
			wantNames: []string{"Gamma review"},
			wantTotal: 1,
		},
		{
			name:      "case-insensitive search",
			opts:      persistence.ListWorkflowsOptions{Search: "CAMPAIGN", SortBy: "name", SortOrder: "asc"},
			wantNames: []string{"Alpha campaign", "Beta campaign"},
			wantTotal: 2,
		},
		{
			name:      "paged",
			opts:      persistence.ListWorkflowsOptions{Limit: 1, SortBy: "name", SortOrder: "asc"},
			wantNames: []string{"Alpha campaign"},
			wantTotal: 3,
			wantNext:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.ListWorkflows(ctx, tt.opts)
			require.NoError(t, err)

			names := make([]string, 0, len(result.Workflows))
			for _, w := range result.Workflows {
				names = append(names, w.Name)
			}

			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantTotal, result.TotalCount)
			assert.Equal(t, tt.wantNext, result.HasNextPage)
		})
	}

	result, err := repo.ListWorkflows(ctx, persistence.ListWorkflowsOptions{Search: "alpha"})
	require.NoError(t, err)
	require.Len(t, result.Workflows, 1)
	assert.Equal(t, 2, result.Workflows[0].NodeCount)
	assert.Equal(t, 1, result.Workflows[0].ConnectionCount)

	_, err = repo.ListWorkflows(ctx, persistence.ListWorkflowsOptions{SortBy: "id; DROP TABLE workflows"})
	assert.ErrorIs(t, err, persistence.ErrInvalidSort)
}

func TestNodeRepository_OrderUpdateAndCascade(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	workflow := saveWorkflow(ctx, t, p, "Renewals")
	nodes := p.NodeRepository()
	conns := p.ConnectionRepository()

	start := testutil.CreateTestNode(testutil.WithNodeID("start"), testutil.WithStartNode())
	review := testutil.CreateTestNode(testutil.WithNodeID("review"),
		testutil.WithProperties(map[string]string{"owner": "ops"}))
	done := testutil.CreateTestNode(testutil.WithNodeID("done"), testutil.WithCategory(models.NodeCategoryDone))

	for _, n := range []*models.Node{&start, &review, &done} {
		require.NoError(t, nodes.SaveNode(ctx, workflow.ID, n))
	}

	got, err := nodes.GetNodesByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"start", "review", "done"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "ops", got[1].Data.Properties["owner"])
	assert.Equal(t, workflow.ID, got[1].WorkflowID)

	review.Label = "Legal review"
	review.Data = review.Data.WithPosition(models.Position{X: 42, Y: 7})
	require.NoError(t, nodes.UpdateNode(ctx, workflow.ID, &review))

	updated, err := nodes.GetNodeByWorkflow(ctx, workflow.ID, "review")
	require.NoError(t, err)
	assert.Equal(t, "Legal review", updated.Label)
	assert.Equal(t, models.Position{X: 42, Y: 7}, updated.Data.Position)

	missing := testutil.CreateTestNode(testutil.WithNodeID("ghost"))
	err = nodes.UpdateNode(ctx, workflow.ID, &missing)
	assert.True(t, persistence.IsNodeNotFound(err))

	toReview := testutil.CreateTestConnection("start", "review", testutil.WithConnectionID("c1"))
	toDone := testutil.CreateTestConnection("review", "done", testutil.WithConnectionID("c2"))
	require.NoError(t, conns.SaveConnection(ctx, workflow.ID, &toReview))
	require.NoError(t, conns.SaveConnection(ctx, workflow.ID, &toDone))

	require.NoError(t, nodes.DeleteNode(ctx, workflow.ID, "review"))

	remaining, err := conns.GetConnectionsByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	err = nodes.DeleteNode(ctx, workflow.ID, "review")
	assert.True(t, persistence.IsNodeNotFound(err))
}

func TestConnectionRepository_CRUD(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	workflow := saveWorkflow(ctx, t, p, "Churn save")
	nodes := p.NodeRepository()
	conns := p.ConnectionRepository()

	start := testutil.CreateTestNode(testutil.WithNodeID("start"), testutil.WithStartNode())
	review := testutil.CreateTestNode(testutil.WithNodeID("review"))
	require.NoError(t, nodes.SaveNode(ctx, workflow.ID, &start))
	require.NoError(t, nodes.SaveNode(ctx, workflow.ID, &review))

	conn := testutil.CreateTestConnection("start", "review", testutil.WithConnectionID("c1"))
	conn.Properties = map[string]string{"sla": "2d"}
	require.NoError(t, conns.SaveConnection(ctx, workflow.ID, &conn))

	got, err := conns.GetConnection(ctx, workflow.ID, "c1")
	require.NoError(t, err)
	assert.True(t, conn.Equal(*got))

	loop := testutil.CreateTestConnection("review", "review", testutil.WithConnectionID("c2"), testutil.WithLoop())
	require.NoError(t, conns.SaveConnection(ctx, workflow.ID, &loop))

	conn.Name = "Kick off"
	conn.Priority = 3
	conn.Properties = nil
	require.NoError(t, conns.UpdateConnection(ctx, workflow.ID, &conn))

	all, err := conns.GetConnectionsByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Kick off", all[0].Name)
	assert.Equal(t, 3, all[0].Priority)
	assert.Nil(t, all[0].Properties)
	assert.Equal(t, models.ConnectionKindLoop, all[1].Kind)

	require.NoError(t, conns.DeleteConnection(ctx, workflow.ID, "c1"))

	_, err = conns.GetConnection(ctx, workflow.ID, "c1")
	assert.True(t, persistence.IsConnectionNotFound(err))

	err = conns.DeleteConnection(ctx, workflow.ID, "c1")
	assert.True(t, persistence.IsConnectionNotFound(err))
}
