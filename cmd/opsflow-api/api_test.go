package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/opsflow/pkg/channels/gochannel"
	"github.com/dukex/opsflow/pkg/eventbus"
	"github.com/dukex/opsflow/pkg/events"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence/file"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, bus eventbus.EventBus) *fiber.App {
	t.Helper()

	api := NewAPI(slog.New(slog.DiscardHandler), file.NewPersistence(t.TempDir()), bus)

	return api.App()
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func TestAPI_Endpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedBody   string
	}{
		{name: "root", path: "/", expectedStatus: http.StatusOK, expectedBody: "opsflow API"},
		{name: "liveness", path: "/livez", expectedStatus: http.StatusOK, expectedBody: "OK"},
		{name: "readiness", path: "/readyz", expectedStatus: http.StatusOK, expectedBody: "OK"},
		{name: "health", path: "/health", expectedStatus: http.StatusOK},
		{name: "unknown workflow", path: "/workflows/missing", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t, nil)

			resp, body := do(t, app, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, string(body))
			}
		})
	}
}

func TestAPI_CORS_Headers(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/workflows", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, _ := do(t, app, req)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPI_GetWorkflows_Empty(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/workflows", nil)
	req.Header.Set("Accept", "application/json")

	resp, body := do(t, app, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var page models.Page[models.WorkflowSummary]
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Empty(t, page.Items)
	assert.Zero(t, page.TotalCount)
}

func TestAPI_PublishesGraphEvents(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, logger)
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan *events.WorkflowCreated, 1)
	require.NoError(t, bus.Handle(events.WorkflowCreatedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.WorkflowCreated)

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, bus.Subscribe(ctx))

	app := setupTestApp(t, bus)

	req := httptest.NewRequest(http.MethodPost, "/workflows", bytes.NewBufferString(`{"name":"Evented"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, body := do(t, app, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	select {
	case event := <-received:
		assert.Equal(t, created.ID, event.WorkflowID)
		assert.Equal(t, "Evented", event.Name)
		assert.Equal(t, 1, event.StartNodes)
	case <-time.After(2 * time.Second):
		t.Fatal("workflow.created event was not delivered")
	}
}
