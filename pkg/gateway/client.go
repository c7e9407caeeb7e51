package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/opsflow/pkg/log"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/moogar0880/problems"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultClientTimeout = 15 * time.Second

// Client implements Gateway against the opsflow REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClientLogger sets the logger used for request diagnostics.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a REST gateway for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultClientTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: log.WithModule("gateway"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *Client) ListWorkflows(ctx context.Context, filter models.WorkflowFilter) (*models.Page[models.WorkflowSummary], error) {
	query := url.Values{}
	if filter.Status != nil {
		query.Set("status", string(*filter.Status))
	}

	if filter.Search != "" {
		query.Set("search", filter.Search)
	}

	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	if filter.Offset > 0 {
		query.Set("offset", strconv.Itoa(filter.Offset))
	}

	path := "/workflows"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page models.Page[models.WorkflowSummary]

	err := c.do(ctx, "ListWorkflows", http.MethodGet, path, nil, &page)
	if err != nil {
		return nil, err
	}

	return &page, nil
}

func (c *Client) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := c.do(ctx, "GetWorkflow", http.MethodGet, workflowPath(id), nil, &workflow)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (c *Client) CreateWorkflow(ctx context.Context, input models.WorkflowInput) (*models.Workflow, error) {
	var workflow models.Workflow

	err := c.do(ctx, "CreateWorkflow", http.MethodPost, "/workflows", input, &workflow)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (c *Client) DuplicateWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := c.do(ctx, "DuplicateWorkflow", http.MethodPost, workflowPath(id)+"/duplicate", nil, &workflow)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	return c.do(ctx, "DeleteWorkflow", http.MethodDelete, workflowPath(id), nil, nil)
}

func (c *Client) ListNodes(ctx context.Context, workflowID string) ([]models.Node, error) {
	var nodes []models.Node

	err := c.do(ctx, "ListNodes", http.MethodGet, workflowPath(workflowID)+"/nodes", nil, &nodes)
	if err != nil {
		return nil, err
	}

	return nodes, nil
}

func (c *Client) CreateNode(ctx context.Context, workflowID string, draft models.NodeDraft) (*models.Node, error) {
	var node models.Node

	err := c.do(ctx, "CreateNode", http.MethodPost, workflowPath(workflowID)+"/nodes", draft, &node)
	if err != nil {
		return nil, err
	}

	return &node, nil
}

func (c *Client) UpdateNode(ctx context.Context, workflowID, nodeID string, update models.NodeUpdate) (*models.Node, error) {
	var node models.Node

	err := c.do(ctx, "UpdateNode", http.MethodPatch, nodePath(workflowID, nodeID), update, &node)
	if err != nil {
		return nil, err
	}

	return &node, nil
}

func (c *Client) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	return c.do(ctx, "DeleteNode", http.MethodDelete, nodePath(workflowID, nodeID), nil, nil)
}

func (c *Client) ListConnections(ctx context.Context, workflowID string) ([]models.Connection, error) {
	var connections []models.Connection

	err := c.do(ctx, "ListConnections", http.MethodGet, workflowPath(workflowID)+"/connections", nil, &connections)
	if err != nil {
		return nil, err
	}

	return connections, nil
}

func (c *Client) CreateConnection(ctx context.Context, workflowID string, draft models.ConnectionDraft) (*models.Connection, error) {
	var connection models.Connection

	err := c.do(ctx, "CreateConnection", http.MethodPost, workflowPath(workflowID)+"/connections", draft, &connection)
	if err != nil {
		return nil, err
	}

	return &connection, nil
}

func (c *Client) UpdateConnection(ctx context.Context, workflowID, connectionID string, update models.ConnectionUpdate) (*models.Connection, error) {
	var connection models.Connection

	err := c.do(ctx, "UpdateConnection", http.MethodPatch, connectionPath(workflowID, connectionID), update, &connection)
	if err != nil {
		return nil, err
	}

	return &connection, nil
}

func (c *Client) DeleteConnection(ctx context.Context, workflowID, connectionID string) error {
	return c.do(ctx, "DeleteConnection", http.MethodDelete, connectionPath(workflowID, connectionID), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("failed to build request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.DebugContext(ctx, "failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeProblem(ctx, op, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

// decodeProblem turns an RFC 7807 problem body into an *Error. Bodies that are not problems still
// yield an error classified by status code.
func (c *Client) decodeProblem(ctx context.Context, op string, resp *http.Response) error {
	gwErr := &Error{
		Op:         op,
		StatusCode: resp.StatusCode,
		Err:        classifyStatus(resp.StatusCode),
	}

	var problem problems.Problem

	err := json.NewDecoder(resp.Body).Decode(&problem)
	if err != nil {
		c.logger.DebugContext(ctx, "error response without problem body", "op", op, "status", resp.StatusCode)

		return gwErr
	}

	gwErr.Type = problem.Type
	gwErr.Message = problem.Detail

	if gwErr.Message == "" {
		gwErr.Message = problem.Title
	}

	return gwErr
}

func workflowPath(id string) string {
	return "/workflows/" + url.PathEscape(id)
}

func nodePath(workflowID, nodeID string) string {
	return workflowPath(workflowID) + "/nodes/" + url.PathEscape(nodeID)
}

func connectionPath(workflowID, connectionID string) string {
	return workflowPath(workflowID) + "/connections/" + url.PathEscape(connectionID)
}
