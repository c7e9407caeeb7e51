// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dukex/opsflow/pkg/models"
	"github.com/google/uuid"
)

// TestWorkflowID is the workflow id used by builders unless overridden.
const TestWorkflowID = "wf-test"

// CreateTestNode creates a test Node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) models.Node {
	node := models.Node{
		ID:         uuid.New().String(),
		WorkflowID: TestWorkflowID,
		Category:   models.NodeCategoryToDo,
		Label:      "Test Node",
		Color:      "#3b82f6",
		Data: models.NodeData{
			Position: models.Position{X: 100, Y: 200},
		},
	}

	for _, override := range overrides {
		override(&node)
	}

	return node
}

// WithNodeID sets the node id.
func WithNodeID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithStartNode configures the node as the workflow start node.
func WithStartNode() func(*models.Node) {
	return func(n *models.Node) {
		n.Category = models.NodeCategoryStart
		n.Label = "Start"
		n.Color = "#22c55e"
	}
}

// WithCategory sets the node category.
func WithCategory(category models.NodeCategory) func(*models.Node) {
	return func(n *models.Node) {
		n.Category = category
	}
}

// WithLabel sets the node label.
func WithLabel(label string) func(*models.Node) {
	return func(n *models.Node) {
		n.Label = label
	}
}

// WithColor sets the node color.
func WithColor(color string) func(*models.Node) {
	return func(n *models.Node) {
		n.Color = color
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.Node) {
	return func(n *models.Node) {
		n.Data.Position = models.Position{X: x, Y: y}
	}
}

// WithProperties sets the node data properties.
func WithProperties(properties map[string]string) func(*models.Node) {
	return func(n *models.Node) {
		n.Data.Properties = properties
	}
}
