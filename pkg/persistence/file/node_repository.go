package file

import (
	"context"
	"slices"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
)

// NodeRepository reads and writes the nodes stored inside workflow documents.
type NodeRepository struct {
	fp *Persistence
}

func (nr *NodeRepository) GetNodesByWorkflow(_ context.Context, workflowID string) ([]*models.Node, error) {
	var nodes []*models.Node

	err := nr.fp.view("GetNodesByWorkflow", workflowID, func(doc *document) error {
		nodes = doc.Nodes

		return nil
	})
	if err != nil {
		return nil, err
	}

	if nodes == nil {
		nodes = []*models.Node{}
	}

	return nodes, nil
}

func (nr *NodeRepository) GetNodeByWorkflow(_ context.Context, workflowID, nodeID string) (*models.Node, error) {
	var node *models.Node

	err := nr.fp.view("GetNodeByWorkflow", workflowID, func(doc *document) error {
		i := nodeIndex(doc, nodeID)
		if i < 0 {
			return persistence.NewNodeError("GetNodeByWorkflow", workflowID, nodeID, persistence.ErrNodeNotFound)
		}

		node = doc.Nodes[i]

		return nil
	})
	if err != nil {
		return nil, err
	}

	return node, nil
}

// SaveNode appends the node, or replaces it in place when it already exists.
func (nr *NodeRepository) SaveNode(_ context.Context, workflowID string, node *models.Node) error {
	return nr.fp.update("SaveNode", workflowID, func(doc *document) error {
		stored := node.Clone()
		stored.WorkflowID = workflowID

		if i := nodeIndex(doc, node.ID); i >= 0 {
			doc.Nodes[i] = &stored

			return nil
		}

		doc.Nodes = append(doc.Nodes, &stored)

		return nil
	})
}

func (nr *NodeRepository) UpdateNode(_ context.Context, workflowID string, node *models.Node) error {
	return nr.fp.update("UpdateNode", workflowID, func(doc *document) error {
		i := nodeIndex(doc, node.ID)
		if i < 0 {
			return persistence.NewNodeError("UpdateNode", workflowID, node.ID, persistence.ErrNodeNotFound)
		}

		stored := node.Clone()
		stored.WorkflowID = workflowID
		doc.Nodes[i] = &stored

		return nil
	})
}

// DeleteNode removes the node and the connections touching it.
func (nr *NodeRepository) DeleteNode(_ context.Context, workflowID, nodeID string) error {
	return nr.fp.update("DeleteNode", workflowID, func(doc *document) error {
		i := nodeIndex(doc, nodeID)
		if i < 0 {
			return persistence.NewNodeError("DeleteNode", workflowID, nodeID, persistence.ErrNodeNotFound)
		}

		doc.Nodes = slices.Delete(doc.Nodes, i, i+1)
		doc.Connections = slices.DeleteFunc(doc.Connections, func(c *models.Connection) bool {
			return c.Touches(nodeID)
		})

		return nil
	})
}

func nodeIndex(doc *document, nodeID string) int {
	return slices.IndexFunc(doc.Nodes, func(n *models.Node) bool { return n.ID == nodeID })
}
