package models

// Graph is a point-in-time copy of all nodes and connections of one workflow.
type Graph struct {
	WorkflowID  string       `json:"workflow_id"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	out := Graph{
		WorkflowID:  g.WorkflowID,
		Nodes:       make([]Node, len(g.Nodes)),
		Connections: make([]Connection, len(g.Connections)),
	}

	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}

	for i, c := range g.Connections {
		out.Connections[i] = c.Clone()
	}

	return out
}

// Node looks a node up by id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}

	return Node{}, false
}

// Connection looks a connection up by id.
func (g Graph) Connection(id string) (Connection, bool) {
	for _, c := range g.Connections {
		if c.ID == id {
			return c, true
		}
	}

	return Connection{}, false
}

// StartNode returns the start node, if the graph has one.
func (g Graph) StartNode() (Node, bool) {
	for _, n := range g.Nodes {
		if n.IsStart() {
			return n, true
		}
	}

	return Node{}, false
}
