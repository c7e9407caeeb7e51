package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, category NodeCategory) Node {
	return Node{ID: id, Category: category, Label: id}
}

func TestValidateEndpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  Node
		target  Node
		kind    ConnectionKind
		wantErr error
	}{
		{"start to todo", node("a", NodeCategoryStart), node("b", NodeCategoryToDo), ConnectionKindSequential, nil},
		{"done as source", node("a", NodeCategoryDone), node("b", NodeCategoryToDo), ConnectionKindSequential, ErrSourceIsDone},
		{"start as target", node("a", NodeCategoryToDo), node("b", NodeCategoryStart), ConnectionKindSequential, ErrTargetIsStart},
		{"self without loop", node("a", NodeCategoryToDo), node("a", NodeCategoryToDo), ConnectionKindSequential, ErrSelfConnection},
		{"self loop", node("a", NodeCategoryInProgress), node("a", NodeCategoryInProgress), ConnectionKindLoop, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateEndpoints(tt.source, tt.target, tt.kind)
			if tt.wantErr == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConnection_DisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Begin", Connection{Name: "Begin"}.DisplayName("Start", "To do"))
	assert.Equal(t, "Start → To do", Connection{}.DisplayName("Start", "To do"))
}

func TestNodeData_WithPositionKeepsOtherFields(t *testing.T) {
	t.Parallel()

	data := NodeData{
		Position:   Position{X: 1, Y: 2},
		Properties: map[string]string{"owner": "growth"},
		Attributes: map[string]any{"icon": "flag", "nested": map[string]any{"a": 1.0}},
	}

	moved := data.WithPosition(Position{X: 10, Y: 20})

	assert.Equal(t, Position{X: 10, Y: 20}, moved.Position)
	assert.Equal(t, "growth", moved.Properties["owner"])
	assert.Equal(t, "flag", moved.Attributes["icon"])
	assert.Equal(t, Position{X: 1, Y: 2}, data.Position, "original bag must not change")

	moved.Properties["owner"] = "brand"
	moved.Attributes["nested"].(map[string]any)["a"] = 2.0

	assert.Equal(t, "growth", data.Properties["owner"])
	assert.Equal(t, 1.0, data.Attributes["nested"].(map[string]any)["a"])
}

func TestNodeData_Equal(t *testing.T) {
	t.Parallel()

	a := NodeData{Position: Position{X: 1}, Properties: map[string]string{}}
	b := NodeData{Position: Position{X: 1}}

	assert.True(t, a.Equal(b), "empty and nil maps are equal")
	assert.False(t, a.Equal(b.WithProperty("k", "v")))
	assert.False(t, a.Equal(NodeData{Position: Position{X: 2}}))
}

func TestNodeUpdate_Apply(t *testing.T) {
	t.Parallel()

	n := Node{ID: "n1", Category: NodeCategoryToDo, Label: "A", Color: "#fff"}
	label := "B"

	NodeUpdate{Label: &label}.Apply(&n)

	assert.Equal(t, "B", n.Label)
	assert.Equal(t, NodeCategoryToDo, n.Category)
	assert.Equal(t, "#fff", n.Color)
	assert.True(t, NodeUpdate{}.IsEmpty())
}

func TestConnectionUpdate_PropertiesSemantics(t *testing.T) {
	t.Parallel()

	c := Connection{ID: "c1", Properties: map[string]string{"k": "v"}}

	ConnectionUpdate{}.Apply(&c)
	assert.Equal(t, map[string]string{"k": "v"}, c.Properties)

	ConnectionUpdate{Properties: map[string]string{}}.Apply(&c)
	assert.Nil(t, c.Properties)

	var decoded ConnectionUpdate

	require.NoError(t, json.Unmarshal([]byte(`{"name":"x","properties":null}`), &decoded))
	assert.Nil(t, decoded.Properties)
	assert.False(t, decoded.IsEmpty())
}

func TestGraph_CloneIsDeep(t *testing.T) {
	t.Parallel()

	g := Graph{
		WorkflowID: "wf",
		Nodes:      []Node{{ID: "n1", Category: NodeCategoryStart, Data: NodeData{Properties: map[string]string{"k": "v"}}}},
		Connections: []Connection{
			{ID: "c1", SourceID: "n1", TargetID: "n2", Properties: map[string]string{"k": "v"}},
		},
	}

	clone := g.Clone()
	clone.Nodes[0].Data.Properties["k"] = "changed"
	clone.Connections[0].Properties["k"] = "changed"
	clone.Nodes[0].Label = "changed"

	assert.Equal(t, "v", g.Nodes[0].Data.Properties["k"])
	assert.Equal(t, "v", g.Connections[0].Properties["k"])
	assert.Empty(t, g.Nodes[0].Label)

	start, ok := g.StartNode()
	require.True(t, ok)
	assert.Equal(t, "n1", start.ID)
}

func TestConnectionDraft_Validation(t *testing.T) {
	t.Parallel()

	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.Struct(ConnectionDraft{SourceID: "a", TargetID: "b"})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors

	require.True(t, errors.As(err, &validationErrors))
	assert.Equal(t, "Name", validationErrors[0].Field())
	assert.Equal(t, "required", validationErrors[0].Tag())

	err = validate.Struct(ConnectionDraft{SourceID: "a", TargetID: "b", Name: "Begin", SourceHandle: "middle"})
	assert.Error(t, err)

	err = validate.Struct(ConnectionDraft{SourceID: "a", TargetID: "b", Name: "Begin", SourceHandle: HandleRight})
	assert.NoError(t, err)
}
