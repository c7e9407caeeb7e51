package models

import (
	"maps"
	"reflect"
)

// NodeCategory is the kind of status a node represents.
type NodeCategory string

const (
	NodeCategoryStart      NodeCategory = "start"
	NodeCategoryToDo       NodeCategory = "to_do"
	NodeCategoryInProgress NodeCategory = "in_progress"
	NodeCategoryDone       NodeCategory = "done"
)

// IsValid reports whether c is a known node category.
func (c NodeCategory) IsValid() bool {
	switch c {
	case NodeCategoryStart, NodeCategoryToDo, NodeCategoryInProgress, NodeCategoryDone:
		return true
	default:
		return false
	}
}

// CanBeSource reports whether a node of this category may originate a connection.
func (c NodeCategory) CanBeSource() bool {
	return c != NodeCategoryDone
}

// CanBeTarget reports whether a node of this category may receive a connection.
func (c NodeCategory) CanBeTarget() bool {
	return c != NodeCategoryStart
}

// Position is a point on the diagram canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the free-form data bag attached to a node.
type NodeData struct {
	Position   Position          `json:"position"`
	Properties map[string]string `json:"properties,omitempty"`
	Attributes map[string]any    `json:"attributes,omitempty"`
}

// Clone returns a deep copy of the data bag.
func (d NodeData) Clone() NodeData {
	return NodeData{
		Position:   d.Position,
		Properties: maps.Clone(d.Properties),
		Attributes: cloneAttributes(d.Attributes),
	}
}

// WithPosition returns a copy of the data bag with only the position replaced.
func (d NodeData) WithPosition(p Position) NodeData {
	c := d.Clone()
	c.Position = p

	return c
}

// WithProperty returns a copy of the data bag with one property set.
func (d NodeData) WithProperty(key, value string) NodeData {
	c := d.Clone()
	if c.Properties == nil {
		c.Properties = make(map[string]string)
	}

	c.Properties[key] = value

	return c
}

// WithoutProperty returns a copy of the data bag with one property removed.
func (d NodeData) WithoutProperty(key string) NodeData {
	c := d.Clone()
	delete(c.Properties, key)

	return c
}

// Equal reports whether two data bags hold the same values.
func (d NodeData) Equal(other NodeData) bool {
	if d.Position != other.Position {
		return false
	}

	if !maps.Equal(d.Properties, other.Properties) {
		return false
	}

	return attributesEqual(d.Attributes, other.Attributes)
}

// Node is a status in a workflow diagram.
type Node struct {
	ID         string       `json:"id"`
	WorkflowID string       `json:"workflow_id"`
	Category   NodeCategory `json:"category"`
	Label      string       `json:"label"`
	Color      string       `json:"color"`
	Data       NodeData     `json:"data"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Data = n.Data.Clone()

	return n
}

// Equal reports whether two nodes carry the same editable content. Identity fields are compared too.
func (n Node) Equal(other Node) bool {
	return n.ID == other.ID &&
		n.Category == other.Category &&
		n.Label == other.Label &&
		n.Color == other.Color &&
		n.Data.Equal(other.Data)
}

// IsStart reports whether the node is the workflow entry point.
func (n Node) IsStart() bool {
	return n.Category == NodeCategoryStart
}

// NodeDraft is the payload used to create a node.
type NodeDraft struct {
	Category NodeCategory `json:"category" validate:"required,oneof=start to_do in_progress done"`
	Label    string       `json:"label"    validate:"required,min=1"`
	Color    string       `json:"color"    validate:"omitempty,hexcolor"`
	Data     NodeData     `json:"data"`
}

// NodeUpdate is a partial node update. Nil fields are left unchanged.
type NodeUpdate struct {
	Category *NodeCategory `json:"category,omitempty"`
	Label    *string       `json:"label,omitempty"`
	Color    *string       `json:"color,omitempty"`
	Data     *NodeData     `json:"data,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u NodeUpdate) IsEmpty() bool {
	return u.Category == nil && u.Label == nil && u.Color == nil && u.Data == nil
}

// Apply writes the set fields of the update onto n.
func (u NodeUpdate) Apply(n *Node) {
	if u.Category != nil {
		n.Category = *u.Category
	}

	if u.Label != nil {
		n.Label = *u.Label
	}

	if u.Color != nil {
		n.Color = *u.Color
	}

	if u.Data != nil {
		n.Data = u.Data.Clone()
	}
}

func attributesEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}

	return reflect.DeepEqual(a, b)
}

func cloneAttributes(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return cloneAttributes(tv)
	case []any:
		out := make([]any, len(tv))
		for i := range tv {
			out[i] = cloneValue(tv[i])
		}

		return out
	default:
		return v
	}
}
