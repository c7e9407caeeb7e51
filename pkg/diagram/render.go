// Package diagram turns the graph store's nodes and connections into a render model for a drawing
// host and routes the host's gestures back into store operations.
package diagram

import (
	"strconv"
	"strings"

	"github.com/dukex/opsflow/pkg/models"
)

// Handle suffixes keep a source anchor and a target anchor on the same side distinct.
const (
	sourceSuffix = "-source"
	targetSuffix = "-target"
)

var categoryColors = map[models.NodeCategory]string{
	models.NodeCategoryStart:      "#22c55e",
	models.NodeCategoryToDo:       "#64748b",
	models.NodeCategoryInProgress: "#3b82f6",
	models.NodeCategoryDone:       "#a855f7",
}

const (
	darkText  = "#111827"
	lightText = "#ffffff"
)

// NodeView is the display data of a render node.
type NodeView struct {
	Label     string              `json:"label"`
	Color     string              `json:"color"`
	TextColor string              `json:"textColor"`
	Category  models.NodeCategory `json:"category"`
	Deletable bool                `json:"deletable"`
}

// RenderNode is one node as the drawing host sees it. Selected and Dragging are UI state that the
// store knows nothing about.
type RenderNode struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Position models.Position `json:"position"`
	Data     NodeView        `json:"data"`
	Selected bool            `json:"selected"`
	Dragging bool            `json:"dragging"`
}

// EdgeView is the display data of a render edge.
type EdgeView struct {
	EventType models.EventType      `json:"eventType"`
	Priority  int                   `json:"priority"`
	Kind      models.ConnectionKind `json:"kind"`
}

// RenderEdge is one connection as the drawing host sees it.
type RenderEdge struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	SourceHandle string   `json:"sourceHandle"`
	TargetHandle string   `json:"targetHandle"`
	Label        string   `json:"label"`
	Animated     bool     `json:"animated"`
	Selected     bool     `json:"selected"`
	Data         EdgeView `json:"data"`
}

// SourceHandleID returns the render id of a source-side anchor.
func SourceHandleID(h models.Handle) string {
	return string(h) + sourceSuffix
}

// TargetHandleID returns the render id of a target-side anchor.
func TargetHandleID(h models.Handle) string {
	return string(h) + targetSuffix
}

// NewRenderNode maps a store node.
func NewRenderNode(n models.Node) RenderNode {
	color := NodeColor(n)

	return RenderNode{
		ID:       n.ID,
		Type:     string(n.Category),
		Position: n.Data.Position,
		Data: NodeView{
			Label:     n.Label,
			Color:     color,
			TextColor: TextColor(color),
			Category:  n.Category,
			Deletable: !n.IsStart(),
		},
	}
}

// NewRenderEdge maps a store connection. labels resolves node ids to labels for the default
// edge label.
func NewRenderEdge(c models.Connection, labels map[string]string) RenderEdge {
	return RenderEdge{
		ID:           c.ID,
		Source:       c.SourceID,
		Target:       c.TargetID,
		SourceHandle: SourceHandleID(c.SourceHandle),
		TargetHandle: TargetHandleID(c.TargetHandle),
		Label:        c.DisplayName(labels[c.SourceID], labels[c.TargetID]),
		Animated:     c.Kind == models.ConnectionKindLoop,
		Data: EdgeView{
			EventType: c.EventType,
			Priority:  c.Priority,
			Kind:      c.Kind,
		},
	}
}

// RenderGraph maps a whole graph, keeping store order.
func RenderGraph(g models.Graph) ([]RenderNode, []RenderEdge) {
	nodes := make([]RenderNode, len(g.Nodes))
	labels := make(map[string]string, len(g.Nodes))

	for i, n := range g.Nodes {
		nodes[i] = NewRenderNode(n)
		labels[n.ID] = n.Label
	}

	edges := make([]RenderEdge, len(g.Connections))
	for i, c := range g.Connections {
		edges[i] = NewRenderEdge(c, labels)
	}

	return nodes, edges
}

// NodeColor returns the node's color, or its category default.
func NodeColor(n models.Node) string {
	if n.Color != "" {
		return n.Color
	}

	if color, ok := categoryColors[n.Category]; ok {
		return color
	}

	return categoryColors[models.NodeCategoryToDo]
}

// TextColor picks dark or light text for a hex background by relative luminance. Unparseable
// colors get dark text.
func TextColor(background string) string {
	r, g, b, ok := parseHex(background)
	if !ok {
		return darkText
	}

	luminance := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
	if luminance > 0.5 {
		return darkText
	}

	return lightText
}

func parseHex(color string) (uint8, uint8, uint8, bool) {
	hex := strings.TrimPrefix(color, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}

	if len(hex) != 6 {
		return 0, 0, 0, false
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}

	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}
