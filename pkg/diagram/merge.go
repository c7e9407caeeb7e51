package diagram

// TransientField names UI-only state that survives a store update.
type TransientField string

const (
	// TransientSelected keeps the selected flag.
	TransientSelected TransientField = "selected"
	// TransientPosition keeps the position of a node that is being dragged.
	TransientPosition TransientField = "position"
)

// DefaultTransientFields is what the controller preserves on every merge.
var DefaultTransientFields = []TransientField{TransientSelected, TransientPosition}

// Renderable is a render object that can inherit transient state from its previous version.
type Renderable[T any] interface {
	RenderID() string
	WithTransient(previous T, fields []TransientField) T
}

// MergeRenderState reconciles a freshly mapped list with the current render list. Objects present
// in both take every store-derived field from incoming and the named transient fields from old;
// objects only in incoming are added as they are; objects only in old are dropped. The result
// follows incoming's order. Neither input is modified.
func MergeRenderState[T Renderable[T]](old, incoming []T, fields ...TransientField) []T {
	previous := make(map[string]T, len(old))
	for _, o := range old {
		previous[o.RenderID()] = o
	}

	merged := make([]T, len(incoming))

	for i, n := range incoming {
		if o, ok := previous[n.RenderID()]; ok {
			merged[i] = n.WithTransient(o, fields)

			continue
		}

		merged[i] = n
	}

	return merged
}

func (n RenderNode) RenderID() string {
	return n.ID
}

// WithTransient copies selection and, while previous is mid-drag, its position and drag flag.
func (n RenderNode) WithTransient(previous RenderNode, fields []TransientField) RenderNode {
	for _, field := range fields {
		switch field {
		case TransientSelected:
			n.Selected = previous.Selected
		case TransientPosition:
			if previous.Dragging {
				n.Position = previous.Position
				n.Dragging = true
			}
		}
	}

	return n
}

func (e RenderEdge) RenderID() string {
	return e.ID
}

// WithTransient copies selection. Edges have no position of their own.
func (e RenderEdge) WithTransient(previous RenderEdge, fields []TransientField) RenderEdge {
	for _, field := range fields {
		if field == TransientSelected {
			e.Selected = previous.Selected
		}
	}

	return e
}
