package models

import "maps"

// Handle is one side of a node where a connection may attach.
type Handle string

const (
	HandleTop    Handle = "top"
	HandleRight  Handle = "right"
	HandleBottom Handle = "bottom"
	HandleLeft   Handle = "left"
)

// IsValid reports whether h is one of the four sides.
func (h Handle) IsValid() bool {
	switch h {
	case HandleTop, HandleRight, HandleBottom, HandleLeft:
		return true
	default:
		return false
	}
}

// ConnectionKind distinguishes plain transitions from self-loops.
type ConnectionKind string

const (
	ConnectionKindSequential ConnectionKind = "sequential"
	ConnectionKindLoop       ConnectionKind = "loop" // Source may equal target
)

// EventType is what fires a transition.
type EventType string

const (
	EventTypeManual     EventType = "manual"
	EventTypeOnEnter    EventType = "on_enter"
	EventTypeOnExit     EventType = "on_exit"
	EventTypeOnComplete EventType = "on_complete"
	EventTypeOnTimeout  EventType = "on_timeout"
)

// IsValid reports whether e is a known event type.
func (e EventType) IsValid() bool {
	switch e {
	case EventTypeManual, EventTypeOnEnter, EventTypeOnExit, EventTypeOnComplete, EventTypeOnTimeout:
		return true
	default:
		return false
	}
}

// Connection is a directed transition between two nodes.
type Connection struct {
	ID           string            `json:"id"`
	WorkflowID   string            `json:"workflow_id"`
	SourceID     string            `json:"source_id"`
	TargetID     string            `json:"target_id"`
	Kind         ConnectionKind    `json:"kind"`
	Name         string            `json:"name,omitempty"`
	EventType    EventType         `json:"event_type"`
	Priority     int               `json:"priority"`
	SourceHandle Handle            `json:"source_handle"`
	TargetHandle Handle            `json:"target_handle"`
	Properties   map[string]string `json:"properties,omitempty"`
}

// Clone returns a deep copy of the connection.
func (c Connection) Clone() Connection {
	c.Properties = maps.Clone(c.Properties)

	return c
}

// Equal reports whether two connections carry the same content.
func (c Connection) Equal(other Connection) bool {
	return c.ID == other.ID &&
		c.SourceID == other.SourceID &&
		c.TargetID == other.TargetID &&
		c.Kind == other.Kind &&
		c.Name == other.Name &&
		c.EventType == other.EventType &&
		c.Priority == other.Priority &&
		c.SourceHandle == other.SourceHandle &&
		c.TargetHandle == other.TargetHandle &&
		maps.Equal(c.Properties, other.Properties)
}

// Touches reports whether the connection starts or ends at nodeID.
func (c Connection) Touches(nodeID string) bool {
	return c.SourceID == nodeID || c.TargetID == nodeID
}

// DisplayName returns the custom name, or "{source} → {target}" built from the endpoint labels.
func (c Connection) DisplayName(sourceLabel, targetLabel string) string {
	if c.Name != "" {
		return c.Name
	}

	return sourceLabel + " → " + targetLabel
}

// ConnectionDraft is the payload used to create a connection. Handles left empty are chosen from
// the endpoint positions.
type ConnectionDraft struct {
	SourceID     string            `json:"source_id"               validate:"required"`
	TargetID     string            `json:"target_id"               validate:"required"`
	Kind         ConnectionKind    `json:"kind,omitempty"          validate:"omitempty,oneof=sequential loop"`
	Name         string            `json:"name"                    validate:"required,min=1"`
	EventType    EventType         `json:"event_type,omitempty"    validate:"omitempty,oneof=manual on_enter on_exit on_complete on_timeout"`
	Priority     int               `json:"priority"                validate:"min=0"`
	SourceHandle Handle            `json:"source_handle,omitempty" validate:"omitempty,oneof=top right bottom left"`
	TargetHandle Handle            `json:"target_handle,omitempty" validate:"omitempty,oneof=top right bottom left"`
	Properties   map[string]string `json:"properties,omitempty"`
}

// ConnectionUpdate is a partial connection update. Nil fields are left unchanged; a non-nil empty
// Properties map clears the properties.
type ConnectionUpdate struct {
	SourceID     *string           `json:"source_id,omitempty"`
	TargetID     *string           `json:"target_id,omitempty"`
	Kind         *ConnectionKind   `json:"kind,omitempty"`
	Name         *string           `json:"name,omitempty"`
	EventType    *EventType        `json:"event_type,omitempty"`
	Priority     *int              `json:"priority,omitempty"`
	SourceHandle *Handle           `json:"source_handle,omitempty"`
	TargetHandle *Handle           `json:"target_handle,omitempty"`
	Properties   map[string]string `json:"properties"`
}

// IsEmpty reports whether the update changes nothing.
func (u ConnectionUpdate) IsEmpty() bool {
	return u.SourceID == nil && u.TargetID == nil && u.Kind == nil && u.Name == nil &&
		u.EventType == nil && u.Priority == nil && u.SourceHandle == nil && u.TargetHandle == nil &&
		u.Properties == nil
}

// Apply writes the set fields of the update onto c.
func (u ConnectionUpdate) Apply(c *Connection) {
	if u.SourceID != nil {
		c.SourceID = *u.SourceID
	}

	if u.TargetID != nil {
		c.TargetID = *u.TargetID
	}

	if u.Kind != nil {
		c.Kind = *u.Kind
	}

	if u.Name != nil {
		c.Name = *u.Name
	}

	if u.EventType != nil {
		c.EventType = *u.EventType
	}

	if u.Priority != nil {
		c.Priority = *u.Priority
	}

	if u.SourceHandle != nil {
		c.SourceHandle = *u.SourceHandle
	}

	if u.TargetHandle != nil {
		c.TargetHandle = *u.TargetHandle
	}

	if u.Properties != nil {
		c.Properties = maps.Clone(u.Properties)
		if len(c.Properties) == 0 {
			c.Properties = nil
		}
	}
}

// ValidateEndpoints checks the category and loop rules of a connection between source and target.
// It returns nil or one of ErrSourceIsDone, ErrTargetIsStart, ErrSelfConnection.
func ValidateEndpoints(source, target Node, kind ConnectionKind) error {
	if !source.Category.CanBeSource() {
		return ErrSourceIsDone
	}

	if !target.Category.CanBeTarget() {
		return ErrTargetIsStart
	}

	if source.ID == target.ID && kind != ConnectionKindLoop {
		return ErrSelfConnection
	}

	return nil
}
