package graphstore

import (
	"maps"

	"github.com/dukex/opsflow/pkg/models"
)

// Field names used for field-level rollback bookkeeping.
const (
	fieldCategory     = "category"
	fieldLabel        = "label"
	fieldColor        = "color"
	fieldData         = "data"
	fieldSourceID     = "source_id"
	fieldTargetID     = "target_id"
	fieldKind         = "kind"
	fieldName         = "name"
	fieldEventType    = "event_type"
	fieldPriority     = "priority"
	fieldSourceHandle = "source_handle"
	fieldTargetHandle = "target_handle"
	fieldProperties   = "properties"
)

func nodeUpdateFields(u models.NodeUpdate) []string {
	var fields []string

	if u.Category != nil {
		fields = append(fields, fieldCategory)
	}

	if u.Label != nil {
		fields = append(fields, fieldLabel)
	}

	if u.Color != nil {
		fields = append(fields, fieldColor)
	}

	if u.Data != nil {
		fields = append(fields, fieldData)
	}

	return fields
}

func captureNodeFields(n models.Node, fields []string) map[string]any {
	before := make(map[string]any, len(fields))

	for _, field := range fields {
		switch field {
		case fieldCategory:
			before[field] = n.Category
		case fieldLabel:
			before[field] = n.Label
		case fieldColor:
			before[field] = n.Color
		case fieldData:
			before[field] = n.Data.Clone()
		}
	}

	return before
}

func restoreNodeField(n *models.Node, field string, value any) {
	switch field {
	case fieldCategory:
		n.Category = value.(models.NodeCategory)
	case fieldLabel:
		n.Label = value.(string)
	case fieldColor:
		n.Color = value.(string)
	case fieldData:
		n.Data = value.(models.NodeData).Clone()
	}
}

func cloneNodeUpdate(u models.NodeUpdate) models.NodeUpdate {
	if u.Data != nil {
		data := u.Data.Clone()
		u.Data = &data
	}

	return u
}

func connectionUpdateFields(u models.ConnectionUpdate) []string {
	var fields []string

	if u.SourceID != nil {
		fields = append(fields, fieldSourceID)
	}

	if u.TargetID != nil {
		fields = append(fields, fieldTargetID)
	}

	if u.Kind != nil {
		fields = append(fields, fieldKind)
	}

	if u.Name != nil {
		fields = append(fields, fieldName)
	}

	if u.EventType != nil {
		fields = append(fields, fieldEventType)
	}

	if u.Priority != nil {
		fields = append(fields, fieldPriority)
	}

	if u.SourceHandle != nil {
		fields = append(fields, fieldSourceHandle)
	}

	if u.TargetHandle != nil {
		fields = append(fields, fieldTargetHandle)
	}

	if u.Properties != nil {
		fields = append(fields, fieldProperties)
	}

	return fields
}

func captureConnectionFields(c models.Connection, fields []string) map[string]any {
	before := make(map[string]any, len(fields))

	for _, field := range fields {
		switch field {
		case fieldSourceID:
			before[field] = c.SourceID
		case fieldTargetID:
			before[field] = c.TargetID
		case fieldKind:
			before[field] = c.Kind
		case fieldName:
			before[field] = c.Name
		case fieldEventType:
			before[field] = c.EventType
		case fieldPriority:
			before[field] = c.Priority
		case fieldSourceHandle:
			before[field] = c.SourceHandle
		case fieldTargetHandle:
			before[field] = c.TargetHandle
		case fieldProperties:
			before[field] = maps.Clone(c.Properties)
		}
	}

	return before
}

func restoreConnectionField(c *models.Connection, field string, value any) {
	switch field {
	case fieldSourceID:
		c.SourceID = value.(string)
	case fieldTargetID:
		c.TargetID = value.(string)
	case fieldKind:
		c.Kind = value.(models.ConnectionKind)
	case fieldName:
		c.Name = value.(string)
	case fieldEventType:
		c.EventType = value.(models.EventType)
	case fieldPriority:
		c.Priority = value.(int)
	case fieldSourceHandle:
		c.SourceHandle = value.(models.Handle)
	case fieldTargetHandle:
		c.TargetHandle = value.(models.Handle)
	case fieldProperties:
		c.Properties = maps.Clone(value.(map[string]string))
	}
}

func cloneConnectionUpdate(u models.ConnectionUpdate) models.ConnectionUpdate {
	if u.Properties != nil {
		u.Properties = maps.Clone(u.Properties)
	}

	return u
}
