// Package events defines the graph change events published by the workflow backend.
package events

import (
	"time"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every graph change event.
const Topic = "opsflow.graph.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow lifecycle events.
	WorkflowCreatedEvent   EventType = "workflow.created"
	WorkflowUpdatedEvent   EventType = "workflow.updated"
	WorkflowDeletedEvent   EventType = "workflow.deleted"
	WorkflowPublishedEvent EventType = "workflow.published"
	WorkflowArchivedEvent  EventType = "workflow.archived"

	// Graph edit events.
	NodeCreatedEvent       EventType = "node.created"
	NodeUpdatedEvent       EventType = "node.updated"
	NodeDeletedEvent       EventType = "node.deleted"
	ConnectionCreatedEvent EventType = "connection.created"
	ConnectionUpdatedEvent EventType = "connection.updated"
	ConnectionDeletedEvent EventType = "connection.deleted"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Header returns the common envelope of an event.
func (b BaseEvent) Header() BaseEvent {
	return b
}

type WorkflowCreated struct {
	BaseEvent

	Name       string `json:"name"`
	SourceID   string `json:"source_id,omitempty"` // Set when created by duplication
	StartNodes int    `json:"start_nodes"`
}

func (w WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type WorkflowUpdated struct {
	BaseEvent

	Name        string `json:"name"`
	Description string `json:"description"`
}

func (w WorkflowUpdated) GetType() EventType {
	return WorkflowUpdatedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (w WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

// WorkflowPublished is emitted when a workflow becomes live.
type WorkflowPublished struct {
	BaseEvent

	Version int `json:"version"`
}

func (w WorkflowPublished) GetType() EventType {
	return WorkflowPublishedEvent
}

type WorkflowArchived struct {
	BaseEvent
}

func (w WorkflowArchived) GetType() EventType {
	return WorkflowArchivedEvent
}

type NodeCreated struct {
	BaseEvent

	Node models.Node `json:"node"`
}

func (n NodeCreated) GetType() EventType {
	return NodeCreatedEvent
}

type NodeUpdated struct {
	BaseEvent

	Node models.Node `json:"node"`
}

func (n NodeUpdated) GetType() EventType {
	return NodeUpdatedEvent
}

// NodeDeleted lists the connections removed together with the node.
type NodeDeleted struct {
	BaseEvent

	NodeID        string   `json:"node_id"`
	ConnectionIDs []string `json:"connection_ids,omitempty"`
}

func (n NodeDeleted) GetType() EventType {
	return NodeDeletedEvent
}

type ConnectionCreated struct {
	BaseEvent

	Connection models.Connection `json:"connection"`
}

func (c ConnectionCreated) GetType() EventType {
	return ConnectionCreatedEvent
}

type ConnectionUpdated struct {
	BaseEvent

	Connection models.Connection `json:"connection"`
}

func (c ConnectionUpdated) GetType() EventType {
	return ConnectionUpdatedEvent
}

type ConnectionDeleted struct {
	BaseEvent

	ConnectionID string `json:"connection_id"`
}

func (c ConnectionDeleted) GetType() EventType {
	return ConnectionDeletedEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// New returns an empty event value for eventType, ready to be decoded into.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case WorkflowCreatedEvent:
		return &WorkflowCreated{}, true
	case WorkflowUpdatedEvent:
		return &WorkflowUpdated{}, true
	case WorkflowDeletedEvent:
		return &WorkflowDeleted{}, true
	case WorkflowPublishedEvent:
		return &WorkflowPublished{}, true
	case WorkflowArchivedEvent:
		return &WorkflowArchived{}, true
	case NodeCreatedEvent:
		return &NodeCreated{}, true
	case NodeUpdatedEvent:
		return &NodeUpdated{}, true
	case NodeDeletedEvent:
		return &NodeDeleted{}, true
	case ConnectionCreatedEvent:
		return &ConnectionCreated{}, true
	case ConnectionUpdatedEvent:
		return &ConnectionUpdated{}, true
	case ConnectionDeletedEvent:
		return &ConnectionDeleted{}, true
	default:
		return nil, false
	}
}

// AllTypes lists every graph change event type.
func AllTypes() []EventType {
	return []EventType{
		WorkflowCreatedEvent, WorkflowUpdatedEvent, WorkflowDeletedEvent, WorkflowPublishedEvent, WorkflowArchivedEvent,
		NodeCreatedEvent, NodeUpdatedEvent, NodeDeletedEvent,
		ConnectionCreatedEvent, ConnectionUpdatedEvent, ConnectionDeletedEvent,
	}
}
