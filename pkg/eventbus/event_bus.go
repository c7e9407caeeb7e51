// Package eventbus carries graph change events between the backend and its subscribers.
//
// The backend publishes one event per accepted write: workflow lifecycle changes and every node or
// connection created, updated or deleted. Events are keyed by workflow id so transports that
// partition by key, such as Kafka, keep the changes of one workflow in order.
package eventbus

import (
	"context"

	"github.com/dukex/opsflow/pkg/events"
)

// Event is a graph change event. Its type selects the handlers it is dispatched to.
type Event interface {
	GetType() events.EventType
}

// EventPublisher sends graph change events. key is the id of the workflow the change belongs to.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches received events to the handlers registered per event type.
// Handlers must be registered before Subscribe starts consuming.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event struct, for example *events.NodeCreated.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	// GenerateID returns a unique message id.
	GenerateID() string
}
