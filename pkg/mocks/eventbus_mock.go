package mocks

import (
	"context"
	"sync"

	"github.com/dukex/opsflow/pkg/eventbus"
	"github.com/dukex/opsflow/pkg/events"
	"github.com/stretchr/testify/mock"
)

// MockEventBus is a testify mock of eventbus.EventBus that also records the type of every
// published graph change event.
type MockEventBus struct {
	mock.Mock

	mu        sync.Mutex
	published []events.EventType
}

// NewMockEventBus returns a bus that accepts every publish.
func NewMockEventBus() *MockEventBus {
	bus := &MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return bus
}

// EventOfType matches a published event by its type.
func EventOfType(eventType events.EventType) any {
	return mock.MatchedBy(func(e eventbus.Event) bool { return e.GetType() == eventType })
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	m.mu.Lock()
	m.published = append(m.published, event.GetType())
	m.mu.Unlock()

	args := m.Called(ctx, key, event)

	return args.Error(0)
}

// PublishedTypes returns the types of all published events in publish order.
func (m *MockEventBus) PublishedTypes() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]events.EventType(nil), m.published...)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}
