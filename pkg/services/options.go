package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/opsflow/pkg/eventbus"
	"github.com/dukex/opsflow/pkg/log"
	"github.com/go-playground/validator/v10"
)

// Option configures a service.
type Option func(*base)

// WithPublisher sets where graph change events are published.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(b *base) {
		b.publisher = publisher
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		b.logger = logger
	}
}

// WithValidator shares a validator instance with the service.
func WithValidator(validate *validator.Validate) Option {
	return func(b *base) {
		b.validate = validate
	}
}

// base holds the collaborators shared by every service.
type base struct {
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	validate  *validator.Validate
}

func newBase(module string, opts []Option) base {
	b := base{}
	for _, opt := range opts {
		opt(&b)
	}

	if b.logger == nil {
		b.logger = log.WithModule(module)
	}

	if b.validate == nil {
		b.validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return b
}

// publish emits a graph change event. A failed publish is logged and never fails the write that
// produced it.
func (b base) publish(ctx context.Context, key string, event eventbus.Event) {
	if b.publisher == nil {
		return
	}

	err := b.publisher.Publish(ctx, key, event)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// invalid converts go-playground validation errors into a ServiceError wrapping sentinel.
func invalid(op string, sentinel error, err error) error {
	return NewValidationError(op, "INVALID_REQUEST", err.Error(), errors.Join(sentinel, err))
}
