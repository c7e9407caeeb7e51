package graphstore

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithNotifier sets where asynchronous failures are reported.
func WithNotifier(notifier Notifier) Option {
	return func(s *Store) {
		s.notifier = notifier
	}
}

// WithRequestTimeout bounds every remote call. Zero disables the bound.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.requestTimeout = timeout
	}
}

// WithTracer sets the tracer used for remote call spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = tracer
	}
}

// WithValidator shares a validator instance with the store.
func WithValidator(validate *validator.Validate) Option {
	return func(s *Store) {
		s.validate = validate
	}
}

// MutationOption attaches per-call hooks to an optimistic operation.
type MutationOption func(*mutationOptions)

type mutationOptions struct {
	onFailure func(error)
	onSuccess func()
}

// OnFailure runs fn after the operation has been rolled back.
func OnFailure(fn func(error)) MutationOption {
	return func(o *mutationOptions) {
		o.onFailure = fn
	}
}

// OnSuccess runs fn once the backend has confirmed the operation.
func OnSuccess(fn func()) MutationOption {
	return func(o *mutationOptions) {
		o.onSuccess = fn
	}
}

func collectMutationOptions(opts []MutationOption) mutationOptions {
	var o mutationOptions
	for _, opt := range opts {
		opt(&o)
	}

	return o
}
