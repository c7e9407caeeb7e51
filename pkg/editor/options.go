package editor

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/opsflow/pkg/graphstore"
	"go.opentelemetry.io/otel/trace"
)

const defaultSettleTimeout = 3 * time.Second

// Option configures a Session.
type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithNotifier sets where the aggregate discard warning is reported.
func WithNotifier(notifier graphstore.Notifier) Option {
	return func(s *Session) {
		s.notifier = notifier
	}
}

// WithSettleTimeout bounds how long Save and Discard wait for in-flight operations.
func WithSettleTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		s.settleTimeout = timeout
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Session) {
		s.tracer = tracer
	}
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, prompt string) bool

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// AlwaysConfirm approves every prompt.
var AlwaysConfirm = ConfirmerFunc(func(context.Context, string) bool { return true })
