package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/opsflow/pkg/gateway"
	"github.com/dukex/opsflow/pkg/services"
)

// NewGateway connects the editor to a backend. http(s) URLs reach a running API; storage URLs run
// the services in process. The returned close function releases the storage, if any.
func NewGateway(ctx context.Context, logger *slog.Logger, backendURL string) (gateway.Gateway, func(context.Context) error, error) {
	if strings.HasPrefix(backendURL, "http://") || strings.HasPrefix(backendURL, "https://") {
		client := gateway.NewClient(backendURL, gateway.WithClientLogger(logger))

		return client, func(context.Context) error { return nil }, nil
	}

	if !IsPersistenceURL(backendURL) {
		return nil, nil, fmt.Errorf("%w: backend %q", ErrUnsupportedProvider, backendURL)
	}

	p, err := NewPersistence(ctx, logger, backendURL)
	if err != nil {
		return nil, nil, err
	}

	return gateway.NewLocal(p, services.WithLogger(logger)), p.Close, nil
}
