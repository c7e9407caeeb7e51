// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/opsflow/pkg/persistence"
	"github.com/dukex/opsflow/pkg/persistence/file"
	"github.com/dukex/opsflow/pkg/persistence/postgresql"
)

var ErrUnsupportedProvider = errors.New("unsupported provider")

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql"}

// NewPersistence opens the store addressed by databaseURL. URLs without a scheme are file paths.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, location := parsePersistenceURL(databaseURL)

	switch provider {
	case "file":
		return file.NewPersistence(location), nil
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres persistence: %w", err)
		}

		return p, nil
	default:
		return nil, fmt.Errorf("%w: persistence %q", ErrUnsupportedProvider, provider)
	}
}

// IsPersistenceURL reports whether raw addresses a store this binary can open directly.
func IsPersistenceURL(raw string) bool {
	provider, _ := parsePersistenceURL(raw)
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return true
		}
	}

	return false
}

func parsePersistenceURL(databaseURL string) (string, string) {
	provider, location, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file", databaseURL
	}

	return provider, location
}
