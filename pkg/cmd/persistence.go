// Package cmd provides common initialization helpers for the hub binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/webrpa/hub/pkg/persistence"
	"github.com/webrpa/hub/pkg/persistence/file"
	"github.com/webrpa/hub/pkg/persistence/postgres"
	"github.com/webrpa/hub/pkg/persistence/rediscache"
)

// NewPersistence selects the storage backend by URL scheme: postgres:// for
// production, anything else is treated as a file path. A non-empty redisURL
// layers the read-through cache on top.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL, redisURL string) persistence.Persistence {
	var (
		backend persistence.Persistence
		err     error
	)

	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		backend, err = postgres.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgres persistence: %w", err))
		}
	default:
		backend = file.NewPersistence(databaseURL)
	}

	if redisURL == "" {
		return backend
	}

	cached, err := rediscache.NewPersistence(backend, logger, redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to initialize redis cache: %w", err))
	}

	return cached
}
