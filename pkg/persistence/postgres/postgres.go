// Package postgres provides PostgreSQL persistence for shared workflows.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// database/sql driver.
	_ "github.com/lib/pq"

	"github.com/webrpa/hub/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	*WorkflowRepository
}

// NewPersistence connects to PostgreSQL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:                 database,
		logger:             logger,
		WorkflowRepository: NewWorkflowRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS shared_workflows (
				id UUID PRIMARY KEY,
				fingerprint CHAR(64) NOT NULL,
				name TEXT NOT NULL,
				author TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				document TEXT NOT NULL,
				node_count INTEGER NOT NULL,
				downloads BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX IF NOT EXISTS idx_shared_workflows_fingerprint
				ON shared_workflows (fingerprint);

			CREATE INDEX IF NOT EXISTS idx_shared_workflows_downloads
				ON shared_workflows (downloads DESC);

			CREATE INDEX IF NOT EXISTS idx_shared_workflows_author
				ON shared_workflows (author);
		`,
	}
}
