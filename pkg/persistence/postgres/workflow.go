package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/webrpa/hub/pkg/models"
	"github.com/webrpa/hub/pkg/persistence"
)

const uniqueViolation = "23505"

// WorkflowRepository handles shared-workflow database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"downloads":  "downloads",
	"name":       "name",
}

// SharedWorkflows lists stored workflows. Sort fields go through an
// allowlist; anything else falls back to created_at. The document column is
// not loaded for listings.
func (r *WorkflowRepository) SharedWorkflows(ctx context.Context, opts persistence.ListOptions) ([]*models.SharedWorkflow, error) {
	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "created_at"
	}

	direction := "DESC"
	if opts.SortOrder == "asc" {
		direction = "ASC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT
			id
		  , fingerprint
		  , name
		  , author
		  , description
		  , node_count
		  , downloads
		  , created_at
		  , updated_at
		FROM shared_workflows
		WHERE ($1 = '' OR author = $1)
		ORDER BY %s %s
		LIMIT $2 OFFSET $3
	`, column, direction)

	rows, err := r.db.QueryContext(ctx, query, opts.Author, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query shared workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.SharedWorkflow, 0)

	for rows.Next() {
		var workflow models.SharedWorkflow

		err := rows.Scan(
			&workflow.ID,
			&workflow.Fingerprint,
			&workflow.Name,
			&workflow.Author,
			&workflow.Description,
			&workflow.NodeCount,
			&workflow.Downloads,
			&workflow.CreatedAt,
			&workflow.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shared workflow: %w", err)
		}

		workflows = append(workflows, &workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating shared workflows: %w", err)
	}

	return workflows, nil
}

// SharedWorkflowByFingerprint loads one workflow including its document.
func (r *WorkflowRepository) SharedWorkflowByFingerprint(ctx context.Context, fingerprint string) (*models.SharedWorkflow, error) {
	query := `
		SELECT
			id
		  , fingerprint
		  , name
		  , author
		  , description
		  , document
		  , node_count
		  , downloads
		  , created_at
		  , updated_at
		FROM shared_workflows
		WHERE fingerprint = $1
	`

	var (
		workflow models.SharedWorkflow
		document string
	)

	err := r.db.QueryRowContext(ctx, query, fingerprint).Scan(
		&workflow.ID,
		&workflow.Fingerprint,
		&workflow.Name,
		&workflow.Author,
		&workflow.Description,
		&document,
		&workflow.NodeCount,
		&workflow.Downloads,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("ByFingerprint", fingerprint, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan shared workflow: %w", err)
	}

	workflow.Document = []byte(document)

	return &workflow, nil
}

// SaveSharedWorkflow inserts a new shared workflow. A fingerprint collision
// surfaces as ErrDuplicateFingerprint via the unique index.
func (r *WorkflowRepository) SaveSharedWorkflow(ctx context.Context, workflow *models.SharedWorkflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	query := `
		INSERT INTO shared_workflows (
			id, fingerprint, name, author, description, document,
			node_count, downloads, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Fingerprint,
		workflow.Name,
		workflow.Author,
		workflow.Description,
		string(workflow.Document),
		workflow.NodeCount,
		workflow.Downloads,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return persistence.NewWorkflowError("Save", workflow.Fingerprint, persistence.ErrDuplicateFingerprint)
		}

		return fmt.Errorf("failed to insert shared workflow: %w", err)
	}

	return nil
}

// DeleteSharedWorkflow removes a workflow by fingerprint.
func (r *WorkflowRepository) DeleteSharedWorkflow(ctx context.Context, fingerprint string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM shared_workflows WHERE fingerprint = $1", fingerprint)
	if err != nil {
		return fmt.Errorf("failed to delete shared workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", fingerprint, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// IncrementDownloads bumps the download counter atomically and returns the
// new value.
func (r *WorkflowRepository) IncrementDownloads(ctx context.Context, fingerprint string) (int64, error) {
	var downloads int64

	err := r.db.QueryRowContext(ctx, `
		UPDATE shared_workflows
		SET downloads = downloads + 1, updated_at = NOW()
		WHERE fingerprint = $1
		RETURNING downloads
	`, fingerprint).Scan(&downloads)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, persistence.NewWorkflowError("IncrementDownloads", fingerprint, persistence.ErrWorkflowNotFound)
		}

		return 0, fmt.Errorf("failed to increment downloads: %w", err)
	}

	return downloads, nil
}

// TopDownloaded returns up to limit workflows ordered by download count.
func (r *WorkflowRepository) TopDownloaded(ctx context.Context, limit int) ([]*models.TrendingEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT fingerprint, name, author, node_count, downloads
		FROM shared_workflows
		ORDER BY downloads DESC, created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*models.TrendingEntry, 0, limit)

	for rows.Next() {
		var entry models.TrendingEntry

		err := rows.Scan(&entry.Fingerprint, &entry.Name, &entry.Author, &entry.NodeCount, &entry.Downloads)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trending entry: %w", err)
		}

		entries = append(entries, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating trending entries: %w", err)
	}

	return entries, nil
}
