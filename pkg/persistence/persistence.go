// Package persistence provides the storage abstraction for shared workflows.
package persistence

import (
	"context"

	"github.com/webrpa/hub/pkg/models"
)

// ListOptions controls pagination and ordering of shared-workflow listings.
type ListOptions struct {
	Limit     int
	Offset    int
	Author    string
	SortBy    string // created_at, downloads, name
	SortOrder string // asc, desc
}

// Persistence stores shared workflow documents keyed by fingerprint.
//
// Implementations must enforce fingerprint uniqueness on save (returning
// ErrDuplicateFingerprint) and must hand back the stored document bytes
// unmodified on read.
type Persistence interface {
	SharedWorkflows(ctx context.Context, opts ListOptions) ([]*models.SharedWorkflow, error)
	SharedWorkflowByFingerprint(ctx context.Context, fingerprint string) (*models.SharedWorkflow, error)
	SaveSharedWorkflow(ctx context.Context, workflow *models.SharedWorkflow) error
	DeleteSharedWorkflow(ctx context.Context, fingerprint string) error
	IncrementDownloads(ctx context.Context, fingerprint string) (int64, error)
	TopDownloaded(ctx context.Context, limit int) ([]*models.TrendingEntry, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
