// Package file provides file-based persistence for shared workflows, used
// in development and tests. One JSON file per fingerprint.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/webrpa/hub/pkg/models"
	"github.com/webrpa/hub/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local filesystem.
type Persistence struct {
	root string
	mu   sync.Mutex
}

// NewPersistence creates a file persistence rooted at the given directory.
// Accepts plain paths and file:// URLs.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

func (p *Persistence) path(fingerprint string) string {
	return filepath.Join(p.root, fingerprint+".json")
}

func (p *Persistence) read(fingerprint string) (*models.SharedWorkflow, error) {
	data, err := os.ReadFile(p.path(fingerprint))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	var workflow models.SharedWorkflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow file: %w", err)
	}

	return &workflow, nil
}

func (p *Persistence) write(workflow *models.SharedWorkflow) error {
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to encode workflow: %w", err)
	}

	if err := os.WriteFile(p.path(workflow.Fingerprint), data, 0o644); err != nil {
		return fmt.Errorf("failed to write workflow file: %w", err)
	}

	return nil
}

func (p *Persistence) readAll() ([]*models.SharedWorkflow, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}

	workflows := make([]*models.SharedWorkflow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		workflow, err := p.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

// SharedWorkflows lists stored workflows with filtering, sorting, and
// pagination applied in memory.
func (p *Persistence) SharedWorkflows(ctx context.Context, opts persistence.ListOptions) ([]*models.SharedWorkflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflows, err := p.readAll()
	if err != nil {
		return nil, err
	}

	if opts.Author != "" {
		filtered := workflows[:0]

		for _, workflow := range workflows {
			if workflow.Author == opts.Author {
				filtered = append(filtered, workflow)
			}
		}

		workflows = filtered
	}

	sortWorkflows(workflows, opts.SortBy, opts.SortOrder)

	if opts.Offset > 0 {
		if opts.Offset >= len(workflows) {
			return []*models.SharedWorkflow{}, nil
		}

		workflows = workflows[opts.Offset:]
	}

	if opts.Limit > 0 && opts.Limit < len(workflows) {
		workflows = workflows[:opts.Limit]
	}

	return workflows, nil
}

func sortWorkflows(workflows []*models.SharedWorkflow, sortBy, sortOrder string) {
	less := func(i, j int) bool {
		switch sortBy {
		case "downloads":
			return workflows[i].Downloads < workflows[j].Downloads
		case "name":
			return workflows[i].Name < workflows[j].Name
		default:
			return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
		}
	}

	if sortOrder == "asc" {
		sort.SliceStable(workflows, less)
	} else {
		sort.SliceStable(workflows, func(i, j int) bool { return less(j, i) })
	}
}

// SharedWorkflowByFingerprint returns the stored workflow or ErrWorkflowNotFound.
func (p *Persistence) SharedWorkflowByFingerprint(ctx context.Context, fingerprint string) (*models.SharedWorkflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.read(fingerprint)
}

// SaveSharedWorkflow stores a workflow, refusing fingerprint duplicates.
func (p *Persistence) SaveSharedWorkflow(ctx context.Context, workflow *models.SharedWorkflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := os.Stat(p.path(workflow.Fingerprint)); err == nil {
		return persistence.NewWorkflowError("Save", workflow.Fingerprint, persistence.ErrDuplicateFingerprint)
	}

	return p.write(workflow)
}

// DeleteSharedWorkflow removes a stored workflow by fingerprint.
func (p *Persistence) DeleteSharedWorkflow(ctx context.Context, fingerprint string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := os.Remove(p.path(fingerprint))
	if errors.Is(err, os.ErrNotExist) {
		return persistence.NewWorkflowError("Delete", fingerprint, persistence.ErrWorkflowNotFound)
	}

	return err
}

// IncrementDownloads bumps the download counter and returns the new value.
func (p *Persistence) IncrementDownloads(ctx context.Context, fingerprint string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflow, err := p.read(fingerprint)
	if err != nil {
		return 0, err
	}

	workflow.Downloads++

	if err := p.write(workflow); err != nil {
		return 0, err
	}

	return workflow.Downloads, nil
}

// TopDownloaded returns up to limit workflows ordered by download count.
func (p *Persistence) TopDownloaded(ctx context.Context, limit int) ([]*models.TrendingEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflows, err := p.readAll()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].Downloads > workflows[j].Downloads
	})

	if limit > 0 && limit < len(workflows) {
		workflows = workflows[:limit]
	}

	entries := make([]*models.TrendingEntry, 0, len(workflows))
	for _, workflow := range workflows {
		entries = append(entries, &models.TrendingEntry{
			Fingerprint: workflow.Fingerprint,
			Name:        workflow.Name,
			Author:      workflow.Author,
			NodeCount:   workflow.NodeCount,
			Downloads:   workflow.Downloads,
		})
	}

	return entries, nil
}

// HealthCheck verifies the storage directory exists.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file persistence.
func (p *Persistence) Close(ctx context.Context) error {
	return nil
}
