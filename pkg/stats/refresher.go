// Package stats maintains the download-ranked trending listing.
package stats

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/webrpa/hub/pkg/eventbus"
	"github.com/webrpa/hub/pkg/events"
	"github.com/webrpa/hub/pkg/models"
	"github.com/webrpa/hub/pkg/services"
)

// DefaultSchedule recomputes the ranking every five minutes.
const DefaultSchedule = "*/5 * * * *"

// Refresher keeps an in-memory trending snapshot, recomputed on a cron
// schedule. Download events mark the snapshot dirty; a tick with no new
// downloads skips the storage round-trip.
type Refresher struct {
	service  *services.Workflow
	logger   *slog.Logger
	cron     *cron.Cron
	schedule string
	limit    int
	dirty    atomic.Bool

	mu      sync.RWMutex
	entries []*models.TrendingEntry
}

// NewRefresher creates a trending refresher. An empty schedule falls back
// to DefaultSchedule.
func NewRefresher(service *services.Workflow, logger *slog.Logger, schedule string, limit int) *Refresher {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if limit <= 0 {
		limit = 10
	}

	return &Refresher{
		service:  service,
		logger:   logger,
		cron:     cron.New(),
		schedule: schedule,
		limit:    limit,
	}
}

// Bind registers the download-event handler that marks the snapshot dirty.
func (r *Refresher) Bind(eventBus eventbus.EventBus) error {
	return eventBus.Handle(events.WorkflowDownloadedEvent, func(ctx context.Context, event any) error {
		r.dirty.Store(true)

		return nil
	})
}

// Start computes the initial snapshot and begins the cron schedule.
func (r *Refresher) Start(ctx context.Context) error {
	r.Refresh(ctx)

	_, err := r.cron.AddFunc(r.schedule, func() {
		if !r.dirty.Swap(false) {
			return
		}

		r.Refresh(context.Background())
	})
	if err != nil {
		return err
	}

	r.cron.Start()

	return nil
}

// Stop halts the cron schedule.
func (r *Refresher) Stop() {
	r.cron.Stop()
}

// Refresh recomputes the snapshot immediately.
func (r *Refresher) Refresh(ctx context.Context) {
	entries, err := r.service.Trending(ctx, r.limit)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to refresh trending snapshot", "error", err)

		return
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
}

// Entries returns the current snapshot.
func (r *Refresher) Entries() []*models.TrendingEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.entries
}
