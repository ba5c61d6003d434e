// Package rediscache decorates a persistence backend with a read-through
// Redis cache for fingerprint lookups. Listings and counters always hit the
// backing store; only the immutable document records are cached.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/webrpa/hub/pkg/models"
	"github.com/webrpa/hub/pkg/persistence"
)

const (
	keyPrefix  = "webrpa:workflow:"
	defaultTTL = 15 * time.Minute
)

// Persistence wraps another persistence.Persistence with a Redis cache.
type Persistence struct {
	backend persistence.Persistence
	client  redis.UniversalClient
	logger  *slog.Logger
	ttl     time.Duration
}

// NewPersistence creates the cache decorator from a Redis URL.
func NewPersistence(backend persistence.Persistence, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Persistence{
		backend: backend,
		client:  redis.NewClient(options),
		logger:  logger,
		ttl:     defaultTTL,
	}, nil
}

func cacheKey(fingerprint string) string {
	return keyPrefix + fingerprint
}

// SharedWorkflowByFingerprint serves from cache when possible. Cache
// failures degrade to the backing store, never to an error.
func (p *Persistence) SharedWorkflowByFingerprint(ctx context.Context, fingerprint string) (*models.SharedWorkflow, error) {
	cached, err := p.client.Get(ctx, cacheKey(fingerprint)).Bytes()
	if err == nil {
		var workflow models.SharedWorkflow
		if err := json.Unmarshal(cached, &workflow); err == nil {
			return &workflow, nil
		}

		p.logger.WarnContext(ctx, "discarding undecodable cache entry", "fingerprint", fingerprint)
	} else if !errors.Is(err, redis.Nil) {
		p.logger.WarnContext(ctx, "redis lookup failed, falling back to store", "error", err)
	}

	workflow, err := p.backend.SharedWorkflowByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, err
	}

	p.store(ctx, workflow)

	return workflow, nil
}

func (p *Persistence) store(ctx context.Context, workflow *models.SharedWorkflow) {
	encoded, err := json.Marshal(workflow)
	if err != nil {
		return
	}

	if err := p.client.Set(ctx, cacheKey(workflow.Fingerprint), encoded, p.ttl).Err(); err != nil {
		p.logger.WarnContext(ctx, "failed to populate cache", "error", err)
	}
}

func (p *Persistence) evict(ctx context.Context, fingerprint string) {
	if err := p.client.Del(ctx, cacheKey(fingerprint)).Err(); err != nil {
		p.logger.WarnContext(ctx, "failed to evict cache entry", "fingerprint", fingerprint, "error", err)
	}
}

func (p *Persistence) SharedWorkflows(ctx context.Context, opts persistence.ListOptions) ([]*models.SharedWorkflow, error) {
	return p.backend.SharedWorkflows(ctx, opts)
}

func (p *Persistence) SaveSharedWorkflow(ctx context.Context, workflow *models.SharedWorkflow) error {
	if err := p.backend.SaveSharedWorkflow(ctx, workflow); err != nil {
		return err
	}

	p.store(ctx, workflow)

	return nil
}

func (p *Persistence) DeleteSharedWorkflow(ctx context.Context, fingerprint string) error {
	if err := p.backend.DeleteSharedWorkflow(ctx, fingerprint); err != nil {
		return err
	}

	p.evict(ctx, fingerprint)

	return nil
}

func (p *Persistence) IncrementDownloads(ctx context.Context, fingerprint string) (int64, error) {
	downloads, err := p.backend.IncrementDownloads(ctx, fingerprint)
	if err != nil {
		return 0, err
	}

	// The cached record carries a stale counter otherwise.
	p.evict(ctx, fingerprint)

	return downloads, nil
}

func (p *Persistence) TopDownloaded(ctx context.Context, limit int) ([]*models.TrendingEntry, error) {
	return p.backend.TopDownloaded(ctx, limit)
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return p.backend.HealthCheck(ctx)
}

func (p *Persistence) Close(ctx context.Context) error {
	if err := p.client.Close(); err != nil {
		p.logger.WarnContext(ctx, "failed to close redis client", "error", err)
	}

	return p.backend.Close(ctx)
}
