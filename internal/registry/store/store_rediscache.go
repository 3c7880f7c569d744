package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"idregistry/internal/registry/metrics"
	"idregistry/internal/registry/models"
	"idregistry/pkg/domain"
)

const (
	// Redis key prefixes for cached identities
	cacheKeyByID    = "reg:id:"
	cacheKeyByOwner = "reg:owner:"
)

// Cached decorates a Store with a Redis read cache for the two hot lookups,
// FindByOwner and FindByID. Mutations write through and drop the stale owner
// key, so a reader never sees an identity under an owner that no longer holds
// it. Cache failures degrade to the inner store; they are logged, never
// surfaced.
type Cached struct {
	inner   Store
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// CachedOption configures a Cached store.
type CachedOption func(*Cached)

// WithCacheLogger sets the logger for cache degradation events.
func WithCacheLogger(logger *slog.Logger) CachedOption {
	return func(c *Cached) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCacheMetrics sets the metrics sink for hit/miss accounting.
func WithCacheMetrics(m *metrics.Metrics) CachedOption {
	return func(c *Cached) {
		c.metrics = m
	}
}

// NewCached constructs a Redis-backed read cache over inner.
func NewCached(inner Store, client *redis.Client, ttl time.Duration, opts ...CachedOption) *Cached {
	cached := &Cached{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cached)
		}
	}
	return cached
}

func (c *Cached) Allocate(ctx context.Context, owner, recovery domain.Address, now time.Time) (*models.Identity, error) {
	identity, err := c.inner.Allocate(ctx, owner, recovery, now)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, identity)
	return identity, nil
}

func (c *Cached) FindByOwner(ctx context.Context, owner domain.Address) (*models.Identity, error) {
	start := time.Now()
	if identity, ok := c.lookup(ctx, cacheKeyByOwner+owner.String()); ok {
		c.metrics.RecordCacheHit("owner", start)
		return identity, nil
	}

	c.metrics.RecordCacheMiss("owner", start)
	identity, err := c.inner.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, identity)
	return identity, nil
}

func (c *Cached) FindByID(ctx context.Context, identityID domain.IdentityID) (*models.Identity, error) {
	start := time.Now()
	if identity, ok := c.lookup(ctx, cacheKeyByID+identityID.String()); ok {
		c.metrics.RecordCacheHit("id", start)
		return identity, nil
	}

	c.metrics.RecordCacheMiss("id", start)
	identity, err := c.inner.FindByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, identity)
	return identity, nil
}

func (c *Cached) Counter(ctx context.Context) (uint64, error) {
	// The counter backs the status endpoint and must reflect the last
	// allocation immediately, so it is never cached.
	return c.inner.Counter(ctx)
}

func (c *Cached) Execute(ctx context.Context, identityID domain.IdentityID, validate func(*models.Identity) error, mutate func(*models.Identity)) (*models.Identity, error) {
	// Snapshot the pre-mutation owner inside the inner store's atomic step so
	// the stale owner key can be dropped afterwards.
	var previousOwner domain.Address
	wrapped := func(identity *models.Identity) error {
		previousOwner = identity.Owner
		return validate(identity)
	}

	updated, err := c.inner.Execute(ctx, identityID, wrapped, mutate)
	if err != nil {
		return nil, err
	}

	if previousOwner != updated.Owner {
		c.drop(ctx, cacheKeyByOwner+previousOwner.String())
	}
	c.fill(ctx, updated)
	return updated, nil
}

func (c *Cached) lookup(ctx context.Context, key string) (*models.Identity, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("identity cache read failed", "key", key, "error", err)
		return nil, false
	}

	var identity models.Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		c.logger.Warn("identity cache entry corrupt", "key", key, "error", err)
		c.drop(ctx, key)
		return nil, false
	}
	return &identity, true
}

func (c *Cached) fill(ctx context.Context, identity *models.Identity) {
	payload, err := json.Marshal(identity)
	if err != nil {
		c.logger.Warn("identity cache encode failed", "id", identity.ID.String(), "error", err)
		return
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, cacheKeyByID+identity.ID.String(), payload, c.ttl)
	pipe.Set(ctx, cacheKeyByOwner+identity.Owner.String(), payload, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("identity cache write failed", "id", identity.ID.String(), "error", err)
	}
}

func (c *Cached) drop(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("identity cache invalidation failed", "key", key, "error", err)
	}
}
