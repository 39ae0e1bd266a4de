package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dairyops/backend/internal/domain/costing"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	defaultCapacity = 256
	defaultTTL      = 10 * time.Minute
)

// InMemoryRecipeCache is a bounded LRU of recipe definitions with a
// per-entry TTL. The least recently used entry is evicted when full and
// expired entries are dropped by the LRU's own expiry buckets.
type InMemoryRecipeCache struct {
	lru      *expirable.LRU[uuid.UUID, *costing.Recipe]
	capacity int
	ttl      time.Duration
	logger   *zap.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// InMemoryOption configures an InMemoryRecipeCache
type InMemoryOption func(*InMemoryRecipeCache)

// WithCapacity bounds the number of cached recipes
func WithCapacity(capacity int) InMemoryOption {
	return func(c *InMemoryRecipeCache) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithTTL sets how long an entry stays valid
func WithTTL(ttl time.Duration) InMemoryOption {
	return func(c *InMemoryRecipeCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) InMemoryOption {
	return func(c *InMemoryRecipeCache) {
		c.logger = logger
	}
}

// NewInMemoryRecipeCache creates the cache
func NewInMemoryRecipeCache(opts ...InMemoryOption) *InMemoryRecipeCache {
	c := &InMemoryRecipeCache{
		capacity: defaultCapacity,
		ttl:      defaultTTL,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.lru = expirable.NewLRU[uuid.UUID, *costing.Recipe](c.capacity, nil, c.ttl)
	return c
}

// Get returns a copy of the cached recipe, or nil on a miss
func (c *InMemoryRecipeCache) Get(_ context.Context, id uuid.UUID) (*costing.Recipe, error) {
	if recipe, ok := c.lru.Get(id); ok {
		c.hits.Add(1)
		return recipe.Clone(), nil
	}
	c.misses.Add(1)
	return nil, nil
}

// Set stores a copy of recipe, evicting the least recently used entry
// when the cache is full
func (c *InMemoryRecipeCache) Set(_ context.Context, recipe *costing.Recipe) error {
	if recipe == nil {
		return nil
	}
	if evicted := c.lru.Add(recipe.ID, recipe.Clone()); evicted {
		c.evictions.Add(1)
		c.logger.Debug("Evicted least recently used recipe", zap.Int("capacity", c.capacity))
	}
	return nil
}

// Delete drops a recipe
func (c *InMemoryRecipeCache) Delete(_ context.Context, id uuid.UUID) error {
	c.lru.Remove(id)
	return nil
}

// Len returns the number of entries, expired ones included until their
// expiry bucket is cleared
func (c *InMemoryRecipeCache) Len() int {
	return c.lru.Len()
}

// Stats returns hit, miss and eviction counters
func (c *InMemoryRecipeCache) Stats() (hits, misses, evictions int64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}

// Close drops every entry
func (c *InMemoryRecipeCache) Close() error {
	c.lru.Purge()
	return nil
}

var _ costing.RecipeCache = (*InMemoryRecipeCache)(nil)
