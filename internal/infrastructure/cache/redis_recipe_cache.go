package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dairyops/backend/internal/domain/costing"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const recipeKeyPrefix = "dairy:recipe:"

// RedisRecipeCache shares recipe definitions between server instances
type RedisRecipeCache struct {
	client     *redis.Client
	ownsClient bool
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisOption configures a RedisRecipeCache
type RedisOption func(*RedisRecipeCache)

// WithRedisTTL sets the expiry written with every entry
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(c *RedisRecipeCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRedisLogger sets the logger
func WithRedisLogger(logger *zap.Logger) RedisOption {
	return func(c *RedisRecipeCache) {
		c.logger = logger
	}
}

// RedisConfig holds the connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisRecipeCache connects to Redis and checks the connection
func NewRedisRecipeCache(cfg RedisConfig, opts ...RedisOption) (*RedisRecipeCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisRecipeCacheWithClient(client, opts...)
	c.ownsClient = true
	return c, nil
}

// NewRedisRecipeCacheWithClient wraps an existing client. The caller keeps
// ownership of the client.
func NewRedisRecipeCacheWithClient(client *redis.Client, opts ...RedisOption) *RedisRecipeCache {
	c := &RedisRecipeCache{
		client: client,
		ttl:    defaultTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func recipeKey(id uuid.UUID) string {
	return recipeKeyPrefix + id.String()
}

// Get returns the cached recipe, or nil on a miss
func (c *RedisRecipeCache) Get(ctx context.Context, id uuid.UUID) (*costing.Recipe, error) {
	data, err := c.client.Get(ctx, recipeKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe from cache: %w", err)
	}

	recipe, err := decodeRecipe(data)
	if err != nil {
		c.logger.Warn("Dropping corrupted recipe cache entry", zap.String("recipe_id", id.String()), zap.Error(err))
		_ = c.client.Del(ctx, recipeKey(id)).Err()
		return nil, nil
	}
	return recipe, nil
}

// Set writes the recipe with the configured TTL
func (c *RedisRecipeCache) Set(ctx context.Context, recipe *costing.Recipe) error {
	if recipe == nil {
		return nil
	}
	data, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}
	if err := c.client.Set(ctx, recipeKey(recipe.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set recipe in cache: %w", err)
	}
	return nil
}

// Delete drops a recipe
func (c *RedisRecipeCache) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, recipeKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete recipe from cache: %w", err)
	}
	return nil
}

// Close closes the client if this cache created it
func (c *RedisRecipeCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

func decodeRecipe(data []byte) (*costing.Recipe, error) {
	var recipe costing.Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return nil, err
	}
	if recipe.ID == uuid.Nil {
		return nil, errors.New("recipe without id")
	}
	return &recipe, nil
}

var _ costing.RecipeCache = (*RedisRecipeCache)(nil)
