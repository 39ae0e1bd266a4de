package cache

import (
	"github.com/dairyops/backend/internal/domain/costing"
	"github.com/dairyops/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// RecipeCache is a costing.RecipeCache that holds resources
type RecipeCache interface {
	costing.RecipeCache
	Close() error
}

// NewRecipeCache returns the Redis cache when Redis is enabled and
// reachable, and the in-memory cache otherwise. An unreachable Redis is
// logged and never fails startup.
func NewRecipeCache(redisCfg config.RedisConfig, cacheCfg config.CacheConfig, logger *zap.Logger) RecipeCache {
	if redisCfg.Enabled {
		redisCache, err := NewRedisRecipeCache(RedisConfig{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		}, WithRedisTTL(cacheCfg.TTL), WithRedisLogger(logger))
		if err == nil {
			logger.Info("Using Redis recipe cache", zap.String("addr", redisCfg.Addr()))
			return redisCache
		}
		logger.Warn("Redis unavailable, falling back to in-memory recipe cache", zap.Error(err))
	}

	logger.Info("Using in-memory recipe cache",
		zap.Int("capacity", cacheCfg.Capacity),
		zap.Duration("ttl", cacheCfg.TTL))
	return NewInMemoryRecipeCache(
		WithCapacity(cacheCfg.Capacity),
		WithTTL(cacheCfg.TTL),
		WithLogger(logger),
	)
}
