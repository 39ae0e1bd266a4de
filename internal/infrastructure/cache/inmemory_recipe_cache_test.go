package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dairyops/backend/internal/domain/costing"
	"github.com/dairyops/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRecipe(t *testing.T, code string) *costing.Recipe {
	t.Helper()

	r, err := costing.NewRecipe(code, "Recipe "+code, decimal.NewFromInt(10), "kg", decimal.NewFromInt(30))
	require.NoError(t, err)
	require.NoError(t, r.SetIngredients([]costing.IngredientLine{
		{MaterialID: uuid.New(), Quantity: decimal.NewFromInt(11)},
	}))
	return r
}

func TestInMemoryRecipeCache_GetSet(t *testing.T) {
	cache := NewInMemoryRecipeCache()
	defer cache.Close()
	ctx := context.Background()

	recipe := newRecipe(t, "YOG")

	got, err := cache.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, recipe))
	got, err = cache.Get(ctx, recipe.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "YOG", got.Code)

	t.Run("returned copies are isolated", func(t *testing.T) {
		got.Ingredients[0].Quantity = decimal.NewFromInt(99)
		again, err := cache.Get(ctx, recipe.ID)
		require.NoError(t, err)
		assert.True(t, again.Ingredients[0].Quantity.Equal(decimal.NewFromInt(11)))
	})

	t.Run("nil recipe is ignored", func(t *testing.T) {
		assert.NoError(t, cache.Set(ctx, nil))
		assert.Equal(t, 1, cache.Len())
	})

	hits, misses, _ := cache.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestInMemoryRecipeCache_TTL(t *testing.T) {
	cache := NewInMemoryRecipeCache(WithTTL(100 * time.Millisecond))
	defer cache.Close()
	ctx := context.Background()

	recipe := newRecipe(t, "YOG")
	require.NoError(t, cache.Set(ctx, recipe))

	got, err := cache.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	assert.Eventually(t, func() bool {
		got, err := cache.Get(ctx, recipe.ID)
		return err == nil && got == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInMemoryRecipeCache_ExpiredEntriesAreDropped(t *testing.T) {
	cache := NewInMemoryRecipeCache(WithTTL(100 * time.Millisecond))
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, newRecipe(t, "A")))
	require.NoError(t, cache.Set(ctx, newRecipe(t, "B")))
	assert.Equal(t, 2, cache.Len())

	assert.Eventually(t, func() bool { return cache.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestInMemoryRecipeCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewInMemoryRecipeCache(WithCapacity(2))
	defer cache.Close()
	ctx := context.Background()

	a, b, c := newRecipe(t, "A"), newRecipe(t, "B"), newRecipe(t, "C")
	require.NoError(t, cache.Set(ctx, a))
	require.NoError(t, cache.Set(ctx, b))

	// touching a makes b the eviction candidate
	_, err := cache.Get(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, c))
	// replacing an entry is not an eviction
	require.NoError(t, cache.Set(ctx, c))

	assert.Equal(t, 2, cache.Len())
	gotB, _ := cache.Get(ctx, b.ID)
	assert.Nil(t, gotB)
	gotA, _ := cache.Get(ctx, a.ID)
	assert.NotNil(t, gotA)

	_, _, evictions := cache.Stats()
	assert.Equal(t, int64(1), evictions)
}

func TestInMemoryRecipeCache_Delete(t *testing.T) {
	cache := NewInMemoryRecipeCache()
	defer cache.Close()
	ctx := context.Background()

	recipe := newRecipe(t, "YOG")
	require.NoError(t, cache.Set(ctx, recipe))
	require.NoError(t, cache.Delete(ctx, recipe.ID))
	require.NoError(t, cache.Delete(ctx, uuid.New()))

	got, err := cache.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryRecipeCache_Concurrent(t *testing.T) {
	cache := NewInMemoryRecipeCache(WithCapacity(8))
	defer cache.Close()
	ctx := context.Background()

	recipes := make([]*costing.Recipe, 16)
	for i := range recipes {
		recipes[i] = newRecipe(t, "R"+uuid.NewString()[:4])
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for j := range recipes {
				r := recipes[(j+offset)%len(recipes)]
				_ = cache.Set(ctx, r)
				_, _ = cache.Get(ctx, r.ID)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 8)
}

func TestInMemoryRecipeCache_CloseTwice(t *testing.T) {
	cache := NewInMemoryRecipeCache()
	require.NoError(t, cache.Set(context.Background(), newRecipe(t, "YOG")))
	assert.NoError(t, cache.Close())
	assert.NoError(t, cache.Close())
	assert.Equal(t, 0, cache.Len())
}

func TestNewRecipeCache_FallsBackToMemory(t *testing.T) {
	c := NewRecipeCache(
		config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1},
		config.CacheConfig{Capacity: 4, TTL: time.Minute},
		zap.NewNop(),
	)
	defer c.Close()

	_, ok := c.(*InMemoryRecipeCache)
	assert.True(t, ok)
}
