package costing_test

import (
	"context"
	"testing"
	"time"

	appcosting "github.com/dairyops/backend/internal/application/costing"
	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/dairyops/backend/internal/infrastructure/cache"
	"github.com/dairyops/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func at(day int) time.Time {
	return time.Date(2026, time.March, day, 8, 0, 0, 0, time.UTC)
}

type fixture struct {
	db      *gorm.DB
	service *appcosting.CostingService
	cache   *cache.InMemoryRecipeCache
	batches *persistence.GormBatchRepository
	milk    uuid.UUID
	sugar   uuid.UUID
	cream   uuid.UUID
	oldMilk *inventory.Batch
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database, err := persistence.Open(sqlite.Open(":memory:"), persistence.Options{})
	require.NoError(t, err)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.DB.AutoMigrate(persistence.Models()...))

	materials := persistence.NewGormMaterialRepository(database.DB)
	f := &fixture{
		db:      database.DB,
		batches: persistence.NewGormBatchRepository(database.DB),
		cache:   cache.NewInMemoryRecipeCache(cache.WithCapacity(8), cache.WithTTL(time.Minute)),
	}
	t.Cleanup(func() { _ = f.cache.Close() })

	material := func(code, standardCost string) uuid.UUID {
		m, err := inventory.NewMaterial(code, code, "L", "dairy")
		require.NoError(t, err)
		require.NoError(t, m.SetStandardCost(dec(standardCost)))
		require.NoError(t, materials.Save(ctx, m))
		return m.ID
	}
	batch := func(materialID uuid.UUID, qty, cost string, receivedAt time.Time) *inventory.Batch {
		b, err := inventory.NewBatch(inventory.BatchReceipt{
			MaterialID: materialID, Quantity: dec(qty), UnitCost: dec(cost), ReceivedAt: receivedAt,
		})
		require.NoError(t, err)
		require.NoError(t, f.batches.Save(ctx, b))
		return b
	}

	f.milk = material("MILK", "0.30")
	f.sugar = material("SUGAR", "1.20")
	f.cream = material("CREAM", "1.00")

	f.oldMilk = batch(f.milk, "10", "0.40", at(1))
	batch(f.milk, "10", "0.55", at(2))

	spent := batch(f.cream, "4", "2.00", at(1))
	_, err = spent.Consume(dec("4"))
	require.NoError(t, err)
	require.NoError(t, f.batches.SaveAll(ctx, []*inventory.Batch{spent}))

	f.service = appcosting.NewCostingService(
		materials, f.batches, persistence.NewGormRecipeRepository(database.DB), f.cache, zap.NewNop())
	f.service.SetClock(func() time.Time { return at(10) })
	return f
}

func (f *fixture) saveRecipe(t *testing.T) uuid.UUID {
	t.Helper()
	resp, err := f.service.SaveRecipe(context.Background(), nil, appcosting.SaveRecipeCommand{
		Code:          "yog-500",
		Name:          "Sweet yogurt",
		YieldQuantity: dec("4"),
		YieldUnit:     "cup",
		SellingPrice:  dec("5"),
		Ingredients: []appcosting.IngredientInput{
			{MaterialID: f.milk, Quantity: dec("2")},
			{MaterialID: f.sugar, Quantity: dec("0.5")},
			{MaterialID: f.cream, Quantity: dec("0.25")},
		},
	})
	require.NoError(t, err)
	return resp.ID
}

func TestCostingService_ResolvePrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		material uuid.UUID
		price    string
		source   inventory.PriceSource
		warning  bool
	}{
		{"oldest batch with stock", f.milk, "0.40", inventory.PriceSourceFIFOBatch, true},
		{"newest batch when none has stock", f.cream, "2.00", inventory.PriceSourceNewestBatch, false},
		{"standard cost without batches", f.sugar, "1.20", inventory.PriceSourceStandardCost, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := f.service.ResolvePrice(ctx, tt.material)
			require.NoError(t, err)
			assert.True(t, q.UnitPrice.Equal(dec(tt.price)), "price %s", q.UnitPrice)
			assert.Equal(t, tt.source, q.Source)
			assert.Equal(t, tt.warning, q.CostIncreaseWarning)
		})
	}

	_, err := f.service.ResolvePrice(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrMaterialNotFound)
}

func TestCostingService_CostRecipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.saveRecipe(t)

	cost, err := f.service.CostRecipe(ctx, id)
	require.NoError(t, err)
	require.Len(t, cost.Lines, 3)
	assert.True(t, cost.TotalCost.Equal(dec("1.90")), "total %s", cost.TotalCost)
	assert.True(t, cost.UnitCost.Equal(dec("0.475")))
	assert.True(t, cost.Margin.Equal(dec("3.10")))
	assert.True(t, cost.MarginPercent.Equal(dec("62")))
	assert.True(t, cost.ProjectedTotalCost.Equal(dec("2.20")))
	assert.True(t, cost.CostIncreaseWarning)

	t.Run("totals follow the ledger", func(t *testing.T) {
		_, err := f.oldMilk.Consume(dec("10"))
		require.NoError(t, err)
		require.NoError(t, f.batches.SaveAll(ctx, []*inventory.Batch{f.oldMilk}))

		cost, err := f.service.CostRecipe(ctx, id)
		require.NoError(t, err)
		assert.True(t, cost.TotalCost.Equal(dec("2.20")), "total %s", cost.TotalCost)
		assert.False(t, cost.CostIncreaseWarning)
	})

	_, err = f.service.CostRecipe(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrRecipeNotFound)
}

func TestCostingService_RecipeCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.saveRecipe(t)

	_, err := f.service.GetRecipe(ctx, id)
	require.NoError(t, err)
	_, err = f.service.GetRecipe(ctx, id)
	require.NoError(t, err)
	hits, misses, _ := f.cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	updated, err := f.service.SaveRecipe(ctx, &id, appcosting.SaveRecipeCommand{
		Code:          "YOG-500",
		Name:          "Sweet yogurt",
		YieldQuantity: dec("4"),
		YieldUnit:     "cup",
		SellingPrice:  dec("5"),
		Ingredients:   []appcosting.IngredientInput{{MaterialID: f.milk, Quantity: dec("3")}},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Ingredients, 1)
	assert.Equal(t, 0, f.cache.Len())

	cost, err := f.service.CostRecipe(ctx, id)
	require.NoError(t, err)
	assert.True(t, cost.TotalCost.Equal(dec("1.20")))
}

func TestCostingService_SaveRecipeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.saveRecipe(t)

	base := appcosting.SaveRecipeCommand{
		Code: "NEW", Name: "New", YieldQuantity: dec("1"), YieldUnit: "kg",
		Ingredients: []appcosting.IngredientInput{{MaterialID: f.milk, Quantity: dec("1")}},
	}

	t.Run("requires ingredients", func(t *testing.T) {
		cmd := base
		cmd.Ingredients = nil
		_, err := f.service.SaveRecipe(ctx, nil, cmd)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("unknown material", func(t *testing.T) {
		cmd := base
		cmd.Ingredients = []appcosting.IngredientInput{{MaterialID: uuid.New(), Quantity: dec("1")}}
		_, err := f.service.SaveRecipe(ctx, nil, cmd)
		assert.ErrorIs(t, err, shared.ErrMaterialNotFound)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		cmd := base
		cmd.Ingredients = []appcosting.IngredientInput{{MaterialID: f.milk, Quantity: dec("0")}}
		_, err := f.service.SaveRecipe(ctx, nil, cmd)
		assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
	})

	t.Run("code is immutable", func(t *testing.T) {
		_, err := f.service.SaveRecipe(ctx, &id, base)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("duplicate code", func(t *testing.T) {
		cmd := base
		cmd.Code = "YOG-500"
		_, err := f.service.SaveRecipe(ctx, nil, cmd)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}
