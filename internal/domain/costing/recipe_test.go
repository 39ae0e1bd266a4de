package costing

import (
	"testing"
	"time"

	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func newYogurt(t *testing.T, milkID, cultureID uuid.UUID) *Recipe {
	t.Helper()
	r, err := NewRecipe("yog-1", "Plain yogurt", d(10), "kg", d(40))
	require.NoError(t, err)
	require.NoError(t, r.SetIngredients([]IngredientLine{
		{MaterialID: milkID, Quantity: d(12)},
		{MaterialID: cultureID, Quantity: d(0.05)},
	}))
	return r
}

func TestNewRecipe(t *testing.T) {
	r, err := NewRecipe("yog-1", "Plain yogurt", d(10), "kg", d(40))
	require.NoError(t, err)
	assert.Equal(t, "YOG-1", r.Code)

	_, err = NewRecipe("", "x", d(1), "kg", d(1))
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
	_, err = NewRecipe("x", "x", d(0), "kg", d(1))
	assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
}

func TestRecipe_SetIngredients(t *testing.T) {
	r, err := NewRecipe("r", "r", d(1), "kg", d(1))
	require.NoError(t, err)
	id := uuid.New()

	assert.ErrorIs(t, r.SetIngredients(nil), shared.ErrValidationFailed)
	assert.ErrorIs(t, r.SetIngredients([]IngredientLine{{MaterialID: id, Quantity: d(0)}}), shared.ErrInvalidQuantity)
	assert.ErrorIs(t, r.SetIngredients([]IngredientLine{
		{MaterialID: id, Quantity: d(1)},
		{MaterialID: id, Quantity: d(2)},
	}), shared.ErrValidationFailed)

	require.NoError(t, r.SetIngredients([]IngredientLine{{MaterialID: id, Quantity: d(1)}}))
	require.Len(t, r.Ingredients, 1)
	assert.Equal(t, r.ID, r.Ingredients[0].RecipeID)
	assert.Equal(t, []uuid.UUID{id}, r.MaterialIDs())
}

func TestCostRecipe(t *testing.T) {
	milkID, cultureID := uuid.New(), uuid.New()
	r := newYogurt(t, milkID, cultureID)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	quotes := map[uuid.UUID]inventory.PriceQuote{
		milkID: {
			MaterialID:          milkID,
			UnitPrice:           d(1.10),
			Source:              inventory.PriceSourceFIFOBatch,
			NewestPrice:         d(1.30),
			CostIncreaseWarning: true,
		},
		cultureID: {
			MaterialID:  cultureID,
			UnitPrice:   d(80),
			Source:      inventory.PriceSourceStandardCost,
			NewestPrice: d(80),
		},
	}

	rc, err := CostRecipe(r, quotes, now)
	require.NoError(t, err)

	// 12 × 1.10 + 0.05 × 80 = 13.2 + 4 = 17.2
	assert.Equal(t, "17.2", rc.TotalCost.String())
	assert.Equal(t, "1.72", rc.UnitCost.String())
	assert.Equal(t, "22.8", rc.Margin.String())
	assert.Equal(t, "57", rc.MarginPercent.String())
	// 12 × 1.30 + 4 = 19.6
	assert.Equal(t, "19.6", rc.ProjectedTotalCost.String())
	assert.True(t, rc.CostIncreaseWarning)
	require.Len(t, rc.Lines, 2)
	assert.Equal(t, inventory.PriceSourceFIFOBatch, rc.Lines[0].PriceSource)
	assert.Equal(t, now, rc.ComputedAt)
}

func TestCostRecipe_MissingQuote(t *testing.T) {
	milkID, cultureID := uuid.New(), uuid.New()
	r := newYogurt(t, milkID, cultureID)

	_, err := CostRecipe(r, map[uuid.UUID]inventory.PriceQuote{
		milkID: {MaterialID: milkID, UnitPrice: d(1)},
	}, time.Now())
	assert.ErrorIs(t, err, shared.ErrMaterialNotFound)
}

func TestCostRecipe_NegativeMargin(t *testing.T) {
	milkID, cultureID := uuid.New(), uuid.New()
	r := newYogurt(t, milkID, cultureID)
	require.NoError(t, r.Update(r.Name, r.YieldQuantity, r.YieldUnit, d(10)))

	rc, err := CostRecipe(r, map[uuid.UUID]inventory.PriceQuote{
		milkID:    {UnitPrice: d(1), NewestPrice: d(1)},
		cultureID: {UnitPrice: d(0), NewestPrice: d(0)},
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "-2", rc.Margin.String())
	assert.Equal(t, "-20", rc.MarginPercent.String())
	assert.False(t, rc.CostIncreaseWarning)
}
