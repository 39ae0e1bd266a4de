package handler

import (
	"net/http"
	"testing"

	costingapp "github.com/dairyops/backend/internal/application/costing"
	"github.com/dairyops/backend/internal/domain/costing"
	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostingHandler_ResolvePrice(t *testing.T) {
	a := newAPI(t)
	milk := a.registerMaterial(t, "MILK")

	w := a.do(t, http.MethodGet, "/api/v1/materials/"+milk.ID.String()+"/price", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var quote inventory.PriceQuote
	data(t, w, &quote)
	assert.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("0.30")))
	assert.Equal(t, inventory.PriceSourceStandardCost, quote.Source)

	a.receive(t, milk.ID, "10", "0.40", "2026-03-15T08:00:00Z")
	a.receive(t, milk.ID, "10", "0.55", "2026-03-15T20:00:00Z")

	w = a.do(t, http.MethodGet, "/api/v1/materials/"+milk.ID.String()+"/price", nil)
	data(t, w, &quote)
	assert.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("0.40")))
	assert.Equal(t, inventory.PriceSourceFIFOBatch, quote.Source)
	assert.True(t, quote.CostIncreaseWarning)

	w = a.do(t, http.MethodGet, "/api/v1/materials/"+uuid.NewString()+"/price", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCostingHandler_RecipeLifecycle(t *testing.T) {
	a := newAPI(t)
	milk := a.registerMaterial(t, "MILK")
	w := a.do(t, http.MethodPost, "/api/v1/materials", map[string]any{
		"code": "SUGAR", "name": "Sugar", "unit": "kg", "standard_cost": "1.20",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sugar struct {
		ID uuid.UUID `json:"id"`
	}
	data(t, w, &sugar)
	a.receive(t, milk.ID, "10", "0.40", "2026-03-15T08:00:00Z")
	a.receive(t, milk.ID, "10", "0.55", "2026-03-15T20:00:00Z")

	recipe := map[string]any{
		"code":           "YOG-500",
		"name":           "Sweet yogurt",
		"yield_quantity": "4",
		"yield_unit":     "cup",
		"selling_price":  "5",
		"ingredients": []map[string]any{
			{"material_id": milk.ID, "quantity": "2"},
			{"material_id": sugar.ID, "quantity": "0.5"},
		},
	}
	w = a.do(t, http.MethodPost, "/api/v1/recipes", recipe)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created costingapp.RecipeResponse
	data(t, w, &created)
	assert.Equal(t, "YOG-500", created.Code)
	require.Len(t, created.Ingredients, 2)

	w = a.do(t, http.MethodGet, "/api/v1/recipes/"+created.ID.String()+"/cost", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cost costing.RecipeCost
	data(t, w, &cost)
	require.Len(t, cost.Lines, 2)
	assert.True(t, cost.TotalCost.Equal(decimal.RequireFromString("1.40")), cost.TotalCost.String())
	assert.True(t, cost.UnitCost.Equal(decimal.RequireFromString("0.35")))
	assert.True(t, cost.Margin.Equal(decimal.RequireFromString("3.60")))
	assert.True(t, cost.CostIncreaseWarning)

	t.Run("update keeps the code", func(t *testing.T) {
		recipe["name"] = "Plain yogurt"
		recipe["ingredients"] = []map[string]any{{"material_id": milk.ID, "quantity": "3"}}
		w := a.do(t, http.MethodPut, "/api/v1/recipes/"+created.ID.String(), recipe)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var updated costingapp.RecipeResponse
		data(t, w, &updated)
		assert.Equal(t, "Plain yogurt", updated.Name)
		assert.Len(t, updated.Ingredients, 1)

		w = a.do(t, http.MethodGet, "/api/v1/recipes/"+created.ID.String()+"/cost", nil)
		data(t, w, &cost)
		assert.True(t, cost.TotalCost.Equal(decimal.RequireFromString("1.20")), cost.TotalCost.String())

		recipe["code"] = "YOG-750"
		w = a.do(t, http.MethodPut, "/api/v1/recipes/"+created.ID.String(), recipe)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, shared.CodeValidationFailed, decodeError(t, w).Error.Code)
	})

	w = a.do(t, http.MethodGet, "/api/v1/recipes?search=yog", nil)
	var list []costingapp.RecipeResponse
	data(t, w, &list)
	assert.Len(t, list, 1)
}

func TestCostingHandler_RecipeErrors(t *testing.T) {
	a := newAPI(t)
	milk := a.registerMaterial(t, "MILK")

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
		detail string
	}{
		{
			name:   "no ingredients",
			body:   map[string]any{"code": "R1", "name": "R1", "yield_quantity": "1", "yield_unit": "kg", "ingredients": []any{}},
			status: http.StatusBadRequest,
			code:   shared.CodeValidationFailed,
			detail: "ingredients",
		},
		{
			name: "unknown material",
			body: map[string]any{
				"code": "R1", "name": "R1", "yield_quantity": "1", "yield_unit": "kg",
				"ingredients": []map[string]any{{"material_id": uuid.NewString(), "quantity": "1"}},
			},
			status: http.StatusNotFound,
			code:   shared.CodeMaterialNotFound,
			detail: "material_id",
		},
		{
			name: "zero quantity",
			body: map[string]any{
				"code": "R1", "name": "R1", "yield_quantity": "1", "yield_unit": "kg",
				"ingredients": []map[string]any{{"material_id": milk.ID, "quantity": "0"}},
			},
			status: http.StatusBadRequest,
			code:   shared.CodeInvalidQuantity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, "/api/v1/recipes", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			body := decodeError(t, w)
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.detail != "" {
				assert.Contains(t, body.Error.Details, tt.detail)
			}
		})
	}

	w := a.do(t, http.MethodGet, "/api/v1/recipes/"+uuid.NewString()+"/cost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, shared.CodeRecipeNotFound, decodeError(t, w).Error.Code)
}
