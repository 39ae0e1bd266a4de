package costing

import (
	"time"

	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IngredientCost is one priced recipe line
type IngredientCost struct {
	MaterialID          uuid.UUID             `json:"material_id"`
	Quantity            decimal.Decimal       `json:"quantity"`
	UnitPrice           decimal.Decimal       `json:"unit_price"`
	PriceSource         inventory.PriceSource `json:"price_source"`
	LineCost            decimal.Decimal       `json:"line_cost"`
	NewestPrice         decimal.Decimal       `json:"newest_price"`
	CostIncreaseWarning bool                  `json:"cost_increase_warning"`
}

// RecipeCost is the costed view of a recipe. It is computed on every read.
type RecipeCost struct {
	RecipeID            uuid.UUID        `json:"recipe_id"`
	RecipeCode          string           `json:"recipe_code"`
	RecipeName          string           `json:"recipe_name"`
	YieldQuantity       decimal.Decimal  `json:"yield_quantity"`
	Lines               []IngredientCost `json:"lines"`
	TotalCost           decimal.Decimal  `json:"total_cost"`
	UnitCost            decimal.Decimal  `json:"unit_cost"`
	ProjectedTotalCost  decimal.Decimal  `json:"projected_total_cost"`
	SellingPrice        decimal.Decimal  `json:"selling_price"`
	Margin              decimal.Decimal  `json:"margin"`
	MarginPercent       decimal.Decimal  `json:"margin_percent"`
	CostIncreaseWarning bool             `json:"cost_increase_warning"`
	ComputedAt          time.Time        `json:"computed_at"`
}

// CostRecipe prices each ingredient as quantity × resolved price and sums
// them. quotes must contain a quote for every ingredient material.
func CostRecipe(r *Recipe, quotes map[uuid.UUID]inventory.PriceQuote, now time.Time) (*RecipeCost, error) {
	rc := &RecipeCost{
		RecipeID:           r.ID,
		RecipeCode:         r.Code,
		RecipeName:         r.Name,
		YieldQuantity:      r.YieldQuantity,
		Lines:              make([]IngredientCost, 0, len(r.Ingredients)),
		TotalCost:          decimal.Zero,
		ProjectedTotalCost: decimal.Zero,
		SellingPrice:       r.SellingPrice,
		ComputedAt:         now,
	}

	for _, ing := range r.Ingredients {
		q, ok := quotes[ing.MaterialID]
		if !ok {
			return nil, shared.ErrMaterialNotFound.WithDetails(map[string]any{"material_id": ing.MaterialID.String()})
		}
		line := IngredientCost{
			MaterialID:          ing.MaterialID,
			Quantity:            ing.Quantity,
			UnitPrice:           q.UnitPrice,
			PriceSource:         q.Source,
			LineCost:            ing.Quantity.Mul(q.UnitPrice).Round(4),
			NewestPrice:         q.NewestPrice,
			CostIncreaseWarning: q.CostIncreaseWarning,
		}
		rc.Lines = append(rc.Lines, line)
		rc.TotalCost = rc.TotalCost.Add(line.LineCost)
		rc.ProjectedTotalCost = rc.ProjectedTotalCost.Add(ing.Quantity.Mul(q.NewestPrice).Round(4))
		rc.CostIncreaseWarning = rc.CostIncreaseWarning || line.CostIncreaseWarning
	}

	if r.YieldQuantity.IsPositive() {
		rc.UnitCost = rc.TotalCost.Div(r.YieldQuantity).Round(4)
	}
	rc.Margin = r.SellingPrice.Sub(rc.TotalCost)
	if r.SellingPrice.IsPositive() {
		rc.MarginPercent = rc.Margin.Div(r.SellingPrice).Mul(hundred).Round(2)
	}
	return rc, nil
}
