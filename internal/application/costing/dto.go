package costing

import (
	"time"

	"github.com/dairyops/backend/internal/domain/costing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IngredientInput is one ingredient line of a recipe command
type IngredientInput struct {
	MaterialID uuid.UUID       `json:"material_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// SaveRecipeCommand creates or replaces a recipe definition
type SaveRecipeCommand struct {
	Code          string            `json:"code" binding:"required,max=50"`
	Name          string            `json:"name" binding:"required,max=200"`
	YieldQuantity decimal.Decimal   `json:"yield_quantity"`
	YieldUnit     string            `json:"yield_unit" binding:"required,max=20"`
	SellingPrice  decimal.Decimal   `json:"selling_price"`
	Ingredients   []IngredientInput `json:"ingredients" binding:"required,min=1,dive"`
}

// ListRecipesQuery filters the recipe list
type ListRecipesQuery struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// IngredientResponse is one recipe line
type IngredientResponse struct {
	MaterialID uuid.UUID       `json:"material_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Position   int             `json:"position"`
}

// RecipeResponse represents a recipe definition in API responses
type RecipeResponse struct {
	ID            uuid.UUID            `json:"id"`
	Code          string               `json:"code"`
	Name          string               `json:"name"`
	YieldQuantity decimal.Decimal      `json:"yield_quantity"`
	YieldUnit     string               `json:"yield_unit"`
	SellingPrice  decimal.Decimal      `json:"selling_price"`
	Ingredients   []IngredientResponse `json:"ingredients"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Version       int                  `json:"version"`
}

// ToRecipeResponse converts a domain recipe into its response
func ToRecipeResponse(r *costing.Recipe) RecipeResponse {
	lines := make([]IngredientResponse, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		lines = append(lines, IngredientResponse{
			MaterialID: ing.MaterialID,
			Quantity:   ing.Quantity,
			Position:   ing.Position,
		})
	}
	return RecipeResponse{
		ID:            r.ID,
		Code:          r.Code,
		Name:          r.Name,
		YieldQuantity: r.YieldQuantity,
		YieldUnit:     r.YieldUnit,
		SellingPrice:  r.SellingPrice,
		Ingredients:   lines,
		UpdatedAt:     r.UpdatedAt,
		Version:       r.Version,
	}
}
