package costing

import (
	"context"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RecipeRepository defines the interface for recipe persistence
type RecipeRepository interface {
	// FindByID finds a recipe with its ingredients
	FindByID(ctx context.Context, id uuid.UUID) (*Recipe, error)

	// FindByCode finds a recipe by code
	FindByCode(ctx context.Context, code string) (*Recipe, error)

	// FindAll returns recipes matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Recipe, error)

	// Save creates or updates a recipe and replaces its ingredients
	Save(ctx context.Context, recipe *Recipe) error
}

// RecipeCache holds recipe definitions between costings. A miss returns
// (nil, nil). Costed totals are never cached because batch stock changes
// underneath them.
type RecipeCache interface {
	Get(ctx context.Context, id uuid.UUID) (*Recipe, error)
	Set(ctx context.Context, recipe *Recipe) error
	Delete(ctx context.Context, id uuid.UUID) error
}
