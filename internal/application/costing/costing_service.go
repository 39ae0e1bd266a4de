package costing

import (
	"context"
	"strings"
	"time"

	"github.com/dairyops/backend/internal/application/validation"
	"github.com/dairyops/backend/internal/domain/costing"
	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/dairyops/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CostingService resolves FIFO prices and costs recipes. Recipe
// definitions go through the injected cache; costed totals are recomputed
// on every call.
type CostingService struct {
	materialRepo inventory.MaterialRepository
	batchRepo    inventory.BatchRepository
	recipeRepo   costing.RecipeRepository
	cache        costing.RecipeCache
	metrics      *telemetry.BusinessMetrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewCostingService creates a new CostingService. A nil cache disables caching.
func NewCostingService(
	materialRepo inventory.MaterialRepository,
	batchRepo inventory.BatchRepository,
	recipeRepo costing.RecipeRepository,
	cache costing.RecipeCache,
	logger *zap.Logger,
) *CostingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CostingService{
		materialRepo: materialRepo,
		batchRepo:    batchRepo,
		recipeRepo:   recipeRepo,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
	}
}

// SetMetrics sets the business metrics recorder
func (s *CostingService) SetMetrics(metrics *telemetry.BusinessMetrics) {
	s.metrics = metrics
}

// SetClock overrides the time source
func (s *CostingService) SetClock(now func() time.Time) {
	s.now = now
}

// ResolvePrice returns the costing price of a material right now
func (s *CostingService) ResolvePrice(ctx context.Context, materialID uuid.UUID) (*inventory.PriceQuote, error) {
	m, err := s.materialRepo.FindByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	quote, err := s.quote(ctx, m)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (s *CostingService) quote(ctx context.Context, m *inventory.Material) (inventory.PriceQuote, error) {
	candidates, err := s.batchRepo.FindPricingCandidates(ctx, m.ID)
	if err != nil {
		return inventory.PriceQuote{}, err
	}
	return inventory.ResolvePrice(m, candidates), nil
}

// SaveRecipe creates a recipe, or replaces the definition of recipe id
// when id is not nil. The recipe code cannot change.
func (s *CostingService) SaveRecipe(ctx context.Context, id *uuid.UUID, cmd SaveRecipeCommand) (*RecipeResponse, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}

	lines := make([]costing.IngredientLine, 0, len(cmd.Ingredients))
	materialIDs := make([]uuid.UUID, 0, len(cmd.Ingredients))
	for _, in := range cmd.Ingredients {
		lines = append(lines, costing.IngredientLine{MaterialID: in.MaterialID, Quantity: in.Quantity})
		materialIDs = append(materialIDs, in.MaterialID)
	}
	if err := s.requireMaterials(ctx, materialIDs); err != nil {
		return nil, err
	}

	var (
		recipe *costing.Recipe
		err    error
	)
	if id == nil {
		recipe, err = costing.NewRecipe(cmd.Code, cmd.Name, cmd.YieldQuantity, cmd.YieldUnit, cmd.SellingPrice)
		if err != nil {
			return nil, err
		}
	} else {
		recipe, err = s.recipeRepo.FindByID(ctx, *id)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(strings.TrimSpace(cmd.Code), recipe.Code) {
			return nil, shared.ErrValidationFailed.WithDetails(map[string]any{"code": "Recipe code cannot change"})
		}
		if err := recipe.Update(cmd.Name, cmd.YieldQuantity, cmd.YieldUnit, cmd.SellingPrice); err != nil {
			return nil, err
		}
	}
	if err := recipe.SetIngredients(lines); err != nil {
		return nil, err
	}
	if err := s.recipeRepo.Save(ctx, recipe); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, recipe.ID); err != nil {
			s.logger.Warn("Failed to invalidate cached recipe", zap.String("recipe_id", recipe.ID.String()), zap.Error(err))
		}
	}

	s.logger.Info("Recipe saved",
		zap.String("recipe_id", recipe.ID.String()),
		zap.String("code", recipe.Code),
		zap.Int("ingredients", len(recipe.Ingredients)))

	resp := ToRecipeResponse(recipe)
	return &resp, nil
}

func (s *CostingService) requireMaterials(ctx context.Context, ids []uuid.UUID) error {
	found, err := s.materialRepo.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	known := make(map[uuid.UUID]struct{}, len(found))
	for _, m := range found {
		known[m.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return shared.ErrMaterialNotFound.WithDetails(map[string]any{"material_id": id.String()})
		}
	}
	return nil
}

// GetRecipe returns a recipe definition
func (s *CostingService) GetRecipe(ctx context.Context, id uuid.UUID) (*RecipeResponse, error) {
	recipe, err := s.loadRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToRecipeResponse(recipe)
	return &resp, nil
}

// ListRecipes returns recipe definitions
func (s *CostingService) ListRecipes(ctx context.Context, query ListRecipesQuery) ([]RecipeResponse, error) {
	if err := validation.Struct(query); err != nil {
		return nil, err
	}
	filter := shared.DefaultFilter()
	filter.OrderBy = "code"
	filter.OrderDir = "asc"
	filter.Search = query.Search
	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 {
		filter.PageSize = query.PageSize
	}

	recipes, err := s.recipeRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]RecipeResponse, 0, len(recipes))
	for i := range recipes {
		out = append(out, ToRecipeResponse(&recipes[i]))
	}
	return out, nil
}

// loadRecipe reads through the cache. Cache failures degrade to the
// repository.
func (s *CostingService) loadRecipe(ctx context.Context, id uuid.UUID) (*costing.Recipe, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Recipe cache read failed", zap.String("recipe_id", id.String()), zap.Error(err))
		}
		if cached != nil {
			return cached, nil
		}
	}

	recipe, err := s.recipeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, recipe); err != nil {
			s.logger.Warn("Recipe cache write failed", zap.String("recipe_id", id.String()), zap.Error(err))
		}
	}
	return recipe, nil
}

// CostRecipe prices every ingredient at its current FIFO price and
// returns the totals and margin
func (s *CostingService) CostRecipe(ctx context.Context, id uuid.UUID) (_ *costing.RecipeCost, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "CostingService", "CostRecipe", telemetry.SpanAttrRecipeID, id)
	defer telemetry.EndSpan(span, &err)

	start := time.Now()
	recipe, err := s.loadRecipe(ctx, id)
	if err != nil {
		return nil, err
	}

	materials, err := s.materialRepo.FindByIDs(ctx, recipe.MaterialIDs())
	if err != nil {
		return nil, err
	}
	quotes := make(map[uuid.UUID]inventory.PriceQuote, len(materials))
	for i := range materials {
		q, err := s.quote(ctx, &materials[i])
		if err != nil {
			return nil, err
		}
		quotes[q.MaterialID] = q
	}

	cost, err := costing.CostRecipe(recipe, quotes, s.now())
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRecipeCosting(ctx, time.Since(start), cost.CostIncreaseWarning)

	if cost.CostIncreaseWarning {
		s.logger.Info("Recipe cost will rise with newer stock",
			zap.String("recipe_code", recipe.Code),
			zap.String("total_cost", cost.TotalCost.String()),
			zap.String("projected_total_cost", cost.ProjectedTotalCost.String()))
	}
	return cost, nil
}
