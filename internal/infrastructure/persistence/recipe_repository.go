package persistence

import (
	"context"
	"strings"

	"github.com/dairyops/backend/internal/domain/costing"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRecipeRepository implements RecipeRepository using GORM
type GormRecipeRepository struct {
	db *gorm.DB
}

// NewGormRecipeRepository creates a new GormRecipeRepository
func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db}
}

func preloadIngredients(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *GormRecipeRepository) first(query *gorm.DB) (*costing.Recipe, error) {
	var recipe costing.Recipe
	if err := query.Preload("Ingredients", preloadIngredients).First(&recipe).Error; err != nil {
		if isNotFound(err) {
			return nil, shared.ErrRecipeNotFound
		}
		return nil, err
	}
	recipe.MarkPersisted()
	return &recipe, nil
}

// FindByID finds a recipe with its ingredients
func (r *GormRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*costing.Recipe, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByCode finds a recipe by code
func (r *GormRecipeRepository) FindByCode(ctx context.Context, code string) (*costing.Recipe, error) {
	return r.first(r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))))
}

// FindAll lists recipes with their ingredients
func (r *GormRecipeRepository) FindAll(ctx context.Context, filter shared.Filter) ([]costing.Recipe, error) {
	query := r.db.WithContext(ctx).Model(&costing.Recipe{}).Preload("Ingredients", preloadIngredients)
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	query = applyPage(query, filter, RecipeSortFields, "code")

	var recipes []costing.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}
	for i := range recipes {
		recipes[i].MarkPersisted()
	}
	return recipes, nil
}

// Save upserts the recipe row and replaces its ingredient rows
func (r *GormRecipeRepository) Save(ctx context.Context, recipe *costing.Recipe) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Ingredients").Save(recipe).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&costing.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if len(recipe.Ingredients) == 0 {
			return nil
		}
		return tx.Create(&recipe.Ingredients).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainErrorf(shared.CodeValidationFailed, "Recipe code %s already exists", recipe.Code)
		}
		return err
	}
	recipe.MarkPersisted()
	return nil
}

var _ costing.RecipeRepository = (*GormRecipeRepository)(nil)
