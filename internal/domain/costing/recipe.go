package costing

import (
	"strings"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecipeIngredient links a recipe to a material with the quantity needed
// per recipe yield. It never mutates the batch ledger.
type RecipeIngredient struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RecipeID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"recipe_id"`
	MaterialID uuid.UUID       `gorm:"type:uuid;not null;index" json:"material_id"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	Position   int             `gorm:"not null" json:"position"`
}

// TableName returns the table name for GORM
func (RecipeIngredient) TableName() string {
	return "recipe_ingredients"
}

// IngredientLine is an input line when defining a recipe
type IngredientLine struct {
	MaterialID uuid.UUID
	Quantity   decimal.Decimal
}

// Recipe is a composite good priced from FIFO-resolved ingredient costs
type Recipe struct {
	shared.BaseAggregateRoot
	Code          string             `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Name          string             `gorm:"type:varchar(200);not null" json:"name"`
	YieldQuantity decimal.Decimal    `gorm:"type:decimal(18,4);not null" json:"yield_quantity"`
	YieldUnit     string             `gorm:"type:varchar(20);not null" json:"yield_unit"`
	SellingPrice  decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0" json:"selling_price"`
	Ingredients   []RecipeIngredient `gorm:"foreignKey:RecipeID;references:ID" json:"ingredients"`
}

// TableName returns the table name for GORM
func (Recipe) TableName() string {
	return "recipes"
}

// NewRecipe creates a recipe without ingredients
func NewRecipe(code, name string, yieldQty decimal.Decimal, yieldUnit string, sellingPrice decimal.Decimal) (*Recipe, error) {
	r := &Recipe{BaseAggregateRoot: shared.NewBaseAggregateRoot()}
	r.Code = strings.ToUpper(strings.TrimSpace(code))
	if r.Code == "" {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Recipe code is required")
	}
	if err := r.Update(name, yieldQty, yieldUnit, sellingPrice); err != nil {
		return nil, err
	}
	return r, nil
}

// Update changes the descriptive and commercial fields
func (r *Recipe) Update(name string, yieldQty decimal.Decimal, yieldUnit string, sellingPrice decimal.Decimal) error {
	name = strings.TrimSpace(name)
	yieldUnit = strings.TrimSpace(yieldUnit)
	if name == "" || yieldUnit == "" {
		return shared.NewDomainError(shared.CodeValidationFailed, "Recipe name and yield unit are required")
	}
	if !yieldQty.IsPositive() {
		return shared.ErrInvalidQuantity
	}
	if !shared.FitsStoredScale(yieldQty) {
		return shared.ErrQuantityScale
	}
	if sellingPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeValidationFailed, "Selling price cannot be negative")
	}
	if !shared.FitsStoredScale(sellingPrice) {
		return shared.NewDomainErrorf(shared.CodeValidationFailed, "Selling price cannot have more than %d decimal places", shared.StoredScale)
	}
	r.Name = name
	r.YieldQuantity = yieldQty
	r.YieldUnit = yieldUnit
	r.SellingPrice = sellingPrice
	r.Touch()
	return nil
}

// SetIngredients replaces the ingredient list
func (r *Recipe) SetIngredients(lines []IngredientLine) error {
	if len(lines) == 0 {
		return shared.NewDomainError(shared.CodeValidationFailed, "Recipe needs at least one ingredient")
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ingredients := make([]RecipeIngredient, 0, len(lines))
	for i, l := range lines {
		if l.MaterialID == uuid.Nil {
			return shared.NewDomainError(shared.CodeValidationFailed, "Ingredient material is required")
		}
		if !l.Quantity.IsPositive() {
			return shared.ErrInvalidQuantity.WithDetails(map[string]any{"material_id": l.MaterialID.String()})
		}
		if !shared.FitsStoredScale(l.Quantity) {
			return shared.ErrQuantityScale.WithDetails(map[string]any{"material_id": l.MaterialID.String()})
		}
		if _, dup := seen[l.MaterialID]; dup {
			return shared.NewDomainErrorf(shared.CodeValidationFailed, "Material %s appears twice in the recipe", l.MaterialID)
		}
		seen[l.MaterialID] = struct{}{}
		ingredients = append(ingredients, RecipeIngredient{
			ID:         uuid.New(),
			RecipeID:   r.ID,
			MaterialID: l.MaterialID,
			Quantity:   l.Quantity,
			Position:   i + 1,
		})
	}
	r.Ingredients = ingredients
	r.IncrementVersion()
	r.Touch()
	return nil
}

// MaterialIDs returns the materials referenced by the recipe
func (r *Recipe) MaterialIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		ids = append(ids, ing.MaterialID)
	}
	return ids
}

// Clone returns a copy that shares no ingredient storage with r and carries
// no pending events
func (r *Recipe) Clone() *Recipe {
	c := *r
	c.ClearDomainEvents()
	c.Ingredients = append([]RecipeIngredient(nil), r.Ingredients...)
	return &c
}
