package handler

import (
	costingapp "github.com/dairyops/backend/internal/application/costing"
	"github.com/gin-gonic/gin"
)

// CostingHandler serves price quotes and recipe costing
type CostingHandler struct {
	BaseHandler
	costing *costingapp.CostingService
}

// NewCostingHandler creates a new CostingHandler
func NewCostingHandler(costing *costingapp.CostingService) *CostingHandler {
	return &CostingHandler{costing: costing}
}

// RegisterRoutes mounts the costing endpoints on rg
func (h *CostingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/materials/:id/price", h.ResolvePrice)

	recipes := rg.Group("/recipes")
	recipes.POST("", h.CreateRecipe)
	recipes.GET("", h.ListRecipes)
	recipes.GET("/:id", h.GetRecipe)
	recipes.PUT("/:id", h.UpdateRecipe)
	recipes.GET("/:id/cost", h.CostRecipe)
}

// ResolvePrice returns the FIFO costing price of a material
// GET /api/v1/materials/:id/price
func (h *CostingHandler) ResolvePrice(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	quote, err := h.costing.ResolvePrice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// CreateRecipe stores a new recipe
// POST /api/v1/recipes
func (h *CostingHandler) CreateRecipe(c *gin.Context) {
	var req costingapp.SaveRecipeCommand
	if !h.bindJSON(c, &req) {
		return
	}
	recipe, err := h.costing.SaveRecipe(c.Request.Context(), nil, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, recipe)
}

// UpdateRecipe replaces the definition of a recipe
// PUT /api/v1/recipes/:id
func (h *CostingHandler) UpdateRecipe(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req costingapp.SaveRecipeCommand
	if !h.bindJSON(c, &req) {
		return
	}
	recipe, err := h.costing.SaveRecipe(c.Request.Context(), &id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, recipe)
}

// GetRecipe returns a recipe definition
// GET /api/v1/recipes/:id
func (h *CostingHandler) GetRecipe(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	recipe, err := h.costing.GetRecipe(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, recipe)
}

// ListRecipes lists recipe definitions
// GET /api/v1/recipes
func (h *CostingHandler) ListRecipes(c *gin.Context) {
	var query costingapp.ListRecipesQuery
	if !h.bindQuery(c, &query) {
		return
	}
	recipes, err := h.costing.ListRecipes(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, recipes)
}

// CostRecipe prices a recipe at current FIFO prices
// GET /api/v1/recipes/:id/cost
func (h *CostingHandler) CostRecipe(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	cost, err := h.costing.CostRecipe(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cost)
}
