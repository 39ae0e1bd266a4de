package inventory

import (
	"strings"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Material is a raw ingredient identity owned by the catalog.
// OnHandQuantity is denormalized from the batch ledger and must equal the
// sum of remaining quantities of its RECEIVED/APPROVED batches.
type Material struct {
	shared.BaseAggregateRoot
	Code                  string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name                  string           `gorm:"type:varchar(200);not null"`
	Unit                  string           `gorm:"type:varchar(20);not null"`
	Category              string           `gorm:"type:varchar(50);index"`
	OnHandQuantity        decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	ReorderLevel          decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	MaxLevel              *decimal.Decimal `gorm:"type:decimal(18,4)"`
	StandardOrderQuantity decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	StandardCost          decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Perishable            bool             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Material) TableName() string {
	return "materials"
}

// NewMaterial creates a new material with an empty stock position
func NewMaterial(code, name, unit, category string) (*Material, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	unit = strings.TrimSpace(unit)
	if code == "" || name == "" || unit == "" {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Material code, name and unit are required")
	}
	return &Material{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Unit:              unit,
		Category:          strings.TrimSpace(category),
		OnHandQuantity:    decimal.Zero,
		ReorderLevel:      decimal.Zero,
		Perishable:        true,
	}, nil
}

// Rename updates the descriptive catalog fields
func (m *Material) Rename(name, unit, category string) error {
	name = strings.TrimSpace(name)
	unit = strings.TrimSpace(unit)
	if name == "" || unit == "" {
		return shared.NewDomainError(shared.CodeValidationFailed, "Material name and unit are required")
	}
	m.Name = name
	m.Unit = unit
	m.Category = strings.TrimSpace(category)
	m.Touch()
	return nil
}

// SetStockPolicy sets reorder level, optional max level and the standard order quantity
func (m *Material) SetStockPolicy(reorderLevel decimal.Decimal, maxLevel *decimal.Decimal, standardOrderQty decimal.Decimal) error {
	if reorderLevel.IsNegative() || standardOrderQty.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Reorder level and standard order quantity cannot be negative")
	}
	if !shared.FitsStoredScale(reorderLevel, standardOrderQty) || (maxLevel != nil && !shared.FitsStoredScale(*maxLevel)) {
		return shared.ErrQuantityScale
	}
	if maxLevel != nil && maxLevel.LessThan(reorderLevel) {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Max level cannot be below the reorder level")
	}
	m.ReorderLevel = reorderLevel
	m.MaxLevel = maxLevel
	m.StandardOrderQuantity = standardOrderQty
	m.Touch()
	return nil
}

// SetStandardCost sets the fallback cost used when no batch can be priced
func (m *Material) SetStandardCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return shared.ErrInvalidUnitCost
	}
	if !shared.FitsStoredScale(cost) {
		return shared.ErrUnitCostScale
	}
	m.StandardCost = cost
	m.Touch()
	return nil
}

// AddOnHand increases the denormalized on-hand total after a receipt
func (m *Material) AddOnHand(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.ErrInvalidQuantity
	}
	if !shared.FitsStoredScale(quantity) {
		return shared.ErrQuantityScale
	}
	m.OnHandQuantity = m.OnHandQuantity.Add(quantity)
	m.IncrementVersion()
	m.Touch()
	return nil
}

// RemoveOnHand decreases the denormalized on-hand total after consumption or write-off
func (m *Material) RemoveOnHand(quantity decimal.Decimal) error {
	if quantity.IsZero() {
		return nil
	}
	if quantity.IsNegative() {
		return shared.ErrInvalidQuantity
	}
	if quantity.GreaterThan(m.OnHandQuantity) {
		return shared.ErrInsufficientStock.WithDetails(map[string]any{
			"material_id": m.ID.String(),
			"on_hand":     m.OnHandQuantity.String(),
			"requested":   quantity.String(),
		})
	}
	m.OnHandQuantity = m.OnHandQuantity.Sub(quantity)
	m.IncrementVersion()
	m.Touch()
	return nil
}

// RecordConsumption reduces on-hand by a FIFO plan and raises StockConsumed
func (m *Material) RecordConsumption(plan *ConsumptionPlan, reference string) error {
	if err := m.RemoveOnHand(plan.Requested); err != nil {
		return err
	}
	m.AddDomainEvent(NewStockConsumedEvent(m, plan, reference))
	return nil
}
