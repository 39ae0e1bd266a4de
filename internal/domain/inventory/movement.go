package inventory

import (
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a ledger row
type MovementType string

const (
	MovementTypeReceipt     MovementType = "RECEIPT"
	MovementTypeConsumption MovementType = "CONSUMPTION"
	MovementTypeExpiry      MovementType = "EXPIRY"
)

// StockMovement is an append-only ledger row written in the same
// transaction as the quantity change it records.
type StockMovement struct {
	shared.BaseEntity
	MaterialID uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type       MovementType    `gorm:"type:varchar(20);not null;index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reference  string          `gorm:"type:varchar(100)"`
	OccurredAt time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a ledger row valued at the batch cost
func NewStockMovement(b *Batch, movementType MovementType, quantity decimal.Decimal, reference string, at time.Time) *StockMovement {
	return &StockMovement{
		BaseEntity: shared.NewBaseEntity(),
		MaterialID: b.MaterialID,
		BatchID:    b.ID,
		Type:       movementType,
		Quantity:   quantity,
		UnitCost:   b.UnitCost,
		Amount:     quantity.Mul(b.UnitCost).Round(4),
		Reference:  reference,
		OccurredAt: at,
	}
}
