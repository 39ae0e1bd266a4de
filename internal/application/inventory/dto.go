package inventory

import (
	"time"

	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterMaterialCommand creates a material or updates the one with the same code
type RegisterMaterialCommand struct {
	Code                  string           `json:"code" binding:"required,max=50"`
	Name                  string           `json:"name" binding:"required,max=200"`
	Unit                  string           `json:"unit" binding:"required,max=20"`
	Category              string           `json:"category" binding:"max=50"`
	ReorderLevel          decimal.Decimal  `json:"reorder_level"`
	MaxLevel              *decimal.Decimal `json:"max_level"`
	StandardOrderQuantity decimal.Decimal  `json:"standard_order_quantity"`
	StandardCost          decimal.Decimal  `json:"standard_cost"`
	Perishable            *bool            `json:"perishable"`
}

// ListMaterialsQuery filters the material catalog
type ListMaterialsQuery struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToFilter converts the query into a repository filter
func (q ListMaterialsQuery) ToFilter() shared.Filter {
	f := shared.DefaultFilter()
	f.OrderBy = "code"
	f.OrderDir = "asc"
	if q.Page > 0 {
		f.Page = q.Page
	}
	if q.PageSize > 0 {
		f.PageSize = q.PageSize
	}
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.OrderDir != "" {
		f.OrderDir = q.OrderDir
	}
	f.Search = q.Search
	if q.Category != "" {
		f.Filters["category"] = q.Category
	}
	return f
}

// ReceiveBatchCommand records a delivery of a material
type ReceiveBatchCommand struct {
	MaterialID   uuid.UUID       `json:"material_id" binding:"required"`
	SupplierID   *uuid.UUID      `json:"supplier_id"`
	BatchNumber  string          `json:"batch_number" binding:"max=50"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	ReceivedAt   *time.Time      `json:"received_at"`
	ExpiryAt     *time.Time      `json:"expiry_at"`
	QualityGrade string          `json:"quality_grade" binding:"max=20"`
}

// ConsumeCommand draws a quantity of a material in FIFO order.
// MaterialID comes from the request path.
type ConsumeCommand struct {
	MaterialID uuid.UUID       `json:"-"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reference  string          `json:"reference" binding:"max=100"`
}

// MaterialResponse represents a material in API responses
type MaterialResponse struct {
	ID                    uuid.UUID        `json:"id"`
	Code                  string           `json:"code"`
	Name                  string           `json:"name"`
	Unit                  string           `json:"unit"`
	Category              string           `json:"category,omitempty"`
	OnHandQuantity        decimal.Decimal  `json:"on_hand_quantity"`
	ReorderLevel          decimal.Decimal  `json:"reorder_level"`
	MaxLevel              *decimal.Decimal `json:"max_level,omitempty"`
	StandardOrderQuantity decimal.Decimal  `json:"standard_order_quantity"`
	StandardCost          decimal.Decimal  `json:"standard_cost"`
	Perishable            bool             `json:"perishable"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
	Version               int              `json:"version"`
}

// ToMaterialResponse converts a domain material into its response
func ToMaterialResponse(m *inventory.Material) MaterialResponse {
	return MaterialResponse{
		ID:                    m.ID,
		Code:                  m.Code,
		Name:                  m.Name,
		Unit:                  m.Unit,
		Category:              m.Category,
		OnHandQuantity:        m.OnHandQuantity,
		ReorderLevel:          m.ReorderLevel,
		MaxLevel:              m.MaxLevel,
		StandardOrderQuantity: m.StandardOrderQuantity,
		StandardCost:          m.StandardCost,
		Perishable:            m.Perishable,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
		Version:               m.Version,
	}
}

// BatchResponse represents a batch in API responses
type BatchResponse struct {
	ID                uuid.UUID       `json:"id"`
	BatchNumber       string          `json:"batch_number"`
	MaterialID        uuid.UUID       `json:"material_id"`
	SupplierID        *uuid.UUID      `json:"supplier_id,omitempty"`
	ReceivedQuantity  decimal.Decimal `json:"received_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	ReceivedAt        time.Time       `json:"received_at"`
	ExpiryAt          *time.Time      `json:"expiry_at,omitempty"`
	QualityGrade      string          `json:"quality_grade,omitempty"`
	Status            string          `json:"status"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	ExpiredAt         *time.Time      `json:"expired_at,omitempty"`
	Version           int             `json:"version"`
}

// ToBatchResponse converts a domain batch into its response
func ToBatchResponse(b *inventory.Batch) BatchResponse {
	return BatchResponse{
		ID:                b.ID,
		BatchNumber:       b.BatchNumber,
		MaterialID:        b.MaterialID,
		SupplierID:        b.SupplierID,
		ReceivedQuantity:  b.ReceivedQuantity,
		RemainingQuantity: b.RemainingQuantity,
		UnitCost:          b.UnitCost,
		ReceivedAt:        b.ReceivedAt,
		ExpiryAt:          b.ExpiryAt,
		QualityGrade:      b.QualityGrade,
		Status:            b.Status.String(),
		ApprovedAt:        b.ApprovedAt,
		ExpiredAt:         b.ExpiredAt,
		Version:           b.Version,
	}
}

// ConsumptionResult is the outcome of a FIFO consumption
type ConsumptionResult struct {
	MaterialID  uuid.UUID              `json:"material_id"`
	Quantity    decimal.Decimal        `json:"quantity"`
	TotalCost   decimal.Decimal        `json:"total_cost"`
	Allocations []inventory.Allocation `json:"allocations"`
	OnHandAfter decimal.Decimal        `json:"on_hand_after"`
	Reference   string                 `json:"reference,omitempty"`
}

// WriteOff is the stock removed from one batch by the expiry sweep
type WriteOff struct {
	BatchID    uuid.UUID       `json:"batch_id"`
	MaterialID uuid.UUID       `json:"material_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Value      decimal.Decimal `json:"value"`
}

// SweepResult lists the batches an expiry sweep marked EXPIRED
type SweepResult struct {
	SweptAt         time.Time   `json:"swept_at"`
	ExpiredBatchIDs []uuid.UUID `json:"expired_batch_ids"`
	WriteOffs       []WriteOff  `json:"write_offs"`
}

// Freshness regimes
const (
	RegimeExpiryDate = "EXPIRY_DATE"
	RegimeAge        = "AGE"
)

// BatchFreshnessResponse is one line of a material's freshness report
type BatchFreshnessResponse struct {
	BatchID           uuid.UUID       `json:"batch_id"`
	BatchNumber       string          `json:"batch_number"`
	Status            string          `json:"status"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	ReceivedAt        time.Time       `json:"received_at"`
	ExpiryAt          *time.Time      `json:"expiry_at,omitempty"`
	EffectiveExpiry   time.Time       `json:"effective_expiry"`
	Regime            string          `json:"regime"`
	Freshness         string          `json:"freshness"`
}

// MovementResponse represents a stock ledger row
type MovementResponse struct {
	ID         uuid.UUID       `json:"id"`
	BatchID    uuid.UUID       `json:"batch_id"`
	Type       string          `json:"type"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ToMovementResponse converts a ledger row into its response
func ToMovementResponse(m *inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:         m.ID,
		BatchID:    m.BatchID,
		Type:       string(m.Type),
		Quantity:   m.Quantity,
		UnitCost:   m.UnitCost,
		Amount:     m.Amount,
		Reference:  m.Reference,
		OccurredAt: m.OccurredAt,
	}
}
