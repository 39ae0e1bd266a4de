package inventory

import (
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeBatch    = "Batch"
	AggregateTypeMaterial = "Material"
)

// Event type constants
const (
	EventTypeBatchReceived = "BatchReceived"
	EventTypeBatchApproved = "BatchApproved"
	EventTypeBatchExpired  = "BatchExpired"
	EventTypeStockConsumed = "StockConsumed"
)

// BatchReceivedEvent is raised when a batch is recorded in the ledger
type BatchReceivedEvent struct {
	shared.BaseDomainEvent
	BatchID     uuid.UUID       `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	MaterialID  uuid.UUID       `json:"material_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	ReceivedAt  time.Time       `json:"received_at"`
	ExpiryAt    *time.Time      `json:"expiry_at,omitempty"`
}

// NewBatchReceivedEvent creates a new BatchReceivedEvent
func NewBatchReceivedEvent(b *Batch) *BatchReceivedEvent {
	return &BatchReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchReceived, AggregateTypeBatch, b.ID),
		BatchID:         b.ID,
		BatchNumber:     b.BatchNumber,
		MaterialID:      b.MaterialID,
		Quantity:        b.ReceivedQuantity,
		UnitCost:        b.UnitCost,
		ReceivedAt:      b.ReceivedAt,
		ExpiryAt:        b.ExpiryAt,
	}
}

// EventType returns the event type name
func (e *BatchReceivedEvent) EventType() string {
	return EventTypeBatchReceived
}

// BatchApprovedEvent is raised when quality control approves a batch
type BatchApprovedEvent struct {
	shared.BaseDomainEvent
	BatchID    uuid.UUID `json:"batch_id"`
	MaterialID uuid.UUID `json:"material_id"`
}

// NewBatchApprovedEvent creates a new BatchApprovedEvent
func NewBatchApprovedEvent(b *Batch) *BatchApprovedEvent {
	return &BatchApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchApproved, AggregateTypeBatch, b.ID),
		BatchID:         b.ID,
		MaterialID:      b.MaterialID,
	}
}

// EventType returns the event type name
func (e *BatchApprovedEvent) EventType() string {
	return EventTypeBatchApproved
}

// BatchExpiredEvent is raised when the sweep persists an EXPIRED transition
type BatchExpiredEvent struct {
	shared.BaseDomainEvent
	BatchID            uuid.UUID       `json:"batch_id"`
	MaterialID         uuid.UUID       `json:"material_id"`
	WrittenOffQuantity decimal.Decimal `json:"written_off_quantity"`
	WrittenOffValue    decimal.Decimal `json:"written_off_value"`
}

// NewBatchExpiredEvent creates a new BatchExpiredEvent
func NewBatchExpiredEvent(b *Batch, writtenOff decimal.Decimal) *BatchExpiredEvent {
	return &BatchExpiredEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeBatchExpired, AggregateTypeBatch, b.ID),
		BatchID:            b.ID,
		MaterialID:         b.MaterialID,
		WrittenOffQuantity: writtenOff,
		WrittenOffValue:    writtenOff.Mul(b.UnitCost).Round(4),
	}
}

// EventType returns the event type name
func (e *BatchExpiredEvent) EventType() string {
	return EventTypeBatchExpired
}

// StockConsumedEvent is raised once per consumption with its FIFO allocations
type StockConsumedEvent struct {
	shared.BaseDomainEvent
	MaterialID  uuid.UUID       `json:"material_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	Allocations []Allocation    `json:"allocations"`
	Reference   string          `json:"reference,omitempty"`
	OnHandAfter decimal.Decimal `json:"on_hand_after"`
}

// NewStockConsumedEvent creates a new StockConsumedEvent
func NewStockConsumedEvent(m *Material, plan *ConsumptionPlan, reference string) *StockConsumedEvent {
	return &StockConsumedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockConsumed, AggregateTypeMaterial, m.ID),
		MaterialID:      m.ID,
		Quantity:        plan.Requested,
		TotalCost:       plan.TotalCost,
		Allocations:     plan.Allocations,
		Reference:       reference,
		OnHandAfter:     m.OnHandQuantity,
	}
}

// EventType returns the event type name
func (e *StockConsumedEvent) EventType() string {
	return EventTypeStockConsumed
}
