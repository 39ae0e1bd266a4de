package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchStatus represents the lifecycle status of a batch
type BatchStatus string

const (
	BatchStatusReceived BatchStatus = "RECEIVED"
	BatchStatusApproved BatchStatus = "APPROVED"
	BatchStatusExpired  BatchStatus = "EXPIRED"
	BatchStatusConsumed BatchStatus = "CONSUMED"
)

// String returns the string representation
func (s BatchStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a known value
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusReceived, BatchStatusApproved, BatchStatusExpired, BatchStatusConsumed:
		return true
	}
	return false
}

// IsActive reports whether stock in this status may be consumed
func (s BatchStatus) IsActive() bool {
	return s == BatchStatusReceived || s == BatchStatusApproved
}

// CanApprove returns true if quality approval is allowed
func (s BatchStatus) CanApprove() bool {
	return s == BatchStatusReceived
}

// CanExpire returns true if the batch may transition to EXPIRED
func (s BatchStatus) CanExpire() bool {
	return s.IsActive()
}

// ActiveBatchStatuses lists statuses that hold consumable stock
var ActiveBatchStatuses = []BatchStatus{BatchStatusReceived, BatchStatusApproved}

// BatchReceipt carries the facts recorded when stock arrives
type BatchReceipt struct {
	MaterialID   uuid.UUID
	SupplierID   *uuid.UUID
	BatchNumber  string
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	ReceivedAt   time.Time
	ExpiryAt     *time.Time
	QualityGrade string
}

// Batch is an immutable receipt event with a mutable remaining quantity.
// Batches are never deleted.
type Batch struct {
	shared.BaseAggregateRoot
	BatchNumber       string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	MaterialID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_fifo,priority:1"`
	SupplierID        *uuid.UUID      `gorm:"type:uuid;index"`
	ReceivedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RemainingQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReceivedAt        time.Time       `gorm:"not null;index:idx_batches_fifo,priority:3"`
	ExpiryAt          *time.Time
	QualityGrade      string      `gorm:"type:varchar(20)"`
	Status            BatchStatus `gorm:"type:varchar(20);not null;default:'RECEIVED';index:idx_batches_fifo,priority:2"`
	ApprovedAt        *time.Time
	ExpiredAt         *time.Time
}

// TableName returns the table name for GORM
func (Batch) TableName() string {
	return "batches"
}

// NewBatch creates a batch from a receipt with remaining = received quantity
func NewBatch(r BatchReceipt) (*Batch, error) {
	if r.MaterialID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Material is required")
	}
	if !r.Quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}
	if r.UnitCost.IsNegative() {
		return nil, shared.ErrInvalidUnitCost
	}
	if !shared.FitsStoredScale(r.Quantity) {
		return nil, shared.ErrQuantityScale
	}
	if !shared.FitsStoredScale(r.UnitCost) {
		return nil, shared.ErrUnitCostScale
	}
	receivedAt := r.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	if r.ExpiryAt != nil && r.ExpiryAt.Before(receivedAt) {
		return nil, shared.ErrInvalidExpiry
	}

	b := &Batch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MaterialID:        r.MaterialID,
		SupplierID:        r.SupplierID,
		ReceivedQuantity:  r.Quantity,
		RemainingQuantity: r.Quantity,
		UnitCost:          r.UnitCost,
		ReceivedAt:        receivedAt,
		ExpiryAt:          r.ExpiryAt,
		QualityGrade:      strings.TrimSpace(r.QualityGrade),
		Status:            BatchStatusReceived,
	}
	b.BatchNumber = strings.TrimSpace(r.BatchNumber)
	if b.BatchNumber == "" {
		b.BatchNumber = fmt.Sprintf("B%s-%s", receivedAt.Format("20060102"), strings.ToUpper(b.ID.String()[:8]))
	}

	b.AddDomainEvent(NewBatchReceivedEvent(b))
	return b, nil
}

// IsAvailable returns true if the batch holds consumable stock
func (b *Batch) IsAvailable() bool {
	return b.Status.IsActive() && b.RemainingQuantity.IsPositive()
}

// IsPriced returns true if the batch carries a usable unit cost
func (b *Batch) IsPriced() bool {
	return b.UnitCost.IsPositive()
}

// Approve marks the batch as passed by quality control
func (b *Batch) Approve(at time.Time) error {
	if !b.Status.CanApprove() {
		return shared.InvalidTransition("batch", b.Status.String(), "approve")
	}
	b.Status = BatchStatusApproved
	b.ApprovedAt = &at
	b.IncrementVersion()
	b.Touch()
	b.AddDomainEvent(NewBatchApprovedEvent(b))
	return nil
}

// Consume decrements the remaining quantity.
// Returns the quantity actually taken, which may be less than requested.
func (b *Batch) Consume(quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.IsPositive() {
		return decimal.Zero, shared.ErrInvalidQuantity
	}
	if !shared.FitsStoredScale(quantity) {
		return decimal.Zero, shared.ErrQuantityScale
	}
	if !b.Status.IsActive() {
		return decimal.Zero, shared.InvalidTransition("batch", b.Status.String(), "consume")
	}

	taken := decimal.Min(quantity, b.RemainingQuantity)
	b.RemainingQuantity = b.RemainingQuantity.Sub(taken)
	if b.RemainingQuantity.IsZero() {
		b.Status = BatchStatusConsumed
	}
	b.IncrementVersion()
	b.Touch()
	return taken, nil
}

// MarkExpired persists the EXPIRED transition.
// Returns the remaining quantity written off by the transition.
func (b *Batch) MarkExpired(at time.Time) (decimal.Decimal, error) {
	if !b.Status.CanExpire() {
		return decimal.Zero, shared.InvalidTransition("batch", b.Status.String(), "expire")
	}
	writtenOff := b.RemainingQuantity
	b.Status = BatchStatusExpired
	b.ExpiredAt = &at
	b.IncrementVersion()
	b.Touch()
	b.AddDomainEvent(NewBatchExpiredEvent(b, writtenOff))
	return writtenOff, nil
}
