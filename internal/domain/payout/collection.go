package payout

import (
	"strings"
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CollectionStatus represents the status of a milk collection
type CollectionStatus string

const (
	CollectionStatusRecorded CollectionStatus = "RECORDED"
	CollectionStatusVoided   CollectionStatus = "VOIDED"
)

// CollectionInput carries a farmer delivery as split by quality control
type CollectionInput struct {
	SupplierID     uuid.UUID
	CollectionDate time.Time
	AcceptedLiters decimal.Decimal
	RejectedLiters decimal.Decimal
	PricePerLiter  decimal.Decimal
	QualityGrade   string
	Notes          string
}

// Collection is a delivery record with its accepted/rejected liter split.
// It carries its own agreed price per liter.
type Collection struct {
	shared.BaseAggregateRoot
	SupplierID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_collections_supplier_date,priority:1"`
	CollectionDate time.Time        `gorm:"not null;index:idx_collections_supplier_date,priority:2"`
	AcceptedLiters decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	RejectedLiters decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	PricePerLiter  decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	QualityGrade   string           `gorm:"type:varchar(20)"`
	Status         CollectionStatus `gorm:"type:varchar(20);not null;default:'RECORDED';index"`
	PayoutID       *uuid.UUID       `gorm:"type:uuid;index"`
	Notes          string           `gorm:"type:varchar(500)"`
	VoidReason     string           `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Collection) TableName() string {
	return "collections"
}

// NewCollection validates and records a delivery
func NewCollection(in CollectionInput) (*Collection, error) {
	if in.SupplierID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Supplier is required")
	}
	if in.AcceptedLiters.IsNegative() || in.RejectedLiters.IsNegative() {
		return nil, shared.ErrInvalidQuantity
	}
	if in.AcceptedLiters.Add(in.RejectedLiters).IsZero() {
		return nil, shared.ErrInvalidQuantity
	}
	if in.PricePerLiter.IsNegative() {
		return nil, shared.ErrInvalidUnitCost
	}
	if !shared.FitsStoredScale(in.AcceptedLiters, in.RejectedLiters) {
		return nil, shared.ErrQuantityScale
	}
	if !shared.FitsStoredScale(in.PricePerLiter) {
		return nil, shared.ErrUnitCostScale
	}
	date := in.CollectionDate
	if date.IsZero() {
		date = time.Now()
	}
	return &Collection{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SupplierID:        in.SupplierID,
		CollectionDate:    date,
		AcceptedLiters:    in.AcceptedLiters,
		RejectedLiters:    in.RejectedLiters,
		PricePerLiter:     in.PricePerLiter,
		QualityGrade:      strings.TrimSpace(in.QualityGrade),
		Status:            CollectionStatusRecorded,
		Notes:             strings.TrimSpace(in.Notes),
	}, nil
}

// IsSettleable returns true if the collection may be included in a payout
func (c *Collection) IsSettleable() bool {
	return c.Status == CollectionStatusRecorded && c.PayoutID == nil
}

// Void excludes the collection from future payouts
func (c *Collection) Void(reason string) error {
	if c.Status != CollectionStatusRecorded {
		return shared.InvalidTransition("collection", string(c.Status), "void")
	}
	if c.PayoutID != nil {
		return shared.InvalidTransition("collection", "SETTLED", "void")
	}
	c.Status = CollectionStatusVoided
	c.VoidReason = strings.TrimSpace(reason)
	c.IncrementVersion()
	c.Touch()
	return nil
}

// AcceptedAmount returns accepted liters × price per liter
func (c *Collection) AcceptedAmount() decimal.Decimal {
	return c.AcceptedLiters.Mul(c.PricePerLiter)
}
