package payout

import (
	"strings"
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutStatus represents the status of a farmer payout
type PayoutStatus string

const (
	PayoutStatusDraft    PayoutStatus = "DRAFT"
	PayoutStatusApproved PayoutStatus = "APPROVED"
	PayoutStatusPaid     PayoutStatus = "PAID"
)

// String returns the string representation
func (s PayoutStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a known value
func (s PayoutStatus) IsValid() bool {
	switch s {
	case PayoutStatusDraft, PayoutStatusApproved, PayoutStatusPaid:
		return true
	}
	return false
}

// CanApprove returns true if the payout can be approved
func (s PayoutStatus) CanApprove() bool {
	return s == PayoutStatusDraft
}

// CanPay returns true if the payout can be marked paid
func (s PayoutStatus) CanPay() bool {
	return s == PayoutStatusApproved
}

// CanDelete returns true if the payout can be deleted
func (s PayoutStatus) CanDelete() bool {
	return s == PayoutStatusDraft
}

// Payout aggregates a supplier's collections for one period.
// (SupplierID, PeriodStart, PeriodEnd) is unique and a PAID payout is immutable.
type Payout struct {
	shared.BaseAggregateRoot
	Reference            string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_payouts_supplier_period,priority:1"`
	PeriodStart          time.Time       `gorm:"not null;uniqueIndex:idx_payouts_supplier_period,priority:2"`
	PeriodEnd            time.Time       `gorm:"not null;uniqueIndex:idx_payouts_supplier_period,priority:3"`
	CollectionCount      int             `gorm:"not null;default:0"`
	AcceptedLiters       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RejectedLiters       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AveragePricePerLiter decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	GrossAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TransportDeduction   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	NetAmount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status               PayoutStatus    `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ApprovedAt           *time.Time
	PaidAt               *time.Time
	PaymentReference     string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (Payout) TableName() string {
	return "payouts"
}

// NewPayout creates a DRAFT payout from aggregated totals
func NewPayout(reference string, totals *Totals) (*Payout, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Payout reference is required")
	}
	if !totals.AcceptedLiters.IsPositive() {
		return nil, shared.ErrNoAcceptedVolume
	}
	p := &Payout{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		Reference:            reference,
		SupplierID:           totals.SupplierID,
		PeriodStart:          totals.Period.Start,
		PeriodEnd:            totals.Period.End,
		CollectionCount:      len(totals.CollectionIDs),
		AcceptedLiters:       totals.AcceptedLiters,
		RejectedLiters:       totals.RejectedLiters,
		AveragePricePerLiter: totals.AveragePricePerLiter,
		GrossAmount:          totals.GrossAmount,
		TransportDeduction:   totals.TransportDeduction,
		NetAmount:            totals.NetAmount,
		Status:               PayoutStatusDraft,
	}
	p.AddDomainEvent(NewPayoutGeneratedEvent(p))
	return p, nil
}

// Period returns the payout period
func (p *Payout) Period() Period {
	return Period{Start: p.PeriodStart, End: p.PeriodEnd}
}

// Approve transitions DRAFT → APPROVED
func (p *Payout) Approve(at time.Time) error {
	if !p.Status.CanApprove() {
		return shared.InvalidTransition("payout", p.Status.String(), "approve")
	}
	p.Status = PayoutStatusApproved
	p.ApprovedAt = &at
	p.IncrementVersion()
	p.Touch()
	p.AddDomainEvent(NewPayoutStatusChangedEvent(p, EventTypePayoutApproved, PayoutStatusDraft))
	return nil
}

// MarkPaid transitions APPROVED → PAID
func (p *Payout) MarkPaid(at time.Time, paymentReference string) error {
	if !p.Status.CanPay() {
		return shared.InvalidTransition("payout", p.Status.String(), "pay")
	}
	p.Status = PayoutStatusPaid
	p.PaidAt = &at
	p.PaymentReference = strings.TrimSpace(paymentReference)
	p.IncrementVersion()
	p.Touch()
	p.AddDomainEvent(NewPayoutStatusChangedEvent(p, EventTypePayoutPaid, PayoutStatusApproved))
	return nil
}

// MarkDeleted checks that only a DRAFT is removed and raises PayoutDeleted
func (p *Payout) MarkDeleted() error {
	if !p.Status.CanDelete() {
		return shared.InvalidTransition("payout", p.Status.String(), "delete")
	}
	p.AddDomainEvent(NewPayoutStatusChangedEvent(p, EventTypePayoutDeleted, PayoutStatusDraft))
	return nil
}
