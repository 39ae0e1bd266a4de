package payout

import (
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypePayout is the aggregate type name of payouts
const AggregateTypePayout = "Payout"

// Event type constants
const (
	EventTypePayoutGenerated = "PayoutGenerated"
	EventTypePayoutApproved  = "PayoutApproved"
	EventTypePayoutPaid      = "PayoutPaid"
	EventTypePayoutDeleted   = "PayoutDeleted"
)

// PayoutGeneratedEvent is raised when a DRAFT payout is created
type PayoutGeneratedEvent struct {
	shared.BaseDomainEvent
	PayoutID       uuid.UUID       `json:"payout_id"`
	Reference      string          `json:"reference"`
	SupplierID     uuid.UUID       `json:"supplier_id"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	AcceptedLiters decimal.Decimal `json:"accepted_liters"`
	NetAmount      decimal.Decimal `json:"net_amount"`
}

// NewPayoutGeneratedEvent creates a new PayoutGeneratedEvent
func NewPayoutGeneratedEvent(p *Payout) *PayoutGeneratedEvent {
	return &PayoutGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutGenerated, AggregateTypePayout, p.ID),
		PayoutID:        p.ID,
		Reference:       p.Reference,
		SupplierID:      p.SupplierID,
		PeriodStart:     p.PeriodStart,
		PeriodEnd:       p.PeriodEnd,
		AcceptedLiters:  p.AcceptedLiters,
		NetAmount:       p.NetAmount,
	}
}

// EventType returns the event type name
func (e *PayoutGeneratedEvent) EventType() string {
	return EventTypePayoutGenerated
}

// PayoutStatusChangedEvent is raised on approve, pay and delete
type PayoutStatusChangedEvent struct {
	shared.BaseDomainEvent
	PayoutID   uuid.UUID       `json:"payout_id"`
	Reference  string          `json:"reference"`
	SupplierID uuid.UUID       `json:"supplier_id"`
	FromStatus PayoutStatus    `json:"from_status"`
	ToStatus   PayoutStatus    `json:"to_status"`
	NetAmount  decimal.Decimal `json:"net_amount"`
}

// NewPayoutStatusChangedEvent creates a status change event of the given type
func NewPayoutStatusChangedEvent(p *Payout, eventType string, from PayoutStatus) *PayoutStatusChangedEvent {
	return &PayoutStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypePayout, p.ID),
		PayoutID:        p.ID,
		Reference:       p.Reference,
		SupplierID:      p.SupplierID,
		FromStatus:      from,
		ToStatus:        p.Status,
		NetAmount:       p.NetAmount,
	}
}

// EventType returns the event type name
func (e *PayoutStatusChangedEvent) EventType() string {
	return e.Type
}
