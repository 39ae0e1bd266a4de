package payout

import (
	"time"

	"github.com/dairyops/backend/internal/domain/payout"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of period bounds
const DateLayout = "2006-01-02"

// RecordCollectionCommand records one farmer delivery after quality control
type RecordCollectionCommand struct {
	SupplierID     uuid.UUID       `json:"supplier_id" binding:"required"`
	CollectionDate *time.Time      `json:"collection_date"`
	AcceptedLiters decimal.Decimal `json:"accepted_liters"`
	RejectedLiters decimal.Decimal `json:"rejected_liters"`
	PricePerLiter  decimal.Decimal `json:"price_per_liter"`
	QualityGrade   string          `json:"quality_grade" binding:"max=20"`
	Notes          string          `json:"notes" binding:"max=500"`
}

// VoidCollectionCommand excludes a collection from future payouts
type VoidCollectionCommand struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListCollectionsQuery selects a supplier's collections in a period
type ListCollectionsQuery struct {
	SupplierID string `form:"supplier_id" binding:"required,uuid"`
	From       string `form:"from" binding:"required,datetime=2006-01-02"`
	To         string `form:"to" binding:"required,datetime=2006-01-02"`
}

// GeneratePayoutCommand aggregates a supplier's collections for a period.
// The same command drives the preview.
type GeneratePayoutCommand struct {
	SupplierID         uuid.UUID       `json:"supplier_id" binding:"required"`
	PeriodStart        string          `json:"period_start" binding:"required,datetime=2006-01-02"`
	PeriodEnd          string          `json:"period_end" binding:"required,datetime=2006-01-02"`
	TransportDeduction decimal.Decimal `json:"transport_deduction"`
}

// MarkPaidCommand records the payment of an approved payout
type MarkPaidCommand struct {
	PaymentReference string `json:"payment_reference" binding:"max=100"`
}

// ListPayoutsQuery filters the payout list
type ListPayoutsQuery struct {
	SupplierID string `form:"supplier_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=DRAFT APPROVED PAID"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToFilter converts the query into a repository filter. Call it on a
// validated query.
func (q ListPayoutsQuery) ToFilter() payout.PayoutFilter {
	f := payout.PayoutFilter{Filter: shared.DefaultFilter()}
	f.OrderBy = "period_start"
	f.OrderDir = "desc"
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
	if id, err := uuid.Parse(q.SupplierID); err == nil {
		f.SupplierID = &id
	}
	if q.Status != "" {
		status := payout.PayoutStatus(q.Status)
		f.Status = &status
	}
	return f
}

// parsePeriod reads the bounds of a period in DateLayout
func parsePeriod(from, to string) (payout.Period, error) {
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return payout.Period{}, shared.ErrInvalidPeriod.WithDetails(map[string]any{"period_start": from})
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return payout.Period{}, shared.ErrInvalidPeriod.WithDetails(map[string]any{"period_end": to})
	}
	return payout.NewPeriod(start, end)
}

// CollectionResponse represents a collection in API responses
type CollectionResponse struct {
	ID             uuid.UUID       `json:"id"`
	SupplierID     uuid.UUID       `json:"supplier_id"`
	CollectionDate time.Time       `json:"collection_date"`
	AcceptedLiters decimal.Decimal `json:"accepted_liters"`
	RejectedLiters decimal.Decimal `json:"rejected_liters"`
	PricePerLiter  decimal.Decimal `json:"price_per_liter"`
	AcceptedAmount decimal.Decimal `json:"accepted_amount"`
	QualityGrade   string          `json:"quality_grade,omitempty"`
	Status         string          `json:"status"`
	PayoutID       *uuid.UUID      `json:"payout_id,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	VoidReason     string          `json:"void_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ToCollectionResponse converts a domain collection into its response
func ToCollectionResponse(c *payout.Collection) CollectionResponse {
	return CollectionResponse{
		ID:             c.ID,
		SupplierID:     c.SupplierID,
		CollectionDate: c.CollectionDate,
		AcceptedLiters: c.AcceptedLiters,
		RejectedLiters: c.RejectedLiters,
		PricePerLiter:  c.PricePerLiter,
		AcceptedAmount: c.AcceptedAmount(),
		QualityGrade:   c.QualityGrade,
		Status:         string(c.Status),
		PayoutID:       c.PayoutID,
		Notes:          c.Notes,
		VoidReason:     c.VoidReason,
		CreatedAt:      c.CreatedAt,
	}
}

// PreviewResponse is the unsaved aggregation of a period
type PreviewResponse struct {
	SupplierID           uuid.UUID       `json:"supplier_id"`
	PeriodStart          string          `json:"period_start"`
	PeriodEnd            string          `json:"period_end"`
	CollectionIDs        []uuid.UUID     `json:"collection_ids"`
	AcceptedLiters       decimal.Decimal `json:"accepted_liters"`
	RejectedLiters       decimal.Decimal `json:"rejected_liters"`
	AveragePricePerLiter decimal.Decimal `json:"average_price_per_liter"`
	GrossAmount          decimal.Decimal `json:"gross_amount"`
	TransportDeduction   decimal.Decimal `json:"transport_deduction"`
	NetAmount            decimal.Decimal `json:"net_amount"`
}

// ToPreviewResponse converts aggregated totals into a preview
func ToPreviewResponse(t *payout.Totals) PreviewResponse {
	return PreviewResponse{
		SupplierID:           t.SupplierID,
		PeriodStart:          t.Period.Start.Format(DateLayout),
		PeriodEnd:            t.Period.End.Format(DateLayout),
		CollectionIDs:        t.CollectionIDs,
		AcceptedLiters:       t.AcceptedLiters,
		RejectedLiters:       t.RejectedLiters,
		AveragePricePerLiter: t.AveragePricePerLiter,
		GrossAmount:          t.GrossAmount,
		TransportDeduction:   t.TransportDeduction,
		NetAmount:            t.NetAmount,
	}
}

// PayoutResponse represents a payout in API responses
type PayoutResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Reference            string          `json:"reference"`
	SupplierID           uuid.UUID       `json:"supplier_id"`
	PeriodStart          string          `json:"period_start"`
	PeriodEnd            string          `json:"period_end"`
	CollectionCount      int             `json:"collection_count"`
	AcceptedLiters       decimal.Decimal `json:"accepted_liters"`
	RejectedLiters       decimal.Decimal `json:"rejected_liters"`
	AveragePricePerLiter decimal.Decimal `json:"average_price_per_liter"`
	GrossAmount          decimal.Decimal `json:"gross_amount"`
	TransportDeduction   decimal.Decimal `json:"transport_deduction"`
	NetAmount            decimal.Decimal `json:"net_amount"`
	Status               string          `json:"status"`
	ApprovedAt           *time.Time      `json:"approved_at,omitempty"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	PaymentReference     string          `json:"payment_reference,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Version              int             `json:"version"`
}

// ToPayoutResponse converts a domain payout into its response
func ToPayoutResponse(p *payout.Payout) PayoutResponse {
	return PayoutResponse{
		ID:                   p.ID,
		Reference:            p.Reference,
		SupplierID:           p.SupplierID,
		PeriodStart:          p.PeriodStart.Format(DateLayout),
		PeriodEnd:            p.PeriodEnd.Format(DateLayout),
		CollectionCount:      p.CollectionCount,
		AcceptedLiters:       p.AcceptedLiters,
		RejectedLiters:       p.RejectedLiters,
		AveragePricePerLiter: p.AveragePricePerLiter,
		GrossAmount:          p.GrossAmount,
		TransportDeduction:   p.TransportDeduction,
		NetAmount:            p.NetAmount,
		Status:               p.Status.String(),
		ApprovedAt:           p.ApprovedAt,
		PaidAt:               p.PaidAt,
		PaymentReference:     p.PaymentReference,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		Version:              p.Version,
	}
}
