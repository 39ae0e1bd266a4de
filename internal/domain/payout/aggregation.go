package payout

import (
	"bytes"
	"slices"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Totals is the result of aggregating a supplier's collections for a period
type Totals struct {
	SupplierID           uuid.UUID       `json:"supplier_id"`
	Period               Period          `json:"period"`
	CollectionIDs        []uuid.UUID     `json:"collection_ids"`
	AcceptedLiters       decimal.Decimal `json:"accepted_liters"`
	RejectedLiters       decimal.Decimal `json:"rejected_liters"`
	AveragePricePerLiter decimal.Decimal `json:"average_price_per_liter"`
	GrossAmount          decimal.Decimal `json:"gross_amount"`
	TransportDeduction   decimal.Decimal `json:"transport_deduction"`
	NetAmount            decimal.Decimal `json:"net_amount"`
}

// compareCollections orders collections by (CollectionDate, ID)
func compareCollections(a, b *Collection) int {
	if c := a.CollectionDate.Compare(b.CollectionDate); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// Aggregate sums accepted and rejected liters of the settleable collections
// of supplierID inside period. Gross is Σ accepted × collection price and
// net is gross minus the transport deduction.
func Aggregate(supplierID uuid.UUID, period Period, collections []*Collection, transportDeduction decimal.Decimal) (*Totals, error) {
	if transportDeduction.IsNegative() {
		return nil, shared.ErrInvalidDeduction
	}
	if !shared.FitsStoredScale(transportDeduction) {
		return nil, shared.ErrDeductionScale
	}

	selected := make([]*Collection, 0, len(collections))
	for _, c := range collections {
		if c.SupplierID == supplierID && c.IsSettleable() && period.Contains(c.CollectionDate) {
			selected = append(selected, c)
		}
	}
	slices.SortFunc(selected, compareCollections)

	t := &Totals{
		SupplierID:         supplierID,
		Period:             period,
		CollectionIDs:      make([]uuid.UUID, 0, len(selected)),
		AcceptedLiters:     decimal.Zero,
		RejectedLiters:     decimal.Zero,
		GrossAmount:        decimal.Zero,
		TransportDeduction: transportDeduction,
	}
	for _, c := range selected {
		t.CollectionIDs = append(t.CollectionIDs, c.ID)
		t.AcceptedLiters = t.AcceptedLiters.Add(c.AcceptedLiters)
		t.RejectedLiters = t.RejectedLiters.Add(c.RejectedLiters)
		t.GrossAmount = t.GrossAmount.Add(c.AcceptedAmount())
	}

	if !t.AcceptedLiters.IsPositive() {
		return nil, shared.ErrNoAcceptedVolume.WithDetails(map[string]any{
			"supplier_id":     supplierID.String(),
			"rejected_liters": t.RejectedLiters.String(),
		})
	}

	t.GrossAmount = t.GrossAmount.Round(2)
	t.AveragePricePerLiter = t.GrossAmount.Div(t.AcceptedLiters).Round(4)
	t.NetAmount = t.GrossAmount.Sub(transportDeduction)
	if t.NetAmount.IsNegative() {
		return nil, shared.ErrInvalidDeduction.WithDetails(map[string]any{
			"gross_amount":        t.GrossAmount.String(),
			"transport_deduction": transportDeduction.String(),
		})
	}
	return t, nil
}
