package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceSource tells which tier of the resolver produced a price
type PriceSource string

const (
	PriceSourceFIFOBatch    PriceSource = "FIFO_BATCH"
	PriceSourceNewestBatch  PriceSource = "NEWEST_BATCH"
	PriceSourceStandardCost PriceSource = "STANDARD_COST"
)

// PriceQuote is the single costing price for a material at a point in time.
// UnitPrice is what consuming now would cost; NewestPrice is what the next
// purchase is expected to cost.
type PriceQuote struct {
	MaterialID          uuid.UUID       `json:"material_id"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	Source              PriceSource     `json:"source"`
	BatchID             *uuid.UUID      `json:"batch_id,omitempty"`
	NewestPrice         decimal.Decimal `json:"newest_price"`
	NewestBatchID       *uuid.UUID      `json:"newest_batch_id,omitempty"`
	CostIncreaseWarning bool            `json:"cost_increase_warning"`
}

// ResolvePrice selects the costing price for m from its batches.
//
// Tier 1 is the oldest (ReceivedAt, ID) non-expired batch with remaining
// stock and a positive cost. Tier 2 is the most recently received
// non-expired priced batch regardless of remaining stock. Tier 3 is the
// material's standard cost.
func ResolvePrice(m *Material, batches []*Batch) PriceQuote {
	var fifo, newest *Batch
	for _, b := range batches {
		if b.MaterialID != m.ID || b.Status == BatchStatusExpired || !b.IsPriced() {
			continue
		}
		if b.RemainingQuantity.IsPositive() && (fifo == nil || CompareFIFO(b, fifo) < 0) {
			fifo = b
		}
		if newest == nil || CompareFIFO(b, newest) > 0 {
			newest = b
		}
	}

	quote := PriceQuote{
		MaterialID:  m.ID,
		UnitPrice:   m.StandardCost,
		Source:      PriceSourceStandardCost,
		NewestPrice: m.StandardCost,
	}
	if newest != nil {
		id := newest.ID
		quote.NewestPrice = newest.UnitCost
		quote.NewestBatchID = &id
		quote.UnitPrice = newest.UnitCost
		quote.Source = PriceSourceNewestBatch
		quote.BatchID = &id
	}
	if fifo != nil {
		id := fifo.ID
		quote.UnitPrice = fifo.UnitCost
		quote.Source = PriceSourceFIFOBatch
		quote.BatchID = &id
	}
	quote.CostIncreaseWarning = quote.NewestPrice.GreaterThan(quote.UnitPrice)
	return quote
}
