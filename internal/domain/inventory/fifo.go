package inventory

import (
	"bytes"
	"iter"
	"slices"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompareFIFO orders batches ascending by (ReceivedAt, ID)
func CompareFIFO(a, b *Batch) int {
	if c := a.ReceivedAt.Compare(b.ReceivedAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// SortFIFO sorts batches in place into FIFO order
func SortFIFO(batches []*Batch) {
	slices.SortFunc(batches, CompareFIFO)
}

// AvailableInFIFOOrder yields the available batches of a snapshot in FIFO
// order. The sequence is finite and can be ranged over repeatedly.
func AvailableInFIFOOrder(batches []*Batch) iter.Seq[*Batch] {
	ordered := make([]*Batch, 0, len(batches))
	for _, b := range batches {
		if b.IsAvailable() {
			ordered = append(ordered, b)
		}
	}
	SortFIFO(ordered)

	return func(yield func(*Batch) bool) {
		for _, b := range ordered {
			if !yield(b) {
				return
			}
		}
	}
}

// Allocation is the quantity taken from one batch by a consumption
type Allocation struct {
	BatchID  uuid.UUID       `json:"batch_id"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Cost     decimal.Decimal `json:"cost"`
}

// ConsumptionPlan is the FIFO allocation decided for one consume request
type ConsumptionPlan struct {
	MaterialID  uuid.UUID
	Requested   decimal.Decimal
	Allocations []Allocation
	TotalCost   decimal.Decimal
}

// isConsumable excludes expired, exhausted and zero-cost batches
func isConsumable(b *Batch, materialID uuid.UUID) bool {
	return b.MaterialID == materialID && b.IsAvailable() && b.IsPriced()
}

// PlanConsumption allocates quantity across batches oldest first.
// The batches are not modified; see ApplyTo.
func PlanConsumption(materialID uuid.UUID, batches []*Batch, quantity decimal.Decimal) (*ConsumptionPlan, error) {
	if !quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}
	if !shared.FitsStoredScale(quantity) {
		return nil, shared.ErrQuantityScale
	}

	candidates := make([]*Batch, 0, len(batches))
	available := decimal.Zero
	for _, b := range batches {
		if isConsumable(b, materialID) {
			candidates = append(candidates, b)
			available = available.Add(b.RemainingQuantity)
		}
	}
	if available.LessThan(quantity) {
		return nil, shared.ErrInsufficientStock.WithDetails(map[string]any{
			"material_id": materialID.String(),
			"requested":   quantity.String(),
			"available":   available.String(),
		})
	}

	SortFIFO(candidates)

	plan := &ConsumptionPlan{
		MaterialID: materialID,
		Requested:  quantity,
		TotalCost:  decimal.Zero,
	}
	remaining := quantity
	for _, b := range candidates {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, b.RemainingQuantity)
		cost := take.Mul(b.UnitCost).Round(4)
		plan.Allocations = append(plan.Allocations, Allocation{
			BatchID:  b.ID,
			Quantity: take,
			UnitCost: b.UnitCost,
			Cost:     cost,
		})
		plan.TotalCost = plan.TotalCost.Add(cost)
		remaining = remaining.Sub(take)
	}
	return plan, nil
}

// ApplyTo decrements the planned batches. It returns the touched batches in
// allocation order. A mismatch between plan and batches is reported as a
// concurrency conflict so that the surrounding transaction rolls back.
func (p *ConsumptionPlan) ApplyTo(batches []*Batch) ([]*Batch, error) {
	byID := make(map[uuid.UUID]*Batch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}

	touched := make([]*Batch, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		b, ok := byID[a.BatchID]
		if !ok {
			return nil, shared.ErrConcurrencyConflict
		}
		taken, err := b.Consume(a.Quantity)
		if err != nil {
			return nil, err
		}
		if !taken.Equal(a.Quantity) {
			return nil, shared.ErrConcurrencyConflict
		}
		touched = append(touched, b)
	}
	return touched, nil
}
