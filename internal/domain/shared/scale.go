package shared

import "github.com/shopspring/decimal"

// StoredScale is the number of decimal places quantities, liters, costs and
// amounts are persisted with (DECIMAL(18,4)).
const StoredScale = 4

// Scale errors share the code of the value they reject
var (
	ErrQuantityScale = NewDomainErrorf(CodeInvalidQuantity,
		"Quantity cannot have more than %d decimal places", StoredScale)
	ErrUnitCostScale = NewDomainErrorf(CodeInvalidUnitCost,
		"Unit cost cannot have more than %d decimal places", StoredScale)
	ErrDeductionScale = NewDomainErrorf(CodeInvalidDeduction,
		"Transport deduction cannot have more than %d decimal places", StoredScale)
)

// FitsStoredScale reports whether every value is exact at StoredScale
// places. Trailing zeros do not count: 5.00000 fits, 4.99999 does not.
func FitsStoredScale(values ...decimal.Decimal) bool {
	for _, v := range values {
		if !v.Equal(v.Truncate(StoredScale)) {
			return false
		}
	}
	return true
}
