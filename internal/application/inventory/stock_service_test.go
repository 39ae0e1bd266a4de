package inventory_test

import (
	"context"
	"testing"

	appinv "github.com/dairyops/backend/internal/application/inventory"
	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedStock builds one material per priority level at f.now
func seedStock(t *testing.T, f *fixture) map[string]uuid.UUID {
	t.Helper()
	ids := map[string]uuid.UUID{
		"BUTTER": f.material(t, "BUTTER", "10"),
		"CREAM":  f.material(t, "CREAM", "10"),
		"CHEESE": f.material(t, "CHEESE", "10"),
		"YOGURT": f.material(t, "YOGURT", "2"),
	}
	f.receive(t, ids["CREAM"], "5", "1.20", at(10, 0), nil)
	f.receive(t, ids["CHEESE"], "8", "4.00", at(10, 0), ptr(at(30, 0)))
	f.receive(t, ids["YOGURT"], "50", "0.80", at(10, 0), ptr(at(30, 0)))
	return ids
}

func TestStockService_Assess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := seedStock(t, f)

	a, err := f.stock.Assess(ctx, ids["CREAM"])
	require.NoError(t, err)
	assert.Equal(t, inventory.StockStatusLowStock, a.Status)
	assert.Equal(t, inventory.PriorityHigh, a.Priority)
	assert.Equal(t, 1, a.ActiveBatches)
	require.NotNil(t, a.NearestExpiry)
	assert.True(t, at(12, 0).Equal(*a.NearestExpiry))
	assert.True(t, a.SuggestedReorderQuantity.Equal(dec("14")))
	assert.True(t, a.CoverageIsEstimate)
	require.NotNil(t, a.EstimatedDaysCoverage)
	assert.True(t, a.EstimatedDaysCoverage.Equal(dec("3.5")))

	a, err = f.stock.Assess(ctx, ids["BUTTER"])
	require.NoError(t, err)
	assert.Equal(t, inventory.StockStatusOutOfStock, a.Status)
	assert.Equal(t, inventory.PriorityUrgent, a.Priority)
	assert.Nil(t, a.NearestExpiry)

	_, err = f.stock.Assess(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrMaterialNotFound)
}

func TestStockService_ReorderAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedStock(t, f)

	alerts, err := f.stock.ReorderAlerts(ctx, appinv.AlertsQuery{})
	require.NoError(t, err)
	codes := make([]string, 0, len(alerts))
	for _, a := range alerts {
		codes = append(codes, a.MaterialCode)
	}
	assert.Equal(t, []string{"BUTTER", "CREAM", "CHEESE"}, codes)

	alerts, err = f.stock.ReorderAlerts(ctx, appinv.AlertsQuery{MinPriority: "HIGH"})
	require.NoError(t, err)
	assert.Len(t, alerts, 2)

	t.Run("LOW lists every level most urgent first", func(t *testing.T) {
		alerts, err := f.stock.ReorderAlerts(ctx, appinv.AlertsQuery{MinPriority: "LOW"})
		require.NoError(t, err)
		codes := make([]string, 0, len(alerts))
		priorities := make([]inventory.Priority, 0, len(alerts))
		for _, a := range alerts {
			codes = append(codes, a.MaterialCode)
			priorities = append(priorities, a.Priority)
		}
		assert.Equal(t, []string{"BUTTER", "CREAM", "CHEESE", "YOGURT"}, codes)
		assert.Equal(t, []inventory.Priority{
			inventory.PriorityUrgent,
			inventory.PriorityHigh,
			inventory.PriorityMedium,
			inventory.PriorityLow,
		}, priorities)
	})

	_, err = f.stock.ReorderAlerts(ctx, appinv.AlertsQuery{MinPriority: "SOON"})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestStockService_StockSnapshot(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f)

	snapshot, err := f.stock.StockSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"OUT_OF_STOCK": 1,
		"LOW_STOCK":    2,
		"OVERSTOCK":    0,
		"NORMAL":       1,
	}, snapshot.ByStatus)
	assert.Equal(t, map[string]int{
		"URGENT": 1,
		"HIGH":   1,
		"MEDIUM": 1,
		"LOW":    1,
	}, snapshot.ByPriority)
}
