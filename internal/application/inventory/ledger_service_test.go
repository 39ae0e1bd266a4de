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

func TestLedgerService_RegisterMaterial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("creates then updates by code", func(t *testing.T) {
		created, err := f.ledger.RegisterMaterial(ctx, appinv.RegisterMaterialCommand{
			Code: "milk", Name: "Raw milk", Unit: "L", ReorderLevel: dec("50"), StandardCost: dec("0.45"),
		})
		require.NoError(t, err)
		assert.Equal(t, "MILK", created.Code)
		assert.True(t, created.Perishable)

		updated, err := f.ledger.RegisterMaterial(ctx, appinv.RegisterMaterialCommand{
			Code: "MILK", Name: "Whole milk", Unit: "L", ReorderLevel: dec("80"),
			MaxLevel: ptr(dec("500")), Perishable: ptr(false),
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Whole milk", updated.Name)
		assert.True(t, updated.ReorderLevel.Equal(dec("80")))
		assert.False(t, updated.Perishable)
		assert.Greater(t, updated.Version, created.Version)

		got, err := f.ledger.GetMaterial(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Whole milk", got.Name)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := f.ledger.RegisterMaterial(ctx, appinv.RegisterMaterialCommand{Name: "No code", Unit: "kg"})
		require.ErrorIs(t, err, shared.ErrValidationFailed)
		de, _ := shared.AsDomainError(err)
		assert.Contains(t, de.Details, "code")
	})

	t.Run("rejects max below reorder level", func(t *testing.T) {
		_, err := f.ledger.RegisterMaterial(ctx, appinv.RegisterMaterialCommand{
			Code: "CREAM", Name: "Cream", Unit: "L", ReorderLevel: dec("10"), MaxLevel: ptr(dec("5")),
		})
		assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
	})

	t.Run("lists by category", func(t *testing.T) {
		_, err := f.ledger.RegisterMaterial(ctx, appinv.RegisterMaterialCommand{
			Code: "SUGAR", Name: "Sugar", Unit: "kg", Category: "dry",
		})
		require.NoError(t, err)

		list, err := f.ledger.ListMaterials(ctx, appinv.ListMaterialsQuery{Category: "dry"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "SUGAR", list[0].Code)
	})
}

func TestLedgerService_ReceiveBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	milk := f.material(t, "MILK", "5")

	batchID := f.receive(t, milk, "100", "0.40", at(9, 6), ptr(at(12, 6)))

	assert.True(t, f.onHand(t, milk).Equal(dec("100")))
	assert.Equal(t, []string{inventory.EventTypeBatchReceived}, f.events.types())

	movements, err := f.ledger.ListMovements(ctx, milk, 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, string(inventory.MovementTypeReceipt), movements[0].Type)
	assert.Equal(t, batchID, movements[0].BatchID)
	assert.True(t, movements[0].Amount.Equal(dec("40")))

	t.Run("rejects non-positive quantity without writing", func(t *testing.T) {
		_, err := f.ledger.ReceiveBatch(ctx, appinv.ReceiveBatchCommand{
			MaterialID: milk, Quantity: dec("0"), UnitCost: dec("0.40"),
		})
		require.ErrorIs(t, err, shared.ErrInvalidQuantity)
		assert.True(t, f.onHand(t, milk).Equal(dec("100")))

		batches, err := f.ledger.ListAvailableBatches(ctx, milk)
		require.NoError(t, err)
		assert.Len(t, batches, 1)
	})

	t.Run("rejects expiry before receipt", func(t *testing.T) {
		_, err := f.ledger.ReceiveBatch(ctx, appinv.ReceiveBatchCommand{
			MaterialID: milk, Quantity: dec("1"), UnitCost: dec("0.40"),
			ReceivedAt: ptr(at(9, 6)), ExpiryAt: ptr(at(8, 6)),
		})
		assert.ErrorIs(t, err, shared.ErrInvalidExpiry)
	})

	t.Run("unknown material", func(t *testing.T) {
		_, err := f.ledger.ReceiveBatch(ctx, appinv.ReceiveBatchCommand{
			MaterialID: uuid.New(), Quantity: dec("1"), UnitCost: dec("1"),
		})
		assert.ErrorIs(t, err, shared.ErrMaterialNotFound)
	})

	t.Run("requires material id", func(t *testing.T) {
		_, err := f.ledger.ReceiveBatch(ctx, appinv.ReceiveBatchCommand{Quantity: dec("1")})
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}

func TestLedgerService_ApproveBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	milk := f.material(t, "MILK", "5")
	batchID := f.receive(t, milk, "10", "0.40", at(9, 6), nil)

	approved, err := f.ledger.ApproveBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, string(inventory.BatchStatusApproved), approved.Status)
	require.NotNil(t, approved.ApprovedAt)

	_, err = f.ledger.ApproveBatch(ctx, batchID)
	assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)

	_, err = f.ledger.ApproveBatch(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrBatchNotFound)

	assert.Contains(t, f.events.types(), inventory.EventTypeBatchApproved)
}

func TestLedgerService_Consume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	milk := f.material(t, "MILK", "5")

	free := f.receive(t, milk, "5", "0", at(9, 4), nil)
	first := f.receive(t, milk, "10", "0.40", at(9, 8), nil)
	second := f.receive(t, milk, "10", "0.50", at(9, 10), nil)

	result, err := f.ledger.Consume(ctx, appinv.ConsumeCommand{MaterialID: milk, Quantity: dec("15"), Reference: "PROD-1"})
	require.NoError(t, err)

	require.Len(t, result.Allocations, 2)
	assert.Equal(t, first, result.Allocations[0].BatchID)
	assert.True(t, result.Allocations[0].Quantity.Equal(dec("10")))
	assert.Equal(t, second, result.Allocations[1].BatchID)
	assert.True(t, result.Allocations[1].Quantity.Equal(dec("5")))
	assert.True(t, result.TotalCost.Equal(dec("6.5")))
	assert.True(t, result.OnHandAfter.Equal(dec("10")))
	assert.True(t, f.onHand(t, milk).Equal(dec("10")))

	b, err := f.batches.FindByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, inventory.BatchStatusConsumed, b.Status)
	b, err = f.batches.FindByID(ctx, free)
	require.NoError(t, err)
	assert.True(t, b.RemainingQuantity.Equal(dec("5")), "zero-cost batch is never drawn")

	movements, err := f.movements.FindByMaterial(ctx, milk, 0)
	require.NoError(t, err)
	consumption := 0
	for _, m := range movements {
		if m.Type == inventory.MovementTypeConsumption {
			consumption++
			assert.Equal(t, "PROD-1", m.Reference)
		}
	}
	assert.Equal(t, 2, consumption)
	assert.Contains(t, f.events.types(), inventory.EventTypeStockConsumed)

	t.Run("insufficient stock changes nothing", func(t *testing.T) {
		_, err := f.ledger.Consume(ctx, appinv.ConsumeCommand{MaterialID: milk, Quantity: dec("6")})
		require.ErrorIs(t, err, shared.ErrInsufficientStock)

		assert.True(t, f.onHand(t, milk).Equal(dec("10")))
		b, err := f.batches.FindByID(ctx, second)
		require.NoError(t, err)
		assert.True(t, b.RemainingQuantity.Equal(dec("5")))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := f.ledger.Consume(ctx, appinv.ConsumeCommand{MaterialID: milk, Quantity: dec("-1")})
		assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
	})

	t.Run("unknown material", func(t *testing.T) {
		_, err := f.ledger.Consume(ctx, appinv.ConsumeCommand{MaterialID: uuid.New(), Quantity: dec("1")})
		assert.ErrorIs(t, err, shared.ErrMaterialNotFound)
	})
}

func TestLedgerService_AvailableBatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	milk := f.material(t, "MILK", "5")

	late := f.receive(t, milk, "3", "0.50", at(9, 12), nil)
	early := f.receive(t, milk, "3", "0.40", at(9, 6), nil)
	_, err := f.ledger.Consume(ctx, appinv.ConsumeCommand{MaterialID: milk, Quantity: dec("3")})
	require.NoError(t, err)
	third := f.receive(t, milk, "3", "0.45", at(9, 9), nil)

	seq := f.ledger.AvailableBatches(ctx, milk)
	for range 2 {
		var ids []uuid.UUID
		for b, err := range seq {
			require.NoError(t, err)
			ids = append(ids, b.ID)
		}
		assert.Equal(t, []uuid.UUID{third, late}, ids)
	}

	b, err := f.batches.FindByID(ctx, early)
	require.NoError(t, err)
	assert.Equal(t, inventory.BatchStatusConsumed, b.Status)

	_, err = f.ledger.ListAvailableBatches(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrMaterialNotFound)
}

func TestLedgerService_SweepExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	milk := f.material(t, "MILK", "5")
	cream := f.material(t, "CREAM", "5")

	aged := f.receive(t, milk, "4", "1", at(8, 10), nil)
	dated := f.receive(t, milk, "6", "2", at(9, 0), ptr(at(10, 6)))
	fresh := f.receive(t, milk, "3", "1", at(10, 0), ptr(at(12, 0)))
	f.receive(t, cream, "2", "3", at(10, 6), nil)

	report, err := f.ledger.BatchFreshness(ctx, milk, f.now)
	require.NoError(t, err)
	require.Len(t, report, 3)
	assert.Equal(t, appinv.RegimeAge, report[0].Regime)
	assert.Equal(t, string(inventory.FreshnessExpired), report[0].Freshness)
	assert.True(t, at(10, 10).Equal(report[0].EffectiveExpiry))
	assert.Equal(t, appinv.RegimeExpiryDate, report[1].Regime)
	assert.Equal(t, string(inventory.FreshnessGood), report[2].Freshness)

	result, err := f.ledger.SweepExpired(ctx, f.now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{aged, dated}, result.ExpiredBatchIDs)
	require.Len(t, result.WriteOffs, 2)

	assert.True(t, f.onHand(t, milk).Equal(dec("3")))
	assert.True(t, f.onHand(t, cream).Equal(dec("2")))

	for _, id := range []uuid.UUID{aged, dated} {
		b, err := f.batches.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, inventory.BatchStatusExpired, b.Status)
		require.NotNil(t, b.ExpiredAt)
	}
	b, err := f.batches.FindByID(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, inventory.BatchStatusReceived, b.Status)

	movements, err := f.movements.FindByMaterial(ctx, milk, 0)
	require.NoError(t, err)
	expiry := 0
	for _, m := range movements {
		if m.Type == inventory.MovementTypeExpiry {
			expiry++
		}
	}
	assert.Equal(t, 2, expiry)

	_, err = f.ledger.Consume(ctx, appinv.ConsumeCommand{MaterialID: milk, Quantity: dec("4")})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock, "expired stock is not consumable")

	again, err := f.ledger.SweepExpired(ctx, f.now)
	require.NoError(t, err)
	assert.Empty(t, again.ExpiredBatchIDs)
}

func TestLedgerService_RejectsDigitsBeyondStoredScale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	milk := f.material(t, "MILK", "5")
	batchID := f.receive(t, milk, "5", "0.40", at(9, 8), nil)

	t.Run("receipt", func(t *testing.T) {
		receivedAt := at(9, 9)
		_, err := f.ledger.ReceiveBatch(ctx, appinv.ReceiveBatchCommand{
			MaterialID: milk,
			Quantity:   dec("0.00004"),
			UnitCost:   dec("0.40"),
			ReceivedAt: &receivedAt,
		})
		require.ErrorIs(t, err, shared.ErrInvalidQuantity)
		assert.True(t, f.onHand(t, milk).Equal(dec("5")))
	})

	t.Run("consumption leaves the batch untouched", func(t *testing.T) {
		_, err := f.ledger.Consume(ctx, appinv.ConsumeCommand{MaterialID: milk, Quantity: dec("4.99999")})
		require.ErrorIs(t, err, shared.ErrInvalidQuantity)

		b, err := f.batches.FindByID(ctx, batchID)
		require.NoError(t, err)
		assert.True(t, b.RemainingQuantity.Equal(dec("5")))
		assert.Equal(t, inventory.BatchStatusReceived, b.Status)
		assert.True(t, f.onHand(t, milk).Equal(dec("5")))
	})
}
