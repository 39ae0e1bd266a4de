package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens an in-memory SQLite database with the full schema.
// One connection keeps every statement on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := Open(sqlite.Open(":memory:"), Options{})
	require.NoError(t, err)

	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, database.DB.AutoMigrate(Models()...))
	return database.DB
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func at(day, hour int) time.Time {
	return time.Date(2026, time.March, day, hour, 0, 0, 0, time.UTC)
}

func seedMaterial(t *testing.T, db *gorm.DB, code string) *inventory.Material {
	t.Helper()

	m, err := inventory.NewMaterial(code, "Material "+code, "L", "dairy")
	require.NoError(t, err)
	require.NoError(t, NewGormMaterialRepository(db).Save(context.Background(), m))
	return m
}

func seedBatch(t *testing.T, db *gorm.DB, materialID uuid.UUID, number string, qty, cost string, receivedAt time.Time) *inventory.Batch {
	t.Helper()

	b, err := inventory.NewBatch(inventory.BatchReceipt{
		MaterialID:  materialID,
		BatchNumber: number,
		Quantity:    dec(qty),
		UnitCost:    dec(cost),
		ReceivedAt:  receivedAt,
	})
	require.NoError(t, err)
	require.NoError(t, NewGormBatchRepository(db).Save(context.Background(), b))
	return b
}

func batchIDs(batches []*inventory.Batch) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	return ids
}
