package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	appinv "github.com/dairyops/backend/internal/application/inventory"
	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/dairyops/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	ledger    *appinv.LedgerService
	stock     *appinv.StockService
	materials *persistence.GormMaterialRepository
	batches   *persistence.GormBatchRepository
	movements *persistence.GormMovementRepository
	events    *recordingPublisher
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database, err := persistence.Open(sqlite.Open(":memory:"), persistence.Options{})
	require.NoError(t, err)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.DB.AutoMigrate(persistence.Models()...))

	f := &fixture{
		db:        database.DB,
		materials: persistence.NewGormMaterialRepository(database.DB),
		batches:   persistence.NewGormBatchRepository(database.DB),
		movements: persistence.NewGormMovementRepository(database.DB),
		events:    &recordingPublisher{},
		now:       at(10, 12),
	}

	classifier := inventory.NewFreshnessClassifier(inventory.DefaultFreshnessThresholds())
	f.ledger = appinv.NewLedgerService(
		f.materials, f.batches, f.movements,
		persistence.NewGormTransactionScope(database.DB),
		classifier, zap.NewNop(),
	)
	f.ledger.SetEventPublisher(f.events)
	f.ledger.SetClock(func() time.Time { return f.now })

	f.stock = appinv.NewStockService(f.materials, f.batches,
		inventory.NewStockEngine(classifier, inventory.DefaultReorderPolicy()), zap.NewNop())
	f.stock.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) material(t *testing.T, code, reorder string) uuid.UUID {
	t.Helper()
	resp, err := f.ledger.RegisterMaterial(context.Background(), appinv.RegisterMaterialCommand{
		Code:         code,
		Name:         "Material " + code,
		Unit:         "L",
		Category:     "dairy",
		ReorderLevel: dec(reorder),
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *fixture) receive(t *testing.T, materialID uuid.UUID, qty, cost string, receivedAt time.Time, expiry *time.Time) uuid.UUID {
	t.Helper()
	resp, err := f.ledger.ReceiveBatch(context.Background(), appinv.ReceiveBatchCommand{
		MaterialID: materialID,
		Quantity:   dec(qty),
		UnitCost:   dec(cost),
		ReceivedAt: &receivedAt,
		ExpiryAt:   expiry,
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *fixture) onHand(t *testing.T, materialID uuid.UUID) decimal.Decimal {
	t.Helper()
	m, err := f.materials.FindByID(context.Background(), materialID)
	require.NoError(t, err)
	return m.OnHandQuantity
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func at(day, hour int) time.Time {
	return time.Date(2026, time.March, day, hour, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}
