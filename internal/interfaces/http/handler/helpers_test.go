package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	costingapp "github.com/dairyops/backend/internal/application/costing"
	inventoryapp "github.com/dairyops/backend/internal/application/inventory"
	payoutapp "github.com/dairyops/backend/internal/application/payout"
	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/infrastructure/cache"
	"github.com/dairyops/backend/internal/infrastructure/persistence"
	"github.com/dairyops/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

// api serves every handler over an in-memory database
type api struct {
	engine *gin.Engine
	now    time.Time
}

func newAPI(t *testing.T) *api {
	t.Helper()

	database, err := persistence.Open(sqlite.Open(":memory:"), persistence.Options{})
	require.NoError(t, err)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.DB.AutoMigrate(persistence.Models()...))

	a := &api{now: time.Date(2026, time.March, 16, 6, 30, 0, 0, time.UTC)}
	clock := func() time.Time { return a.now }

	materials := persistence.NewGormMaterialRepository(database.DB)
	batches := persistence.NewGormBatchRepository(database.DB)
	scope := persistence.NewGormTransactionScope(database.DB)
	classifier := inventory.NewFreshnessClassifier(inventory.DefaultFreshnessThresholds())

	ledger := inventoryapp.NewLedgerService(materials, batches,
		persistence.NewGormMovementRepository(database.DB), scope, classifier, zap.NewNop())
	ledger.SetClock(clock)
	stock := inventoryapp.NewStockService(materials, batches,
		inventory.NewStockEngine(classifier, inventory.DefaultReorderPolicy()), zap.NewNop())
	stock.SetClock(clock)

	recipeCache := cache.NewInMemoryRecipeCache(cache.WithCapacity(16), cache.WithTTL(time.Minute))
	t.Cleanup(func() { _ = recipeCache.Close() })
	costing := costingapp.NewCostingService(materials, batches,
		persistence.NewGormRecipeRepository(database.DB), recipeCache, zap.NewNop())
	costing.SetClock(clock)

	payouts := payoutapp.NewPayoutService(
		persistence.NewGormCollectionRepository(database.DB),
		persistence.NewGormPayoutRepository(database.DB),
		scope.Payouts(), "PAY", zap.NewNop())
	payouts.SetClock(clock)

	a.engine = gin.New()
	a.engine.Use(middleware.RequestID())
	v1 := a.engine.Group("/api/v1")
	NewInventoryHandler(ledger, stock).RegisterRoutes(v1)
	NewCostingHandler(costing).RegisterRoutes(v1)
	NewPayoutHandler(payouts).RegisterRoutes(v1)
	return a
}

// do sends a request with an optional JSON body
func (a *api) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(encoded)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// data decodes the data member of a success envelope into out
func data(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	require.True(t, envelope.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}
