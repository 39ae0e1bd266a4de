package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appevent "github.com/dairyops/backend/internal/application/event"
	costingapp "github.com/dairyops/backend/internal/application/costing"
	inventoryapp "github.com/dairyops/backend/internal/application/inventory"
	payoutapp "github.com/dairyops/backend/internal/application/payout"
	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/infrastructure/cache"
	"github.com/dairyops/backend/internal/infrastructure/config"
	"github.com/dairyops/backend/internal/infrastructure/event"
	"github.com/dairyops/backend/internal/infrastructure/logger"
	"github.com/dairyops/backend/internal/infrastructure/persistence"
	"github.com/dairyops/backend/internal/infrastructure/telemetry"
	"github.com/dairyops/backend/internal/interfaces/http/handler"
	"github.com/dairyops/backend/internal/interfaces/http/middleware"
	"github.com/dairyops/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}

	// The log pipeline comes first so every later component logs through
	// the OTLP bridge as well as the console.
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log, err := logger.New(logCfg, logProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting dairy back-office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, 0, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer shutdownTelemetry(log, tracerProvider, meterProvider, logProvider)

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{Logger: gormLog})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Repositories
	materialRepo := persistence.NewGormMaterialRepository(db.DB)
	batchRepo := persistence.NewGormBatchRepository(db.DB)
	movementRepo := persistence.NewGormMovementRepository(db.DB)
	recipeRepo := persistence.NewGormRecipeRepository(db.DB)
	collectionRepo := persistence.NewGormCollectionRepository(db.DB)
	payoutRepo := persistence.NewGormPayoutRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	recipeCache := cache.NewRecipeCache(cfg.Redis, cfg.Cache, log)
	defer func() {
		if err := recipeCache.Close(); err != nil {
			log.Error("Error closing recipe cache", zap.Error(err))
		}
	}()

	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:  meterProvider.Meter("dairy-backend/business"),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	// Domain engines
	classifier := inventory.NewFreshnessClassifier(cfg.Freshness.Thresholds())
	stockEngine := inventory.NewStockEngine(classifier, cfg.Reorder.Policy())

	// Application services
	ledgerService := inventoryapp.NewLedgerService(materialRepo, batchRepo, movementRepo, txScope, classifier, log)
	ledgerService.SetMetrics(businessMetrics)
	stockService := inventoryapp.NewStockService(materialRepo, batchRepo, stockEngine, log)
	costingService := costingapp.NewCostingService(materialRepo, batchRepo, recipeRepo, recipeCache, log)
	costingService.SetMetrics(businessMetrics)
	payoutService := payoutapp.NewPayoutService(collectionRepo, payoutRepo, txScope.Payouts(), cfg.Payout.ReferencePrefix, log)
	payoutService.SetMetrics(businessMetrics)

	// Event bus: the audit trail receives every event, the low-stock
	// handler re-assesses materials after stock leaves them.
	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := appevent.NewAuditHandler(auditRepo, log)
	lowStockHandler := appevent.NewLowStockHandler(stockService, log)
	eventBus.Subscribe(auditHandler)
	eventBus.Subscribe(lowStockHandler)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	ledgerService.SetEventPublisher(eventBus)
	payoutService.SetEventPublisher(eventBus)
	log.Info("Event handlers registered",
		zap.Strings("low_stock_events", lowStockHandler.EventTypes()))

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		Logger:         log,
		Tracing:        tracerProvider.IsEnabled(),
		Meters:         meterProvider,
		CORS:           cors,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		log.Fatal("Failed to configure HTTP engine", zap.Error(err))
	}

	routerOpts := []router.RouterOption{
		router.WithAPIVersion("v1"),
		router.WithSystemHandler(handler.NewSystemHandler(cfg.App.Name, version, db)),
	}
	if cfg.Telemetry.PrometheusEnabled {
		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatal("Failed to get underlying sql.DB", zap.Error(err))
		}
		registry, err := telemetry.NewPrometheusRegistry(stockService, sqlDB, log)
		if err != nil {
			log.Fatal("Failed to create Prometheus registry", zap.Error(err))
		}
		routerOpts = append(routerOpts, router.WithMetricsHandler(telemetry.PrometheusHandler(registry)))
	}

	router.NewRouter(engine, routerOpts...).
		Register(handler.NewInventoryHandler(ledgerService, stockService)).
		Register(handler.NewCostingHandler(costingService)).
		Register(handler.NewPayoutHandler(payoutService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownTelemetry flushes the exporters, traces first
func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Error("Error shutting down telemetry provider", zap.Error(err))
		}
	}
}
