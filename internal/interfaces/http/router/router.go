package router

import (
	"net/http"

	"github.com/dairyops/backend/internal/infrastructure/logger"
	"github.com/dairyops/backend/internal/infrastructure/telemetry"
	"github.com/dairyops/backend/internal/interfaces/http/handler"
	"github.com/dairyops/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// EngineConfig holds the settings of the middleware chain
type EngineConfig struct {
	ServiceName    string
	Logger         *zap.Logger
	Tracing        bool
	Meters         *telemetry.MeterProvider
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
}

// NewEngine creates a gin engine with the API middleware chain installed.
// Order matters: the request id is assigned first so every later
// middleware (and a recovered panic) can log it.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(cfg.Logger))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.Tracing,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(cfg.Meters))
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	engine.Use(middleware.Secure())
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	engine.NoRoute(middleware.NoRoute())
	return engine, nil
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
	system     *handler.SystemHandler
	metrics    http.Handler
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithSystemHandler mounts /health and /api/<version>/system/info
func WithSystemHandler(h *handler.SystemHandler) RouterOption {
	return func(r *Router) {
		r.system = h
	}
}

// WithMetricsHandler mounts a Prometheus scrape endpoint at /metrics
func WithMetricsHandler(h http.Handler) RouterOption {
	return func(r *Router) {
		r.metrics = h
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	if r.system != nil {
		r.engine.GET("/health", r.system.Health)
	}
	if r.metrics != nil {
		r.engine.GET("/metrics", gin.WrapH(r.metrics))
	}

	api := r.engine.Group("/api/" + r.apiVersion)
	if r.system != nil {
		api.GET("/system/info", r.system.GetSystemInfo)
	}

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}
