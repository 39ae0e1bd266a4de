package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dairyops/backend/internal/interfaces/http/dto"
	"github.com/dairyops/backend/internal/interfaces/http/handler"
	"github.com/dairyops/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	rg.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.AbortWithStatus(http.StatusRequestEntityTooLarge)
			return
		}
		c.JSON(http.StatusOK, body)
	})
	rg.GET("/panic", func(c *gin.Context) { panic("boom") })
}

type fakeDB struct{ err error }

func (f fakeDB) Ping() error { return f.err }

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = []string{"https://office.example.com"}
	engine, err := NewEngine(EngineConfig{
		ServiceName: "dairy-test",
		CORS:        cors,
		MaxBodySize: 64,
	})
	require.NoError(t, err)
	return engine
}

func serve(engine *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := newTestEngine(t)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("dairy_materials_by_status 1\n"))
	})
	NewRouter(engine,
		WithSystemHandler(handler.NewSystemHandler("dairy", "1.2.0", fakeDB{})),
		WithMetricsHandler(metrics),
	).Register(pingRoutes{}).Setup()

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"registered route", "/api/v1/ping", http.StatusOK, "pong"},
		{"health", "/health", http.StatusOK, `"healthy"`},
		{"system info", "/api/v1/system/info", http.StatusOK, `"1.2.0"`},
		{"metrics", "/metrics", http.StatusOK, "dairy_materials_by_status"},
		{"unknown route", "/api/v1/cows", http.StatusNotFound, dto.ErrCodeRouteNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(engine, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestRouterSetup_WithoutOptionalRoutes(t *testing.T) {
	engine := newTestEngine(t)
	NewRouter(engine, WithAPIVersion("v2")).Register(pingRoutes{}).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v2/ping", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/metrics", "").Code)
}

func TestHealth_DatabaseDown(t *testing.T) {
	engine := newTestEngine(t)
	NewRouter(engine, WithSystemHandler(handler.NewSystemHandler("dairy", "1.2.0", fakeDB{err: errors.New("refused")}))).Setup()

	w := serve(engine, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Data handler.HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "down", body.Data.Database)
}

func TestNewEngine_Middleware(t *testing.T) {
	engine := newTestEngine(t)
	NewRouter(engine).Register(pingRoutes{}).Setup()

	t.Run("recovers from panics", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/api/v1/panic", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("limits request bodies", func(t *testing.T) {
		w := serve(engine, http.MethodPost, "/api/v1/echo", `{"note":"`+strings.Repeat("x", 128)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

		w = serve(engine, http.MethodPost, "/api/v1/echo", `{"note":"ok"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("answers preflight for allowed origins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/ping", nil)
		req.Header.Set("Origin", "https://office.example.com")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://office.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("keeps client request ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
	})
}

func TestNewEngine_RejectsBadTrustedProxy(t *testing.T) {
	_, err := NewEngine(EngineConfig{TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
}
