package telemetry

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Prometheus metric names.
const (
	MetricMaterialsByStockStatus = "dairy_materials_by_stock_status"
	MetricMaterialsByPriority    = "dairy_materials_by_priority"
)

const snapshotTimeout = 5 * time.Second

// StockSnapshot counts materials per stock status and per reorder priority
type StockSnapshot struct {
	ByStatus   map[string]int
	ByPriority map[string]int
}

// StockSnapshotProvider computes the current stock picture on demand
type StockSnapshotProvider interface {
	StockSnapshot(ctx context.Context) (StockSnapshot, error)
}

// StockCollector is a prometheus.Collector that assesses stock on every
// scrape, so the gauges never lag behind the ledger.
type StockCollector struct {
	provider StockSnapshotProvider
	logger   *zap.Logger

	byStatus   *prometheus.Desc
	byPriority *prometheus.Desc
}

// NewStockCollector creates a collector over provider
func NewStockCollector(provider StockSnapshotProvider, logger *zap.Logger) *StockCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockCollector{
		provider: provider,
		logger:   logger,
		byStatus: prometheus.NewDesc(MetricMaterialsByStockStatus,
			"Number of materials in each stock status", []string{"status"}, nil),
		byPriority: prometheus.NewDesc(MetricMaterialsByPriority,
			"Number of materials at each reorder priority", []string{"priority"}, nil),
	}
}

// Describe implements prometheus.Collector
func (c *StockCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.byStatus
	ch <- c.byPriority
}

// Collect implements prometheus.Collector. A failed snapshot is logged and
// the scrape carries no stock gauges.
func (c *StockCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	snapshot, err := c.provider.StockSnapshot(ctx)
	if err != nil {
		c.logger.Error("Failed to compute stock snapshot", zap.Error(err))
		return
	}
	for status, n := range snapshot.ByStatus {
		ch <- prometheus.MustNewConstMetric(c.byStatus, prometheus.GaugeValue, float64(n), status)
	}
	for priority, n := range snapshot.ByPriority {
		ch <- prometheus.MustNewConstMetric(c.byPriority, prometheus.GaugeValue, float64(n), priority)
	}
}

// NewPrometheusRegistry builds the registry served on /metrics: runtime
// and process collectors, connection pool stats when sqlDB is set, and the
// stock collector when provider is set.
func NewPrometheusRegistry(provider StockSnapshotProvider, sqlDB *sql.DB, logger *zap.Logger) (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()

	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	if sqlDB != nil {
		cs = append(cs, collectors.NewDBStatsCollector(sqlDB, "dairy"))
	}
	if provider != nil {
		cs = append(cs, NewStockCollector(provider, logger))
	}
	for _, c := range cs {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// PrometheusHandler serves registry in the text exposition format
func PrometheusHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
