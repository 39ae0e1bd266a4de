package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics records batch ledger, costing and payout activity.
// A nil *BusinessMetrics is valid and records nothing, so services can be
// built without telemetry in tests.
type BusinessMetrics struct {
	logger *zap.Logger

	batchesReceived     *Counter
	consumedQuantity    *FloatCounter
	consumptionRejected *Counter
	batchesExpired      *Counter
	payoutsGenerated    *Counter
	payoutNetAmount     *Histogram
	recipeCostingTime   *Histogram
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewBusinessMetrics creates the dairy instruments on cfg.Meter
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger}
	var err error

	if bm.batchesReceived, err = NewCounter(cfg.Meter,
		"dairy_batches_received_total", "Raw-material batches received", "{batches}"); err != nil {
		return nil, err
	}
	if bm.consumedQuantity, err = NewFloatCounter(cfg.Meter,
		"dairy_consumed_quantity_total", "Quantity consumed from batches in FIFO order", "{units}"); err != nil {
		return nil, err
	}
	if bm.consumptionRejected, err = NewCounter(cfg.Meter,
		"dairy_consumption_rejected_total", "Consumption requests rejected", "{requests}"); err != nil {
		return nil, err
	}
	if bm.batchesExpired, err = NewCounter(cfg.Meter,
		"dairy_batches_expired_total", "Batches written off by the expiry sweep", "{batches}"); err != nil {
		return nil, err
	}
	if bm.payoutsGenerated, err = NewCounter(cfg.Meter,
		"dairy_payouts_generated_total", "Farmer payouts generated", "{payouts}"); err != nil {
		return nil, err
	}
	if bm.payoutNetAmount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "dairy_payout_net_amount",
		Description: "Net amount of generated payouts",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.recipeCostingTime, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "dairy_recipe_costing_duration_seconds",
		Description: "Time spent resolving prices and costing a recipe",
		Unit:        "s",
		Boundaries:  SmallDurationBuckets,
	}); err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordBatchReceived counts a received batch
func (bm *BusinessMetrics) RecordBatchReceived(ctx context.Context, materialCode string) {
	if bm == nil {
		return
	}
	bm.batchesReceived.Inc(ctx, AttrMaterialCode.String(materialCode))
}

// RecordConsumption adds a consumed quantity
func (bm *BusinessMetrics) RecordConsumption(ctx context.Context, materialCode string, quantity decimal.Decimal) {
	if bm == nil {
		return
	}
	bm.consumedQuantity.Add(ctx, quantity.InexactFloat64(), AttrMaterialCode.String(materialCode))
}

// RecordConsumptionRejected counts a rejected consumption. reason is the
// domain error code.
func (bm *BusinessMetrics) RecordConsumptionRejected(ctx context.Context, materialCode, reason string) {
	if bm == nil {
		return
	}
	bm.consumptionRejected.Inc(ctx,
		AttrMaterialCode.String(materialCode),
		AttrReason.String(reason),
	)
}

// RecordBatchesExpired counts batches written off in one sweep
func (bm *BusinessMetrics) RecordBatchesExpired(ctx context.Context, count int) {
	if bm == nil || count <= 0 {
		return
	}
	bm.batchesExpired.Add(ctx, int64(count))
}

// RecordPayoutGenerated counts a payout and records its net amount
func (bm *BusinessMetrics) RecordPayoutGenerated(ctx context.Context, netAmount decimal.Decimal) {
	if bm == nil {
		return
	}
	status := AttrPayoutStatus.String("DRAFT")
	bm.payoutsGenerated.Inc(ctx, status)
	bm.payoutNetAmount.Record(ctx, netAmount.InexactFloat64(), status)
}

// RecordRecipeCosting records how long a costing pass took
func (bm *BusinessMetrics) RecordRecipeCosting(ctx context.Context, d time.Duration, warnings bool) {
	if bm == nil {
		return
	}
	bm.recipeCostingTime.RecordDuration(ctx, d, attribute.Bool("cost_increase_warning", warnings))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
