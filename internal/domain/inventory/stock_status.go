package inventory

import (
	"slices"
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockStatus classifies an item's on-hand position
type StockStatus string

const (
	StockStatusOutOfStock StockStatus = "OUT_OF_STOCK"
	StockStatusLowStock   StockStatus = "LOW_STOCK"
	StockStatusOverstock  StockStatus = "OVERSTOCK"
	StockStatusNormal     StockStatus = "NORMAL"
)

// NeedsReorder returns true when the item is at or below its reorder level
func (s StockStatus) NeedsReorder() bool {
	return s == StockStatusOutOfStock || s == StockStatusLowStock
}

// Priority is the reorder urgency of an item
type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Rank orders priorities, 0 being the most urgent
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// AtLeast reports whether p is as urgent as other or more
func (p Priority) AtLeast(other Priority) bool {
	return p.Rank() <= other.Rank()
}

// ReorderPolicy holds the adjustable constants of the priority and
// reorder-quantity rules.
type ReorderPolicy struct {
	// ExpiryWarningWindow upgrades a low-stock item to High.
	ExpiryWarningWindow time.Duration
	// NearExpiryWindow makes any item High regardless of stock level.
	NearExpiryWindow   time.Duration
	ReorderMultiplier  decimal.Decimal
	MinimumOrderFloor  decimal.Decimal
	NearExpiryScale    decimal.Decimal
	UrgentMinimumFloor decimal.Decimal
	// UsageProxyDays turns the reorder level into a daily usage estimate
	// for the days-coverage figure. It is a heuristic, not a measured rate.
	UsageProxyDays decimal.Decimal
}

// DefaultReorderPolicy returns the default reorder constants
func DefaultReorderPolicy() ReorderPolicy {
	return ReorderPolicy{
		ExpiryWarningWindow: 7 * 24 * time.Hour,
		NearExpiryWindow:    3 * 24 * time.Hour,
		ReorderMultiplier:   decimal.NewFromInt(2),
		MinimumOrderFloor:   decimal.NewFromInt(10),
		NearExpiryScale:     decimal.NewFromFloat(0.7),
		UrgentMinimumFloor:  decimal.NewFromInt(20),
		UsageProxyDays:      decimal.NewFromInt(7),
	}
}

// Validate checks the policy constants
func (p ReorderPolicy) Validate() error {
	if p.ExpiryWarningWindow <= 0 || p.NearExpiryWindow <= 0 {
		return shared.NewDomainError(shared.CodeValidationFailed, "expiry windows must be positive")
	}
	if !p.ReorderMultiplier.IsPositive() || p.MinimumOrderFloor.IsNegative() || p.UrgentMinimumFloor.IsNegative() {
		return shared.NewDomainError(shared.CodeValidationFailed, "reorder multiplier must be positive and floors non-negative")
	}
	if !p.NearExpiryScale.IsPositive() || p.NearExpiryScale.GreaterThan(decimal.NewFromInt(1)) {
		return shared.NewDomainError(shared.CodeValidationFailed, "near-expiry scale must be in (0, 1]")
	}
	if !p.UsageProxyDays.IsPositive() {
		return shared.NewDomainError(shared.CodeValidationFailed, "usage proxy days must be positive")
	}
	return nil
}

// ClassifyStock maps on-hand q, reorder level r and optional max level to a status
func ClassifyStock(q, r decimal.Decimal, maxLevel *decimal.Decimal) StockStatus {
	switch {
	case !q.IsPositive():
		return StockStatusOutOfStock
	case q.LessThanOrEqual(r):
		return StockStatusLowStock
	case maxLevel != nil && q.GreaterThanOrEqual(*maxLevel):
		return StockStatusOverstock
	default:
		return StockStatusNormal
	}
}

// StockAssessment is the stock picture of one material
type StockAssessment struct {
	MaterialID               uuid.UUID        `json:"material_id"`
	MaterialCode             string           `json:"material_code"`
	MaterialName             string           `json:"material_name"`
	Unit                     string           `json:"unit"`
	OnHand                   decimal.Decimal  `json:"on_hand"`
	ReorderLevel             decimal.Decimal  `json:"reorder_level"`
	MaxLevel                 *decimal.Decimal `json:"max_level,omitempty"`
	Status                   StockStatus      `json:"status"`
	Priority                 Priority         `json:"priority"`
	WorstFreshness           Freshness        `json:"worst_freshness"`
	NearestExpiry            *time.Time       `json:"nearest_expiry,omitempty"`
	ActiveBatches            int              `json:"active_batches"`
	SuggestedReorderQuantity decimal.Decimal  `json:"suggested_reorder_quantity"`
	EstimatedDaysCoverage    *decimal.Decimal `json:"estimated_days_coverage,omitempty"`
	CoverageIsEstimate       bool             `json:"coverage_is_estimate"`
}

// StockEngine combines on-hand totals, reorder thresholds and freshness
type StockEngine struct {
	classifier *FreshnessClassifier
	policy     ReorderPolicy
}

// NewStockEngine creates a stock status engine
func NewStockEngine(classifier *FreshnessClassifier, policy ReorderPolicy) *StockEngine {
	return &StockEngine{classifier: classifier, policy: policy}
}

// Policy returns the engine's reorder policy
func (e *StockEngine) Policy() ReorderPolicy {
	return e.policy
}

// Assess builds the stock picture of m from its batches at now
func (e *StockEngine) Assess(m *Material, batches []*Batch, now time.Time) StockAssessment {
	a := StockAssessment{
		MaterialID:     m.ID,
		MaterialCode:   m.Code,
		MaterialName:   m.Name,
		Unit:           m.Unit,
		OnHand:         m.OnHandQuantity,
		ReorderLevel:   m.ReorderLevel,
		MaxLevel:       m.MaxLevel,
		WorstFreshness: FreshnessGood,
	}

	for _, b := range batches {
		if b.MaterialID != m.ID || !b.IsAvailable() {
			continue
		}
		a.ActiveBatches++
		a.WorstFreshness = WorstFreshness(a.WorstFreshness, e.classifier.Classify(b, now))
		expiry := e.classifier.EffectiveExpiry(b)
		if a.NearestExpiry == nil || expiry.Before(*a.NearestExpiry) {
			a.NearestExpiry = &expiry
		}
	}

	a.Status = ClassifyStock(a.OnHand, a.ReorderLevel, a.MaxLevel)
	a.Priority = e.priority(a.Status, a.NearestExpiry, now)
	a.SuggestedReorderQuantity = e.suggestedReorderQuantity(m, a.Status, a.Priority, e.within(a.NearestExpiry, now, e.policy.ExpiryWarningWindow))
	a.EstimatedDaysCoverage = e.estimatedDaysCoverage(m)
	a.CoverageIsEstimate = a.EstimatedDaysCoverage != nil
	return a
}

func (e *StockEngine) within(expiry *time.Time, now time.Time, window time.Duration) bool {
	return expiry != nil && expiry.Sub(now) <= window
}

func (e *StockEngine) priority(status StockStatus, nearestExpiry *time.Time, now time.Time) Priority {
	switch {
	case status == StockStatusOutOfStock:
		return PriorityUrgent
	case status == StockStatusLowStock && e.within(nearestExpiry, now, e.policy.ExpiryWarningWindow):
		return PriorityHigh
	case status == StockStatusLowStock:
		return PriorityMedium
	case e.within(nearestExpiry, now, e.policy.NearExpiryWindow):
		return PriorityHigh
	default:
		return PriorityLow
	}
}

func (e *StockEngine) suggestedReorderQuantity(m *Material, status StockStatus, priority Priority, nearExpiry bool) decimal.Decimal {
	if !status.NeedsReorder() {
		return decimal.Zero
	}
	qty := decimal.Max(
		m.StandardOrderQuantity,
		m.ReorderLevel.Mul(e.policy.ReorderMultiplier),
		e.policy.MinimumOrderFloor,
	)
	if nearExpiry {
		qty = qty.Mul(e.policy.NearExpiryScale)
	}
	if priority == PriorityUrgent {
		qty = decimal.Max(qty, e.policy.UrgentMinimumFloor)
	}
	return qty.Ceil()
}

// estimatedDaysCoverage divides on-hand by reorderLevel/UsageProxyDays.
// Without consumption history this is only an estimate.
func (e *StockEngine) estimatedDaysCoverage(m *Material) *decimal.Decimal {
	if !m.ReorderLevel.IsPositive() {
		return nil
	}
	dailyUsage := m.ReorderLevel.Div(e.policy.UsageProxyDays)
	days := m.OnHandQuantity.Div(dailyUsage).Round(1)
	return &days
}

// SortAlerts orders assessments by priority, then ascending on-hand,
// then ascending nearest expiry (unknown expiry last).
func SortAlerts(assessments []StockAssessment) {
	slices.SortStableFunc(assessments, func(a, b StockAssessment) int {
		if d := a.Priority.Rank() - b.Priority.Rank(); d != 0 {
			return d
		}
		if c := a.OnHand.Cmp(b.OnHand); c != 0 {
			return c
		}
		switch {
		case a.NearestExpiry == nil && b.NearestExpiry == nil:
			return 0
		case a.NearestExpiry == nil:
			return 1
		case b.NearestExpiry == nil:
			return -1
		}
		return a.NearestExpiry.Compare(*b.NearestExpiry)
	})
}
