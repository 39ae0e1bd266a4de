package inventory

import (
	"context"
	"time"

	"github.com/dairyops/backend/internal/application/validation"
	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/dairyops/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertsQuery narrows the reorder alert list
type AlertsQuery struct {
	MinPriority string `form:"min_priority" binding:"omitempty,oneof=URGENT HIGH MEDIUM LOW"`
	Category    string `form:"category"`
}

// StockService derives stock status, reorder priority and alert lists
// from the ledger. It never writes.
type StockService struct {
	materialRepo inventory.MaterialRepository
	batchRepo    inventory.BatchRepository
	engine       *inventory.StockEngine
	logger       *zap.Logger
	now          func() time.Time
}

// NewStockService creates a new StockService
func NewStockService(
	materialRepo inventory.MaterialRepository,
	batchRepo inventory.BatchRepository,
	engine *inventory.StockEngine,
	logger *zap.Logger,
) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{
		materialRepo: materialRepo,
		batchRepo:    batchRepo,
		engine:       engine,
		logger:       logger,
		now:          time.Now,
	}
}

// SetClock overrides the time source
func (s *StockService) SetClock(now func() time.Time) {
	s.now = now
}

// Assess returns the stock picture of one material
func (s *StockService) Assess(ctx context.Context, materialID uuid.UUID) (*inventory.StockAssessment, error) {
	m, err := s.materialRepo.FindByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	batches, err := s.batchRepo.FindActiveByMaterials(ctx, []uuid.UUID{m.ID})
	if err != nil {
		return nil, err
	}
	a := s.engine.Assess(m, batches[m.ID], s.now())
	return &a, nil
}

// ReorderAlerts returns every material at MEDIUM priority or above (or at
// the requested minimum), most urgent first
func (s *StockService) ReorderAlerts(ctx context.Context, query AlertsQuery) ([]inventory.StockAssessment, error) {
	if err := validation.Struct(query); err != nil {
		return nil, err
	}
	minPriority := inventory.PriorityMedium
	if query.MinPriority != "" {
		minPriority = inventory.Priority(query.MinPriority)
	}

	filter := shared.Filter{Filters: map[string]any{}}
	if query.Category != "" {
		filter.Filters["category"] = query.Category
	}
	assessments, err := s.assessAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	alerts := make([]inventory.StockAssessment, 0, len(assessments))
	for _, a := range assessments {
		if a.Priority.AtLeast(minPriority) {
			alerts = append(alerts, a)
		}
	}
	inventory.SortAlerts(alerts)
	return alerts, nil
}

// StockSnapshot counts materials per stock status and priority
func (s *StockService) StockSnapshot(ctx context.Context) (telemetry.StockSnapshot, error) {
	snapshot := telemetry.StockSnapshot{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}
	for _, status := range []inventory.StockStatus{
		inventory.StockStatusOutOfStock, inventory.StockStatusLowStock,
		inventory.StockStatusOverstock, inventory.StockStatusNormal,
	} {
		snapshot.ByStatus[string(status)] = 0
	}
	for _, p := range []inventory.Priority{
		inventory.PriorityUrgent, inventory.PriorityHigh,
		inventory.PriorityMedium, inventory.PriorityLow,
	} {
		snapshot.ByPriority[string(p)] = 0
	}

	assessments, err := s.assessAll(ctx, shared.Filter{})
	if err != nil {
		return snapshot, err
	}
	for _, a := range assessments {
		snapshot.ByStatus[string(a.Status)]++
		snapshot.ByPriority[string(a.Priority)]++
	}
	return snapshot, nil
}

func (s *StockService) assessAll(ctx context.Context, filter shared.Filter) ([]inventory.StockAssessment, error) {
	materials, err := s.materialRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list materials for assessment", zap.Error(err))
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(materials))
	for _, m := range materials {
		ids = append(ids, m.ID)
	}
	batches, err := s.batchRepo.FindActiveByMaterials(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]inventory.StockAssessment, 0, len(materials))
	for i := range materials {
		m := &materials[i]
		out = append(out, s.engine.Assess(m, batches[m.ID], now))
	}
	return out, nil
}

var _ telemetry.StockSnapshotProvider = (*StockService)(nil)
