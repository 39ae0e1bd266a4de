package event

import (
	"context"
	"fmt"

	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockAssessor returns the current stock picture of a material
type StockAssessor interface {
	Assess(ctx context.Context, materialID uuid.UUID) (*inventory.StockAssessment, error)
}

// LowStockNotifier delivers reorder alerts
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, alert inventory.StockAssessment) error
}

// LowStockHandler re-assesses a material after stock leaves it and raises
// an alert once its priority reaches the threshold
type LowStockHandler struct {
	assessor  StockAssessor
	notifier  LowStockNotifier
	threshold inventory.Priority
	logger    *zap.Logger
}

// NewLowStockHandler creates a handler alerting at HIGH priority and above
func NewLowStockHandler(assessor StockAssessor, logger *zap.Logger) *LowStockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockHandler{
		assessor:  assessor,
		notifier:  NewLoggingLowStockNotifier(logger),
		threshold: inventory.PriorityHigh,
		logger:    logger,
	}
}

// WithNotifier replaces the logging notifier
func (h *LowStockHandler) WithNotifier(notifier LowStockNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// WithThreshold sets the lowest priority that raises an alert
func (h *LowStockHandler) WithThreshold(p inventory.Priority) *LowStockHandler {
	h.threshold = p
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockConsumed, inventory.EventTypeBatchExpired}
}

// Handle assesses the material the event took stock from
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var materialID uuid.UUID
	switch e := event.(type) {
	case *inventory.StockConsumedEvent:
		materialID = e.MaterialID
	case *inventory.BatchExpiredEvent:
		materialID = e.MaterialID
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	assessment, err := h.assessor.Assess(ctx, materialID)
	if err != nil {
		return fmt.Errorf("assess material %s: %w", materialID, err)
	}
	if !assessment.Priority.AtLeast(h.threshold) {
		return nil
	}

	if err := h.notifier.NotifyLowStock(ctx, *assessment); err != nil {
		h.logger.Error("Failed to send low stock alert",
			zap.String("material_code", assessment.MaterialCode),
			zap.Error(err))
	}
	return nil
}

var _ shared.EventHandler = (*LowStockHandler)(nil)

// LoggingLowStockNotifier writes alerts to the log
type LoggingLowStockNotifier struct {
	logger *zap.Logger
}

// NewLoggingLowStockNotifier creates a new LoggingLowStockNotifier
func NewLoggingLowStockNotifier(logger *zap.Logger) *LoggingLowStockNotifier {
	return &LoggingLowStockNotifier{logger: logger}
}

// NotifyLowStock logs the alert
func (n *LoggingLowStockNotifier) NotifyLowStock(_ context.Context, alert inventory.StockAssessment) error {
	n.logger.Warn("Stock needs reorder",
		zap.String("material_code", alert.MaterialCode),
		zap.String("status", string(alert.Status)),
		zap.String("priority", string(alert.Priority)),
		zap.String("on_hand", alert.OnHand.String()),
		zap.String("suggested_reorder_quantity", alert.SuggestedReorderQuantity.String()))
	return nil
}

var _ LowStockNotifier = (*LoggingLowStockNotifier)(nil)
