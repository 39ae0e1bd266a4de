// Package event holds the domain event handlers subscribed on the event bus
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dairyops/backend/internal/domain/audit"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/dairyops/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditHandler writes every domain event to the audit trail.
// A failed write is returned to the bus, which logs it; the operation that
// raised the event has already committed.
type AuditHandler struct {
	repo   audit.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(repo audit.Repository, logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// EventTypes returns no types: the handler receives every event
func (h *AuditHandler) EventTypes() []string {
	return nil
}

// Handle appends one audit entry for event
func (h *AuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}

	entry := &audit.Entry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		Action:        event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		Payload:       string(payload),
		RequestID:     logger.GetRequestID(ctx),
		OccurredAt:    event.OccurredAt().UTC(),
		CreatedAt:     h.now().UTC(),
	}
	if err := h.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	h.logger.Debug("Audit entry written",
		zap.String("action", entry.Action),
		zap.String("aggregate_type", entry.AggregateType),
		zap.String("aggregate_id", entry.AggregateID.String()))
	return nil
}

var _ shared.EventHandler = (*AuditHandler)(nil)
