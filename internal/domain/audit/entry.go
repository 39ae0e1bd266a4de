// Package audit holds the best-effort audit trail. Writing an entry must
// never abort the operation being audited.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one audit trail row
type Entry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"event_id"`
	Action        string    `gorm:"type:varchar(50);not null;index" json:"action"`
	AggregateType string    `gorm:"type:varchar(50);not null;index:idx_audit_aggregate,priority:1" json:"aggregate_type"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_aggregate,priority:2" json:"aggregate_id"`
	Payload       string    `gorm:"type:text" json:"payload"`
	RequestID     string    `gorm:"type:varchar(64)" json:"request_id,omitempty"`
	OccurredAt    time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

// TableName returns the table name for GORM
func (Entry) TableName() string {
	return "audit_entries"
}

// Repository defines the interface for audit persistence
type Repository interface {
	// Append writes an entry; an entry for an already recorded event is ignored
	Append(ctx context.Context, entry *Entry) error

	// FindByAggregate returns the trail of one aggregate, oldest first
	FindByAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]Entry, error)
}
