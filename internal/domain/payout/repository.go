package payout

import (
	"context"
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CollectionRepository defines the interface for collection persistence
type CollectionRepository interface {
	// FindByID finds a collection by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Collection, error)

	// FindSettleableForUpdate returns RECORDED, unassigned collections of a
	// supplier inside the period, locked, ordered by (collection_date, id)
	FindSettleableForUpdate(ctx context.Context, supplierID uuid.UUID, period Period) ([]*Collection, error)

	// FindBySupplier returns all collections of a supplier inside the period
	FindBySupplier(ctx context.Context, supplierID uuid.UUID, period Period) ([]Collection, error)

	// Save creates or updates a collection
	Save(ctx context.Context, collection *Collection) error

	// AssignToPayout links collections to a payout
	AssignToPayout(ctx context.Context, collectionIDs []uuid.UUID, payoutID uuid.UUID) error

	// ReleaseFromPayout unlinks every collection of a payout
	ReleaseFromPayout(ctx context.Context, payoutID uuid.UUID) error
}

// PayoutFilter narrows payout listings
type PayoutFilter struct {
	shared.Filter
	SupplierID *uuid.UUID
	Status     *PayoutStatus
}

// PayoutRepository defines the interface for payout persistence
type PayoutRepository interface {
	// FindByID finds a payout by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payout, error)

	// ExistsForPeriod checks the (supplier, periodStart, periodEnd) key
	ExistsForPeriod(ctx context.Context, supplierID uuid.UUID, period Period) (bool, error)

	// FindAll lists payouts
	FindAll(ctx context.Context, filter PayoutFilter) ([]Payout, int64, error)

	// Create inserts a payout, reporting a key clash as DuplicatePayoutPeriod
	Create(ctx context.Context, payout *Payout) error

	// UpdateStatus writes a transition only if the stored row is still in
	// status from at the loaded version; zero affected rows is an
	// InvalidStateTransition
	UpdateStatus(ctx context.Context, payout *Payout, from PayoutStatus) error

	// DeleteDraft deletes the payout only while it is DRAFT
	DeleteDraft(ctx context.Context, id uuid.UUID) error
}

// ReferenceSequenceRepository issues daily reference sequence numbers
type ReferenceSequenceRepository interface {
	// Next returns the next sequence number for the prefix and day
	Next(ctx context.Context, prefix string, day time.Time) (int, error)
}
