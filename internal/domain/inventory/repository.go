package inventory

import (
	"context"
	"iter"
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaterialRepository defines the interface for material persistence
type MaterialRepository interface {
	// FindByID finds a material by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Material, error)

	// FindByIDForUpdate finds a material and locks its row for the
	// lifetime of the surrounding transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Material, error)

	// FindByCode finds a material by its catalog code
	FindByCode(ctx context.Context, code string) (*Material, error)

	// FindAll returns materials matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Material, error)

	// FindByIDs returns materials by ids
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Material, error)

	// Save creates or updates a material
	Save(ctx context.Context, material *Material) error

	// SaveWithLock saves with an optimistic version check
	SaveWithLock(ctx context.Context, material *Material) error
}

// BatchRepository defines the interface for the batch ledger
type BatchRepository interface {
	// FindByID finds a batch by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// FindByIDForUpdate finds and locks a batch row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Batch, error)

	// FindByMaterial returns every batch of a material in FIFO order
	FindByMaterial(ctx context.Context, materialID uuid.UUID) ([]*Batch, error)

	// FindAvailableForUpdate returns the consumable batches of a material in
	// FIFO order and locks their rows
	FindAvailableForUpdate(ctx context.Context, materialID uuid.UUID) ([]*Batch, error)

	// FindActive returns RECEIVED/APPROVED batches received at or before
	// the given instant, ordered by material then FIFO. Rows are not locked;
	// the expiry sweep re-reads them under lock per material.
	FindActive(ctx context.Context, receivedBefore time.Time) ([]*Batch, error)

	// FindActiveByMaterials returns available batches grouped by material
	FindActiveByMaterials(ctx context.Context, materialIDs []uuid.UUID) (map[uuid.UUID][]*Batch, error)

	// FindPricingCandidates returns the batches the price resolver needs:
	// the oldest priced batch with stock and the newest priced batch,
	// both excluding EXPIRED
	FindPricingCandidates(ctx context.Context, materialID uuid.UUID) ([]*Batch, error)

	// IterateAvailable streams available batches in FIFO order. Each range
	// over the sequence runs a fresh query.
	IterateAvailable(ctx context.Context, materialID uuid.UUID) iter.Seq2[*Batch, error]

	// Save creates or updates a batch
	Save(ctx context.Context, batch *Batch) error

	// SaveAll updates batches with an optimistic version check
	SaveAll(ctx context.Context, batches []*Batch) error
}

// MovementRepository defines the interface for the stock movement ledger
type MovementRepository interface {
	// Append writes ledger rows
	Append(ctx context.Context, movements ...*StockMovement) error

	// FindByMaterial returns the latest movements of a material
	FindByMaterial(ctx context.Context, materialID uuid.UUID, limit int) ([]StockMovement, error)
}
