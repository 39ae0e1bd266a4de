package persistence

import (
	"context"
	"iter"
	"time"

	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fifoOrder is the consumption order; the id breaks receipt-time ties
const fifoOrder = "received_at ASC, id ASC"

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

func activeStatuses() []string {
	out := make([]string, 0, len(inventory.ActiveBatchStatuses))
	for _, s := range inventory.ActiveBatchStatuses {
		out = append(out, string(s))
	}
	return out
}

func (r *GormBatchRepository) available(ctx context.Context, materialID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&inventory.Batch{}).
		Where("material_id = ? AND status IN ? AND remaining_quantity > 0", materialID, activeStatuses()).
		Order(fifoOrder)
}

func (r *GormBatchRepository) find(query *gorm.DB) ([]*inventory.Batch, error) {
	var batches []*inventory.Batch
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	for _, b := range batches {
		b.MarkPersisted()
	}
	return batches, nil
}

func (r *GormBatchRepository) first(query *gorm.DB) (*inventory.Batch, error) {
	var b inventory.Batch
	if err := query.First(&b).Error; err != nil {
		if isNotFound(err) {
			return nil, shared.ErrBatchNotFound
		}
		return nil, err
	}
	b.MarkPersisted()
	return &b, nil
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate finds a batch and locks the row
func (r *GormBatchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	return r.first(r.db.WithContext(ctx).Clauses(forUpdate).Where("id = ?", id))
}

// FindByMaterial returns every batch of a material in FIFO order
func (r *GormBatchRepository) FindByMaterial(ctx context.Context, materialID uuid.UUID) ([]*inventory.Batch, error) {
	return r.find(r.db.WithContext(ctx).Where("material_id = ?", materialID).Order(fifoOrder))
}

// FindAvailableForUpdate returns consumable batches in FIFO order, locked
func (r *GormBatchRepository) FindAvailableForUpdate(ctx context.Context, materialID uuid.UUID) ([]*inventory.Batch, error) {
	return r.find(r.available(ctx, materialID).Clauses(forUpdate))
}

// FindActive returns the batches the expiry sweep examines
func (r *GormBatchRepository) FindActive(ctx context.Context, receivedBefore time.Time) ([]*inventory.Batch, error) {
	return r.find(r.db.WithContext(ctx).
		Where("status IN ? AND received_at <= ?", activeStatuses(), receivedBefore).
		Order("material_id ASC, " + fifoOrder))
}

// FindActiveByMaterials returns available batches grouped by material
func (r *GormBatchRepository) FindActiveByMaterials(ctx context.Context, materialIDs []uuid.UUID) (map[uuid.UUID][]*inventory.Batch, error) {
	out := make(map[uuid.UUID][]*inventory.Batch, len(materialIDs))
	if len(materialIDs) == 0 {
		return out, nil
	}
	batches, err := r.find(r.db.WithContext(ctx).
		Where("material_id IN ? AND status IN ? AND remaining_quantity > 0", materialIDs, activeStatuses()).
		Order(fifoOrder))
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		out[b.MaterialID] = append(out[b.MaterialID], b)
	}
	return out, nil
}

// FindPricingCandidates loads the oldest priced batch that still has stock
// and the newest priced batch. EXPIRED batches are never candidates.
func (r *GormBatchRepository) FindPricingCandidates(ctx context.Context, materialID uuid.UUID) ([]*inventory.Batch, error) {
	priced := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Where("material_id = ? AND status <> ? AND unit_cost > 0", materialID, string(inventory.BatchStatusExpired))
	}

	oldest, err := r.find(priced().Where("remaining_quantity > 0").Order(fifoOrder).Limit(1))
	if err != nil {
		return nil, err
	}
	newest, err := r.find(priced().Order("received_at DESC, id DESC").Limit(1))
	if err != nil {
		return nil, err
	}
	if len(oldest) == 1 && len(newest) == 1 && oldest[0].ID == newest[0].ID {
		return oldest, nil
	}
	return append(oldest, newest...), nil
}

// IterateAvailable streams available batches through a cursor. Ranging
// over the sequence again runs a new query.
func (r *GormBatchRepository) IterateAvailable(ctx context.Context, materialID uuid.UUID) iter.Seq2[*inventory.Batch, error] {
	return func(yield func(*inventory.Batch, error) bool) {
		rows, err := r.available(ctx, materialID).Rows()
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var b inventory.Batch
			if err := r.db.ScanRows(rows, &b); err != nil {
				yield(nil, err)
				return
			}
			b.MarkPersisted()
			if !yield(&b, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Save creates or updates a batch
func (r *GormBatchRepository) Save(ctx context.Context, b *inventory.Batch) error {
	if err := r.db.WithContext(ctx).Save(b).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainErrorf(shared.CodeValidationFailed, "Batch number %s already exists", b.BatchNumber)
		}
		return err
	}
	b.MarkPersisted()
	return nil
}

// SaveAll writes the mutable batch fields, each guarded by its loaded version
func (r *GormBatchRepository) SaveAll(ctx context.Context, batches []*inventory.Batch) error {
	for _, b := range batches {
		result := r.db.WithContext(ctx).
			Model(&inventory.Batch{}).
			Where("id = ? AND version = ?", b.ID, b.PersistedVersion()).
			Updates(map[string]any{
				"remaining_quantity": b.RemainingQuantity,
				"status":             b.Status,
				"approved_at":        b.ApprovedAt,
				"expired_at":         b.ExpiredAt,
				"version":            b.Version,
				"updated_at":         b.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict.WithDetails(map[string]any{"batch_id": b.ID.String()})
		}
		b.MarkPersisted()
	}
	return nil
}

var _ inventory.BatchRepository = (*GormBatchRepository)(nil)
