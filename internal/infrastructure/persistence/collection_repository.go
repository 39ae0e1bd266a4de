package persistence

import (
	"context"

	"github.com/dairyops/backend/internal/domain/payout"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCollectionRepository implements CollectionRepository using GORM
type GormCollectionRepository struct {
	db *gorm.DB
}

// NewGormCollectionRepository creates a new GormCollectionRepository
func NewGormCollectionRepository(db *gorm.DB) *GormCollectionRepository {
	return &GormCollectionRepository{db: db}
}

func (r *GormCollectionRepository) inPeriod(ctx context.Context, supplierID uuid.UUID, period payout.Period) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("supplier_id = ? AND collection_date >= ? AND collection_date < ?",
			supplierID, period.Start, period.EndExclusive()).
		Order("collection_date ASC, id ASC")
}

// FindByID finds a collection by its ID
func (r *GormCollectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*payout.Collection, error) {
	var c payout.Collection
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, shared.ErrCollectionNotFound
		}
		return nil, err
	}
	c.MarkPersisted()
	return &c, nil
}

// FindSettleableForUpdate returns RECORDED, unassigned collections of the
// period and locks them
func (r *GormCollectionRepository) FindSettleableForUpdate(ctx context.Context, supplierID uuid.UUID, period payout.Period) ([]*payout.Collection, error) {
	var collections []*payout.Collection
	err := r.inPeriod(ctx, supplierID, period).
		Clauses(forUpdate).
		Where("status = ? AND payout_id IS NULL", string(payout.CollectionStatusRecorded)).
		Find(&collections).Error
	if err != nil {
		return nil, err
	}
	for _, c := range collections {
		c.MarkPersisted()
	}
	return collections, nil
}

// FindBySupplier returns every collection of the supplier in the period
func (r *GormCollectionRepository) FindBySupplier(ctx context.Context, supplierID uuid.UUID, period payout.Period) ([]payout.Collection, error) {
	var collections []payout.Collection
	if err := r.inPeriod(ctx, supplierID, period).Find(&collections).Error; err != nil {
		return nil, err
	}
	for i := range collections {
		collections[i].MarkPersisted()
	}
	return collections, nil
}

// Save creates or updates a collection
func (r *GormCollectionRepository) Save(ctx context.Context, c *payout.Collection) error {
	if err := r.db.WithContext(ctx).Save(c).Error; err != nil {
		return err
	}
	c.MarkPersisted()
	return nil
}

// AssignToPayout links still-unassigned collections to the payout. A
// collection that was settled concurrently makes the whole call fail.
func (r *GormCollectionRepository) AssignToPayout(ctx context.Context, collectionIDs []uuid.UUID, payoutID uuid.UUID) error {
	if len(collectionIDs) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&payout.Collection{}).
		Where("id IN ? AND payout_id IS NULL AND status = ?", collectionIDs, string(payout.CollectionStatusRecorded)).
		Update("payout_id", payoutID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != int64(len(collectionIDs)) {
		return shared.ErrConcurrencyConflict.WithDetails(map[string]any{
			"expected": len(collectionIDs),
			"assigned": result.RowsAffected,
		})
	}
	return nil
}

// ReleaseFromPayout unlinks the collections of a deleted payout
func (r *GormCollectionRepository) ReleaseFromPayout(ctx context.Context, payoutID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&payout.Collection{}).
		Where("payout_id = ?", payoutID).
		Update("payout_id", nil).Error
}

var _ payout.CollectionRepository = (*GormCollectionRepository)(nil)
