package persistence

import (
	"context"

	"github.com/dairyops/backend/internal/domain/payout"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPayoutRepository implements PayoutRepository using GORM.
// Status changes are conditional updates so two concurrent transitions of
// one payout cannot both succeed.
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewGormPayoutRepository creates a new GormPayoutRepository
func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// FindByID finds a payout by its ID
func (r *GormPayoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*payout.Payout, error) {
	var p payout.Payout
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, shared.ErrPayoutNotFound
		}
		return nil, err
	}
	p.MarkPersisted()
	return &p, nil
}

// ExistsForPeriod checks the (supplier, period) key
func (r *GormPayoutRepository) ExistsForPeriod(ctx context.Context, supplierID uuid.UUID, period payout.Period) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&payout.Payout{}).
		Where("supplier_id = ? AND period_start = ? AND period_end = ?", supplierID, period.Start, period.End).
		Count(&count).Error
	return count > 0, err
}

// FindAll lists payouts with the total count before pagination
func (r *GormPayoutRepository) FindAll(ctx context.Context, filter payout.PayoutFilter) ([]payout.Payout, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&payout.Payout{})
		if filter.SupplierID != nil {
			query = query.Where("supplier_id = ?", *filter.SupplierID)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", string(*filter.Status))
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payouts []payout.Payout
	if err := applyPage(scoped(), filter.Filter, PayoutSortFields, "period_start").Find(&payouts).Error; err != nil {
		return nil, 0, err
	}
	for i := range payouts {
		payouts[i].MarkPersisted()
	}
	return payouts, total, nil
}

// Create inserts a new payout
func (r *GormPayoutRepository) Create(ctx context.Context, p *payout.Payout) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrDuplicatePayoutPeriod.WithDetails(map[string]any{
				"supplier_id":  p.SupplierID.String(),
				"period_start": p.PeriodStart.Format("2006-01-02"),
				"period_end":   p.PeriodEnd.Format("2006-01-02"),
			})
		}
		return err
	}
	p.MarkPersisted()
	return nil
}

// UpdateStatus persists a transition guarded by the previous status and
// the loaded version
func (r *GormPayoutRepository) UpdateStatus(ctx context.Context, p *payout.Payout, from payout.PayoutStatus) error {
	result := r.db.WithContext(ctx).
		Model(&payout.Payout{}).
		Where("id = ? AND status = ? AND version = ?", p.ID, string(from), p.PersistedVersion()).
		Updates(map[string]any{
			"status":            string(p.Status),
			"approved_at":       p.ApprovedAt,
			"paid_at":           p.PaidAt,
			"payment_reference": p.PaymentReference,
			"version":           p.Version,
			"updated_at":        p.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.InvalidTransition("payout", from.String(), "update")
	}
	p.MarkPersisted()
	return nil
}

// DeleteDraft removes a payout that is still DRAFT
func (r *GormPayoutRepository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, string(payout.PayoutStatusDraft)).
		Delete(&payout.Payout{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return shared.InvalidTransition("payout", current.Status.String(), "delete")
	}
	return nil
}

var _ payout.PayoutRepository = (*GormPayoutRepository)(nil)
