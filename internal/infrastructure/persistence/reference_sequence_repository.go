package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/dairyops/backend/internal/domain/payout"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReferenceSequenceRepository issues daily payout reference numbers.
// Call Next inside a transaction: the sequence row stays locked until
// commit, so two payouts generated the same day never share a number.
type GormReferenceSequenceRepository struct {
	db *gorm.DB
}

// NewGormReferenceSequenceRepository creates a new GormReferenceSequenceRepository
func NewGormReferenceSequenceRepository(db *gorm.DB) *GormReferenceSequenceRepository {
	return &GormReferenceSequenceRepository{db: db}
}

// Next increments and returns the sequence for prefix and day
func (r *GormReferenceSequenceRepository) Next(ctx context.Context, prefix string, day time.Time) (int, error) {
	key := payout.ReferenceSequence{
		Prefix:    strings.ToUpper(strings.TrimSpace(prefix)),
		Day:       day.Format(payout.ReferenceDayLayout),
		UpdatedAt: time.Now().UTC(),
	}
	db := r.db.WithContext(ctx)

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&key).Error; err != nil {
		return 0, err
	}

	var seq payout.ReferenceSequence
	if err := db.Clauses(forUpdate).
		Where("prefix = ? AND day = ?", key.Prefix, key.Day).
		First(&seq).Error; err != nil {
		return 0, err
	}

	next := seq.LastValue + 1
	if err := db.Model(&payout.ReferenceSequence{}).
		Where("prefix = ? AND day = ?", key.Prefix, key.Day).
		Updates(map[string]any{"last_value": next, "updated_at": time.Now().UTC()}).Error; err != nil {
		return 0, err
	}
	return next, nil
}

var _ payout.ReferenceSequenceRepository = (*GormReferenceSequenceRepository)(nil)
