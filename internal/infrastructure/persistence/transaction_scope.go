package persistence

import (
	"context"

	appinv "github.com/dairyops/backend/internal/application/inventory"
	apppayout "github.com/dairyops/backend/internal/application/payout"
	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/payout"
	"gorm.io/gorm"
)

// GormTransactionScope runs application work inside a GORM transaction and
// hands out repositories bound to it. It serves both the batch ledger and
// the payout services.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn in a transaction for the batch ledger
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx})
	})
}

// Payouts returns a scope whose transactions expose the payout repositories
func (s *GormTransactionScope) Payouts() *GormPayoutTransactionScope {
	return &GormPayoutTransactionScope{db: s.db}
}

// GormPayoutTransactionScope is the payout flavour of GormTransactionScope
type GormPayoutTransactionScope struct {
	db *gorm.DB
}

// Execute runs fn in a transaction for payout generation and transitions
func (s *GormPayoutTransactionScope) Execute(ctx context.Context, fn func(repos apppayout.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx})
	})
}

// txRepositories binds every repository to one transaction
type txRepositories struct {
	tx *gorm.DB
}

func (r *txRepositories) MaterialRepo() inventory.MaterialRepository {
	return NewGormMaterialRepository(r.tx)
}

func (r *txRepositories) BatchRepo() inventory.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

func (r *txRepositories) MovementRepo() inventory.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

func (r *txRepositories) CollectionRepo() payout.CollectionRepository {
	return NewGormCollectionRepository(r.tx)
}

func (r *txRepositories) PayoutRepo() payout.PayoutRepository {
	return NewGormPayoutRepository(r.tx)
}

func (r *txRepositories) ReferenceRepo() payout.ReferenceSequenceRepository {
	return NewGormReferenceSequenceRepository(r.tx)
}

var (
	_ appinv.TransactionScope             = (*GormTransactionScope)(nil)
	_ apppayout.TransactionScope          = (*GormPayoutTransactionScope)(nil)
	_ appinv.TransactionalRepositories    = (*txRepositories)(nil)
	_ apppayout.TransactionalRepositories = (*txRepositories)(nil)
)
