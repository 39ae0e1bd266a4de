package inventory

import (
	"context"

	"github.com/dairyops/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to the batch ledger.
// Every repository handed to fn shares one database transaction, which is
// committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the ledger repositories inside a transaction.
//
// Consumption locks the material row first and then its available batch
// rows, always in that order, so concurrent consumers of one material
// serialize instead of deadlocking.
type TransactionalRepositories interface {
	MaterialRepo() inventory.MaterialRepository
	BatchRepo() inventory.BatchRepository
	MovementRepo() inventory.MovementRepository
}
