package payout

import (
	"context"

	"github.com/dairyops/backend/internal/domain/payout"
)

// TransactionScope runs payout work in one database transaction
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the payout repositories inside a transaction
type TransactionalRepositories interface {
	CollectionRepo() payout.CollectionRepository
	PayoutRepo() payout.PayoutRepository
	ReferenceRepo() payout.ReferenceSequenceRepository
}
