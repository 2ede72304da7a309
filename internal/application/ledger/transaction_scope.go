package ledger

import (
	"context"

	"github.com/fibc/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// If fn returns an error the transaction is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are repositories sharing one database transaction
type TransactionalRepositories interface {
	// MaterialRepo returns the material repository scoped to the current transaction
	MaterialRepo() ledger.MaterialRepository
	// MovementRepo returns the movement repository scoped to the current transaction
	MovementRepo() ledger.MovementRepository
	// References returns the counter of records that point at movements
	References() ledger.ReferenceCounter
}
