package production

import (
	"context"

	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/domain/numbering"
	"github.com/fibc/backend/internal/domain/production"
)

// TransactionScope provides transactional access to production repositories.
// Every lifecycle operation runs inside exactly one Execute call.
type TransactionScope interface {
	// Execute runs fn within a database transaction; an error rolls it back
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides repositories sharing one transaction.
// Ledger movements and sequences live here so a lifecycle step and its
// ledger posting commit together.
type TransactionalRepositories interface {
	// MachineRepo returns the machine repository scoped to the current transaction
	MachineRepo() production.MachineRepository
	// UnitRepo returns the material unit repository scoped to the current transaction
	UnitRepo() production.UnitRepository
	// ConsumptionRepo returns the consumption repository scoped to the current transaction
	ConsumptionRepo() production.ConsumptionRepository
	// TransferLogRepo returns the transfer log repository scoped to the current transaction
	TransferLogRepo() production.TransferLogRepository
	// ShiftRepo returns the shift repository scoped to the current transaction
	ShiftRepo() production.ShiftRepository
	// MovementRepo returns the ledger movement repository scoped to the current transaction
	MovementRepo() ledger.MovementRepository
	// SequenceRepo returns the document sequence repository scoped to the current transaction
	SequenceRepo() numbering.SequenceRepository
}
