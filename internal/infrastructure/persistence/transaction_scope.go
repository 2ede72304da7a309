package persistence

import (
	"context"

	appledger "github.com/fibc/backend/internal/application/ledger"
	appplanning "github.com/fibc/backend/internal/application/planning"
	appproduction "github.com/fibc/backend/internal/application/production"
	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/domain/numbering"
	"github.com/fibc/backend/internal/domain/planning"
	"github.com/fibc/backend/internal/domain/production"
	"gorm.io/gorm"
)

// GormTransactionScope runs a function inside one GORM transaction and hands
// it repositories bound to that transaction. The same type serves the
// ledger, production and planning services.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

func (s *GormTransactionScope) run(ctx context.Context, fn func(repos *gormTransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// Ledger returns the scope as seen by the ledger service
func (s *GormTransactionScope) Ledger() appledger.TransactionScope {
	return ledgerScope{s}
}

// Production returns the scope as seen by the production services
func (s *GormTransactionScope) Production() appproduction.TransactionScope {
	return productionScope{s}
}

// Planning returns the scope as seen by the planning services
func (s *GormTransactionScope) Planning() appplanning.TransactionScope {
	return planningScope{s}
}

type ledgerScope struct{ s *GormTransactionScope }

func (l ledgerScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return l.s.run(ctx, func(repos *gormTransactionalRepositories) error { return fn(repos) })
}

type productionScope struct{ s *GormTransactionScope }

func (p productionScope) Execute(ctx context.Context, fn func(repos appproduction.TransactionalRepositories) error) error {
	return p.s.run(ctx, func(repos *gormTransactionalRepositories) error { return fn(repos) })
}

type planningScope struct{ s *GormTransactionScope }

func (p planningScope) Execute(ctx context.Context, fn func(repos appplanning.TransactionalRepositories) error) error {
	return p.s.run(ctx, func(repos *gormTransactionalRepositories) error { return fn(repos) })
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// MaterialRepo returns the material repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MaterialRepo() ledger.MaterialRepository {
	return NewGormMaterialRepository(r.tx)
}

// MovementRepo returns the movement repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MovementRepo() ledger.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

// References returns the counter of records pointing at movements.
func (r *gormTransactionalRepositories) References() ledger.ReferenceCounter {
	return NewGormMovementRepository(r.tx)
}

// MachineRepo returns the machine repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MachineRepo() production.MachineRepository {
	return NewGormMachineRepository(r.tx)
}

// UnitRepo returns the unit repository scoped to the current transaction.
func (r *gormTransactionalRepositories) UnitRepo() production.UnitRepository {
	return NewGormUnitRepository(r.tx)
}

// ConsumptionRepo returns the consumption repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ConsumptionRepo() production.ConsumptionRepository {
	return NewGormConsumptionRepository(r.tx)
}

// TransferLogRepo returns the transfer log repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TransferLogRepo() production.TransferLogRepository {
	return NewGormTransferLogRepository(r.tx)
}

// ShiftRepo returns the shift repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ShiftRepo() production.ShiftRepository {
	return NewGormShiftRepository(r.tx)
}

// SequenceRepo returns the document sequence repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SequenceRepo() numbering.SequenceRepository {
	return NewGormSequenceRepository(r.tx)
}

// OrderRepo returns the order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) OrderRepo() planning.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

// TaskRepo returns the task repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TaskRepo() planning.TaskRepository {
	return NewGormTaskRepository(r.tx)
}

// SpecRepo returns the product spec repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SpecRepo() planning.ProductSpecRepository {
	return NewGormProductSpecRepository(r.tx)
}

// Units returns the unit counter scoped to the current transaction.
func (r *gormTransactionalRepositories) Units() appplanning.UnitCounter {
	return NewGormUnitRepository(r.tx)
}

var (
	_ appledger.TransactionScope              = ledgerScope{}
	_ appproduction.TransactionScope          = productionScope{}
	_ appplanning.TransactionScope            = planningScope{}
	_ appledger.TransactionalRepositories     = (*gormTransactionalRepositories)(nil)
	_ appproduction.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ appplanning.TransactionalRepositories   = (*gormTransactionalRepositories)(nil)
)
