package planning

import (
	"context"

	"github.com/fibc/backend/internal/domain/numbering"
	"github.com/fibc/backend/internal/domain/planning"
	"github.com/google/uuid"
)

// TransactionScope provides transactional access to planning repositories
type TransactionScope interface {
	// Execute runs fn within a database transaction; an error rolls it back
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// UnitCounter counts material units produced against an order
type UnitCounter interface {
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// TransactionalRepositories provides repositories sharing one transaction
type TransactionalRepositories interface {
	// OrderRepo returns the order repository scoped to the current transaction
	OrderRepo() planning.OrderRepository
	// TaskRepo returns the task repository scoped to the current transaction
	TaskRepo() planning.TaskRepository
	// SpecRepo returns the product spec repository scoped to the current transaction
	SpecRepo() planning.ProductSpecRepository
	// Units returns the unit counter scoped to the current transaction
	Units() UnitCounter
	// SequenceRepo returns the document sequence repository scoped to the current transaction
	SequenceRepo() numbering.SequenceRepository
}
