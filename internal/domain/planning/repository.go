package planning

import (
	"context"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductSpecRepository reads the bill-of-materials table
type ProductSpecRepository interface {
	// FindByProductType finds the spec of a product type, or shared.ErrNotFound
	FindByProductType(ctx context.Context, productType string) (*ProductSpec, error)

	// FindAll lists all specs with their items
	FindAll(ctx context.Context) ([]ProductSpec, error)

	// Save replaces a spec and its items
	Save(ctx context.Context, spec *ProductSpec) error
}

// OrderRepository defines the interface for production order persistence
type OrderRepository interface {
	// FindByID finds an order with its tasks
	FindByID(ctx context.Context, id uuid.UUID) (*ProductionOrder, error)

	// FindByNumber finds an order with its tasks by order number
	FindByNumber(ctx context.Context, number string) (*ProductionOrder, error)

	// FindAll finds orders; supports status, priority and product_type filters
	FindAll(ctx context.Context, filter shared.Filter) ([]ProductionOrder, error)

	// Count counts orders matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Create inserts an order and any tasks it carries
	Create(ctx context.Context, order *ProductionOrder) error

	// Update writes the order row if its version is unchanged, else shared.ErrConcurrencyConflict
	Update(ctx context.Context, order *ProductionOrder) error

	// Delete removes an order and its tasks
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskRepository defines the interface for order task persistence
type TaskRepository interface {
	// FindByID finds a task by ID
	FindByID(ctx context.Context, id uuid.UUID) (*OrderTask, error)

	// FindByOrder lists the tasks of an order in plant flow order
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderTask, error)

	// FindVisibleByDepartment lists accepted tasks of a department, hiding new ones
	FindVisibleByDepartment(ctx context.Context, dept plant.Department, filter shared.Filter) ([]OrderTask, error)

	// CreateBatch inserts tasks
	CreateBatch(ctx context.Context, tasks []OrderTask) error

	// UpdateStatus writes the task status if the stored status still equals
	// from, else shared.ErrConcurrencyConflict
	UpdateStatus(ctx context.Context, task *OrderTask, from TaskStatus) error

	// UpdateExcluded writes the excluded flag
	UpdateExcluded(ctx context.Context, task *OrderTask) error

	// CountStarted counts tasks of an order that are in progress or done
	CountStarted(ctx context.Context, orderID uuid.UUID) (int64, error)
}
