package persistence

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/fibc/backend/internal/domain/planning"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductSpecRepository implements planning.ProductSpecRepository using GORM
type GormProductSpecRepository struct {
	db *gorm.DB
}

// NewGormProductSpecRepository creates a new GormProductSpecRepository
func NewGormProductSpecRepository(db *gorm.DB) *GormProductSpecRepository {
	return &GormProductSpecRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByProductType finds the spec of a product type with its items
func (r *GormProductSpecRepository) FindByProductType(ctx context.Context, productType string) (*planning.ProductSpec, error) {
	var spec planning.ProductSpec
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("product_type = ?", productType).
		First(&spec).Error; err != nil {
		return nil, translateError(err, "product spec")
	}
	return &spec, nil
}

// FindAll lists all specs with their items
func (r *GormProductSpecRepository) FindAll(ctx context.Context) ([]planning.ProductSpec, error) {
	var specs []planning.ProductSpec
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Order("product_type ASC").
		Find(&specs).Error; err != nil {
		return nil, err
	}
	return specs, nil
}

// Save replaces a spec and all of its items. A spec for the same product
// type keeps its identity.
func (r *GormProductSpecRepository) Save(ctx context.Context, spec *planning.ProductSpec) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing planning.ProductSpec
		err := tx.Where("product_type = ?", spec.ProductType).First(&existing).Error
		switch {
		case err == nil:
			spec.ID = existing.ID
			spec.CreatedAt = existing.CreatedAt
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if err := tx.Where("spec_id = ?", spec.ID).Delete(&planning.SpecItem{}).Error; err != nil {
			return translateError(err, "product spec")
		}
		if err := tx.Omit("Items").Save(spec).Error; err != nil {
			return translateError(err, "product spec")
		}
		if len(spec.Items) == 0 {
			return nil
		}
		for i := range spec.Items {
			spec.Items[i].SpecID = spec.ID
		}
		return translateError(tx.Create(&spec.Items).Error, "product spec")
	})
}

// GormOrderRepository implements planning.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// sortTasks puts tasks in plant flow order
func sortTasks(tasks []planning.OrderTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Department.Rank() < tasks[j].Department.Rank()
	})
}

// FindByID finds an order with its tasks
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*planning.ProductionOrder, error) {
	var order planning.ProductionOrder
	if err := r.db.WithContext(ctx).Preload("Tasks").First(&order, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "production order")
	}
	sortTasks(order.Tasks)
	return &order, nil
}

// FindByNumber finds an order with its tasks by order number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*planning.ProductionOrder, error) {
	var order planning.ProductionOrder
	if err := r.db.WithContext(ctx).Preload("Tasks").Where("number = ?", number).First(&order).Error; err != nil {
		return nil, translateError(err, "production order")
	}
	sortTasks(order.Tasks)
	return &order, nil
}

// FindAll finds orders with their tasks
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]planning.ProductionOrder, error) {
	var orders []planning.ProductionOrder
	query := r.applyFilter(r.db.WithContext(ctx).Model(&planning.ProductionOrder{}), filter)
	query = sortAndPage(query, filter, OrderSortFields, "created_at")
	if err := query.Preload("Tasks").Find(&orders).Error; err != nil {
		return nil, err
	}
	for i := range orders {
		sortTasks(orders[i].Tasks)
	}
	return orders, nil
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var n int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&planning.ProductionOrder{}), filter).Count(&n).Error
	return n, err
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("number LIKE ? OR customer LIKE ?", pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "priority":
			query = query.Where("priority = ?", value)
		case "product_type":
			query = query.Where("product_type = ?", value)
		}
	}
	return query
}

// Create inserts an order and any tasks it carries
func (r *GormOrderRepository) Create(ctx context.Context, order *planning.ProductionOrder) error {
	return translateError(r.db.WithContext(ctx).Create(order).Error, "production order")
}

// Update writes the order row when its version is unchanged. Tasks are
// written through the task repository.
func (r *GormOrderRepository) Update(ctx context.Context, order *planning.ProductionOrder) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&planning.ProductionOrder{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"quantity":     order.Quantity,
			"priority":     order.Priority,
			"deadline":     order.Deadline,
			"customer":     order.Customer,
			"status":       order.Status,
			"calculation":  order.Calculation,
			"notes":        order.Notes,
			"confirmed_at": order.ConfirmedAt,
			"cancelled_at": order.CancelledAt,
			"version":      order.Version + 1,
			"updated_at":   now,
		})
	if result.Error != nil {
		return translateError(result.Error, "production order")
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	order.IncrementVersion()
	order.UpdatedAt = now
	return nil
}

// Delete removes an order and its tasks
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&planning.OrderTask{}).Error; err != nil {
		return translateError(err, "production order")
	}
	result := db.Delete(&planning.ProductionOrder{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error, "production order")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormTaskRepository implements planning.TaskRepository using GORM
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GormTaskRepository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// FindByID finds a task by its ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*planning.OrderTask, error) {
	var task planning.OrderTask
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "order task")
	}
	return &task, nil
}

// FindByOrder lists the tasks of an order in plant flow order
func (r *GormTaskRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]planning.OrderTask, error) {
	var tasks []planning.OrderTask
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&tasks).Error; err != nil {
		return nil, err
	}
	sortTasks(tasks)
	return tasks, nil
}

// FindVisibleByDepartment lists the department's tasks that have been accepted
// into its queue. Excluded tasks are left out.
func (r *GormTaskRepository) FindVisibleByDepartment(ctx context.Context, dept plant.Department, filter shared.Filter) ([]planning.OrderTask, error) {
	var tasks []planning.OrderTask
	query := r.db.WithContext(ctx).
		Model(&planning.OrderTask{}).
		Where("department = ? AND status <> ? AND excluded = ?", dept, planning.TaskNew, false)
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	query = sortAndPage(query, filter, TaskSortFields, "created_at")
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateBatch inserts tasks
func (r *GormTaskRepository) CreateBatch(ctx context.Context, tasks []planning.OrderTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return translateError(r.db.WithContext(ctx).Create(&tasks).Error, "order task")
}

// UpdateStatus writes the task status if the stored status still equals from
func (r *GormTaskRepository) UpdateStatus(ctx context.Context, task *planning.OrderTask, from planning.TaskStatus) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&planning.OrderTask{}).
		Where("id = ? AND status = ?", task.ID, from).
		Updates(map[string]interface{}{
			"status":       task.Status,
			"started_at":   task.StartedAt,
			"completed_at": task.CompletedAt,
			"updated_at":   now,
		})
	if result.Error != nil {
		return translateError(result.Error, "order task")
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	task.UpdatedAt = now
	return nil
}

// UpdateExcluded writes the excluded flag
func (r *GormTaskRepository) UpdateExcluded(ctx context.Context, task *planning.OrderTask) error {
	result := r.db.WithContext(ctx).
		Model(&planning.OrderTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"excluded":   task.Excluded,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return translateError(result.Error, "order task")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountStarted counts tasks of an order that are in progress or done
func (r *GormTaskRepository) CountStarted(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&planning.OrderTask{}).
		Where("order_id = ? AND status IN ?", orderID, []planning.TaskStatus{planning.TaskInProgress, planning.TaskDone}).
		Count(&n).Error
	return n, err
}

var (
	_ planning.ProductSpecRepository = (*GormProductSpecRepository)(nil)
	_ planning.OrderRepository       = (*GormOrderRepository)(nil)
	_ planning.TaskRepository        = (*GormTaskRepository)(nil)
)
