package planning

import (
	"context"
	"errors"
	"time"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/integrity"
	"github.com/fibc/backend/internal/domain/numbering"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/planning"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService decomposes production orders into department tasks
type OrderService struct {
	scope          TransactionScope
	orders         planning.OrderRepository
	specs          planning.ProductSpecRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(scope TransactionScope, orders planning.OrderRepository, specs planning.ProductSpecRepository, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{scope: scope, orders: orders, specs: specs, logger: logger, now: time.Now}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock overrides the clock
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *OrderService) publishDomainEvents(ctx context.Context, order *planning.ProductionOrder) {
	if s.eventPublisher != nil && len(order.GetDomainEvents()) > 0 {
		_ = s.eventPublisher.Publish(ctx, order.GetDomainEvents()...)
	}
	order.ClearDomainEvents()
}

func authorizePlanning(caller identity.Caller) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	if !caller.CanPlan() {
		return shared.NewForbiddenError("Role " + caller.Role.String() + " cannot plan production orders")
	}
	return nil
}

// decompose resolves the product spec and scales it by quantity. An unknown
// product type is a validation error, not a missing resource.
func decompose(ctx context.Context, specs planning.ProductSpecRepository, productType string, quantity int64) (planning.Calculation, error) {
	spec, err := specs.FindByProductType(ctx, productType)
	if errors.Is(err, shared.ErrNotFound) {
		return planning.Calculation{}, shared.NewValidationError("Unknown product type " + productType)
	}
	if err != nil {
		return planning.Calculation{}, err
	}
	return planning.Decompose(spec, quantity)
}

// Preview computes the calculation of an order without storing anything
func (s *OrderService) Preview(ctx context.Context, req PreviewRequest) (*planning.Calculation, error) {
	calc, err := decompose(ctx, s.specs, req.ProductType, req.Quantity)
	if err != nil {
		return nil, err
	}
	return &calc, nil
}

// CreateOrder creates a draft order with its calculation. With Confirm set the
// order is confirmed and its tasks generated in the same transaction.
func (s *OrderService) CreateOrder(ctx context.Context, caller identity.Caller, req CreateOrderRequest) (*OrderResponse, error) {
	if err := authorizePlanning(caller); err != nil {
		return nil, err
	}
	var order *planning.ProductionOrder
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		calc, err := decompose(ctx, repos.SpecRepo(), req.ProductType, req.Quantity)
		if err != nil {
			return err
		}
		now := s.now()
		number, err := numbering.NewGenerator(repos.SequenceRepo()).WithClock(func() time.Time { return now }).Next(ctx, numbering.PrefixOrder)
		if err != nil {
			return err
		}
		order, err = planning.NewProductionOrder(number, req.ProductType, req.Quantity, calc, planning.OrderDetails{
			Priority: planning.Priority(req.Priority),
			Deadline: req.Deadline,
			Customer: req.Customer,
			Notes:    req.Notes,
		}, caller.UserID)
		if err != nil {
			return err
		}
		if req.Confirm {
			if _, err := order.Confirm(now); err != nil {
				return err
			}
		}
		return repos.OrderRepo().Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("production order created",
		zap.String("order", order.Number),
		zap.String("product_type", order.ProductType),
		zap.Int64("quantity", order.Quantity),
		zap.Int("tasks", len(order.Tasks)))
	s.publishDomainEvents(ctx, order)
	resp := ToOrderResponse(order)
	return &resp, nil
}

// Recalculate changes the quantity of a draft order and recomputes its calculation
func (s *OrderService) Recalculate(ctx context.Context, caller identity.Caller, orderID uuid.UUID, req RecalculateRequest) (*OrderResponse, error) {
	if err := authorizePlanning(caller); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "recalculated", orderID, func(repos TransactionalRepositories, o *planning.ProductionOrder) error {
		if o.Status != planning.OrderDraft {
			return shared.NewStateError("Calculation is frozen once the order is confirmed")
		}
		calc, err := decompose(ctx, repos.SpecRepo(), o.ProductType, req.Quantity)
		if err != nil {
			return err
		}
		if err := o.Recalculate(req.Quantity, calc); err != nil {
			return err
		}
		return repos.OrderRepo().Update(ctx, o)
	})
}

// Confirm freezes the calculation and generates the department tasks
func (s *OrderService) Confirm(ctx context.Context, caller identity.Caller, orderID uuid.UUID) (*OrderResponse, error) {
	if err := authorizePlanning(caller); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "confirmed", orderID, func(repos TransactionalRepositories, o *planning.ProductionOrder) error {
		tasks, err := o.Confirm(s.now())
		if err != nil {
			return err
		}
		if err := repos.OrderRepo().Update(ctx, o); err != nil {
			return err
		}
		return repos.TaskRepo().CreateBatch(ctx, tasks)
	})
}

// Cancel stops an order
func (s *OrderService) Cancel(ctx context.Context, caller identity.Caller, orderID uuid.UUID) (*OrderResponse, error) {
	if err := authorizePlanning(caller); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "cancelled", orderID, func(repos TransactionalRepositories, o *planning.ProductionOrder) error {
		if err := o.Cancel(s.now()); err != nil {
			return err
		}
		return repos.OrderRepo().Update(ctx, o)
	})
}

// Delete removes a draft or cancelled order that no work references
func (s *OrderService) Delete(ctx context.Context, caller identity.Caller, orderID uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	if !caller.CanDelete() {
		return shared.NewForbiddenError("Only administrators can delete production orders")
	}
	var order *planning.ProductionOrder
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.CanDelete(); err != nil {
			return err
		}
		if err := integrity.Check(ctx, "production order", orderID,
			integrity.ReferenceCheck{
				Category: integrity.CategoryOrderTasks,
				Count:    func(ctx context.Context) (int64, error) { return repos.TaskRepo().CountStarted(ctx, orderID) },
			},
			integrity.ReferenceCheck{
				Category: integrity.CategoryMaterialUnits,
				Count:    func(ctx context.Context) (int64, error) { return repos.Units().CountByOrder(ctx, orderID) },
			},
		); err != nil {
			return err
		}
		return repos.OrderRepo().Delete(ctx, orderID)
	})
	if err != nil {
		if shared.IsConflict(err) {
			s.logger.Warn("production order delete blocked", zap.String("order_id", orderID.String()), zap.Error(err))
		}
		return err
	}
	s.logger.Info("production order deleted", zap.String("order", order.Number), zap.String("user_id", caller.UserID.String()))
	order.AddDomainEvent(planning.NewOrderEvent(planning.EventTypeOrderDeleted, order))
	s.publishDomainEvents(ctx, order)
	return nil
}

func (s *OrderService) mutate(ctx context.Context, verb string, orderID uuid.UUID, fn func(TransactionalRepositories, *planning.ProductionOrder) error) (*OrderResponse, error) {
	var order *planning.ProductionOrder
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		return fn(repos, order)
	})
	if err != nil {
		if shared.IsConflict(err) {
			s.logger.Warn("production order conflict", zap.String("order_id", orderID.String()), zap.Error(err))
		}
		return nil, err
	}
	s.logger.Info("production order "+verb, zap.String("order", order.Number), zap.String("status", string(order.Status)))
	s.publishDomainEvents(ctx, order)
	resp := ToOrderResponse(order)
	return &resp, nil
}

// Get returns an order with its tasks and aggregate status
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// List lists orders matching the filter
func (s *OrderService) List(ctx context.Context, f OrderListFilter) ([]OrderListItemResponse, int64, error) {
	filter := shared.DefaultFilter()
	filter.Search = f.Search
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		filter.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	if f.Priority != "" {
		filter.Filters["priority"] = f.Priority
	}
	if f.ProductType != "" {
		filter.Filters["product_type"] = f.ProductType
	}
	orders, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orders.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]OrderListItemResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderListItemResponse(&orders[i])
	}
	return out, total, nil
}

// ListProductSpecs lists all product specs
func (s *OrderService) ListProductSpecs(ctx context.Context) ([]ProductSpecResponse, error) {
	specs, err := s.specs.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProductSpecResponse, len(specs))
	for i := range specs {
		out[i] = ToProductSpecResponse(&specs[i])
	}
	return out, nil
}

// SaveProductSpec replaces the bill of materials of a product type
func (s *OrderService) SaveProductSpec(ctx context.Context, caller identity.Caller, req SaveProductSpecRequest) (*ProductSpecResponse, error) {
	if err := authorizePlanning(caller); err != nil {
		return nil, err
	}
	spec, err := planning.NewProductSpec(req.ProductType, req.Name)
	if err != nil {
		return nil, err
	}
	for _, it := range req.Items {
		dept, ok := plant.ParseDepartment(it.Department)
		if !ok {
			return nil, shared.NewValidationError("Unknown department " + it.Department)
		}
		if err := spec.AddItem(dept, it.Name, it.PerUnit, it.Unit); err != nil {
			return nil, err
		}
	}
	if err := s.specs.Save(ctx, spec); err != nil {
		return nil, err
	}
	s.logger.Info("product spec saved", zap.String("product_type", spec.ProductType), zap.Int("items", len(spec.Items)))
	resp := ToProductSpecResponse(spec)
	return &resp, nil
}
