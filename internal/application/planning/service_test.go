package planning

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/numbering"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/planning"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps orders and their tasks in memory. Reads return copies so a
// failed transaction leaves nothing behind.
type memStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]planning.ProductionOrder
	specs  map[string]*planning.ProductSpec
	seq    map[string]int
	units  map[uuid.UUID]int64
}

func newMemStore() *memStore {
	return &memStore{
		orders: map[uuid.UUID]planning.ProductionOrder{},
		specs:  map[string]*planning.ProductSpec{},
		seq:    map[string]int{},
		units:  map[uuid.UUID]int64{},
	}
}

func cloneOrder(o planning.ProductionOrder) *planning.ProductionOrder {
	o.Tasks = append([]planning.OrderTask(nil), o.Tasks...)
	o.ClearDomainEvents()
	return &o
}

func (s *memStore) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[uuid.UUID]planning.ProductionOrder, len(s.orders))
	for id, o := range s.orders {
		snapshot[id] = *cloneOrder(o)
	}
	if err := fn(memRepos{s}); err != nil {
		s.orders = snapshot
		return err
	}
	return nil
}

type memRepos struct{ s *memStore }

func (r memRepos) OrderRepo() planning.OrderRepository { return memOrders(r) }
func (r memRepos) TaskRepo() planning.TaskRepository { return memTasks(r) }
func (r memRepos) SpecRepo() planning.ProductSpecRepository { return memSpecs(r) }
func (r memRepos) Units() UnitCounter { return memUnits(r) }
func (r memRepos) SequenceRepo() numbering.SequenceRepository { return memSeq(r) }

type memOrders struct{ s *memStore }

func (r memOrders) FindByID(ctx context.Context, id uuid.UUID) (*planning.ProductionOrder, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r memOrders) FindByNumber(ctx context.Context, number string) (*planning.ProductionOrder, error) {
	for _, o := range r.s.orders {
		if o.Number == number {
			return cloneOrder(o), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memOrders) FindAll(ctx context.Context, filter shared.Filter) ([]planning.ProductionOrder, error) {
	out := make([]planning.ProductionOrder, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		out = append(out, *cloneOrder(o))
	}
	return out, nil
}

func (r memOrders) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return int64(len(r.s.orders)), nil
}

func (r memOrders) Create(ctx context.Context, order *planning.ProductionOrder) error {
	r.s.orders[order.ID] = *cloneOrder(*order)
	return nil
}

func (r memOrders) Update(ctx context.Context, order *planning.ProductionOrder) error {
	stored, ok := r.s.orders[order.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != order.Version {
		return shared.ErrConcurrencyConflict
	}
	stored.Status = order.Status
	stored.Quantity = order.Quantity
	stored.Calculation = order.Calculation
	stored.Version++
	r.s.orders[order.ID] = stored
	order.Version = stored.Version
	return nil
}

func (r memOrders) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.s.orders, id)
	return nil
}

type memTasks struct{ s *memStore }

func (r memTasks) locate(id uuid.UUID) (uuid.UUID, int, bool) {
	for oid, o := range r.s.orders {
		for i := range o.Tasks {
			if o.Tasks[i].ID == id {
				return oid, i, true
			}
		}
	}
	return uuid.Nil, 0, false
}

func (r memTasks) FindByID(ctx context.Context, id uuid.UUID) (*planning.OrderTask, error) {
	oid, i, ok := r.locate(id)
	if !ok {
		return nil, shared.ErrNotFound
	}
	t := r.s.orders[oid].Tasks[i]
	return &t, nil
}

func (r memTasks) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]planning.OrderTask, error) {
	return append([]planning.OrderTask(nil), r.s.orders[orderID].Tasks...), nil
}

func (r memTasks) FindVisibleByDepartment(ctx context.Context, dept plant.Department, filter shared.Filter) ([]planning.OrderTask, error) {
	var out []planning.OrderTask
	for _, o := range r.s.orders {
		for _, t := range o.Tasks {
			if t.Department != dept || t.Status == planning.TaskNew {
				continue
			}
			if st, ok := filter.Filters["status"]; ok && st != string(t.Status) {
				continue
			}
			out = append(out, t)
		}
	}
	return out, nil
}

func (r memTasks) CreateBatch(ctx context.Context, tasks []planning.OrderTask) error {
	for _, t := range tasks {
		o := r.s.orders[t.OrderID]
		o.Tasks = append(o.Tasks, t)
		r.s.orders[t.OrderID] = o
	}
	return nil
}

func (r memTasks) UpdateStatus(ctx context.Context, task *planning.OrderTask, from planning.TaskStatus) error {
	oid, i, ok := r.locate(task.ID)
	if !ok {
		return shared.ErrNotFound
	}
	if r.s.orders[oid].Tasks[i].Status != from {
		return shared.ErrConcurrencyConflict
	}
	r.s.orders[oid].Tasks[i] = *task
	return nil
}

func (r memTasks) UpdateExcluded(ctx context.Context, task *planning.OrderTask) error {
	oid, i, ok := r.locate(task.ID)
	if !ok {
		return shared.ErrNotFound
	}
	r.s.orders[oid].Tasks[i].Excluded = task.Excluded
	return nil
}

func (r memTasks) CountStarted(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	for _, t := range r.s.orders[orderID].Tasks {
		if t.Status == planning.TaskInProgress || t.Status == planning.TaskDone {
			n++
		}
	}
	return n, nil
}

type memSpecs struct{ s *memStore }

func (r memSpecs) FindByProductType(ctx context.Context, productType string) (*planning.ProductSpec, error) {
	spec, ok := r.s.specs[productType]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return spec, nil
}

func (r memSpecs) FindAll(ctx context.Context) ([]planning.ProductSpec, error) {
	out := make([]planning.ProductSpec, 0, len(r.s.specs))
	for _, spec := range r.s.specs {
		out = append(out, *spec)
	}
	return out, nil
}

func (r memSpecs) Save(ctx context.Context, spec *planning.ProductSpec) error {
	r.s.specs[spec.ProductType] = spec
	return nil
}

type memUnits struct{ s *memStore }

func (r memUnits) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return r.s.units[orderID], nil
}

type memSeq struct{ s *memStore }

func (r memSeq) Next(ctx context.Context, prefix string, day time.Time) (int, error) {
	key := prefix + day.Format("20060102")
	r.s.seq[key]++
	return r.s.seq[key], nil
}

type planningFixture struct {
	store  *memStore
	orders *OrderService
	tasks  *TaskService
}

func newPlanningFixture(t *testing.T) *planningFixture {
	t.Helper()
	store := newMemStore()
	spec, err := planning.NewProductSpec("FIBC-4S-90", "Big bag 4 straps 90x90x120")
	require.NoError(t, err)
	d := decimal.RequireFromString
	require.NoError(t, spec.AddItem(plant.DepartmentWeaving, "Ткань", d("0.5"), "kg"))
	require.NoError(t, spec.AddItem(plant.DepartmentCutting, "Крой панелей", d("5"), "pcs"))
	require.NoError(t, spec.AddItem(plant.DepartmentSewing, "Нить", d("0.02"), "kg"))
	store.specs[spec.ProductType] = spec

	repos := memRepos{store}
	clock := func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	orders := NewOrderService(store, repos.OrderRepo(), repos.SpecRepo(), nil)
	orders.SetClock(clock)
	tasks := NewTaskService(store, repos.TaskRepo(), identity.DepartmentPolicy{Enforce: true}, nil)
	tasks.SetClock(clock)
	return &planningFixture{store: store, orders: orders, tasks: tasks}
}

func planner() identity.Caller {
	return identity.NewCaller(uuid.New(), "planner", identity.RoleManager)
}

func (f *planningFixture) confirmedOrder(t *testing.T) *OrderResponse {
	t.Helper()
	resp, err := f.orders.CreateOrder(context.Background(), planner(), CreateOrderRequest{
		ProductType: "FIBC-4S-90",
		Quantity:    1000,
		Confirm:     true,
	})
	require.NoError(t, err)
	return resp
}

func (f *planningFixture) order(t *testing.T, id uuid.UUID) planning.ProductionOrder {
	t.Helper()
	o, ok := f.store.orders[id]
	require.True(t, ok)
	return o
}

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm generates tasks in flow order", func(t *testing.T) {
		f := newPlanningFixture(t)
		resp := f.confirmedOrder(t)

		assert.Equal(t, "ORD-20250301-0001", resp.Number)
		o := f.order(t, resp.ID)
		assert.Equal(t, planning.OrderConfirmed, o.Status)
		require.Len(t, o.Tasks, 3)
		assert.Equal(t, plant.DepartmentWeaving, o.Tasks[0].Department)
		assert.Equal(t, planning.TaskWaiting, o.Tasks[0].Status)
		assert.Equal(t, planning.TaskNew, o.Tasks[1].Status)
		assert.Equal(t, planning.TaskNew, o.Tasks[2].Status)
	})

	t.Run("numbers increase per day", func(t *testing.T) {
		f := newPlanningFixture(t)
		f.confirmedOrder(t)
		second := f.confirmedOrder(t)
		assert.Equal(t, "ORD-20250301-0002", second.Number)
	})

	t.Run("unknown product type is a validation error", func(t *testing.T) {
		f := newPlanningFixture(t)
		_, err := f.orders.CreateOrder(ctx, planner(), CreateOrderRequest{ProductType: "FIBC-1S", Quantity: 10})
		assert.True(t, shared.IsValidation(err))
		assert.Empty(t, f.store.orders)
	})

	t.Run("operators cannot plan", func(t *testing.T) {
		f := newPlanningFixture(t)
		operator := identity.NewCaller(uuid.New(), "op", identity.RoleOperator, plant.DepartmentSewing)
		_, err := f.orders.CreateOrder(ctx, operator, CreateOrderRequest{ProductType: "FIBC-4S-90", Quantity: 10})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestOrderService_Preview(t *testing.T) {
	f := newPlanningFixture(t)
	calc, err := f.orders.Preview(context.Background(), PreviewRequest{ProductType: "FIBC-4S-90", Quantity: 200})
	require.NoError(t, err)
	require.Len(t, calc.Departments, 3)
	assert.True(t, calc.Departments[0].Primary().Quantity.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, f.store.orders)
}

func TestTaskService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newPlanningFixture(t)
	order := f.confirmedOrder(t)
	tasks := f.order(t, order.ID).Tasks
	weaver := identity.NewCaller(uuid.New(), "weaver", identity.RoleOperator, plant.DepartmentWeaving)

	resp, err := f.tasks.Start(ctx, weaver, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, planning.TaskInProgress, resp.Status)
	assert.NotNil(t, resp.StartedAt)
	assert.Equal(t, planning.OrderInProgress, f.order(t, order.ID).Status)

	_, err = f.tasks.Start(ctx, weaver, tasks[0].ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "a task cannot be started twice")

	_, err = f.tasks.Start(ctx, weaver, tasks[1].ID)
	assert.ErrorIs(t, err, shared.ErrForbidden, "weaver is not assigned to cutting")

	resp, err = f.tasks.Complete(ctx, weaver, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, planning.TaskDone, resp.Status)

	manager := planner()
	for _, task := range tasks[1:] {
		_, err := f.tasks.Accept(ctx, manager, task.ID)
		require.NoError(t, err)
		_, err = f.tasks.Start(ctx, manager, task.ID)
		require.NoError(t, err)
		_, err = f.tasks.Complete(ctx, manager, task.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, planning.OrderCompleted, f.order(t, order.ID).Status)
}

func TestTaskService_AdvanceSkippingStepsRejected(t *testing.T) {
	f := newPlanningFixture(t)
	order := f.confirmedOrder(t)
	tasks := f.order(t, order.ID).Tasks

	_, err := f.tasks.Complete(context.Background(), planner(), tasks[1].ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, planning.TaskNew, f.order(t, order.ID).Tasks[1].Status)
}

func TestTaskService_Correct(t *testing.T) {
	ctx := context.Background()
	f := newPlanningFixture(t)
	order := f.confirmedOrder(t)
	tasks := f.order(t, order.ID).Tasks
	admin := identity.NewCaller(uuid.New(), "admin", identity.RoleAdmin)

	_, err := f.tasks.Correct(ctx, planner(), tasks[2].ID, CorrectTaskRequest{Status: "done"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	resp, err := f.tasks.Correct(ctx, admin, tasks[2].ID, CorrectTaskRequest{Status: "Выполнено"})
	require.NoError(t, err)
	assert.Equal(t, planning.TaskDone, resp.Status)

	_, err = f.tasks.Correct(ctx, admin, tasks[2].ID, CorrectTaskRequest{Status: "paused"})
	assert.True(t, shared.IsValidation(err))
}

func TestTaskService_SetExcludedRollsUp(t *testing.T) {
	ctx := context.Background()
	f := newPlanningFixture(t)
	order := f.confirmedOrder(t)
	tasks := f.order(t, order.ID).Tasks
	admin := identity.NewCaller(uuid.New(), "admin", identity.RoleAdmin)

	for _, task := range tasks[:2] {
		_, err := f.tasks.Correct(ctx, admin, task.ID, CorrectTaskRequest{Status: "done"})
		require.NoError(t, err)
	}
	assert.Equal(t, planning.OrderConfirmed, f.order(t, order.ID).Status)

	_, err := f.tasks.SetExcluded(ctx, planner(), tasks[2].ID, ExcludeTaskRequest{Excluded: true})
	require.NoError(t, err)
	assert.Equal(t, planning.OrderCompleted, f.order(t, order.ID).Status)
}

func TestTaskService_ListDepartmentTasksHidesNew(t *testing.T) {
	ctx := context.Background()
	f := newPlanningFixture(t)
	f.confirmedOrder(t)
	manager := planner()

	weaving, err := f.tasks.ListDepartmentTasks(ctx, manager, "weaving", "")
	require.NoError(t, err)
	assert.Len(t, weaving, 1)

	cutting, err := f.tasks.ListDepartmentTasks(ctx, manager, "Крой", "")
	require.NoError(t, err)
	assert.Empty(t, cutting)

	newOnly, err := f.tasks.ListDepartmentTasks(ctx, manager, "weaving", "new")
	require.NoError(t, err)
	assert.Empty(t, newOnly)

	_, err = f.tasks.ListDepartmentTasks(ctx, manager, "boiler-room", "")
	assert.True(t, shared.IsValidation(err))
}
