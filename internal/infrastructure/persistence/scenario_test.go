package persistence

import (
	"context"
	"errors"
	"testing"

	appledger "github.com/fibc/backend/internal/application/ledger"
	appplanning "github.com/fibc/backend/internal/application/planning"
	appproduction "github.com/fibc/backend/internal/application/production"
	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/integrity"
	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/domain/planning"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/production"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type plantServices struct {
	ledger *appledger.Service
	units  *appproduction.UnitService
	shifts *appproduction.ShiftService
	orders *appplanning.OrderService
	tasks  *appplanning.TaskService
}

func newPlantServices(t *testing.T, db *gorm.DB) plantServices {
	t.Helper()
	scope := NewGormTransactionScope(db)
	policy := identity.DepartmentPolicy{Enforce: true}
	tolerance, err := ledger.NewTolerancePolicy(decimal.Zero)
	require.NoError(t, err)

	repos := appproduction.Repositories{
		Machines:     NewGormMachineRepository(db),
		Units:        NewGormUnitRepository(db),
		Consumptions: NewGormConsumptionRepository(db),
		Transfers:    NewGormTransferLogRepository(db),
		Shifts:       NewGormShiftRepository(db),
	}
	return plantServices{
		ledger: appledger.NewService(scope.Ledger(), NewGormMaterialRepository(db), NewGormMovementRepository(db), tolerance, nil),
		units:  appproduction.NewUnitService(scope.Production(), repos, policy, nil),
		shifts: appproduction.NewShiftService(scope.Production(), repos, policy, nil),
		orders: appplanning.NewOrderService(scope.Planning(), NewGormOrderRepository(db), NewGormProductSpecRepository(db), nil),
		tasks:  appplanning.NewTaskService(scope.Planning(), NewGormTaskRepository(db), policy, nil),
	}
}

func adminCaller() identity.Caller {
	return identity.NewCaller(uuid.New(), "admin", identity.RoleAdmin)
}

func TestOrderService_DecomposesIntoDepartmentTasks(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newPlantServices(t, db)
	saveSpec(t, db, "P")

	order, err := svc.orders.CreateOrder(ctx, adminCaller(), appplanning.CreateOrderRequest{
		ProductType: "P",
		Quantity:    1000,
		Confirm:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, planning.OrderConfirmed, order.Status)
	require.Len(t, order.Tasks, 4)

	var weaving *appplanning.TaskResponse
	for i := range order.Tasks {
		if order.Tasks[i].Department == plant.DepartmentWeaving {
			weaving = &order.Tasks[i]
		}
	}
	require.NotNil(t, weaving)
	assert.True(t, decimal.NewFromInt(500).Equal(weaving.RequiredQuantity), "got %s", weaving.RequiredQuantity)
	assert.Equal(t, "kg", weaving.RequiredUnit)

	t.Run("unknown product type", func(t *testing.T) {
		_, err := svc.orders.CreateOrder(ctx, adminCaller(), appplanning.CreateOrderRequest{ProductType: "NOPE", Quantity: 10})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestUnitLifecycle_MachineHoldsOneActiveUnit(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newPlantServices(t, db)
	fabric := seedMaterial(t, db, "PP-FABRIC", ledger.ClassFabric)
	loom := seedMachine(t, db, "LOOM-1", plant.DepartmentWeaving)
	caller := adminCaller()

	start := appproduction.StartUnitRequest{MachineID: loom.ID, MaterialID: fabric.ID, QuantityUnit: "m"}
	first, err := svc.units.Start(ctx, caller, start)
	require.NoError(t, err)
	assert.Equal(t, string(production.StatusActive), first.Status)

	_, err = svc.units.Start(ctx, caller, start)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, total, err := svc.units.List(ctx, appproduction.UnitListFilter{MachineID: &loom.ID, Status: string(production.StatusActive)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	t.Run("operator outside the department is refused", func(t *testing.T) {
		operator := identity.NewCaller(uuid.New(), "op", identity.RoleOperator, plant.DepartmentCutting)
		_, err := svc.units.Accumulate(ctx, operator, first.ID, appproduction.AccumulateRequest{Quantity: decimal.NewFromInt(10)})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestUnitLifecycle_TransferAndReturn(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newPlantServices(t, db)
	fabric := seedMaterial(t, db, "PP-FABRIC", ledger.ClassFabric)
	loom := seedMachine(t, db, "LOOM-1", plant.DepartmentWeaving)
	caller := adminCaller()

	unit, err := svc.units.Start(ctx, caller, appproduction.StartUnitRequest{MachineID: loom.ID, MaterialID: fabric.ID, QuantityUnit: "m"})
	require.NoError(t, err)
	_, err = svc.units.Accumulate(ctx, caller, unit.ID, appproduction.AccumulateRequest{Quantity: decimal.NewFromInt(400)})
	require.NoError(t, err)

	completed, err := svc.units.Complete(ctx, caller, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, string(production.StatusCompleted), completed.Status)
	assert.Nil(t, completed.MachineID)

	moved, err := svc.units.Transfer(ctx, caller, unit.ID, appproduction.TransferRequest{Destination: "cutting"})
	require.NoError(t, err)
	assert.Equal(t, plant.DepartmentCutting, moved.Location)
	assert.Equal(t, plant.DepartmentWeaving, moved.PreviousLocation)
	assert.Equal(t, string(production.StatusAvailable), moved.Status)

	back, err := svc.units.Return(ctx, caller, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, plant.DepartmentWeaving, back.Location)
	assert.Equal(t, string(production.StatusAvailable), back.Status)

	history, err := svc.units.History(ctx, unit.ID)
	require.NoError(t, err)
	require.Len(t, history.Transfers, 2)
	assert.Equal(t, production.TransferForward, history.Transfers[0].Kind)
	assert.Equal(t, production.TransferReturn, history.Transfers[1].Kind)

	t.Run("return without a pending transfer", func(t *testing.T) {
		_, err := svc.units.Return(ctx, caller, unit.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("no path from weaving to sewing", func(t *testing.T) {
		_, err := svc.units.Transfer(ctx, caller, unit.ID, appproduction.TransferRequest{Destination: "sewing"})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestUnitLifecycle_ConsumptionPostsLedgerAndGuardsDeletes(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newPlantServices(t, db)
	fabric := seedMaterial(t, db, "PP-FABRIC", ledger.ClassFabric)
	loom := seedMachine(t, db, "LOOM-1", plant.DepartmentWeaving)
	caller := adminCaller()

	unit, err := svc.units.Start(ctx, caller, appproduction.StartUnitRequest{MachineID: loom.ID, MaterialID: fabric.ID, QuantityUnit: "m"})
	require.NoError(t, err)
	_, err = svc.units.Accumulate(ctx, caller, unit.ID, appproduction.AccumulateRequest{Quantity: decimal.NewFromInt(300)})
	require.NoError(t, err)
	_, err = svc.units.Complete(ctx, caller, unit.ID)
	require.NoError(t, err)

	balance, err := svc.ledger.GetBalance(ctx, fabric.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(balance.Balance))

	_, err = svc.units.Transfer(ctx, caller, unit.ID, appproduction.TransferRequest{Destination: "cutting"})
	require.NoError(t, err)
	consumed, err := svc.units.Consume(ctx, caller, unit.ID, appproduction.ConsumeRequest{
		Department:     "cutting",
		Quantity:       decimal.NewFromInt(120),
		DocumentNumber: "CUT-0001",
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(180).Equal(consumed.Remaining))

	balance, err = svc.ledger.GetBalance(ctx, fabric.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(balance.TotalIn))
	assert.True(t, decimal.NewFromInt(120).Equal(balance.TotalOut))
	assert.True(t, decimal.NewFromInt(180).Equal(balance.Balance))

	t.Run("consumed unit cannot be returned", func(t *testing.T) {
		_, err := svc.units.Return(ctx, caller, unit.ID)
		var conflict *integrity.ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, integrity.CategoryConsumption, conflict.Category)
	})

	t.Run("consumed unit cannot be deleted", func(t *testing.T) {
		err := svc.units.Delete(ctx, caller, unit.ID)
		assert.ErrorIs(t, err, shared.ErrReferentialConflict)
	})

	t.Run("movement behind a consumption cannot be deleted", func(t *testing.T) {
		var mv ledger.Movement
		require.NoError(t, db.Where("document_number = ? AND direction = ?", "CUT-0001", ledger.DirectionOut).First(&mv).Error)
		err := svc.ledger.DeleteMovement(ctx, caller, mv.ID)
		var conflict *integrity.ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, integrity.CategoryConsumption, conflict.Category)
	})

	t.Run("over consumption is rejected", func(t *testing.T) {
		_, err := svc.units.Consume(ctx, caller, unit.ID, appproduction.ConsumeRequest{Department: "cutting", Quantity: decimal.NewFromInt(500)})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("only the holding department consumes", func(t *testing.T) {
		for _, dept := range []string{"weaving", "extrusion", "warehouse"} {
			_, err := svc.units.Consume(ctx, caller, unit.ID, appproduction.ConsumeRequest{Department: dept, Quantity: decimal.NewFromInt(10)})
			assert.ErrorIs(t, err, shared.ErrInvalidState, dept)
		}
		weaver := identity.NewCaller(uuid.New(), "weaver", identity.RoleOperator, plant.DepartmentWeaving)
		_, err := svc.units.Consume(ctx, weaver, unit.ID, appproduction.ConsumeRequest{Department: "cutting", Quantity: decimal.NewFromInt(180)})
		assert.ErrorIs(t, err, shared.ErrForbidden)

		got, err := svc.units.GetByID(ctx, unit.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(180).Equal(got.Remaining), "got %s", got.Remaining)
		assert.Equal(t, string(production.StatusAvailable), got.Status)
	})
}

func TestUnitLifecycle_ReturnFromLoadedMachine(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newPlantServices(t, db)
	fabric := seedMaterial(t, db, "PP-FABRIC", ledger.ClassFabric)
	loom := seedMachine(t, db, "LOOM-1", plant.DepartmentWeaving)
	laminator := seedMachine(t, db, "LAM-1", plant.DepartmentLamination)
	caller := adminCaller()

	unit, err := svc.units.Start(ctx, caller, appproduction.StartUnitRequest{MachineID: loom.ID, MaterialID: fabric.ID, QuantityUnit: "m"})
	require.NoError(t, err)
	_, err = svc.units.Accumulate(ctx, caller, unit.ID, appproduction.AccumulateRequest{Quantity: decimal.NewFromInt(200)})
	require.NoError(t, err)
	_, err = svc.units.Complete(ctx, caller, unit.ID)
	require.NoError(t, err)

	loaded, err := svc.units.Transfer(ctx, caller, unit.ID, appproduction.TransferRequest{Destination: "lamination", MachineID: &laminator.ID})
	require.NoError(t, err)
	assert.Equal(t, string(production.StatusActive), loaded.Status)

	_, err = svc.units.Return(ctx, caller, unit.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.units.Complete(ctx, caller, unit.ID)
	require.NoError(t, err)
	back, err := svc.units.Return(ctx, caller, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, plant.DepartmentWeaving, back.Location)
	assert.Equal(t, string(production.StatusAvailable), back.Status)

	balance, err := svc.ledger.GetBalance(ctx, fabric.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(balance.Balance), "re-completion must not post again, got %s", balance.Balance)
}

func TestShiftService_CloseCompletesActiveUnits(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newPlantServices(t, db)
	fabric := seedMaterial(t, db, "PP-FABRIC", ledger.ClassFabric)
	loom := seedMachine(t, db, "LOOM-1", plant.DepartmentWeaving)
	caller := adminCaller()

	shift, err := svc.shifts.OpenShift(ctx, caller, appproduction.OpenShiftRequest{MachineID: loom.ID, ShiftNo: 1})
	require.NoError(t, err)

	unit, err := svc.units.Start(ctx, caller, appproduction.StartUnitRequest{MachineID: loom.ID, MaterialID: fabric.ID, QuantityUnit: "m"})
	require.NoError(t, err)
	require.NotNil(t, unit.ShiftID)
	assert.Equal(t, shift.ID, *unit.ShiftID)
	_, err = svc.units.Accumulate(ctx, caller, unit.ID, appproduction.AccumulateRequest{Quantity: decimal.NewFromInt(50)})
	require.NoError(t, err)

	closed, err := svc.shifts.CloseShift(ctx, caller, shift.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, []string{unit.Number}, closed.Completed)

	got, err := svc.units.GetByID(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, string(production.StatusCompleted), got.Status)
	assert.Nil(t, got.MachineID)

	balance, err := svc.ledger.GetBalance(ctx, fabric.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(balance.Balance), "got %s", balance.Balance)

	t.Run("closing twice", func(t *testing.T) {
		_, err := svc.shifts.CloseShift(ctx, caller, shift.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("shift with produced units cannot be deleted", func(t *testing.T) {
		err := svc.shifts.DeleteShift(ctx, caller, shift.ID)
		var conflict *integrity.ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, integrity.CategoryProducedUnits, conflict.Category)
		assert.EqualValues(t, 1, conflict.Count)

		_, err = svc.shifts.GetShift(ctx, shift.ID)
		assert.NoError(t, err)
	})

	t.Run("empty shift is deleted", func(t *testing.T) {
		empty, err := svc.shifts.OpenShift(ctx, caller, appproduction.OpenShiftRequest{MachineID: loom.ID, ShiftNo: 2})
		require.NoError(t, err)
		require.NoError(t, svc.shifts.DeleteShift(ctx, caller, empty.ID))
		_, err = svc.shifts.GetShift(ctx, empty.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestOrderService_StatusRollUp(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newPlantServices(t, db)
	saveSpec(t, db, "P")
	caller := adminCaller()

	order, err := svc.orders.CreateOrder(ctx, caller, appplanning.CreateOrderRequest{ProductType: "P", Quantity: 100, Confirm: true})
	require.NoError(t, err)
	require.Len(t, order.Tasks, 4)

	want := map[plant.Department]string{
		plant.DepartmentExtrusion: "done",
		plant.DepartmentWeaving:   "done",
		plant.DepartmentCutting:   "in_progress",
		plant.DepartmentSewing:    "done",
	}
	var cutting uuid.UUID
	for _, task := range order.Tasks {
		_, err := svc.tasks.Correct(ctx, caller, task.ID, appplanning.CorrectTaskRequest{Status: want[task.Department]})
		require.NoError(t, err, task.Department)
		if task.Department == plant.DepartmentCutting {
			cutting = task.ID
		}
	}

	got, err := svc.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, planning.OrderInProgress, got.AggregateStatus)
	assert.Equal(t, planning.OrderInProgress, got.Status)

	_, err = svc.tasks.Complete(ctx, caller, cutting)
	require.NoError(t, err)
	got, err = svc.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, planning.OrderCompleted, got.AggregateStatus)

	t.Run("cancelled order refuses task updates", func(t *testing.T) {
		draft, err := svc.orders.CreateOrder(ctx, caller, appplanning.CreateOrderRequest{ProductType: "P", Quantity: 10, Confirm: true})
		require.NoError(t, err)
		_, err = svc.orders.Cancel(ctx, caller, draft.ID)
		require.NoError(t, err)
		_, err = svc.tasks.Accept(ctx, caller, draft.Tasks[0].ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}
