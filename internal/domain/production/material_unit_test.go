package production

import (
	"testing"
	"time"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(t *testing.T, code string, dept plant.Department) *Machine {
	t.Helper()
	m, err := NewMachine(code, code, dept)
	require.NoError(t, err)
	return m
}

func newFabricRoll(t *testing.T) *MaterialUnit {
	t.Helper()
	u, err := NewMaterialUnit("WEV-20250301-0001", newMachine(t, "L-01", plant.DepartmentWeaving),
		StartSpec{MaterialID: uuid.New(), QuantityUnit: "m"}, uuid.New(), time.Now())
	require.NoError(t, err)
	return u
}

func completedRoll(t *testing.T, length int64) *MaterialUnit {
	t.Helper()
	u := newFabricRoll(t)
	require.NoError(t, u.Accumulate(decimal.NewFromInt(length), decimal.Zero))
	_, err := u.Complete(time.Now())
	require.NoError(t, err)
	return u
}

func TestNewMaterialUnit(t *testing.T) {
	operator := uuid.New()
	weaving := newMachine(t, "L-01", plant.DepartmentWeaving)
	printer := newMachine(t, "P-01", plant.DepartmentPrinting)
	idle := newMachine(t, "L-02", plant.DepartmentWeaving)
	idle.Active = false
	spec := StartSpec{MaterialID: uuid.New(), QuantityUnit: "m"}

	u, err := NewMaterialUnit("WEV-20250301-0001", weaving, spec, operator, time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusActive, u.Status)
	assert.Equal(t, plant.DepartmentWeaving, u.Location)
	assert.Equal(t, KindFabricRoll, u.Kind)
	assert.Equal(t, weaving.ID, *u.MachineID)
	assert.NoError(t, u.CheckState())
	require.Len(t, u.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeUnitStarted, u.GetDomainEvents()[0].EventType())

	_, err = NewMaterialUnit("PRN-1", printer, spec, operator, time.Now())
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewMaterialUnit("WEV-2", idle, spec, operator, time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = NewMaterialUnit("WEV-3", weaving, StartSpec{QuantityUnit: "m"}, operator, time.Now())
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestMaterialUnit_Accumulate(t *testing.T) {
	u := newFabricRoll(t)

	require.NoError(t, u.Accumulate(decimal.NewFromInt(120), decimal.NewFromInt(15)))
	require.NoError(t, u.Accumulate(decimal.RequireFromString("30.5"), decimal.Zero))
	assert.Equal(t, "150.5", u.Quantity.String())
	assert.Equal(t, "15", u.WeightKg.String())

	assert.ErrorIs(t, u.Accumulate(decimal.Zero, decimal.Zero), shared.ErrValidation)
	assert.ErrorIs(t, u.Accumulate(decimal.NewFromInt(-1), decimal.Zero), shared.ErrValidation)
	assert.ErrorIs(t, u.Accumulate(decimal.NewFromInt(1), decimal.NewFromInt(-1)), shared.ErrValidation)
	assert.Equal(t, "150.5", u.Quantity.String())

	_, err := u.Complete(time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, u.Accumulate(decimal.NewFromInt(1), decimal.Zero), shared.ErrInvalidState)
}

func TestMaterialUnit_Complete(t *testing.T) {
	u := newFabricRoll(t)
	require.NoError(t, u.Accumulate(decimal.NewFromInt(800), decimal.Zero))

	first, err := u.Complete(time.Now())
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, StatusCompleted, u.Status)
	assert.Nil(t, u.MachineID)
	assert.True(t, u.Remaining.Equal(decimal.NewFromInt(800)))
	assert.NotNil(t, u.CompletedAt)

	_, err = u.Complete(time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestMaterialUnit_Transfer(t *testing.T) {
	t.Run("to adjacent department", func(t *testing.T) {
		u := completedRoll(t, 500)
		require.NoError(t, u.Transfer(plant.DepartmentCutting, nil, time.Now()))
		assert.Equal(t, plant.DepartmentCutting, u.Location)
		assert.Equal(t, plant.DepartmentWeaving, u.PreviousLocation)
		assert.Equal(t, StatusAvailable, u.Status)
	})

	t.Run("loaded on a destination machine", func(t *testing.T) {
		u := completedRoll(t, 500)
		laminator := newMachine(t, "LM-1", plant.DepartmentLamination)
		require.NoError(t, u.Transfer(plant.DepartmentLamination, laminator, time.Now()))
		assert.Equal(t, StatusActive, u.Status)
		assert.Equal(t, laminator.ID, *u.MachineID)
		assert.NoError(t, u.CheckState())

		assert.ErrorIs(t, u.Accumulate(decimal.NewFromInt(1), decimal.Zero), shared.ErrInvalidState)
		first, err := u.Complete(time.Now())
		require.NoError(t, err)
		assert.False(t, first)
		assert.True(t, u.Remaining.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, plant.DepartmentLamination, u.Location)
	})

	t.Run("machine from another department", func(t *testing.T) {
		u := completedRoll(t, 500)
		err := u.Transfer(plant.DepartmentLamination, newMachine(t, "C-1", plant.DepartmentCutting), time.Now())
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, plant.DepartmentWeaving, u.Location)
	})

	t.Run("not adjacent", func(t *testing.T) {
		u := completedRoll(t, 500)
		err := u.Transfer(plant.DepartmentSewing, nil, time.Now())
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, StatusCompleted, u.Status)
		assert.Equal(t, plant.DepartmentWeaving, u.Location)
	})

	t.Run("still active", func(t *testing.T) {
		u := newFabricRoll(t)
		require.NoError(t, u.Accumulate(decimal.NewFromInt(10), decimal.Zero))
		assert.ErrorIs(t, u.Transfer(plant.DepartmentCutting, nil, time.Now()), shared.ErrInvalidState)
	})

	t.Run("nothing remaining", func(t *testing.T) {
		u := newFabricRoll(t)
		_, err := u.Complete(time.Now())
		require.NoError(t, err)
		assert.ErrorIs(t, u.Transfer(plant.DepartmentCutting, nil, time.Now()), shared.ErrInvalidState)
	})
}

func TestMaterialUnit_Return(t *testing.T) {
	u := completedRoll(t, 500)
	assert.ErrorIs(t, u.Return(time.Now()), shared.ErrInvalidState)

	require.NoError(t, u.Transfer(plant.DepartmentCutting, nil, time.Now()))
	require.NoError(t, u.Return(time.Now()))
	assert.Equal(t, plant.DepartmentWeaving, u.Location)
	assert.Equal(t, StatusAvailable, u.Status)
	assert.Empty(t, u.PreviousLocation)
	assert.NoError(t, u.CheckState())

	assert.ErrorIs(t, u.Return(time.Now()), shared.ErrInvalidState)
}

func TestMaterialUnit_Consume(t *testing.T) {
	u := completedRoll(t, 500)
	assert.ErrorIs(t, u.Consume(decimal.NewFromInt(10), plant.DepartmentCutting, time.Now()), shared.ErrInvalidState)

	require.NoError(t, u.Transfer(plant.DepartmentCutting, nil, time.Now()))
	assert.ErrorIs(t, u.Consume(decimal.NewFromInt(501), plant.DepartmentCutting, time.Now()), shared.ErrValidation)
	assert.ErrorIs(t, u.Consume(decimal.Zero, plant.DepartmentCutting, time.Now()), shared.ErrValidation)

	require.NoError(t, u.Consume(decimal.NewFromInt(200), plant.DepartmentCutting, time.Now()))
	assert.Equal(t, StatusAvailable, u.Status)
	assert.Equal(t, "300", u.Remaining.String())

	require.NoError(t, u.Consume(decimal.NewFromInt(300), plant.DepartmentCutting, time.Now()))
	assert.Equal(t, StatusUsed, u.Status)
	assert.True(t, u.Remaining.IsZero())
	assert.NoError(t, u.CheckState())

	assert.ErrorIs(t, u.Transfer(plant.DepartmentSewing, nil, time.Now()), shared.ErrInvalidState)
	assert.ErrorIs(t, u.Consume(decimal.NewFromInt(1), plant.DepartmentCutting, time.Now()), shared.ErrInvalidState)
}

func TestMaterialUnit_ConsumeWhileLoaded(t *testing.T) {
	u := completedRoll(t, 100)
	laminator := newMachine(t, "LM-1", plant.DepartmentLamination)
	require.NoError(t, u.Transfer(plant.DepartmentLamination, laminator, time.Now()))

	require.NoError(t, u.Consume(decimal.NewFromInt(100), plant.DepartmentLamination, time.Now()))
	assert.Equal(t, StatusUsed, u.Status)
	assert.Nil(t, u.MachineID)
}

func TestMaterialUnit_ConsumeOnlyWhereHeld(t *testing.T) {
	u := completedRoll(t, 300)
	require.NoError(t, u.Transfer(plant.DepartmentCutting, nil, time.Now()))

	for _, d := range []plant.Department{plant.DepartmentWeaving, plant.DepartmentExtrusion, plant.DepartmentWarehouse, plant.DepartmentSewing} {
		assert.ErrorIs(t, u.Consume(decimal.NewFromInt(10), d, time.Now()), shared.ErrInvalidState, d)
	}
	assert.Equal(t, "300", u.Remaining.String())
	assert.Equal(t, StatusAvailable, u.Status)

	require.NoError(t, u.Consume(decimal.NewFromInt(10), plant.DepartmentCutting, time.Now()))
	assert.Equal(t, "290", u.Remaining.String())
}

func TestMaterialUnit_ReturnAfterLoadedTransfer(t *testing.T) {
	u := completedRoll(t, 200)
	laminator := newMachine(t, "LM-1", plant.DepartmentLamination)
	require.NoError(t, u.Transfer(plant.DepartmentLamination, laminator, time.Now()))

	assert.ErrorIs(t, u.Return(time.Now()), shared.ErrInvalidState, "still on the laminator")

	_, err := u.Complete(time.Now())
	require.NoError(t, err)
	require.NoError(t, u.Return(time.Now()))
	assert.Equal(t, plant.DepartmentWeaving, u.Location)
	assert.Equal(t, StatusAvailable, u.Status)
	assert.Nil(t, u.MachineID)
	assert.NoError(t, u.CheckState())
}

func TestMaterialUnit_TransitionsStayLegal(t *testing.T) {
	u := completedRoll(t, 300)
	laminator := newMachine(t, "LM-1", plant.DepartmentLamination)
	steps := []func() error{
		func() error { return u.Transfer(plant.DepartmentLamination, laminator, time.Now()) },
		func() error { _, err := u.Complete(time.Now()); return err },
		func() error { return u.Transfer(plant.DepartmentCutting, nil, time.Now()) },
		func() error { return u.Return(time.Now()) },
		func() error { return u.Transfer(plant.DepartmentCutting, nil, time.Now()) },
		func() error { return u.Consume(decimal.NewFromInt(300), plant.DepartmentCutting, time.Now()) },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assert.True(t, LegalStates(u.Kind).Allows(u.Status, u.Location), "step %d produced %s@%s", i, u.Status, u.Location)
	}
}
