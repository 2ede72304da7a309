package production

import (
	"fmt"
	"strings"
	"time"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialUnit is one physical roll or batch of work-in-progress.
// Status and Location change only through the transition methods below.
type MaterialUnit struct {
	shared.BaseAggregateRoot
	Number           string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	Kind             UnitKind         `gorm:"type:varchar(20);not null;index"`
	Origin           plant.Department `gorm:"type:varchar(20);not null"`
	Location         plant.Department `gorm:"type:varchar(20);not null;index"`
	PreviousLocation plant.Department `gorm:"type:varchar(20)"`
	Status           UnitStatus       `gorm:"type:varchar(20);not null;index"`
	MaterialID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	QuantityUnit     string           `gorm:"type:varchar(20);not null"`
	Quantity         decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Remaining        decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	WeightKg         decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	MachineID        *uuid.UUID       `gorm:"type:uuid;index"` // owner while active
	ProducedOn       *uuid.UUID       `gorm:"type:uuid"`
	SourceUnitID     *uuid.UUID       `gorm:"type:uuid;index"`
	OrderID          *uuid.UUID       `gorm:"type:uuid;index"`
	ShiftID          *uuid.UUID       `gorm:"type:uuid;index"`
	OperatorID       uuid.UUID        `gorm:"type:uuid;not null"`
	Notes            string           `gorm:"type:text"`
	StartedAt        time.Time        `gorm:"not null"`
	CompletedAt      *time.Time
}

// TableName returns the table name for GORM
func (MaterialUnit) TableName() string {
	return "material_units"
}

// StartSpec describes the unit a machine is about to produce
type StartSpec struct {
	MaterialID   uuid.UUID
	QuantityUnit string
	SourceUnitID *uuid.UUID
	OrderID      *uuid.UUID
	ShiftID      *uuid.UUID
	Notes        string
}

// NewMaterialUnit starts production of a new unit on machine
func NewMaterialUnit(number string, machine *Machine, spec StartSpec, operatorID uuid.UUID, now time.Time) (*MaterialUnit, error) {
	if machine == nil {
		return nil, shared.NewValidationError("Machine is required")
	}
	if !machine.Active {
		return nil, shared.NewStateError("Machine " + machine.Code + " is not in service")
	}
	kind, ok := KindFor(machine.Department)
	if !ok {
		return nil, shared.NewValidationError("Department " + machine.Department.String() + " does not produce material units")
	}
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewValidationError("Unit number cannot be empty")
	}
	if spec.MaterialID == uuid.Nil {
		return nil, shared.NewValidationError("Material ID cannot be empty")
	}
	if strings.TrimSpace(spec.QuantityUnit) == "" {
		return nil, shared.NewValidationError("Quantity unit cannot be empty")
	}
	if operatorID == uuid.Nil {
		return nil, shared.NewValidationError("Operator ID cannot be empty")
	}

	machineID := machine.ID
	u := &MaterialUnit{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		Kind:              kind,
		Origin:            machine.Department,
		Location:          machine.Department,
		Status:            StatusActive,
		MaterialID:        spec.MaterialID,
		QuantityUnit:      strings.TrimSpace(spec.QuantityUnit),
		Quantity:          decimal.Zero,
		Remaining:         decimal.Zero,
		WeightKg:          decimal.Zero,
		MachineID:         &machineID,
		ProducedOn:        &machineID,
		SourceUnitID:      spec.SourceUnitID,
		OrderID:           spec.OrderID,
		ShiftID:           spec.ShiftID,
		OperatorID:        operatorID,
		Notes:             spec.Notes,
		StartedAt:         now,
	}
	u.AddDomainEvent(NewUnitStartedEvent(u))
	return u, nil
}

// CheckState verifies that (Status, Location) is legal for the unit's kind and
// that machine ownership matches the status.
func (u *MaterialUnit) CheckState() error {
	if !LegalStates(u.Kind).Allows(u.Status, u.Location) {
		return shared.NewStateError(fmt.Sprintf("Illegal state %s at %s for %s", u.Status, u.Location, u.Kind))
	}
	if (u.Status == StatusActive) != (u.MachineID != nil) {
		return shared.NewStateError("An active unit must have exactly one owning machine")
	}
	return nil
}

// IsAtOrigin reports whether the unit is still in the department that produced it
func (u *MaterialUnit) IsAtOrigin() bool {
	return u.Location == u.Origin
}

// Accumulate adds production output to an active unit at its origin
func (u *MaterialUnit) Accumulate(delta, weightKg decimal.Decimal) error {
	if u.Status != StatusActive || !u.IsAtOrigin() {
		return shared.NewStateError("Output can only be added to a unit in production")
	}
	if !delta.IsPositive() {
		return shared.NewValidationError("Output delta must be positive")
	}
	if weightKg.IsNegative() {
		return shared.NewValidationError("Weight delta cannot be negative")
	}
	u.Quantity = u.Quantity.Add(delta)
	u.WeightKg = u.WeightKg.Add(weightKg)
	u.UpdatedAt = time.Now()
	u.AddDomainEvent(NewUnitAccumulatedEvent(u, delta))
	return nil
}

// Complete finishes processing on the owning machine. The first completion
// freezes the produced quantity and reports true.
func (u *MaterialUnit) Complete(now time.Time) (bool, error) {
	if u.Status != StatusActive {
		return false, shared.NewStateError("Only an active unit can be completed")
	}
	first := u.CompletedAt == nil
	if first {
		u.Remaining = u.Quantity
		u.CompletedAt = &now
	}
	u.Status = StatusCompleted
	u.MachineID = nil
	u.UpdatedAt = now
	if err := u.CheckState(); err != nil {
		return false, err
	}
	u.AddDomainEvent(NewUnitCompletedEvent(u, first))
	return first, nil
}

// Transfer moves the unit to an adjacent department. With a machine the unit
// is loaded there and becomes active again, otherwise it becomes available.
func (u *MaterialUnit) Transfer(dest plant.Department, load *Machine, now time.Time) error {
	if !dest.IsValid() {
		return shared.NewValidationError("Unknown destination department")
	}
	if !u.Status.IsTransferable() {
		return shared.NewStateError(fmt.Sprintf("Unit %s is %s and cannot be transferred", u.Number, u.Status))
	}
	if !u.Remaining.IsPositive() {
		return shared.NewStateError("Unit " + u.Number + " has no remaining quantity")
	}
	if !plant.CanTransfer(u.Location, dest) {
		return shared.NewValidationError(fmt.Sprintf("No transfer path from %s to %s", u.Location, dest))
	}
	status := StatusAvailable
	var machineID *uuid.UUID
	if load != nil {
		if load.Department != dest {
			return shared.NewValidationError("Machine " + load.Code + " is not in department " + dest.String())
		}
		if !load.Active {
			return shared.NewStateError("Machine " + load.Code + " is not in service")
		}
		id := load.ID
		machineID = &id
		status = StatusActive
	}

	from := u.Location
	next := *u
	next.PreviousLocation = from
	next.Location = dest
	next.Status = status
	next.MachineID = machineID
	if err := next.CheckState(); err != nil {
		return err
	}
	u.PreviousLocation, u.Location, u.Status, u.MachineID = from, dest, status, machineID
	u.UpdatedAt = now
	u.AddDomainEvent(NewUnitTransferredEvent(u, from))
	return nil
}

// Return sends a unit back to the department it came from. A unit loaded on
// a machine at the destination must be completed there first. The returned
// unit is available at its previous location.
func (u *MaterialUnit) Return(now time.Time) error {
	if u.Status != StatusAvailable && u.Status != StatusCompleted {
		return shared.NewStateError("Only an available or completed unit can be returned")
	}
	if u.IsAtOrigin() || u.PreviousLocation == "" {
		return shared.NewStateError("Unit " + u.Number + " has no transfer to return")
	}
	from := u.Location
	u.Location = u.PreviousLocation
	u.PreviousLocation = ""
	u.Status = StatusAvailable
	u.UpdatedAt = now
	if err := u.CheckState(); err != nil {
		return err
	}
	u.AddDomainEvent(NewUnitReturnedEvent(u, from))
	return nil
}

// Consume draws quantity from the unit at its downstream location. Only the
// department holding the unit may consume it. The unit becomes used when
// nothing remains.
func (u *MaterialUnit) Consume(qty decimal.Decimal, consumer plant.Department, now time.Time) error {
	if !consumer.IsValid() {
		return shared.NewValidationError("Unknown consumer department")
	}
	if consumer != u.Location {
		return shared.NewStateError(fmt.Sprintf("Unit %s is at %s and cannot be consumed by %s", u.Number, u.Location, consumer))
	}
	if u.Status != StatusAvailable && u.Status != StatusActive {
		return shared.NewStateError(fmt.Sprintf("Unit %s is %s and cannot be consumed", u.Number, u.Status))
	}
	if u.IsAtOrigin() {
		return shared.NewStateError("Unit " + u.Number + " must be transferred before it is consumed")
	}
	if !qty.IsPositive() {
		return shared.NewValidationError("Consumed quantity must be positive")
	}
	if qty.GreaterThan(u.Remaining) {
		return shared.NewValidationError(fmt.Sprintf("Consumed quantity %s exceeds remaining %s", qty, u.Remaining))
	}
	u.Remaining = u.Remaining.Sub(qty)
	if u.Remaining.IsZero() {
		u.Status = StatusUsed
		u.MachineID = nil
	}
	u.UpdatedAt = now
	if err := u.CheckState(); err != nil {
		return err
	}
	u.AddDomainEvent(NewUnitConsumedEvent(u, qty, consumer))
	return nil
}
