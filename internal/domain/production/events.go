package production

import (
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeMaterialUnit = "MaterialUnit"
	AggregateTypeShift        = "ProductionShift"
)

// Event type constants
const (
	EventTypeUnitStarted     = "UnitStarted"
	EventTypeUnitAccumulated = "UnitAccumulated"
	EventTypeUnitCompleted   = "UnitCompleted"
	EventTypeUnitTransferred = "UnitTransferred"
	EventTypeUnitReturned    = "UnitReturned"
	EventTypeUnitConsumed    = "UnitConsumed"
	EventTypeUnitDeleted     = "UnitDeleted"
	EventTypeShiftOpened     = "ShiftOpened"
	EventTypeShiftClosed     = "ShiftClosed"
	EventTypeShiftDeleted    = "ShiftDeleted"
)

// UnitEvent carries the state of a unit after a lifecycle transition
type UnitEvent struct {
	shared.BaseDomainEvent
	Number    string           `json:"number"`
	Kind      UnitKind         `json:"kind"`
	Status    UnitStatus       `json:"status"`
	Location  plant.Department `json:"location"`
	MachineID *uuid.UUID       `json:"machine_id,omitempty"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Remaining decimal.Decimal  `json:"remaining"`
}

func newUnitEvent(eventType string, u *MaterialUnit) UnitEvent {
	return UnitEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeMaterialUnit, u.ID),
		Number:          u.Number,
		Kind:            u.Kind,
		Status:          u.Status,
		Location:        u.Location,
		MachineID:       u.MachineID,
		Quantity:        u.Quantity,
		Remaining:       u.Remaining,
	}
}

// NewUnitStartedEvent creates the event raised when a machine starts a unit
func NewUnitStartedEvent(u *MaterialUnit) *UnitEvent {
	e := newUnitEvent(EventTypeUnitStarted, u)
	return &e
}

// UnitAccumulatedEvent is raised when output is added to an active unit
type UnitAccumulatedEvent struct {
	UnitEvent
	Delta decimal.Decimal `json:"delta"`
}

// NewUnitAccumulatedEvent creates a new UnitAccumulatedEvent
func NewUnitAccumulatedEvent(u *MaterialUnit, delta decimal.Decimal) *UnitAccumulatedEvent {
	return &UnitAccumulatedEvent{UnitEvent: newUnitEvent(EventTypeUnitAccumulated, u), Delta: delta}
}

// UnitCompletedEvent is raised when a unit leaves its machine
type UnitCompletedEvent struct {
	UnitEvent
	FirstCompletion bool `json:"first_completion"`
}

// NewUnitCompletedEvent creates a new UnitCompletedEvent
func NewUnitCompletedEvent(u *MaterialUnit, first bool) *UnitCompletedEvent {
	return &UnitCompletedEvent{UnitEvent: newUnitEvent(EventTypeUnitCompleted, u), FirstCompletion: first}
}

// UnitMovedEvent is raised on transfer and return
type UnitMovedEvent struct {
	UnitEvent
	From plant.Department `json:"from"`
}

// NewUnitTransferredEvent creates the event raised by a transfer
func NewUnitTransferredEvent(u *MaterialUnit, from plant.Department) *UnitMovedEvent {
	return &UnitMovedEvent{UnitEvent: newUnitEvent(EventTypeUnitTransferred, u), From: from}
}

// NewUnitReturnedEvent creates the event raised by a return
func NewUnitReturnedEvent(u *MaterialUnit, from plant.Department) *UnitMovedEvent {
	return &UnitMovedEvent{UnitEvent: newUnitEvent(EventTypeUnitReturned, u), From: from}
}

// UnitConsumedEvent is raised when a downstream department draws from a unit
type UnitConsumedEvent struct {
	UnitEvent
	Consumed decimal.Decimal  `json:"consumed"`
	Consumer plant.Department `json:"consumer"`
}

// NewUnitConsumedEvent creates a new UnitConsumedEvent
func NewUnitConsumedEvent(u *MaterialUnit, qty decimal.Decimal, consumer plant.Department) *UnitConsumedEvent {
	return &UnitConsumedEvent{UnitEvent: newUnitEvent(EventTypeUnitConsumed, u), Consumed: qty, Consumer: consumer}
}

// NewUnitDeletedEvent creates the event raised when an administrator deletes a unit
func NewUnitDeletedEvent(u *MaterialUnit) *UnitEvent {
	e := newUnitEvent(EventTypeUnitDeleted, u)
	return &e
}

// ShiftEvent is raised when a shift opens, closes or is deleted
type ShiftEvent struct {
	shared.BaseDomainEvent
	Number     string           `json:"number"`
	Department plant.Department `json:"department"`
	MachineID  uuid.UUID        `json:"machine_id"`
}

// NewShiftEvent creates a shift event of the given type
func NewShiftEvent(eventType string, s *ProductionShift) *ShiftEvent {
	return &ShiftEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeShift, s.ID),
		Number:          s.Number,
		Department:      s.Department,
		MachineID:       s.MachineID,
	}
}
