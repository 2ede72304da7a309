package event

import (
	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/domain/planning"
	"github.com/fibc/backend/internal/domain/production"
)

// RegisterPlantEvents registers every domain event type with the serializer
func RegisterPlantEvents(serializer *EventSerializer) {
	// Ledger
	serializer.Register(ledger.EventTypeMovementRecorded, &ledger.MovementRecordedEvent{})
	serializer.Register(ledger.EventTypeMovementDeleted, &ledger.MovementDeletedEvent{})

	// Material units
	serializer.Register(production.EventTypeUnitStarted, &production.UnitEvent{})
	serializer.Register(production.EventTypeUnitAccumulated, &production.UnitAccumulatedEvent{})
	serializer.Register(production.EventTypeUnitCompleted, &production.UnitCompletedEvent{})
	serializer.Register(production.EventTypeUnitTransferred, &production.UnitMovedEvent{})
	serializer.Register(production.EventTypeUnitReturned, &production.UnitMovedEvent{})
	serializer.Register(production.EventTypeUnitConsumed, &production.UnitConsumedEvent{})
	serializer.Register(production.EventTypeUnitDeleted, &production.UnitEvent{})

	// Shifts
	serializer.Register(production.EventTypeShiftOpened, &production.ShiftEvent{})
	serializer.Register(production.EventTypeShiftClosed, &production.ShiftEvent{})
	serializer.Register(production.EventTypeShiftDeleted, &production.ShiftEvent{})

	// Orders and tasks
	serializer.Register(planning.EventTypeOrderCreated, &planning.OrderEvent{})
	serializer.Register(planning.EventTypeOrderRecalculated, &planning.OrderEvent{})
	serializer.Register(planning.EventTypeOrderConfirmed, &planning.OrderEvent{})
	serializer.Register(planning.EventTypeOrderCancelled, &planning.OrderEvent{})
	serializer.Register(planning.EventTypeOrderStatusChanged, &planning.OrderEvent{})
	serializer.Register(planning.EventTypeOrderDeleted, &planning.OrderEvent{})
	serializer.Register(planning.EventTypeTaskStatusChanged, &planning.TaskStatusChangedEvent{})
}
