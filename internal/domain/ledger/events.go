package ledger

import (
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeMaterial is the aggregate type of ledger events
const AggregateTypeMaterial = "Material"

// Event type constants
const (
	EventTypeMovementRecorded = "MovementRecorded"
	EventTypeMovementDeleted  = "MovementDeleted"
)

// MovementRecordedEvent is raised when a movement is appended to the ledger
type MovementRecordedEvent struct {
	shared.BaseDomainEvent
	MovementID     uuid.UUID       `json:"movement_id"`
	Direction      Direction       `json:"direction"`
	Kind           MovementKind    `json:"kind"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	DocumentNumber string          `json:"document_number"`
}

// NewMovementRecordedEvent creates a new MovementRecordedEvent
func NewMovementRecordedEvent(m *Movement) *MovementRecordedEvent {
	return &MovementRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementRecorded, AggregateTypeMaterial, m.MaterialID),
		MovementID:      m.ID,
		Direction:       m.Direction,
		Kind:            m.Kind,
		Quantity:        m.Quantity,
		Unit:            m.Unit,
		DocumentNumber:  m.DocumentNumber,
	}
}

// MovementDeletedEvent is raised when an administrator removes a movement
type MovementDeletedEvent struct {
	shared.BaseDomainEvent
	MovementID     uuid.UUID `json:"movement_id"`
	DocumentNumber string    `json:"document_number"`
}

// NewMovementDeletedEvent creates a new MovementDeletedEvent
func NewMovementDeletedEvent(m *Movement) *MovementDeletedEvent {
	return &MovementDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementDeleted, AggregateTypeMaterial, m.MaterialID),
		MovementID:      m.ID,
		DocumentNumber:  m.DocumentNumber,
	}
}
