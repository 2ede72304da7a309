package ledger

import (
	"strings"
	"time"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the sign of a movement
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// IsValid returns true if the direction is in or out
func (d Direction) IsValid() bool {
	return d == DirectionIn || d == DirectionOut
}

// MovementKind records which operation produced a movement
type MovementKind string

const (
	// KindProduction is output of a completed material unit
	KindProduction MovementKind = "production"
	// KindConsumption is material drawn by a downstream department
	KindConsumption MovementKind = "consumption"
	// KindReceipt is a warehouse receipt from a supplier
	KindReceipt MovementKind = "receipt"
	// KindIssue is a warehouse issue to a department or customer
	KindIssue MovementKind = "issue"
	// KindAdjustment is a stock-count correction
	KindAdjustment MovementKind = "adjustment"
)

// IsValid returns true if the kind is known
func (k MovementKind) IsValid() bool {
	switch k {
	case KindProduction, KindConsumption, KindReceipt, KindIssue, KindAdjustment:
		return true
	}
	return false
}

// Movement is an immutable ledger row. Corrections are new movements, never updates.
type Movement struct {
	shared.BaseEntity
	MaterialID     uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:uq_ledger_movements_document,priority:2"`
	Direction      Direction        `gorm:"type:varchar(3);not null;uniqueIndex:uq_ledger_movements_document,priority:3"`
	Kind           MovementKind     `gorm:"type:varchar(20);not null"`
	Quantity       decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Unit           string           `gorm:"type:varchar(20);not null"`
	DocumentNumber string           `gorm:"type:varchar(50);not null;uniqueIndex:uq_ledger_movements_document,priority:1"`
	Department     plant.Department `gorm:"type:varchar(20)"`
	UnitID         *uuid.UUID       `gorm:"type:uuid;index"`
	Counterparty   string           `gorm:"type:varchar(200)"`
	OperatorID     *uuid.UUID       `gorm:"type:uuid"`
	OccurredAt     time.Time        `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "ledger_movements"
}

// NewMovement creates a new ledger movement
func NewMovement(
	materialID uuid.UUID,
	direction Direction,
	kind MovementKind,
	quantity decimal.Decimal,
	unit string,
	documentNumber string,
	occurredAt time.Time,
) (*Movement, error) {
	if materialID == uuid.Nil {
		return nil, shared.NewValidationError("Material ID cannot be empty")
	}
	if !direction.IsValid() {
		return nil, shared.NewValidationError("Direction must be in or out")
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("Invalid movement kind")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewValidationError("Quantity must be positive")
	}
	if strings.TrimSpace(unit) == "" {
		return nil, shared.NewValidationError("Unit cannot be empty")
	}
	documentNumber = strings.TrimSpace(documentNumber)
	if documentNumber == "" {
		return nil, shared.NewValidationError("Document number cannot be empty")
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return &Movement{
		BaseEntity:     shared.NewBaseEntity(),
		MaterialID:     materialID,
		Direction:      direction,
		Kind:           kind,
		Quantity:       quantity,
		Unit:           strings.TrimSpace(unit),
		DocumentNumber: documentNumber,
		OccurredAt:     occurredAt,
	}, nil
}

// WithDepartment sets the department that posted the movement
func (m *Movement) WithDepartment(d plant.Department) *Movement {
	m.Department = d
	return m
}

// WithUnit links the movement to a material unit
func (m *Movement) WithUnit(unitID uuid.UUID) *Movement {
	m.UnitID = &unitID
	return m
}

// WithCounterparty sets the supplier, customer or department on the other side
func (m *Movement) WithCounterparty(counterparty string) *Movement {
	m.Counterparty = counterparty
	return m
}

// WithOperator sets the operator who posted the movement
func (m *Movement) WithOperator(operatorID uuid.UUID) *Movement {
	m.OperatorID = &operatorID
	return m
}

// SignedQuantity returns the quantity with sign (+in / -out)
func (m *Movement) SignedQuantity() decimal.Decimal {
	if m.Direction == DirectionOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
