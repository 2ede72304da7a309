package production

import (
	"time"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductionShift is one operator's shift on one machine
type ProductionShift struct {
	shared.BaseAggregateRoot
	Number     string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	Department plant.Department `gorm:"type:varchar(20);not null;index"`
	MachineID  uuid.UUID        `gorm:"type:uuid;not null;index"`
	OperatorID uuid.UUID        `gorm:"type:uuid;not null"`
	ShiftDate  time.Time        `gorm:"type:date;not null"`
	ShiftNo    int              `gorm:"not null"`
	OpenedAt   time.Time        `gorm:"not null"`
	ClosedAt   *time.Time
}

// TableName returns the table name for GORM
func (ProductionShift) TableName() string {
	return "production_shifts"
}

// NewProductionShift opens a shift on machine
func NewProductionShift(number string, machine *Machine, operatorID uuid.UUID, shiftNo int, now time.Time) (*ProductionShift, error) {
	if machine == nil {
		return nil, shared.NewValidationError("Machine is required")
	}
	if number == "" {
		return nil, shared.NewValidationError("Shift number cannot be empty")
	}
	if operatorID == uuid.Nil {
		return nil, shared.NewValidationError("Operator ID cannot be empty")
	}
	if shiftNo < 1 || shiftNo > 3 {
		return nil, shared.NewValidationError("Shift number must be 1, 2 or 3")
	}
	y, m, d := now.Date()
	s := &ProductionShift{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		Department:        machine.Department,
		MachineID:         machine.ID,
		OperatorID:        operatorID,
		ShiftDate:         time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		ShiftNo:           shiftNo,
		OpenedAt:          now,
	}
	s.AddDomainEvent(NewShiftEvent(EventTypeShiftOpened, s))
	return s, nil
}

// IsOpen reports whether the shift has not been closed
func (s *ProductionShift) IsOpen() bool {
	return s.ClosedAt == nil
}

// Close ends the shift
func (s *ProductionShift) Close(now time.Time) error {
	if !s.IsOpen() {
		return shared.NewStateError("Shift " + s.Number + " is already closed")
	}
	s.ClosedAt = &now
	s.UpdatedAt = now
	s.AddDomainEvent(NewShiftEvent(EventTypeShiftClosed, s))
	return nil
}
