package production

import (
	"time"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/production"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StartUnitRequest represents a request to start a unit on a machine
type StartUnitRequest struct {
	MachineID    uuid.UUID  `json:"machine_id" binding:"required"`
	MaterialID   uuid.UUID  `json:"material_id" binding:"required"`
	QuantityUnit string     `json:"quantity_unit" binding:"required,max=20"`
	SourceUnitID *uuid.UUID `json:"source_unit_id"`
	OrderID      *uuid.UUID `json:"order_id"`
	ShiftID      *uuid.UUID `json:"shift_id"`
	Notes        string     `json:"notes"`
}

// AccumulateRequest adds output to an active unit
type AccumulateRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	WeightKg decimal.Decimal `json:"weight_kg"`
}

// TransferRequest moves a unit to another department
type TransferRequest struct {
	Destination string     `json:"destination" binding:"required"`
	MachineID   *uuid.UUID `json:"machine_id"`
}

// ConsumeRequest draws material from a unit
type ConsumeRequest struct {
	Department     string          `json:"department" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	DocumentNumber string          `json:"document_number" binding:"max=50"`
	ProducedUnitID *uuid.UUID      `json:"produced_unit_id"`
}

// OpenShiftRequest opens a shift on a machine
type OpenShiftRequest struct {
	MachineID uuid.UUID `json:"machine_id" binding:"required"`
	ShiftNo   int       `json:"shift_no" binding:"required,min=1,max=3"`
}

// CreateMachineRequest registers a machine
type CreateMachineRequest struct {
	Code       string `json:"code" binding:"required,max=50"`
	Name       string `json:"name" binding:"max=200"`
	Department string `json:"department" binding:"required"`
}

// UnitListFilter represents filter options for unit lists
type UnitListFilter struct {
	Status    string     `form:"status"`
	Location  string     `form:"location"`
	Kind      string     `form:"kind"`
	MachineID *uuid.UUID `form:"-"`
	OrderID   *uuid.UUID `form:"-"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// UnitResponse represents a material unit in API responses
type UnitResponse struct {
	ID               uuid.UUID        `json:"id"`
	Number           string           `json:"number"`
	Kind             string           `json:"kind"`
	Origin           plant.Department `json:"origin"`
	Location         plant.Department `json:"location"`
	PreviousLocation plant.Department `json:"previous_location,omitempty"`
	Status           string           `json:"status"`
	MaterialID       uuid.UUID        `json:"material_id"`
	QuantityUnit     string           `json:"quantity_unit"`
	Quantity         decimal.Decimal  `json:"quantity"`
	Remaining        decimal.Decimal  `json:"remaining"`
	WeightKg         decimal.Decimal  `json:"weight_kg"`
	MachineID        *uuid.UUID       `json:"machine_id,omitempty"`
	ProducedOn       *uuid.UUID       `json:"produced_on,omitempty"`
	SourceUnitID     *uuid.UUID       `json:"source_unit_id,omitempty"`
	OrderID          *uuid.UUID       `json:"order_id,omitempty"`
	ShiftID          *uuid.UUID       `json:"shift_id,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	Version          int              `json:"version"`
}

// UnitHistoryResponse is the movement and consumption history of a unit
type UnitHistoryResponse struct {
	Unit         UnitResponse                   `json:"unit"`
	Transfers    []production.TransferRecord    `json:"transfers"`
	Consumptions []production.ConsumptionRecord `json:"consumptions"`
}

// ShiftResponse represents a shift in API responses
type ShiftResponse struct {
	ID         uuid.UUID        `json:"id"`
	Number     string           `json:"number"`
	Department plant.Department `json:"department"`
	MachineID  uuid.UUID        `json:"machine_id"`
	OperatorID uuid.UUID        `json:"operator_id"`
	ShiftDate  time.Time        `json:"shift_date"`
	ShiftNo    int              `json:"shift_no"`
	OpenedAt   time.Time        `json:"opened_at"`
	ClosedAt   *time.Time       `json:"closed_at,omitempty"`
	Completed  []string         `json:"completed_units,omitempty"`
}

// MachineResponse represents a machine in API responses
type MachineResponse struct {
	ID         uuid.UUID        `json:"id"`
	Code       string           `json:"code"`
	Name       string           `json:"name"`
	Department plant.Department `json:"department"`
	Active     bool             `json:"active"`
}

// ToUnitResponse converts a domain unit
func ToUnitResponse(u *production.MaterialUnit) UnitResponse {
	return UnitResponse{
		ID:               u.ID,
		Number:           u.Number,
		Kind:             string(u.Kind),
		Origin:           u.Origin,
		Location:         u.Location,
		PreviousLocation: u.PreviousLocation,
		Status:           string(u.Status),
		MaterialID:       u.MaterialID,
		QuantityUnit:     u.QuantityUnit,
		Quantity:         u.Quantity,
		Remaining:        u.Remaining,
		WeightKg:         u.WeightKg,
		MachineID:        u.MachineID,
		ProducedOn:       u.ProducedOn,
		SourceUnitID:     u.SourceUnitID,
		OrderID:          u.OrderID,
		ShiftID:          u.ShiftID,
		StartedAt:        u.StartedAt,
		CompletedAt:      u.CompletedAt,
		Version:          u.Version,
	}
}

// ToShiftResponse converts a domain shift
func ToShiftResponse(s *production.ProductionShift) ShiftResponse {
	return ShiftResponse{
		ID:         s.ID,
		Number:     s.Number,
		Department: s.Department,
		MachineID:  s.MachineID,
		OperatorID: s.OperatorID,
		ShiftDate:  s.ShiftDate,
		ShiftNo:    s.ShiftNo,
		OpenedAt:   s.OpenedAt,
		ClosedAt:   s.ClosedAt,
	}
}

// ToMachineResponse converts a domain machine
func ToMachineResponse(m *production.Machine) MachineResponse {
	return MachineResponse{
		ID:         m.ID,
		Code:       m.Code,
		Name:       m.Name,
		Department: m.Department,
		Active:     m.Active,
	}
}
