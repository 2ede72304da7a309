package ledger

import (
	"time"

	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateMaterialRequest represents a request to register a material
type CreateMaterialRequest struct {
	Code  string `json:"code" binding:"required,max=50"`
	Name  string `json:"name" binding:"required,max=200"`
	Class string `json:"class" binding:"required"`
	Unit  string `json:"unit" binding:"required,max=20"`
}

// RecordMovementRequest represents a manual warehouse movement
type RecordMovementRequest struct {
	MaterialID     uuid.UUID       `json:"material_id" binding:"required"`
	Direction      string          `json:"direction" binding:"required,oneof=in out"`
	Kind           string          `json:"kind" binding:"required,oneof=receipt issue adjustment"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	DocumentNumber string          `json:"document_number" binding:"required,max=50"`
	Department     string          `json:"department"`
	Counterparty   string          `json:"counterparty" binding:"max=200"`
	OccurredAt     *time.Time      `json:"occurred_at"`
}

// ReconcileRequest carries a physical count to compare with the ledger
type ReconcileRequest struct {
	Counted decimal.Decimal `json:"counted" binding:"required"`
}

// MovementListFilter represents filter options for movement lists
type MovementListFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// MaterialResponse represents a material in API responses
type MaterialResponse struct {
	ID    uuid.UUID `json:"id"`
	Code  string    `json:"code"`
	Name  string    `json:"name"`
	Class string    `json:"class"`
	Unit  string    `json:"unit"`
}

// MovementResponse represents a movement in API responses
type MovementResponse struct {
	ID             uuid.UUID        `json:"id"`
	MaterialID     uuid.UUID        `json:"material_id"`
	Direction      string           `json:"direction"`
	Kind           string           `json:"kind"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Unit           string           `json:"unit"`
	DocumentNumber string           `json:"document_number"`
	Department     plant.Department `json:"department,omitempty"`
	UnitID         *uuid.UUID       `json:"unit_id,omitempty"`
	Counterparty   string           `json:"counterparty,omitempty"`
	OperatorID     *uuid.UUID       `json:"operator_id,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// ClassBalanceResponse is the total stock of a material class
type ClassBalanceResponse struct {
	Class     ledger.MaterialClass `json:"class"`
	Balance   decimal.Decimal      `json:"balance"`
	Materials []ledger.Balance     `json:"materials"`
}

// ToMaterialResponse converts a domain material
func ToMaterialResponse(m *ledger.Material) MaterialResponse {
	return MaterialResponse{
		ID:    m.ID,
		Code:  m.Code,
		Name:  m.Name,
		Class: string(m.Class),
		Unit:  m.Unit,
	}
}

// ToMovementResponse converts a domain movement
func ToMovementResponse(m *ledger.Movement) MovementResponse {
	return MovementResponse{
		ID:             m.ID,
		MaterialID:     m.MaterialID,
		Direction:      string(m.Direction),
		Kind:           string(m.Kind),
		Quantity:       m.Quantity,
		Unit:           m.Unit,
		DocumentNumber: m.DocumentNumber,
		Department:     m.Department,
		UnitID:         m.UnitID,
		Counterparty:   m.Counterparty,
		OperatorID:     m.OperatorID,
		OccurredAt:     m.OccurredAt,
	}
}
