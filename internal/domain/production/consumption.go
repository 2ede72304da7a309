package production

import (
	"time"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConsumptionRecord is the downstream reference that marks material drawn from a unit
type ConsumptionRecord struct {
	shared.BaseEntity
	UnitID             uuid.UUID        `gorm:"type:uuid;not null;index"`
	ConsumerDepartment plant.Department `gorm:"type:varchar(20);not null"`
	Quantity           decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	QuantityUnit       string           `gorm:"type:varchar(20);not null"`
	DocumentNumber     string           `gorm:"type:varchar(50);not null;index"`
	MovementID         *uuid.UUID       `gorm:"type:uuid;index"`
	ProducedUnitID     *uuid.UUID       `gorm:"type:uuid;index"`
	OperatorID         uuid.UUID        `gorm:"type:uuid;not null"`
	ConsumedAt         time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConsumptionRecord) TableName() string {
	return "consumption_records"
}

// NewConsumptionRecord records qty drawn from unit by consumer
func NewConsumptionRecord(unit *MaterialUnit, consumer plant.Department, qty decimal.Decimal, documentNumber string, operatorID uuid.UUID, now time.Time) *ConsumptionRecord {
	return &ConsumptionRecord{
		BaseEntity:         shared.NewBaseEntity(),
		UnitID:             unit.ID,
		ConsumerDepartment: consumer,
		Quantity:           qty,
		QuantityUnit:       unit.QuantityUnit,
		DocumentNumber:     documentNumber,
		OperatorID:         operatorID,
		ConsumedAt:         now,
	}
}

// TransferKind distinguishes forward transfers from returns in the transfer log
type TransferKind string

const (
	TransferForward TransferKind = "transfer"
	TransferReturn  TransferKind = "return"
)

// TransferRecord is one row of a unit's movement history between departments
type TransferRecord struct {
	shared.BaseEntity
	UnitID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	Kind       TransferKind     `gorm:"type:varchar(10);not null"`
	From       plant.Department `gorm:"column:from_department;type:varchar(20);not null"`
	To         plant.Department `gorm:"column:to_department;type:varchar(20);not null"`
	MachineID  *uuid.UUID       `gorm:"type:uuid"`
	OperatorID uuid.UUID        `gorm:"type:uuid;not null"`
	MovedAt    time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TransferRecord) TableName() string {
	return "unit_transfers"
}

// NewTransferRecord creates a transfer log row
func NewTransferRecord(unitID uuid.UUID, kind TransferKind, from, to plant.Department, machineID *uuid.UUID, operatorID uuid.UUID, now time.Time) *TransferRecord {
	return &TransferRecord{
		BaseEntity: shared.NewBaseEntity(),
		UnitID:     unitID,
		Kind:       kind,
		From:       from,
		To:         to,
		MachineID:  machineID,
		OperatorID: operatorID,
		MovedAt:    now,
	}
}
