package production

import (
	"strings"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
)

// Machine is a piece of equipment that holds at most one active unit
type Machine struct {
	shared.BaseEntity
	Code       string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name       string           `gorm:"type:varchar(200);not null"`
	Department plant.Department `gorm:"type:varchar(20);not null;index"`
	Active     bool             `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Machine) TableName() string {
	return "machines"
}

// NewMachine creates a new active machine
func NewMachine(code, name string, dept plant.Department) (*Machine, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewValidationError("Machine code cannot be empty")
	}
	if !dept.IsValid() || dept == plant.DepartmentWarehouse {
		return nil, shared.NewValidationError("Machine must belong to a production department")
	}
	if strings.TrimSpace(name) == "" {
		name = code
	}
	return &Machine{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       strings.TrimSpace(name),
		Department: dept,
		Active:     true,
	}, nil
}
