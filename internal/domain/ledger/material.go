package ledger

import (
	"strings"

	"github.com/fibc/backend/internal/domain/shared"
)

// MaterialClass groups materials whose balances are reported together
type MaterialClass string

const (
	ClassGranules        MaterialClass = "granules"
	ClassYarn            MaterialClass = "yarn"
	ClassFabric          MaterialClass = "fabric"
	ClassLaminatedFabric MaterialClass = "laminated_fabric"
	ClassCutParts        MaterialClass = "cut_parts"
	ClassThread          MaterialClass = "thread"
	ClassStrap           MaterialClass = "strap"
	ClassPaint           MaterialClass = "paint"
	ClassFinishedGoods   MaterialClass = "finished_goods"
	ClassPackaging       MaterialClass = "packaging"
)

// IsValid returns true if the material class is known
func (c MaterialClass) IsValid() bool {
	switch c {
	case ClassGranules, ClassYarn, ClassFabric, ClassLaminatedFabric, ClassCutParts,
		ClassThread, ClassStrap, ClassPaint, ClassFinishedGoods, ClassPackaging:
		return true
	}
	return false
}

// Material is a stock-keeping material type
type Material struct {
	shared.BaseEntity
	Code  string        `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name  string        `gorm:"type:varchar(200);not null"`
	Class MaterialClass `gorm:"type:varchar(30);not null;index"`
	Unit  string        `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (Material) TableName() string {
	return "materials"
}

// NewMaterial creates a new material
func NewMaterial(code, name string, class MaterialClass, unit string) (*Material, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewValidationError("Material code cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Material name cannot be empty")
	}
	if !class.IsValid() {
		return nil, shared.NewValidationError("Invalid material class")
	}
	if strings.TrimSpace(unit) == "" {
		return nil, shared.NewValidationError("Material unit cannot be empty")
	}
	return &Material{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       strings.TrimSpace(name),
		Class:      class,
		Unit:       strings.TrimSpace(unit),
	}, nil
}
