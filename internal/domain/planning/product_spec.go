package planning

import (
	"strings"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSpec is the bill of materials of a product type: how much of each
// item every department consumes per produced bag.
type ProductSpec struct {
	shared.BaseEntity
	ProductType string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name        string     `gorm:"type:varchar(200);not null"`
	Items       []SpecItem `gorm:"foreignKey:SpecID"`
}

// TableName returns the table name for GORM
func (ProductSpec) TableName() string {
	return "product_specs"
}

// SpecItem is one per-unit consumption figure. Position orders items within a
// department; the lowest position is the primary requirement.
type SpecItem struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey"`
	SpecID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	Department plant.Department `gorm:"type:varchar(20);not null"`
	Name       string           `gorm:"type:varchar(200);not null"`
	PerUnit    decimal.Decimal  `gorm:"type:decimal(18,6);not null"`
	Unit       string           `gorm:"type:varchar(20);not null"`
	Position   int              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SpecItem) TableName() string {
	return "product_spec_items"
}

// NewProductSpec creates an empty spec
func NewProductSpec(productType, name string) (*ProductSpec, error) {
	productType = strings.TrimSpace(productType)
	if productType == "" {
		return nil, shared.NewValidationError("Product type cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		name = productType
	}
	return &ProductSpec{
		BaseEntity:  shared.NewBaseEntity(),
		ProductType: productType,
		Name:        strings.TrimSpace(name),
	}, nil
}

// AddItem appends a consumption figure to the spec
func (s *ProductSpec) AddItem(dept plant.Department, name string, perUnit decimal.Decimal, unit string) error {
	if !dept.IsValid() {
		return shared.NewValidationError("Unknown department in product spec")
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(unit) == "" {
		return shared.NewValidationError("Spec item needs a name and a unit")
	}
	if perUnit.IsNegative() {
		return shared.NewValidationError("Per-unit consumption cannot be negative")
	}
	s.Items = append(s.Items, SpecItem{
		ID:         uuid.New(),
		SpecID:     s.ID,
		Department: dept,
		Name:       strings.TrimSpace(name),
		PerUnit:    perUnit,
		Unit:       strings.TrimSpace(unit),
		Position:   len(s.Items),
	})
	return nil
}
