package planning

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CalculationSchemaVersion is the payload version written by this build
const CalculationSchemaVersion = 1

// RequirementItem is one required material of a department
type RequirementItem struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

// DepartmentCalculation is the requirement list of one department. Items[0]
// is the primary requirement, the rest are secondary materials.
type DepartmentCalculation struct {
	Department plant.Department  `json:"department"`
	Items      []RequirementItem `json:"items"`
}

// Primary returns the headline requirement of the department
func (d DepartmentCalculation) Primary() RequirementItem {
	return d.Items[0]
}

// Calculation is the versioned requirement breakdown of an order
type Calculation struct {
	SchemaVersion int                     `json:"schema_version"`
	Departments   []DepartmentCalculation `json:"departments"`
}

// Validate checks version, departments and items
func (c Calculation) Validate() error {
	if c.SchemaVersion != CalculationSchemaVersion {
		return shared.NewValidationError(fmt.Sprintf("Unsupported calculation schema version %d", c.SchemaVersion))
	}
	if len(c.Departments) == 0 {
		return shared.NewValidationError("Calculation has no departments")
	}
	seen := make(map[plant.Department]bool, len(c.Departments))
	for _, d := range c.Departments {
		if !d.Department.IsValid() {
			return shared.NewValidationError("Unknown department in calculation: " + d.Department.String())
		}
		if seen[d.Department] {
			return shared.NewValidationError("Duplicate department in calculation: " + d.Department.String())
		}
		seen[d.Department] = true
		if len(d.Items) == 0 {
			return shared.NewValidationError("Department " + d.Department.String() + " has no items")
		}
		for _, it := range d.Items {
			if it.Name == "" || it.Unit == "" || !it.Quantity.IsPositive() {
				return shared.NewValidationError("Invalid requirement item in " + d.Department.String())
			}
		}
	}
	return nil
}

// Department returns the calculation of one department
func (c Calculation) Department(dept plant.Department) (DepartmentCalculation, bool) {
	for _, d := range c.Departments {
		if d.Department == dept {
			return d, true
		}
	}
	return DepartmentCalculation{}, false
}

// ParseCalculation decodes and validates a stored payload
func ParseCalculation(data []byte) (Calculation, error) {
	var c Calculation
	if err := json.Unmarshal(data, &c); err != nil {
		return Calculation{}, shared.NewValidationError("Malformed calculation payload")
	}
	if err := c.Validate(); err != nil {
		return Calculation{}, err
	}
	return c, nil
}

// Value implements driver.Valuer
func (c Calculation) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (c *Calculation) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = Calculation{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported calculation column type %T", src)
	}
	parsed, err := ParseCalculation(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
