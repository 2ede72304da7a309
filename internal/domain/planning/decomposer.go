package planning

import (
	"sort"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Decompose scales the per-unit figures of spec by quantity. Departments with
// no non-zero figure are left out; departments follow plant flow order and
// items keep their spec position, so the primary item comes first.
func Decompose(spec *ProductSpec, quantity int64) (Calculation, error) {
	if spec == nil {
		return Calculation{}, shared.NewValidationError("Unknown product type")
	}
	if quantity <= 0 {
		return Calculation{}, shared.NewValidationError("Order quantity must be positive")
	}

	items := make([]SpecItem, len(spec.Items))
	copy(items, spec.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })

	qty := decimal.NewFromInt(quantity)
	byDept := make(map[plant.Department][]RequirementItem)
	for _, it := range items {
		if !it.PerUnit.IsPositive() {
			continue
		}
		byDept[it.Department] = append(byDept[it.Department], RequirementItem{
			Name:     it.Name,
			Quantity: it.PerUnit.Mul(qty),
			Unit:     it.Unit,
		})
	}

	calc := Calculation{SchemaVersion: CalculationSchemaVersion}
	for _, d := range plant.FlowOrder() {
		if reqs, ok := byDept[d]; ok {
			calc.Departments = append(calc.Departments, DepartmentCalculation{Department: d, Items: reqs})
		}
	}
	if len(calc.Departments) == 0 {
		return Calculation{}, shared.NewValidationError("Product type " + spec.ProductType + " has no consumption figures")
	}
	return calc, nil
}
