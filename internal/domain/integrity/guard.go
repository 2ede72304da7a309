// Package integrity guards destructive operations against orphaning
// records that still reference the target.
package integrity

import (
	"context"
	"fmt"

	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Category names the kind of relationship that blocks a delete
type Category string

const (
	CategoryConsumption   Category = "consumption"
	CategoryDerivedUnits  Category = "derived_units"
	CategoryLedger        Category = "ledger_movements"
	CategoryProducedUnits Category = "produced_units"
	CategoryOrderTasks    Category = "order_tasks"
	CategoryMaterialUnits Category = "material_units"
	CategoryUnknown       Category = "unknown"
)

var descriptions = map[Category]string{
	CategoryConsumption:   "it has been consumed downstream",
	CategoryDerivedUnits:  "other units were produced from it",
	CategoryLedger:        "ledger movements reference it",
	CategoryProducedUnits: "units were produced during it",
	CategoryOrderTasks:    "its tasks are already in progress",
	CategoryMaterialUnits: "material units are linked to it",
}

// ConflictError reports a delete blocked by existing references
type ConflictError struct {
	Entity   string
	EntityID uuid.UUID
	Category Category
	Count    int64
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	reason, ok := descriptions[e.Category]
	if !ok {
		reason = "other records reference it"
	}
	if e.EntityID == uuid.Nil {
		return fmt.Sprintf("Cannot delete %s: %s", e.Entity, reason)
	}
	return fmt.Sprintf("Cannot delete %s %s: %s", e.Entity, e.EntityID, reason)
}

// Unwrap lets errors.Is match shared.ErrReferentialConflict
func (e *ConflictError) Unwrap() error {
	return shared.ErrReferentialConflict
}

// ReferenceCheck counts the records of one category that point at the target
type ReferenceCheck struct {
	Category Category
	Count    func(ctx context.Context) (int64, error)
}

// Check runs the reference checks in order and returns a *ConflictError for the
// first category that still has references.
func Check(ctx context.Context, entity string, id uuid.UUID, checks ...ReferenceCheck) error {
	for _, c := range checks {
		n, err := c.Count(ctx)
		if err != nil {
			return fmt.Errorf("count %s references: %w", c.Category, err)
		}
		if n > 0 {
			return &ConflictError{Entity: entity, EntityID: id, Category: c.Category, Count: n}
		}
	}
	return nil
}
