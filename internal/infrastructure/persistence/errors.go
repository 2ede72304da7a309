package persistence

import (
	"errors"
	"strings"

	"github.com/fibc/backend/internal/domain/integrity"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// Index names the repositories translate
const (
	indexActiveMachine  = "uq_material_units_active_machine"
	indexLedgerDocument = "uq_ledger_movements_document"
	indexOrderTaskDept  = "uq_order_tasks_department"
	indexOpenShift      = "uq_production_shifts_open_machine"
)

// foreignKeyCategories maps the foreign keys declared in migrations to the
// reference category reported to callers.
var foreignKeyCategories = map[string]integrity.Category{
	"fk_consumption_records_unit":     integrity.CategoryConsumption,
	"fk_consumption_records_movement": integrity.CategoryConsumption,
	"fk_material_units_source":        integrity.CategoryDerivedUnits,
	"fk_ledger_movements_unit":        integrity.CategoryLedger,
	"fk_material_units_shift":         integrity.CategoryProducedUnits,
	"fk_material_units_order":         integrity.CategoryMaterialUnits,
	"fk_order_tasks_order":            integrity.CategoryOrderTasks,
	"fk_production_orders_tasks":      integrity.CategoryOrderTasks,
}

// translateError maps storage errors onto domain errors so driver codes
// never reach callers. entity names the record being written or deleted.
func translateError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return foreignKeyConflict(entity, pgErr.ConstraintName)
		case pgUniqueViolation:
			return uniqueConflict(pgErr.ConstraintName)
		}
		return err
	}

	// SQLite reports constraint failures only through the message
	msg := err.Error()
	switch {
	case errors.Is(err, gorm.ErrForeignKeyViolated),
		strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return foreignKeyConflict(entity, "")
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(msg, "UNIQUE constraint failed"):
		return uniqueConflict(indexFromMessage(msg))
	}
	return err
}

func foreignKeyConflict(entity, constraint string) error {
	category, ok := foreignKeyCategories[constraint]
	if !ok {
		category = integrity.CategoryUnknown
	}
	return &integrity.ConflictError{Entity: entity, Category: category}
}

func uniqueConflict(index string) error {
	switch index {
	case indexActiveMachine:
		return shared.NewStateError("Machine already has an active unit")
	case indexLedgerDocument:
		return shared.ErrDuplicateDocument
	case indexOrderTaskDept:
		return shared.NewStateError("Order already has a task for this department")
	case indexOpenShift:
		return shared.NewStateError("Machine already has an open shift")
	}
	return shared.ErrAlreadyExists
}

// indexFromMessage recovers the index from SQLite's message, which names
// the indexed columns instead of the index.
func indexFromMessage(msg string) string {
	switch {
	case strings.Contains(msg, "material_units.machine_id"):
		return indexActiveMachine
	case strings.Contains(msg, "ledger_movements.document_number"):
		return indexLedgerDocument
	case strings.Contains(msg, "order_tasks.order_id"):
		return indexOrderTaskDept
	case strings.Contains(msg, "production_shifts.machine_id"):
		return indexOpenShift
	}
	return ""
}
