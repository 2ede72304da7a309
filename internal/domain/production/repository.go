package production

import (
	"context"

	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MachineRepository defines the interface for machine persistence
type MachineRepository interface {
	// FindByID finds a machine by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Machine, error)

	// FindAll finds machines; supports the "department" filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Machine, error)

	// Save creates or updates a machine
	Save(ctx context.Context, machine *Machine) error
}

// UnitRepository defines the interface for material unit persistence.
// Status changes go through Transition, never through a plain save.
type UnitRepository interface {
	// FindByID finds a unit by ID
	FindByID(ctx context.Context, id uuid.UUID) (*MaterialUnit, error)

	// FindByNumber finds a unit by its document number
	FindByNumber(ctx context.Context, number string) (*MaterialUnit, error)

	// FindAll finds units; supports status, location, kind, machine_id and order_id filters
	FindAll(ctx context.Context, filter shared.Filter) ([]MaterialUnit, error)

	// Count counts units matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindActiveByMachine returns the active unit owned by a machine, or shared.ErrNotFound
	FindActiveByMachine(ctx context.Context, machineID uuid.UUID) (*MaterialUnit, error)

	// FindActiveByShift returns units started in a shift that are still active at their origin
	FindActiveByShift(ctx context.Context, shiftID uuid.UUID) ([]MaterialUnit, error)

	// Create inserts a newly started unit; a machine that already owns an active unit yields a state error
	Create(ctx context.Context, unit *MaterialUnit) error

	// Transition writes the unit if its stored status still equals from and its
	// version is unchanged, then bumps the version. Otherwise it returns
	// shared.ErrConcurrencyConflict.
	Transition(ctx context.Context, unit *MaterialUnit, from UnitStatus) error

	// Delete removes a unit and its transfer history
	Delete(ctx context.Context, id uuid.UUID) error

	// CountDerived counts units whose source is the given unit
	CountDerived(ctx context.Context, unitID uuid.UUID) (int64, error)

	// CountByShift counts units produced in a shift
	CountByShift(ctx context.Context, shiftID uuid.UUID) (int64, error)

	// CountByOrder counts units linked to a production order
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// ConsumptionRepository defines the interface for consumption records
type ConsumptionRepository interface {
	// Create inserts a consumption record
	Create(ctx context.Context, record *ConsumptionRecord) error

	// FindByUnit lists the consumption records of a unit
	FindByUnit(ctx context.Context, unitID uuid.UUID) ([]ConsumptionRecord, error)

	// CountByUnit counts consumption records of a unit
	CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error)

	// CountByMovement counts consumption records backed by a ledger movement
	CountByMovement(ctx context.Context, movementID uuid.UUID) (int64, error)
}

// TransferLogRepository stores the transfer history of units
type TransferLogRepository interface {
	// Append inserts a transfer record
	Append(ctx context.Context, record *TransferRecord) error

	// FindByUnit lists the transfers of a unit, oldest first
	FindByUnit(ctx context.Context, unitID uuid.UUID) ([]TransferRecord, error)
}

// ShiftRepository defines the interface for production shift persistence
type ShiftRepository interface {
	// FindByID finds a shift by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ProductionShift, error)

	// FindOpenByMachine returns the open shift of a machine, or shared.ErrNotFound
	FindOpenByMachine(ctx context.Context, machineID uuid.UUID) (*ProductionShift, error)

	// FindAll finds shifts; supports department, machine_id and open filters
	FindAll(ctx context.Context, filter shared.Filter) ([]ProductionShift, error)

	// Create inserts a new shift
	Create(ctx context.Context, shift *ProductionShift) error

	// Close marks the shift closed if it is still open, else shared.ErrConcurrencyConflict
	Close(ctx context.Context, shift *ProductionShift) error

	// Delete removes a shift
	Delete(ctx context.Context, id uuid.UUID) error
}
