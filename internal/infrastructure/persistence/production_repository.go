package persistence

import (
	"context"
	"time"

	"github.com/fibc/backend/internal/domain/production"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMachineRepository implements production.MachineRepository using GORM
type GormMachineRepository struct {
	db *gorm.DB
}

// NewGormMachineRepository creates a new GormMachineRepository
func NewGormMachineRepository(db *gorm.DB) *GormMachineRepository {
	return &GormMachineRepository{db: db}
}

// FindByID finds a machine by its ID
func (r *GormMachineRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.Machine, error) {
	var machine production.Machine
	if err := r.db.WithContext(ctx).First(&machine, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "machine")
	}
	return &machine, nil
}

// FindAll finds machines; supports the "department" and "active" filters
func (r *GormMachineRepository) FindAll(ctx context.Context, filter shared.Filter) ([]production.Machine, error) {
	var machines []production.Machine
	query := r.db.WithContext(ctx).Model(&production.Machine{})
	for key, value := range filter.Filters {
		switch key {
		case "department":
			query = query.Where("department = ?", value)
		case "active":
			query = query.Where("active = ?", value)
		}
	}
	query = sortAndPage(query, filter, MachineSortFields, "code")
	if err := query.Find(&machines).Error; err != nil {
		return nil, err
	}
	return machines, nil
}

// Save creates or updates a machine
func (r *GormMachineRepository) Save(ctx context.Context, machine *production.Machine) error {
	return translateError(r.db.WithContext(ctx).Save(machine).Error, "machine")
}

// GormUnitRepository implements production.UnitRepository using GORM.
// Every status change is a compare-and-set on (status, version).
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindByID finds a unit by its ID
func (r *GormUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.MaterialUnit, error) {
	var unit production.MaterialUnit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "material unit")
	}
	return &unit, nil
}

// FindByNumber finds a unit by its document number
func (r *GormUnitRepository) FindByNumber(ctx context.Context, number string) (*production.MaterialUnit, error) {
	var unit production.MaterialUnit
	if err := r.db.WithContext(ctx).Where("number = ?", number).First(&unit).Error; err != nil {
		return nil, translateError(err, "material unit")
	}
	return &unit, nil
}

// FindAll finds units matching the filter
func (r *GormUnitRepository) FindAll(ctx context.Context, filter shared.Filter) ([]production.MaterialUnit, error) {
	var units []production.MaterialUnit
	query := r.applyFilter(r.db.WithContext(ctx).Model(&production.MaterialUnit{}), filter)
	query = sortAndPage(query, filter, UnitSortFields, "started_at")
	if err := query.Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// Count counts units matching the filter
func (r *GormUnitRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var n int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&production.MaterialUnit{}), filter).Count(&n).Error
	return n, err
}

func (r *GormUnitRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("number LIKE ?", "%"+filter.Search+"%")
	}
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "location":
			query = query.Where("location = ?", value)
		case "kind":
			query = query.Where("kind = ?", value)
		case "machine_id":
			query = query.Where("machine_id = ?", value)
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "shift_id":
			query = query.Where("shift_id = ?", value)
		}
	}
	return query
}

// FindActiveByMachine returns the active unit owned by a machine
func (r *GormUnitRepository) FindActiveByMachine(ctx context.Context, machineID uuid.UUID) (*production.MaterialUnit, error) {
	var unit production.MaterialUnit
	if err := r.db.WithContext(ctx).
		Where("machine_id = ? AND status = ?", machineID, production.StatusActive).
		First(&unit).Error; err != nil {
		return nil, translateError(err, "material unit")
	}
	return &unit, nil
}

// FindActiveByShift returns units of a shift still active at their origin
func (r *GormUnitRepository) FindActiveByShift(ctx context.Context, shiftID uuid.UUID) ([]production.MaterialUnit, error) {
	var units []production.MaterialUnit
	if err := r.db.WithContext(ctx).
		Where("shift_id = ? AND status = ? AND location = origin", shiftID, production.StatusActive).
		Order("started_at ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// Create inserts a newly started unit
func (r *GormUnitRepository) Create(ctx context.Context, unit *production.MaterialUnit) error {
	return translateError(r.db.WithContext(ctx).Create(unit).Error, "material unit")
}

// Transition writes the mutable columns of unit if nobody changed it since it
// was loaded, then advances the in-memory version.
func (r *GormUnitRepository) Transition(ctx context.Context, unit *production.MaterialUnit, from production.UnitStatus) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&production.MaterialUnit{}).
		Where("id = ? AND status = ? AND version = ?", unit.ID, from, unit.Version).
		Updates(map[string]interface{}{
			"status":            unit.Status,
			"location":          unit.Location,
			"previous_location": unit.PreviousLocation,
			"quantity":          unit.Quantity,
			"remaining":         unit.Remaining,
			"weight_kg":         unit.WeightKg,
			"machine_id":        unit.MachineID,
			"completed_at":      unit.CompletedAt,
			"notes":             unit.Notes,
			"version":           unit.Version + 1,
			"updated_at":        now,
		})
	if result.Error != nil {
		return translateError(result.Error, "material unit")
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	unit.IncrementVersion()
	unit.UpdatedAt = now
	return nil
}

// Delete removes a unit and its transfer history
func (r *GormUnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("unit_id = ?", id).Delete(&production.TransferRecord{}).Error; err != nil {
		return translateError(err, "material unit")
	}
	result := db.Delete(&production.MaterialUnit{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error, "material unit")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountDerived counts units whose source is the given unit
func (r *GormUnitRepository) CountDerived(ctx context.Context, unitID uuid.UUID) (int64, error) {
	return r.countWhere(ctx, "source_unit_id = ?", unitID)
}

// CountByShift counts units produced in a shift
func (r *GormUnitRepository) CountByShift(ctx context.Context, shiftID uuid.UUID) (int64, error) {
	return r.countWhere(ctx, "shift_id = ?", shiftID)
}

// CountByOrder counts units linked to a production order
func (r *GormUnitRepository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return r.countWhere(ctx, "order_id = ?", orderID)
}

func (r *GormUnitRepository) countWhere(ctx context.Context, cond string, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&production.MaterialUnit{}).Where(cond, id).Count(&n).Error
	return n, err
}

// GormConsumptionRepository implements production.ConsumptionRepository using GORM
type GormConsumptionRepository struct {
	db *gorm.DB
}

// NewGormConsumptionRepository creates a new GormConsumptionRepository
func NewGormConsumptionRepository(db *gorm.DB) *GormConsumptionRepository {
	return &GormConsumptionRepository{db: db}
}

// Create inserts a consumption record
func (r *GormConsumptionRepository) Create(ctx context.Context, record *production.ConsumptionRecord) error {
	return translateError(r.db.WithContext(ctx).Create(record).Error, "consumption record")
}

// FindByUnit lists the consumption records of a unit, oldest first
func (r *GormConsumptionRepository) FindByUnit(ctx context.Context, unitID uuid.UUID) ([]production.ConsumptionRecord, error) {
	var records []production.ConsumptionRecord
	if err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("consumed_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountByUnit counts consumption records of a unit
func (r *GormConsumptionRepository) CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&production.ConsumptionRecord{}).Where("unit_id = ?", unitID).Count(&n).Error
	return n, err
}

// CountByMovement counts consumption records backed by a ledger movement
func (r *GormConsumptionRepository) CountByMovement(ctx context.Context, movementID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&production.ConsumptionRecord{}).Where("movement_id = ?", movementID).Count(&n).Error
	return n, err
}

// GormTransferLogRepository implements production.TransferLogRepository using GORM
type GormTransferLogRepository struct {
	db *gorm.DB
}

// NewGormTransferLogRepository creates a new GormTransferLogRepository
func NewGormTransferLogRepository(db *gorm.DB) *GormTransferLogRepository {
	return &GormTransferLogRepository{db: db}
}

// Append inserts a transfer record
func (r *GormTransferLogRepository) Append(ctx context.Context, record *production.TransferRecord) error {
	return translateError(r.db.WithContext(ctx).Create(record).Error, "unit transfer")
}

// FindByUnit lists the transfers of a unit, oldest first
func (r *GormTransferLogRepository) FindByUnit(ctx context.Context, unitID uuid.UUID) ([]production.TransferRecord, error) {
	var records []production.TransferRecord
	if err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("moved_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// GormShiftRepository implements production.ShiftRepository using GORM
type GormShiftRepository struct {
	db *gorm.DB
}

// NewGormShiftRepository creates a new GormShiftRepository
func NewGormShiftRepository(db *gorm.DB) *GormShiftRepository {
	return &GormShiftRepository{db: db}
}

// FindByID finds a shift by its ID
func (r *GormShiftRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.ProductionShift, error) {
	var shift production.ProductionShift
	if err := r.db.WithContext(ctx).First(&shift, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "shift")
	}
	return &shift, nil
}

// FindOpenByMachine returns the open shift of a machine
func (r *GormShiftRepository) FindOpenByMachine(ctx context.Context, machineID uuid.UUID) (*production.ProductionShift, error) {
	var shift production.ProductionShift
	if err := r.db.WithContext(ctx).
		Where("machine_id = ? AND closed_at IS NULL", machineID).
		Order("opened_at DESC").
		First(&shift).Error; err != nil {
		return nil, translateError(err, "shift")
	}
	return &shift, nil
}

// FindAll finds shifts; supports department, machine_id and open filters
func (r *GormShiftRepository) FindAll(ctx context.Context, filter shared.Filter) ([]production.ProductionShift, error) {
	var shifts []production.ProductionShift
	query := r.db.WithContext(ctx).Model(&production.ProductionShift{})
	for key, value := range filter.Filters {
		switch key {
		case "department":
			query = query.Where("department = ?", value)
		case "machine_id":
			query = query.Where("machine_id = ?", value)
		case "open":
			if open, ok := value.(bool); ok && open {
				query = query.Where("closed_at IS NULL")
			} else if ok {
				query = query.Where("closed_at IS NOT NULL")
			}
		}
	}
	query = sortAndPage(query, filter, ShiftSortFields, "opened_at")
	if err := query.Find(&shifts).Error; err != nil {
		return nil, err
	}
	return shifts, nil
}

// Create inserts a new shift
func (r *GormShiftRepository) Create(ctx context.Context, shift *production.ProductionShift) error {
	return translateError(r.db.WithContext(ctx).Create(shift).Error, "shift")
}

// Close stamps closed_at on a shift that is still open
func (r *GormShiftRepository) Close(ctx context.Context, shift *production.ProductionShift) error {
	result := r.db.WithContext(ctx).
		Model(&production.ProductionShift{}).
		Where("id = ? AND closed_at IS NULL", shift.ID).
		Updates(map[string]interface{}{
			"closed_at":  shift.ClosedAt,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return translateError(result.Error, "shift")
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	shift.IncrementVersion()
	return nil
}

// Delete removes a shift
func (r *GormShiftRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&production.ProductionShift{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error, "shift")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var (
	_ production.MachineRepository     = (*GormMachineRepository)(nil)
	_ production.UnitRepository        = (*GormUnitRepository)(nil)
	_ production.ConsumptionRepository = (*GormConsumptionRepository)(nil)
	_ production.TransferLogRepository = (*GormTransferLogRepository)(nil)
	_ production.ShiftRepository       = (*GormShiftRepository)(nil)
)
