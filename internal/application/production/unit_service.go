package production

import (
	"context"
	"errors"
	"time"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/integrity"
	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/domain/numbering"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/production"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repositories are the non-transactional read repositories of the production context
type Repositories struct {
	Machines     production.MachineRepository
	Units        production.UnitRepository
	Consumptions production.ConsumptionRepository
	Transfers    production.TransferLogRepository
	Shifts       production.ShiftRepository
}

// UnitService drives material units through their lifecycle
type UnitService struct {
	scope          TransactionScope
	repos          Repositories
	policy         identity.DepartmentPolicy
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewUnitService creates a new UnitService
func NewUnitService(scope TransactionScope, repos Repositories, policy identity.DepartmentPolicy, logger *zap.Logger) *UnitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitService{
		scope:  scope,
		repos:  repos,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *UnitService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock overrides the clock
func (s *UnitService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *UnitService) publishDomainEvents(ctx context.Context, units ...*production.MaterialUnit) {
	for _, u := range units {
		if s.eventPublisher != nil && len(u.GetDomainEvents()) > 0 {
			_ = s.eventPublisher.Publish(ctx, u.GetDomainEvents()...)
		}
		u.ClearDomainEvents()
	}
}

// Start begins a new unit on a machine. The machine must not own an active unit.
func (s *UnitService) Start(ctx context.Context, caller identity.Caller, req StartUnitRequest) (*UnitResponse, error) {
	var unit *production.MaterialUnit
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		machine, err := repos.MachineRepo().FindByID(ctx, req.MachineID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(caller, machine.Department); err != nil {
			return err
		}
		if active, err := repos.UnitRepo().FindActiveByMachine(ctx, machine.ID); err == nil {
			return shared.NewStateError("Machine " + machine.Code + " already has active unit " + active.Number)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		if req.SourceUnitID != nil {
			src, err := repos.UnitRepo().FindByID(ctx, *req.SourceUnitID)
			if err != nil {
				return err
			}
			if src.Location != machine.Department || src.Status == production.StatusUsed {
				return shared.NewStateError("Source unit " + src.Number + " is not available in " + machine.Department.String())
			}
		}

		shiftID, err := s.resolveShift(ctx, repos, machine, req.ShiftID)
		if err != nil {
			return err
		}

		kind, ok := production.KindFor(machine.Department)
		if !ok {
			return shared.NewValidationError("Department " + machine.Department.String() + " does not produce material units")
		}
		now := s.now()
		number, err := numbering.NewGenerator(repos.SequenceRepo()).WithClock(func() time.Time { return now }).Next(ctx, kind.NumberPrefix())
		if err != nil {
			return err
		}
		unit, err = production.NewMaterialUnit(number, machine, production.StartSpec{
			MaterialID:   req.MaterialID,
			QuantityUnit: req.QuantityUnit,
			SourceUnitID: req.SourceUnitID,
			OrderID:      req.OrderID,
			ShiftID:      shiftID,
			Notes:        req.Notes,
		}, caller.UserID, now)
		if err != nil {
			return err
		}
		return repos.UnitRepo().Create(ctx, unit)
	})
	if err != nil {
		s.logFailure("start", uuid.Nil, err)
		return nil, err
	}
	s.logger.Info("unit started", zap.String("unit", unit.Number), zap.String("machine_id", req.MachineID.String()))
	s.publishDomainEvents(ctx, unit)
	resp := ToUnitResponse(unit)
	return &resp, nil
}

// resolveShift validates an explicit shift or falls back to the machine's open shift
func (s *UnitService) resolveShift(ctx context.Context, repos TransactionalRepositories, machine *production.Machine, shiftID *uuid.UUID) (*uuid.UUID, error) {
	if shiftID != nil {
		shift, err := repos.ShiftRepo().FindByID(ctx, *shiftID)
		if err != nil {
			return nil, err
		}
		if !shift.IsOpen() || shift.MachineID != machine.ID {
			return nil, shared.NewStateError("Shift " + shift.Number + " is not open on machine " + machine.Code)
		}
		return &shift.ID, nil
	}
	shift, err := repos.ShiftRepo().FindOpenByMachine(ctx, machine.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shift.ID, nil
}

// Accumulate adds output to an active unit
func (s *UnitService) Accumulate(ctx context.Context, caller identity.Caller, unitID uuid.UUID, req AccumulateRequest) (*UnitResponse, error) {
	return s.mutate(ctx, "accumulate", unitID, func(repos TransactionalRepositories, u *production.MaterialUnit) error {
		if err := s.policy.Authorize(caller, u.Location); err != nil {
			return err
		}
		from := u.Status
		if err := u.Accumulate(req.Quantity, req.WeightKg); err != nil {
			return err
		}
		return repos.UnitRepo().Transition(ctx, u, from)
	})
}

// Complete takes a unit off its machine. The first completion posts the
// produced quantity to the ledger.
func (s *UnitService) Complete(ctx context.Context, caller identity.Caller, unitID uuid.UUID) (*UnitResponse, error) {
	return s.mutate(ctx, "complete", unitID, func(repos TransactionalRepositories, u *production.MaterialUnit) error {
		if err := s.policy.Authorize(caller, u.Location); err != nil {
			return err
		}
		return completeUnit(ctx, repos, u, caller.UserID, s.now())
	})
}

// completeUnit is shared by Complete and shift closing
func completeUnit(ctx context.Context, repos TransactionalRepositories, u *production.MaterialUnit, operatorID uuid.UUID, now time.Time) error {
	from := u.Status
	first, err := u.Complete(now)
	if err != nil {
		return err
	}
	if err := repos.UnitRepo().Transition(ctx, u, from); err != nil {
		return err
	}
	if !first || !u.Quantity.IsPositive() {
		return nil
	}
	mv, err := ledger.NewMovement(u.MaterialID, ledger.DirectionIn, ledger.KindProduction, u.Quantity, u.QuantityUnit, u.Number, now)
	if err != nil {
		return err
	}
	mv.WithDepartment(u.Origin).WithUnit(u.ID).WithOperator(operatorID)
	return repos.MovementRepo().Append(ctx, mv)
}

// Transfer moves a unit to an adjacent department, optionally loading it on a machine there
func (s *UnitService) Transfer(ctx context.Context, caller identity.Caller, unitID uuid.UUID, req TransferRequest) (*UnitResponse, error) {
	dest, ok := plant.ParseDepartment(req.Destination)
	if !ok {
		return nil, shared.NewValidationError("Unknown destination department " + req.Destination)
	}
	return s.mutate(ctx, "transfer", unitID, func(repos TransactionalRepositories, u *production.MaterialUnit) error {
		if err := s.policy.Authorize(caller, u.Location); err != nil {
			return err
		}
		var load *production.Machine
		if req.MachineID != nil {
			m, err := repos.MachineRepo().FindByID(ctx, *req.MachineID)
			if err != nil {
				return err
			}
			if active, err := repos.UnitRepo().FindActiveByMachine(ctx, m.ID); err == nil {
				return shared.NewStateError("Machine " + m.Code + " already has active unit " + active.Number)
			} else if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			load = m
		}
		from, origin := u.Status, u.Location
		now := s.now()
		if err := u.Transfer(dest, load, now); err != nil {
			return err
		}
		if err := repos.UnitRepo().Transition(ctx, u, from); err != nil {
			return err
		}
		return repos.TransferLogRepo().Append(ctx, production.NewTransferRecord(u.ID, production.TransferForward, origin, dest, u.MachineID, caller.UserID, now))
	})
}

// Return undoes the last transfer of a unit that has not been consumed
func (s *UnitService) Return(ctx context.Context, caller identity.Caller, unitID uuid.UUID) (*UnitResponse, error) {
	return s.mutate(ctx, "return", unitID, func(repos TransactionalRepositories, u *production.MaterialUnit) error {
		if err := s.policy.Authorize(caller, u.Location); err != nil {
			return err
		}
		if err := integrity.Check(ctx, "material unit", u.ID, integrity.ReferenceCheck{
			Category: integrity.CategoryConsumption,
			Count:    func(ctx context.Context) (int64, error) { return repos.ConsumptionRepo().CountByUnit(ctx, u.ID) },
		}); err != nil {
			return err
		}
		from, at := u.Status, u.Location
		now := s.now()
		if err := u.Return(now); err != nil {
			return err
		}
		if err := repos.UnitRepo().Transition(ctx, u, from); err != nil {
			return err
		}
		return repos.TransferLogRepo().Append(ctx, production.NewTransferRecord(u.ID, production.TransferReturn, at, u.Location, nil, caller.UserID, now))
	})
}

// Consume records material drawn from a unit by a downstream department and
// posts the matching ledger movement.
func (s *UnitService) Consume(ctx context.Context, caller identity.Caller, unitID uuid.UUID, req ConsumeRequest) (*UnitResponse, error) {
	consumer, ok := plant.ParseDepartment(req.Department)
	if !ok {
		return nil, shared.NewValidationError("Unknown consumer department " + req.Department)
	}
	return s.mutate(ctx, "consume", unitID, func(repos TransactionalRepositories, u *production.MaterialUnit) error {
		if err := s.policy.Authorize(caller, u.Location); err != nil {
			return err
		}
		if req.ProducedUnitID != nil {
			produced, err := repos.UnitRepo().FindByID(ctx, *req.ProducedUnitID)
			if err != nil {
				return err
			}
			if produced.SourceUnitID == nil || *produced.SourceUnitID != u.ID {
				return shared.NewValidationError("Unit " + produced.Number + " was not made from " + u.Number)
			}
		}
		from := u.Status
		now := s.now()
		if err := u.Consume(req.Quantity, consumer, now); err != nil {
			return err
		}
		doc := req.DocumentNumber
		if doc == "" {
			var err error
			doc, err = numbering.NewGenerator(repos.SequenceRepo()).WithClock(func() time.Time { return now }).Next(ctx, numbering.PrefixConsumption)
			if err != nil {
				return err
			}
		}
		mv, err := ledger.NewMovement(u.MaterialID, ledger.DirectionOut, ledger.KindConsumption, req.Quantity, u.QuantityUnit, doc, now)
		if err != nil {
			return err
		}
		mv.WithDepartment(consumer).WithUnit(u.ID).WithOperator(caller.UserID).WithCounterparty(consumer.Title())
		if err := repos.MovementRepo().Append(ctx, mv); err != nil {
			return err
		}
		record := production.NewConsumptionRecord(u, consumer, req.Quantity, doc, caller.UserID, now)
		record.MovementID = &mv.ID
		record.ProducedUnitID = req.ProducedUnitID
		if err := repos.ConsumptionRepo().Create(ctx, record); err != nil {
			return err
		}
		return repos.UnitRepo().Transition(ctx, u, from)
	})
}

// Delete removes a unit nothing references
func (s *UnitService) Delete(ctx context.Context, caller identity.Caller, unitID uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	if !caller.CanDelete() {
		return shared.NewForbiddenError("Only administrators can delete material units")
	}
	var unit *production.MaterialUnit
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		unit, err = repos.UnitRepo().FindByID(ctx, unitID)
		if err != nil {
			return err
		}
		if err := integrity.Check(ctx, "material unit", unitID,
			integrity.ReferenceCheck{
				Category: integrity.CategoryConsumption,
				Count:    func(ctx context.Context) (int64, error) { return repos.ConsumptionRepo().CountByUnit(ctx, unitID) },
			},
			integrity.ReferenceCheck{
				Category: integrity.CategoryDerivedUnits,
				Count:    func(ctx context.Context) (int64, error) { return repos.UnitRepo().CountDerived(ctx, unitID) },
			},
			integrity.ReferenceCheck{
				Category: integrity.CategoryLedger,
				Count:    func(ctx context.Context) (int64, error) { return repos.MovementRepo().CountByUnit(ctx, unitID) },
			},
		); err != nil {
			return err
		}
		return repos.UnitRepo().Delete(ctx, unitID)
	})
	if err != nil {
		s.logFailure("delete", unitID, err)
		return err
	}
	s.logger.Info("unit deleted", zap.String("unit", unit.Number), zap.String("user_id", caller.UserID.String()))
	unit.AddDomainEvent(production.NewUnitDeletedEvent(unit))
	s.publishDomainEvents(ctx, unit)
	return nil
}

// mutate loads a unit inside a transaction, applies fn and publishes the resulting events
func (s *UnitService) mutate(ctx context.Context, op string, unitID uuid.UUID, fn func(TransactionalRepositories, *production.MaterialUnit) error) (*UnitResponse, error) {
	var unit *production.MaterialUnit
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		unit, err = repos.UnitRepo().FindByID(ctx, unitID)
		if err != nil {
			return err
		}
		return fn(repos, unit)
	})
	if err != nil {
		s.logFailure(op, unitID, err)
		return nil, err
	}
	s.logger.Info("unit "+op,
		zap.String("unit", unit.Number),
		zap.String("status", string(unit.Status)),
		zap.String("location", string(unit.Location)))
	s.publishDomainEvents(ctx, unit)
	resp := ToUnitResponse(unit)
	return &resp, nil
}

func (s *UnitService) logFailure(op string, unitID uuid.UUID, err error) {
	if shared.IsConflict(err) {
		s.logger.Warn("unit "+op+" conflict", zap.String("unit_id", unitID.String()), zap.Error(err))
		return
	}
	s.logger.Debug("unit "+op+" rejected", zap.String("unit_id", unitID.String()), zap.Error(err))
}

// GetByID returns a unit
func (s *UnitService) GetByID(ctx context.Context, unitID uuid.UUID) (*UnitResponse, error) {
	u, err := s.repos.Units.FindByID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	resp := ToUnitResponse(u)
	return &resp, nil
}

// List lists units matching the filter
func (s *UnitService) List(ctx context.Context, f UnitListFilter) ([]UnitResponse, int64, error) {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	if f.Location != "" {
		d, ok := plant.ParseDepartment(f.Location)
		if !ok {
			return nil, 0, shared.NewValidationError("Unknown department " + f.Location)
		}
		filter.Filters["location"] = string(d)
	}
	if f.Kind != "" {
		filter.Filters["kind"] = f.Kind
	}
	if f.MachineID != nil {
		filter.Filters["machine_id"] = *f.MachineID
	}
	if f.OrderID != nil {
		filter.Filters["order_id"] = *f.OrderID
	}
	units, err := s.repos.Units.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repos.Units.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]UnitResponse, len(units))
	for i := range units {
		out[i] = ToUnitResponse(&units[i])
	}
	return out, total, nil
}

// History returns transfers and consumptions of a unit
func (s *UnitService) History(ctx context.Context, unitID uuid.UUID) (*UnitHistoryResponse, error) {
	u, err := s.repos.Units.FindByID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	transfers, err := s.repos.Transfers.FindByUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	consumptions, err := s.repos.Consumptions.FindByUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	return &UnitHistoryResponse{Unit: ToUnitResponse(u), Transfers: transfers, Consumptions: consumptions}, nil
}
