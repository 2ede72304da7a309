package production

import (
	"context"
	"errors"
	"time"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/integrity"
	"github.com/fibc/backend/internal/domain/numbering"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/production"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ShiftListFilter represents filter options for shift lists
type ShiftListFilter struct {
	Department string     `form:"department"`
	MachineID  *uuid.UUID `form:"-"`
	Open       *bool      `form:"open"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// ShiftService opens and closes production shifts
type ShiftService struct {
	scope          TransactionScope
	repos          Repositories
	policy         identity.DepartmentPolicy
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewShiftService creates a new ShiftService
func NewShiftService(scope TransactionScope, repos Repositories, policy identity.DepartmentPolicy, logger *zap.Logger) *ShiftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShiftService{scope: scope, repos: repos, policy: policy, logger: logger, now: time.Now}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ShiftService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock overrides the clock
func (s *ShiftService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *ShiftService) publish(ctx context.Context, aggregates ...shared.AggregateRoot) {
	for _, a := range aggregates {
		if s.eventPublisher != nil && len(a.GetDomainEvents()) > 0 {
			_ = s.eventPublisher.Publish(ctx, a.GetDomainEvents()...)
		}
		a.ClearDomainEvents()
	}
}

// OpenShift opens a shift on a machine that has none open
func (s *ShiftService) OpenShift(ctx context.Context, caller identity.Caller, req OpenShiftRequest) (*ShiftResponse, error) {
	var shift *production.ProductionShift
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		machine, err := repos.MachineRepo().FindByID(ctx, req.MachineID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(caller, machine.Department); err != nil {
			return err
		}
		if open, err := repos.ShiftRepo().FindOpenByMachine(ctx, machine.ID); err == nil {
			return shared.NewStateError("Machine " + machine.Code + " already has open shift " + open.Number)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		now := s.now()
		number, err := numbering.NewGenerator(repos.SequenceRepo()).WithClock(func() time.Time { return now }).Next(ctx, numbering.PrefixShift)
		if err != nil {
			return err
		}
		shift, err = production.NewProductionShift(number, machine, caller.UserID, req.ShiftNo, now)
		if err != nil {
			return err
		}
		return repos.ShiftRepo().Create(ctx, shift)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("shift opened", zap.String("shift", shift.Number), zap.String("machine_id", shift.MachineID.String()))
	s.publish(ctx, shift)
	resp := ToShiftResponse(shift)
	return &resp, nil
}

// CloseShift closes a shift and completes every unit still active from it
func (s *ShiftService) CloseShift(ctx context.Context, caller identity.Caller, shiftID uuid.UUID) (*ShiftResponse, error) {
	var (
		shift     *production.ProductionShift
		completed []production.MaterialUnit
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		shift, err = repos.ShiftRepo().FindByID(ctx, shiftID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(caller, shift.Department); err != nil {
			return err
		}
		now := s.now()
		if err := shift.Close(now); err != nil {
			return err
		}
		completed, err = repos.UnitRepo().FindActiveByShift(ctx, shift.ID)
		if err != nil {
			return err
		}
		for i := range completed {
			if err := completeUnit(ctx, repos, &completed[i], caller.UserID, now); err != nil {
				return err
			}
		}
		return repos.ShiftRepo().Close(ctx, shift)
	})
	if err != nil {
		if shared.IsConflict(err) {
			s.logger.Warn("shift close conflict", zap.String("shift_id", shiftID.String()), zap.Error(err))
		}
		return nil, err
	}
	resp := ToShiftResponse(shift)
	for i := range completed {
		resp.Completed = append(resp.Completed, completed[i].Number)
		s.publish(ctx, &completed[i])
	}
	s.logger.Info("shift closed", zap.String("shift", shift.Number), zap.Int("completed_units", len(completed)))
	s.publish(ctx, shift)
	return &resp, nil
}

// DeleteShift removes a shift that produced nothing
func (s *ShiftService) DeleteShift(ctx context.Context, caller identity.Caller, shiftID uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	if !caller.CanDelete() {
		return shared.NewForbiddenError("Only administrators can delete shifts")
	}
	var shift *production.ProductionShift
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		shift, err = repos.ShiftRepo().FindByID(ctx, shiftID)
		if err != nil {
			return err
		}
		if err := integrity.Check(ctx, "production shift", shiftID, integrity.ReferenceCheck{
			Category: integrity.CategoryProducedUnits,
			Count:    func(ctx context.Context) (int64, error) { return repos.UnitRepo().CountByShift(ctx, shiftID) },
		}); err != nil {
			return err
		}
		return repos.ShiftRepo().Delete(ctx, shiftID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("shift deleted", zap.String("shift", shift.Number), zap.String("user_id", caller.UserID.String()))
	shift.AddDomainEvent(production.NewShiftEvent(production.EventTypeShiftDeleted, shift))
	s.publish(ctx, shift)
	return nil
}

// GetShift returns a shift
func (s *ShiftService) GetShift(ctx context.Context, shiftID uuid.UUID) (*ShiftResponse, error) {
	shift, err := s.repos.Shifts.FindByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	resp := ToShiftResponse(shift)
	return &resp, nil
}

// ListShifts lists shifts matching the filter
func (s *ShiftService) ListShifts(ctx context.Context, f ShiftListFilter) ([]ShiftResponse, error) {
	filter := shared.DefaultFilter()
	filter.OrderBy = "opened_at"
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.Department != "" {
		d, ok := plant.ParseDepartment(f.Department)
		if !ok {
			return nil, shared.NewValidationError("Unknown department " + f.Department)
		}
		filter.Filters["department"] = string(d)
	}
	if f.MachineID != nil {
		filter.Filters["machine_id"] = *f.MachineID
	}
	if f.Open != nil {
		filter.Filters["open"] = *f.Open
	}
	shifts, err := s.repos.Shifts.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]ShiftResponse, len(shifts))
	for i := range shifts {
		out[i] = ToShiftResponse(&shifts[i])
	}
	return out, nil
}
