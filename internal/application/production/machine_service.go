package production

import (
	"context"
	"errors"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/production"
	"github.com/fibc/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MachineService manages the machine registry
type MachineService struct {
	machines production.MachineRepository
	logger   *zap.Logger
}

// NewMachineService creates a new MachineService
func NewMachineService(machines production.MachineRepository, logger *zap.Logger) *MachineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MachineService{machines: machines, logger: logger}
}

// CreateMachine registers a machine in a producing department
func (s *MachineService) CreateMachine(ctx context.Context, caller identity.Caller, req CreateMachineRequest) (*MachineResponse, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	if !caller.CanPlan() {
		return nil, shared.NewForbiddenError("Only administrators and managers can register machines")
	}
	dept, ok := plant.ParseDepartment(req.Department)
	if !ok {
		return nil, shared.NewValidationError("Unknown department " + req.Department)
	}
	m, err := production.NewMachine(req.Code, req.Name, dept)
	if err != nil {
		return nil, err
	}
	if err := s.machines.Save(ctx, m); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Machine code "+m.Code+" already exists")
		}
		return nil, err
	}
	s.logger.Info("machine registered", zap.String("code", m.Code), zap.String("department", string(dept)))
	resp := ToMachineResponse(m)
	return &resp, nil
}

// ListMachines lists machines, optionally of one department
func (s *MachineService) ListMachines(ctx context.Context, department string) ([]MachineResponse, error) {
	filter := shared.DefaultFilter()
	filter.PageSize = 0
	filter.OrderBy = "code"
	filter.OrderDir = "asc"
	if department != "" {
		d, ok := plant.ParseDepartment(department)
		if !ok {
			return nil, shared.NewValidationError("Unknown department " + department)
		}
		filter.Filters["department"] = string(d)
	}
	machines, err := s.machines.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]MachineResponse, len(machines))
	for i := range machines {
		out[i] = ToMachineResponse(&machines[i])
	}
	return out, nil
}
