package identity

import (
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Caller is the authenticated identity behind a mutating operation
type Caller struct {
	UserID      uuid.UUID
	Username    string
	Role        Role
	Departments []plant.Department
}

// NewCaller creates a caller, dropping unknown departments
func NewCaller(userID uuid.UUID, username string, role Role, departments ...plant.Department) Caller {
	deps := make([]plant.Department, 0, len(departments))
	for _, d := range departments {
		if d.IsValid() {
			deps = append(deps, d)
		}
	}
	return Caller{UserID: userID, Username: username, Role: role, Departments: deps}
}

// Validate checks that the caller carries an identity and a known role
func (c Caller) Validate() error {
	if c.UserID == uuid.Nil {
		return shared.ErrUnauthorized
	}
	if !c.Role.IsValid() {
		return shared.NewForbiddenError("Unknown role")
	}
	return nil
}

// CanDelete reports whether the caller may delete records
func (c Caller) CanDelete() bool {
	return c.Role == RoleAdmin
}

// CanCorrect reports whether the caller may write task status directly
func (c Caller) CanCorrect() bool {
	return c.Role == RoleAdmin
}

// CanPlan reports whether the caller may create and change production orders
func (c Caller) CanPlan() bool {
	return c.Role == RoleAdmin || c.Role == RoleManager
}

// CanRecordMovements reports whether the caller may post manual ledger movements
func (c Caller) CanRecordMovements() bool {
	switch c.Role {
	case RoleAdmin, RoleManager, RoleWarehouse:
		return true
	}
	return false
}

// AssignedTo reports whether dept is one of the caller's departments
func (c Caller) AssignedTo(dept plant.Department) bool {
	for _, d := range c.Departments {
		if d == dept {
			return true
		}
	}
	return false
}

// CanOperateDepartment reports whether the caller may act on behalf of dept
func (c Caller) CanOperateDepartment(dept plant.Department) bool {
	switch c.Role {
	case RoleAdmin, RoleManager:
		return true
	case RoleOperator:
		return c.AssignedTo(dept)
	case RoleWarehouse:
		return dept == plant.DepartmentWarehouse || c.AssignedTo(dept)
	}
	return false
}

// DepartmentPolicy decides department-scoped write access
type DepartmentPolicy struct {
	Enforce bool
}

// Authorize returns a forbidden error when the caller may not act for dept
func (p DepartmentPolicy) Authorize(c Caller, dept plant.Department) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !p.Enforce || c.CanOperateDepartment(dept) {
		return nil
	}
	return shared.NewForbiddenError("Caller is not assigned to department " + dept.String())
}
