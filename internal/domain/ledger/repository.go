package ledger

import (
	"context"

	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaterialRepository defines the interface for material persistence
type MaterialRepository interface {
	// FindByID finds a material by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Material, error)

	// FindByCode finds a material by its unique code
	FindByCode(ctx context.Context, code string) (*Material, error)

	// FindAll finds materials; supports the "class" filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Material, error)

	// Save creates or updates a material
	Save(ctx context.Context, material *Material) error
}

// MovementRepository defines the interface for the append-only movement ledger.
// There is deliberately no update method.
type MovementRepository interface {
	// FindByID finds a movement by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Movement, error)

	// FindByMaterial lists movements of a material ordered by occurrence
	FindByMaterial(ctx context.Context, materialID uuid.UUID, filter shared.Filter) ([]Movement, error)

	// FindByDocument lists movements posted under a document number
	FindByDocument(ctx context.Context, documentNumber string) ([]Movement, error)

	// Append inserts a movement; a repeated (document, material, direction) returns shared.ErrDuplicateDocument
	Append(ctx context.Context, movement *Movement) error

	// Delete removes a movement; callers must run the deletion guard first
	Delete(ctx context.Context, id uuid.UUID) error

	// Balance aggregates the movements of one material
	Balance(ctx context.Context, materialID uuid.UUID) (*Balance, error)

	// Balances aggregates all materials; supports the "class" filter
	Balances(ctx context.Context, filter shared.Filter) ([]Balance, error)

	// CountByUnit counts movements linked to a material unit
	CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error)
}

// ReferenceCounter counts records outside the ledger that point at a movement
type ReferenceCounter interface {
	// CountConsumptionsByMovement counts consumption records backed by the movement
	CountConsumptionsByMovement(ctx context.Context, movementID uuid.UUID) (int64, error)
}
