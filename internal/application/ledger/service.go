package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/integrity"
	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// documentKeyTTL bounds how long a submitted document number is remembered
// before the unique index alone guards against replays.
const documentKeyTTL = 24 * time.Hour

// Service handles materials, manual movements and balance queries
type Service struct {
	scope          TransactionScope
	materials      ledger.MaterialRepository
	movements      ledger.MovementRepository
	policy         ledger.TolerancePolicy
	idempotency    shared.IdempotencyStore
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates a new ledger Service
func NewService(
	scope TransactionScope,
	materials ledger.MaterialRepository,
	movements ledger.MovementRepository,
	policy ledger.TolerancePolicy,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:     scope,
		materials: materials,
		movements: movements,
		policy:    policy,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables fast rejection of replayed document numbers
func (s *Service) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

func (s *Service) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	// Errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
}

// CreateMaterial registers a material
func (s *Service) CreateMaterial(ctx context.Context, caller identity.Caller, req CreateMaterialRequest) (*MaterialResponse, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	if !caller.CanRecordMovements() {
		return nil, shared.NewForbiddenError("Role " + caller.Role.String() + " cannot register materials")
	}
	material, err := ledger.NewMaterial(req.Code, req.Name, ledger.MaterialClass(req.Class), req.Unit)
	if err != nil {
		return nil, err
	}
	if existing, err := s.materials.FindByCode(ctx, material.Code); err == nil && existing != nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Material code "+material.Code+" is already registered")
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if err := s.materials.Save(ctx, material); err != nil {
		return nil, err
	}
	resp := ToMaterialResponse(material)
	return &resp, nil
}

// ListMaterials lists materials, optionally of one class
func (s *Service) ListMaterials(ctx context.Context, class string) ([]MaterialResponse, error) {
	filter := shared.DefaultFilter()
	filter.PageSize = 0
	filter.OrderBy = "code"
	filter.OrderDir = "asc"
	if class != "" {
		filter.Filters["class"] = class
	}
	materials, err := s.materials.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]MaterialResponse, len(materials))
	for i := range materials {
		out[i] = ToMaterialResponse(&materials[i])
	}
	return out, nil
}

// RecordMovement appends a manual warehouse movement. A repeated document
// number for the same material and direction is rejected as a duplicate.
func (s *Service) RecordMovement(ctx context.Context, caller identity.Caller, req RecordMovementRequest) (*MovementResponse, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	if !caller.CanRecordMovements() {
		return nil, shared.NewForbiddenError("Role " + caller.Role.String() + " cannot record ledger movements")
	}
	kind := ledger.MovementKind(req.Kind)
	if kind == ledger.KindProduction || kind == ledger.KindConsumption {
		return nil, shared.NewValidationError("Production and consumption movements are posted by the unit lifecycle")
	}
	var dept plant.Department
	if req.Department != "" {
		d, ok := plant.ParseDepartment(req.Department)
		if !ok {
			return nil, shared.NewValidationError("Unknown department " + req.Department)
		}
		dept = d
	}

	key := "ledger:" + req.DocumentNumber + ":" + req.MaterialID.String() + ":" + req.Direction
	if s.idempotency != nil {
		if seen, err := s.idempotency.IsProcessed(ctx, key); err == nil && seen {
			return nil, shared.ErrDuplicateDocument
		}
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	var movement *ledger.Movement
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		material, err := repos.MaterialRepo().FindByID(ctx, req.MaterialID)
		if err != nil {
			return err
		}
		movement, err = ledger.NewMovement(material.ID, ledger.Direction(req.Direction), kind, req.Quantity, material.Unit, req.DocumentNumber, occurredAt)
		if err != nil {
			return err
		}
		movement.WithDepartment(dept).WithCounterparty(req.Counterparty).WithOperator(caller.UserID)
		return repos.MovementRepo().Append(ctx, movement)
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateDocument) {
			s.logger.Warn("duplicate ledger document", zap.String("document_number", req.DocumentNumber))
		}
		return nil, err
	}

	if s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, key, documentKeyTTL); err != nil {
			s.logger.Warn("failed to remember ledger document", zap.String("document_number", req.DocumentNumber), zap.Error(err))
		}
	}
	s.logger.Info("ledger movement recorded",
		zap.String("document_number", movement.DocumentNumber),
		zap.String("direction", string(movement.Direction)),
		zap.String("quantity", movement.Quantity.String()))
	s.publish(ctx, ledger.NewMovementRecordedEvent(movement))

	resp := ToMovementResponse(movement)
	return &resp, nil
}

// DeleteMovement removes a movement that nothing references. Balances
// follow automatically since they are derived.
func (s *Service) DeleteMovement(ctx context.Context, caller identity.Caller, id uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	if !caller.CanDelete() {
		return shared.NewForbiddenError("Only administrators can delete ledger movements")
	}
	var movement *ledger.Movement
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		movement, err = repos.MovementRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := integrity.Check(ctx, "ledger movement", id, integrity.ReferenceCheck{
			Category: integrity.CategoryConsumption,
			Count: func(ctx context.Context) (int64, error) {
				return repos.References().CountConsumptionsByMovement(ctx, id)
			},
		}); err != nil {
			return err
		}
		return repos.MovementRepo().Delete(ctx, id)
	})
	if err != nil {
		if shared.IsConflict(err) {
			s.logger.Warn("ledger movement delete blocked", zap.String("movement_id", id.String()), zap.Error(err))
		}
		return err
	}
	s.logger.Info("ledger movement deleted", zap.String("movement_id", id.String()), zap.String("user_id", caller.UserID.String()))
	s.publish(ctx, ledger.NewMovementDeletedEvent(movement))
	return nil
}

// GetBalance returns the derived balance of one material
func (s *Service) GetBalance(ctx context.Context, materialID uuid.UUID) (*ledger.Balance, error) {
	return s.movements.Balance(ctx, materialID)
}

// ListBalances returns balances of all materials, optionally of one class
func (s *Service) ListBalances(ctx context.Context, class string) ([]ledger.Balance, error) {
	filter := shared.DefaultFilter()
	if class != "" {
		filter.Filters["class"] = class
	}
	return s.movements.Balances(ctx, filter)
}

// BalanceByClass returns the total stock of a material class
func (s *Service) BalanceByClass(ctx context.Context, class string) (*ClassBalanceResponse, error) {
	c := ledger.MaterialClass(class)
	if !c.IsValid() {
		return nil, shared.NewValidationError("Invalid material class")
	}
	balances, err := s.ListBalances(ctx, class)
	if err != nil {
		return nil, err
	}
	return &ClassBalanceResponse{Class: c, Balance: ledger.SumBalances(balances), Materials: balances}, nil
}

// Reconcile compares a physical count with the ledger balance
func (s *Service) Reconcile(ctx context.Context, materialID uuid.UUID, counted decimal.Decimal) (*ledger.Reconciliation, error) {
	if counted.IsNegative() {
		return nil, shared.NewValidationError("Counted quantity cannot be negative")
	}
	balance, err := s.movements.Balance(ctx, materialID)
	if err != nil {
		return nil, err
	}
	r := s.policy.Reconcile(materialID, balance.Balance, counted)
	if r.Verdict == ledger.VerdictDiscrepant {
		s.logger.Warn("ledger discrepancy",
			zap.String("material_id", materialID.String()),
			zap.String("difference", r.Difference.String()),
			zap.String("tolerance", r.Tolerance.String()))
	}
	return &r, nil
}

// ListMovements lists the movements of a material
func (s *Service) ListMovements(ctx context.Context, materialID uuid.UUID, f MovementListFilter) ([]MovementResponse, error) {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	movements, err := s.movements.FindByMaterial(ctx, materialID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]MovementResponse, len(movements))
	for i := range movements {
		out[i] = ToMovementResponse(&movements[i])
	}
	return out, nil
}
