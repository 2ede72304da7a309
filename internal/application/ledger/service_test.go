package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/integrity"
	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockMaterialRepository is a mock implementation of ledger.MaterialRepository
type MockMaterialRepository struct {
	mock.Mock
}

func (m *MockMaterialRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Material, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Material), args.Error(1)
}

func (m *MockMaterialRepository) FindByCode(ctx context.Context, code string) (*ledger.Material, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Material), args.Error(1)
}

func (m *MockMaterialRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.Material, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.Material), args.Error(1)
}

func (m *MockMaterialRepository) Save(ctx context.Context, material *ledger.Material) error {
	args := m.Called(ctx, material)
	return args.Error(0)
}

// MockMovementRepository is a mock implementation of ledger.MovementRepository
type MockMovementRepository struct {
	mock.Mock
}

func (m *MockMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Movement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Movement), args.Error(1)
}

func (m *MockMovementRepository) FindByMaterial(ctx context.Context, materialID uuid.UUID, filter shared.Filter) ([]ledger.Movement, error) {
	args := m.Called(ctx, materialID, filter)
	return args.Get(0).([]ledger.Movement), args.Error(1)
}

func (m *MockMovementRepository) FindByDocument(ctx context.Context, documentNumber string) ([]ledger.Movement, error) {
	args := m.Called(ctx, documentNumber)
	return args.Get(0).([]ledger.Movement), args.Error(1)
}

func (m *MockMovementRepository) Append(ctx context.Context, movement *ledger.Movement) error {
	args := m.Called(ctx, movement)
	return args.Error(0)
}

func (m *MockMovementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMovementRepository) Balance(ctx context.Context, materialID uuid.UUID) (*ledger.Balance, error) {
	args := m.Called(ctx, materialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Balance), args.Error(1)
}

func (m *MockMovementRepository) Balances(ctx context.Context, filter shared.Filter) ([]ledger.Balance, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.Balance), args.Error(1)
}

func (m *MockMovementRepository) CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error) {
	args := m.Called(ctx, unitID)
	return args.Get(0).(int64), args.Error(1)
}

// MockReferenceCounter is a mock implementation of ledger.ReferenceCounter
type MockReferenceCounter struct {
	mock.Mock
}

func (m *MockReferenceCounter) CountConsumptionsByMovement(ctx context.Context, movementID uuid.UUID) (int64, error) {
	args := m.Called(ctx, movementID)
	return args.Get(0).(int64), args.Error(1)
}

// mockScope runs fn directly against the mocks
type mockScope struct {
	materials  *MockMaterialRepository
	movements  *MockMovementRepository
	references *MockReferenceCounter
}

func (s *mockScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *mockScope) MaterialRepo() ledger.MaterialRepository { return s.materials }
func (s *mockScope) MovementRepo() ledger.MovementRepository { return s.movements }
func (s *mockScope) References() ledger.ReferenceCounter { return s.references }

// memoryStore is a minimal idempotency store
type memoryStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (s *memoryStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memoryStore) Close() error { return nil }

type ledgerFixture struct {
	service   *Service
	scope     *mockScope
	publisher *MockEventPublisher
	store     *memoryStore
}

func newLedgerFixture(t *testing.T, tolerance string) *ledgerFixture {
	t.Helper()
	policy, err := ledger.NewTolerancePolicy(decimal.RequireFromString(tolerance))
	require.NoError(t, err)

	scope := &mockScope{
		materials:  new(MockMaterialRepository),
		movements:  new(MockMovementRepository),
		references: new(MockReferenceCounter),
	}
	publisher := &MockEventPublisher{}
	store := &memoryStore{keys: map[string]bool{}}
	svc := NewService(scope, scope.materials, scope.movements, policy, nil)
	svc.SetEventPublisher(publisher)
	svc.SetIdempotencyStore(store)
	return &ledgerFixture{service: svc, scope: scope, publisher: publisher, store: store}
}

func storekeeper() identity.Caller {
	return identity.NewCaller(uuid.New(), "storekeeper", identity.RoleWarehouse)
}

func granules(t *testing.T) *ledger.Material {
	t.Helper()
	m, err := ledger.NewMaterial("PP-H030", "Polypropylene H030", ledger.ClassGranules, "kg")
	require.NoError(t, err)
	return m
}

func TestService_CreateMaterial(t *testing.T) {
	ctx := context.Background()

	t.Run("registers new code", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		f.scope.materials.On("FindByCode", ctx, "PP-H030").Return(nil, shared.ErrNotFound)
		f.scope.materials.On("Save", ctx, mock.AnythingOfType("*ledger.Material")).Return(nil)

		resp, err := f.service.CreateMaterial(ctx, storekeeper(), CreateMaterialRequest{
			Code: "PP-H030", Name: "Polypropylene H030", Class: "granules", Unit: "kg",
		})
		require.NoError(t, err)
		assert.Equal(t, "granules", resp.Class)
		f.scope.materials.AssertExpectations(t)
	})

	t.Run("duplicate code", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		f.scope.materials.On("FindByCode", ctx, "PP-H030").Return(granules(t), nil)

		_, err := f.service.CreateMaterial(ctx, storekeeper(), CreateMaterialRequest{
			Code: "PP-H030", Name: "Polypropylene H030", Class: "granules", Unit: "kg",
		})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		f.scope.materials.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("operator cannot register", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		operator := identity.NewCaller(uuid.New(), "op", identity.RoleOperator)
		_, err := f.service.CreateMaterial(ctx, operator, CreateMaterialRequest{Code: "X", Name: "X", Class: "yarn", Unit: "kg"})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestService_RecordMovement(t *testing.T) {
	ctx := context.Background()

	t.Run("appends and publishes", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		material := granules(t)
		f.scope.materials.On("FindByID", ctx, material.ID).Return(material, nil)
		f.scope.movements.On("Append", ctx, mock.AnythingOfType("*ledger.Movement")).Return(nil)

		resp, err := f.service.RecordMovement(ctx, storekeeper(), RecordMovementRequest{
			MaterialID:     material.ID,
			Direction:      "in",
			Kind:           "receipt",
			Quantity:       decimal.NewFromInt(1000),
			DocumentNumber: "RCV-0001",
			Department:     "Склад",
			Counterparty:   "Supplier",
		})
		require.NoError(t, err)
		assert.Equal(t, "kg", resp.Unit)
		assert.Equal(t, "warehouse", resp.Department.String())
		assert.Len(t, f.publisher.GetEventsByType(ledger.EventTypeMovementRecorded), 1)
		assert.True(t, f.store.keys["ledger:RCV-0001:"+material.ID.String()+":in"])
	})

	t.Run("replayed document rejected before the transaction", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		material := granules(t)
		f.store.keys["ledger:RCV-0001:"+material.ID.String()+":in"] = true

		_, err := f.service.RecordMovement(ctx, storekeeper(), RecordMovementRequest{
			MaterialID: material.ID, Direction: "in", Kind: "receipt",
			Quantity: decimal.NewFromInt(5), DocumentNumber: "RCV-0001",
		})
		assert.ErrorIs(t, err, shared.ErrDuplicateDocument)
		f.scope.materials.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("duplicate from the unique index is not remembered twice", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		material := granules(t)
		f.scope.materials.On("FindByID", ctx, material.ID).Return(material, nil)
		f.scope.movements.On("Append", ctx, mock.Anything).Return(shared.ErrDuplicateDocument)

		_, err := f.service.RecordMovement(ctx, storekeeper(), RecordMovementRequest{
			MaterialID: material.ID, Direction: "out", Kind: "issue",
			Quantity: decimal.NewFromInt(5), DocumentNumber: "ISS-7",
		})
		assert.ErrorIs(t, err, shared.ErrDuplicateDocument)
		assert.Empty(t, f.store.keys)
		assert.Empty(t, f.publisher.GetEventsByType(ledger.EventTypeMovementRecorded))
	})

	t.Run("lifecycle kinds are refused", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		_, err := f.service.RecordMovement(ctx, storekeeper(), RecordMovementRequest{
			MaterialID: uuid.New(), Direction: "in", Kind: "production",
			Quantity: decimal.NewFromInt(5), DocumentNumber: "P-1",
		})
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		material := granules(t)
		f.scope.materials.On("FindByID", ctx, material.ID).Return(material, nil)

		_, err := f.service.RecordMovement(ctx, storekeeper(), RecordMovementRequest{
			MaterialID: material.ID, Direction: "in", Kind: "receipt",
			Quantity: decimal.Zero, DocumentNumber: "RCV-2",
		})
		assert.True(t, shared.IsValidation(err))
		f.scope.movements.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

func TestService_DeleteMovement(t *testing.T) {
	ctx := context.Background()
	admin := identity.NewCaller(uuid.New(), "admin", identity.RoleAdmin)

	newMovement := func(t *testing.T) *ledger.Movement {
		m, err := ledger.NewMovement(uuid.New(), ledger.DirectionIn, ledger.KindReceipt, decimal.NewFromInt(10), "kg", "RCV-9", time.Now())
		require.NoError(t, err)
		return m
	}

	t.Run("unreferenced movement is deleted", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		m := newMovement(t)
		f.scope.movements.On("FindByID", ctx, m.ID).Return(m, nil)
		f.scope.references.On("CountConsumptionsByMovement", ctx, m.ID).Return(int64(0), nil)
		f.scope.movements.On("Delete", ctx, m.ID).Return(nil)

		require.NoError(t, f.service.DeleteMovement(ctx, admin, m.ID))
		assert.Len(t, f.publisher.GetEventsByType(ledger.EventTypeMovementDeleted), 1)
	})

	t.Run("consumed movement is blocked", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		m := newMovement(t)
		f.scope.movements.On("FindByID", ctx, m.ID).Return(m, nil)
		f.scope.references.On("CountConsumptionsByMovement", ctx, m.ID).Return(int64(2), nil)

		err := f.service.DeleteMovement(ctx, admin, m.ID)
		var conflict *integrity.ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, integrity.CategoryConsumption, conflict.Category)
		assert.EqualValues(t, 2, conflict.Count)
		f.scope.movements.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("only admins delete", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		err := f.service.DeleteMovement(ctx, storekeeper(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("anonymous caller", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		err := f.service.DeleteMovement(ctx, identity.Caller{}, uuid.New())
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()
	materialID := uuid.New()
	balance := &ledger.Balance{MaterialID: materialID, Balance: decimal.NewFromInt(100)}

	tests := []struct {
		name      string
		tolerance string
		counted   int64
		want      ledger.Verdict
	}{
		{name: "exact match", tolerance: "0", counted: 100, want: ledger.VerdictBalanced},
		{name: "within tolerance", tolerance: "2", counted: 98, want: ledger.VerdictBalanced},
		{name: "on the boundary", tolerance: "2", counted: 102, want: ledger.VerdictBalanced},
		{name: "outside tolerance", tolerance: "2", counted: 97, want: ledger.VerdictDiscrepant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t, tt.tolerance)
			f.scope.movements.On("Balance", ctx, materialID).Return(balance, nil)

			r, err := f.service.Reconcile(ctx, materialID, decimal.NewFromInt(tt.counted))
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Verdict)
		})
	}

	t.Run("negative count", func(t *testing.T) {
		f := newLedgerFixture(t, "0")
		_, err := f.service.Reconcile(ctx, materialID, decimal.NewFromInt(-1))
		assert.True(t, shared.IsValidation(err))
	})
}

func TestService_BalanceByClass(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, "0")
	f.scope.movements.On("Balances", ctx, mock.MatchedBy(func(filter shared.Filter) bool {
		return filter.Filters["class"] == "yarn"
	})).Return([]ledger.Balance{
		{Class: ledger.ClassYarn, Balance: decimal.NewFromInt(40)},
		{Class: ledger.ClassYarn, Balance: decimal.NewFromInt(2)},
	}, nil)

	resp, err := f.service.BalanceByClass(ctx, "yarn")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(42).Equal(resp.Balance))

	_, err = f.service.BalanceByClass(ctx, "steel")
	assert.True(t, shared.IsValidation(err))
}
