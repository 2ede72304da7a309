package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	ledgerapp "github.com/fibc/backend/internal/application/ledger"
	planningapp "github.com/fibc/backend/internal/application/planning"
	productionapp "github.com/fibc/backend/internal/application/production"
	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/infrastructure/persistence"
	"github.com/fibc/backend/internal/interfaces/http/dto"
	"github.com/fibc/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	caller identity.Caller
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, persistence.AutoMigrate(db))
	return db
}

// newTestServer wires real services over SQLite. The caller defaults to an
// admin and can be replaced per request through ts.caller.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := newTestDB(t)
	scope := persistence.NewGormTransactionScope(db)
	policy := identity.DepartmentPolicy{Enforce: true}
	tolerance, err := ledger.NewTolerancePolicy(decimal.Zero)
	require.NoError(t, err)

	repos := productionapp.Repositories{
		Machines:     persistence.NewGormMachineRepository(db),
		Units:        persistence.NewGormUnitRepository(db),
		Consumptions: persistence.NewGormConsumptionRepository(db),
		Transfers:    persistence.NewGormTransferLogRepository(db),
		Shifts:       persistence.NewGormShiftRepository(db),
	}
	ledgerH := NewLedgerHandler(ledgerapp.NewService(scope.Ledger(), persistence.NewGormMaterialRepository(db), persistence.NewGormMovementRepository(db), tolerance, nil))
	machineH := NewMachineHandler(productionapp.NewMachineService(repos.Machines, nil))
	unitH := NewUnitHandler(productionapp.NewUnitService(scope.Production(), repos, policy, nil))
	shiftH := NewShiftHandler(productionapp.NewShiftService(scope.Production(), repos, policy, nil))
	orderH := NewOrderHandler(planningapp.NewOrderService(scope.Planning(), persistence.NewGormOrderRepository(db), persistence.NewGormProductSpecRepository(db), nil))
	taskH := NewTaskHandler(planningapp.NewTaskService(scope.Planning(), persistence.NewGormTaskRepository(db), policy, nil))

	ts := &testServer{db: db, caller: identity.NewCaller(uuid.New(), "admin", identity.RoleAdmin)}
	engine := gin.New()
	engine.Use(middleware.RequestID(), func(c *gin.Context) {
		if ts.caller.UserID != uuid.Nil {
			c.Set(middleware.CallerKey, ts.caller)
		}
		c.Next()
	})
	api := engine.Group("/api/v1")
	api.GET("/materials", ledgerH.ListMaterials)
	api.POST("/materials", ledgerH.CreateMaterial)
	api.GET("/materials/:id/balance", ledgerH.GetBalance)
	api.GET("/materials/:id/movements", ledgerH.ListMovements)
	api.POST("/materials/:id/reconcile", ledgerH.Reconcile)
	api.POST("/movements", ledgerH.RecordMovement)
	api.DELETE("/movements/:id", ledgerH.DeleteMovement)
	api.GET("/balances/classes/:class", ledgerH.BalanceByClass)
	api.POST("/machines", machineH.Create)
	api.GET("/machines", machineH.List)
	api.POST("/shifts", shiftH.Open)
	api.GET("/shifts", shiftH.List)
	api.POST("/shifts/:id/close", shiftH.Close)
	api.POST("/units", unitH.Start)
	api.GET("/units", unitH.List)
	api.GET("/units/:id", unitH.Get)
	api.POST("/units/:id/accumulate", unitH.Accumulate)
	api.POST("/units/:id/complete", unitH.Complete)
	api.POST("/units/:id/transfer", unitH.Transfer)
	api.POST("/units/:id/consume", unitH.Consume)
	api.DELETE("/units/:id", unitH.Delete)
	api.POST("/orders/preview", orderH.Preview)
	api.POST("/orders", orderH.Create)
	api.GET("/orders", orderH.List)
	api.GET("/orders/:id", orderH.Get)
	api.POST("/orders/:id/cancel", orderH.Cancel)
	api.PUT("/product-specs", orderH.SaveSpec)
	api.GET("/departments/:department/tasks", taskH.ListForDepartment)
	api.POST("/tasks/:id/accept", taskH.Accept)
	api.POST("/tasks/:id/correct", taskH.Correct)
	ts.engine = engine
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the envelope and its data into out
func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return raw.Response
}

func (ts *testServer) createMaterial(t *testing.T, code string, class ledger.MaterialClass) uuid.UUID {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/materials", ledgerapp.CreateMaterialRequest{Code: code, Name: code, Class: string(class), Unit: "kg"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m ledgerapp.MaterialResponse
	decode(t, rec, &m)
	return m.ID
}

func (ts *testServer) createMachine(t *testing.T, code string, dept plant.Department) uuid.UUID {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/machines", productionapp.CreateMachineRequest{Code: code, Department: string(dept)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m productionapp.MachineResponse
	decode(t, rec, &m)
	return m.ID
}
