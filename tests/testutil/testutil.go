// Package testutil holds helpers shared by plant backend tests: a sqlmock
// backed GORM handle, gin contexts carrying an authenticated caller,
// deterministic callers and an in-process API client.
package testutil

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB is a postgres-dialect GORM handle over sqlmock. Pings are monitored,
// so health checks must be expected explicitly.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB opens a MockDB and closes it when the test ends. Unmet
// expectations fail the test at cleanup.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet(), "unmet database expectations")
		_ = sqlDB.Close()
	})
	return &MockDB{DB: db, Mock: mock, SqlDB: sqlDB}
}

// TestContext is a gin context bound to a recorder, for calling a handler directly.
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
}

// NewTestContext builds a context for method and path. Pass a request to
// override both.
func NewTestContext(t *testing.T, method, path string, req ...*http.Request) *TestContext {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if len(req) > 0 && req[0] != nil {
		c.Request = req[0]
	} else {
		c.Request = httptest.NewRequest(method, path, nil)
	}
	return &TestContext{Context: c, Recorder: w}
}

func (tc *TestContext) SetRequestID(id string) {
	tc.Context.Set(middleware.RequestIDKey, id)
}

// SetCaller stores caller the way the JWT middleware does.
func (tc *TestContext) SetCaller(caller identity.Caller) {
	tc.Context.Set(middleware.CallerKey, caller)
}

// SetParam sets a path parameter such as ":id".
func (tc *TestContext) SetParam(key, value string) {
	tc.Context.Params = append(tc.Context.Params, gin.Param{Key: key, Value: value})
}

func (tc *TestContext) ResponseBody() []byte {
	return tc.Recorder.Body.Bytes()
}

func (tc *TestContext) ResponseCode() int {
	return tc.Recorder.Code
}

var testNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID derives a stable UUID from seed.
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(testNamespace, []byte(seed))
}

// AdminCaller returns an administrator with a deterministic ID.
func AdminCaller() identity.Caller {
	return identity.NewCaller(NewTestUUID("admin"), "admin", identity.RoleAdmin)
}

// ManagerCaller returns a planner: orders yes, deletes no.
func ManagerCaller() identity.Caller {
	return identity.NewCaller(NewTestUUID("manager"), "manager", identity.RoleManager)
}

// OperatorCaller returns an operator assigned to depts.
func OperatorCaller(depts ...plant.Department) identity.Caller {
	return identity.NewCaller(NewTestUUID("operator"), "operator", identity.RoleOperator, depts...)
}
