package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/interfaces/http/dto"
	"github.com/fibc/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB_PingAndQuery(t *testing.T) {
	db := NewMockDB(t)

	db.Mock.ExpectPing()
	require.NoError(t, db.SqlDB.Ping())

	db.Mock.ExpectQuery(`SELECT count\(\*\) FROM "material_units"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	var n int64
	require.NoError(t, db.DB.Table("material_units").Count(&n).Error)
	assert.Equal(t, int64(3), n)
}

func TestTestContext(t *testing.T) {
	tc := NewTestContext(t, http.MethodPost, "/api/v1/units/R-1/complete")
	assert.Equal(t, http.MethodPost, tc.Context.Request.Method)

	tc.SetRequestID("req-123")
	assert.Equal(t, "req-123", middleware.GetRequestID(tc.Context))

	tc.SetParam("id", "R-1")
	assert.Equal(t, "R-1", tc.Context.Param("id"))

	tc.SetCaller(OperatorCaller(plant.DepartmentSewing))
	caller, ok := middleware.GetCaller(tc.Context)
	require.True(t, ok)
	assert.Equal(t, identity.RoleOperator, caller.Role)
	assert.Equal(t, []plant.Department{plant.DepartmentSewing}, caller.Departments)

	tc.Context.JSON(http.StatusAccepted, gin.H{"ok": true})
	assert.Equal(t, http.StatusAccepted, tc.ResponseCode())
	assert.JSONEq(t, `{"ok":true}`, string(tc.ResponseBody()))
}

func TestNewTestContext_CustomRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/shifts/S-1", nil)
	tc := NewTestContext(t, "", "", req)
	assert.Same(t, req, tc.Context.Request)
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("roll"), NewTestUUID("roll"))
	assert.NotEqual(t, NewTestUUID("roll"), NewTestUUID("order"))
}

func TestPlantCallers(t *testing.T) {
	admin := AdminCaller()
	assert.True(t, admin.CanDelete())
	assert.Equal(t, AdminCaller().UserID, admin.UserID)

	manager := ManagerCaller()
	assert.False(t, manager.CanDelete())
	assert.NotEqual(t, admin.UserID, manager.UserID)

	operator := OperatorCaller(plant.DepartmentCutting)
	assert.False(t, operator.CanDelete())
	assert.True(t, operator.CanOperateDepartment(plant.DepartmentCutting))
	assert.False(t, operator.CanOperateDepartment(plant.DepartmentWeaving))
}

func newEnvelopeEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/rolls/:id", func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.ErrCodeUnauthorized, "missing token"))
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"id": c.Param("id"), "number": "WEV-20250301-0001"}))
	})
	engine.DELETE("/rolls/:id", func(c *gin.Context) {
		resp := dto.NewErrorResponse(dto.ErrCodeReferentialConflict, "roll is referenced")
		resp.Error.Conflict = &dto.ConflictDetail{Entity: "material_unit", ID: c.Param("id"), Category: "consumption", Count: 2}
		c.JSON(http.StatusConflict, resp)
	})
	return engine
}

func TestAPIClient_Do(t *testing.T) {
	var issued []string
	client := &APIClient{
		Engine: newEnvelopeEngine(),
		Issue: func(caller identity.Caller) (string, error) {
			issued = append(issued, caller.Username)
			return "token-" + caller.Username, nil
		},
	}
	admin := AdminCaller()

	t.Run("anonymous", func(t *testing.T) {
		w, resp := client.Do(t, nil, http.MethodGet, "/rolls/r1", nil)
		AssertErrorCode(t, w, resp, http.StatusUnauthorized, dto.ErrCodeUnauthorized)
	})

	t.Run("authenticated", func(t *testing.T) {
		w, resp := client.Do(t, &admin, http.MethodGet, "/rolls/r1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)
		assert.Equal(t, "r1", DataID(t, resp))
		assert.Equal(t, "WEV-20250301-0001", DataField(t, resp, "number"))
	})

	t.Run("conflict detail", func(t *testing.T) {
		w, resp := client.Do(t, &admin, http.MethodDelete, "/rolls/r1", map[string]string{"reason": "cleanup"})
		AssertConflict(t, w, resp, "consumption", 2)
	})

	assert.Len(t, issued, 2)
}

func TestJSONResponseAs(t *testing.T) {
	type Response struct {
		Key string `json:"key"`
	}

	tc := NewTestContext(t, http.MethodGet, "/")
	tc.Context.JSON(http.StatusOK, gin.H{"key": "value"})

	resp := JSONResponseAs[Response](t, tc)
	assert.Equal(t, "value", resp.Key)
}

func TestToJSONReader(t *testing.T) {
	reader := ToJSONReader(t, map[string]string{"key": "value"})
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"value"}`, string(data))
}
