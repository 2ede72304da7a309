package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fibc/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup_AppliesMiddleware(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithMiddleware(func(c *gin.Context) {
		c.Header("X-Guard", "on")
		c.Next()
	}))

	group := NewDomainGroup("units", "/units")
	group.GET("/:id", func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("id"))
	})
	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/units/R-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "R-1", w.Body.String())
	assert.Equal(t, "on", w.Header().Get("X-Guard"))
}

func TestDomainGroup_MethodsAndSubgroups(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("orders", "/orders")
	assert.Equal(t, "orders", g.Name())
	assert.Equal(t, "/orders", g.Prefix())

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	g.GET("", ok).POST("", ok).PUT("/:id", ok).PATCH("/:id", ok).DELETE("/:id", ok)
	g.Group("tasks", "/:id/tasks").GET("", ok)
	g.Use(func(c *gin.Context) {
		c.Header("X-Group", "orders")
		c.Next()
	})
	g.RegisterRoutes(engine.Group("/api/v1"))

	cases := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodPut, "/api/v1/orders/1"},
		{http.MethodPatch, "/api/v1/orders/1"},
		{http.MethodDelete, "/api/v1/orders/1"},
		{http.MethodGet, "/api/v1/orders/1/tasks"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusOK, w.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "orders", w.Header().Get("X-Group"))
	}
}

func TestRegisterPlant(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	RegisterPlant(r, Handlers{
		Ledger:   handler.NewLedgerHandler(nil),
		Machines: handler.NewMachineHandler(nil),
		Shifts:   handler.NewShiftHandler(nil),
		Units:    handler.NewUnitHandler(nil),
		Orders:   handler.NewOrderHandler(nil),
		Tasks:    handler.NewTaskHandler(nil),
		Realtime: handler.NewRealtimeHandler(nil, nil),
		System:   handler.NewSystemHandler(nil, "test"),
	}).Setup()

	routes := map[string]bool{}
	for _, ri := range engine.Routes() {
		routes[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/movements",
		"DELETE /api/v1/movements/:id",
		"GET /api/v1/balances/classes/:class",
		"POST /api/v1/materials/:id/reconcile",
		"POST /api/v1/units/:id/transfer",
		"POST /api/v1/units/:id/consume",
		"DELETE /api/v1/units/:id",
		"POST /api/v1/shifts/:id/close",
		"POST /api/v1/orders/preview",
		"POST /api/v1/orders/:id/recalculate",
		"PUT /api/v1/product-specs",
		"POST /api/v1/tasks/:id/correct",
		"PUT /api/v1/tasks/:id/excluded",
		"GET /api/v1/departments/:department/tasks",
		"GET /api/v1/ws",
		"GET /api/v1/system/info",
	} {
		require.True(t, routes[want], "missing route %s", want)
	}
}

func TestDomainGroup_Paths(t *testing.T) {
	ok := func(c *gin.Context) {}
	g := NewDomainGroup("units", "/units")
	g.GET("", ok).POST("/:id/transfer", ok)
	g.Group("history", "/:id/history").GET("", ok)

	assert.Equal(t, []string{
		"GET /units",
		"POST /units/:id/transfer",
		"GET /units/:id/history",
	}, g.Paths())
}
