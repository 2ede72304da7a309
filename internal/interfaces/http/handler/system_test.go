package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/interfaces/http/middleware"
	"github.com/fibc/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status int
		body   string
	}{
		{name: "healthy", db: fakePinger{}, status: http.StatusOK, body: `"database":"ok"`},
		{name: "database down", db: fakePinger{err: errors.New("refused")}, status: http.StatusServiceUnavailable, body: `"unreachable"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			engine.GET("/health", NewSystemHandler(tt.db, "test").Health)

			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestSystemHandler_HealthPingsDatabase(t *testing.T) {
	db := testutil.NewMockDB(t)
	db.Mock.ExpectPing()
	db.Mock.ExpectPing().WillReturnError(errors.New("connection reset"))

	engine := gin.New()
	engine.GET("/health", NewSystemHandler(db.SqlDB, "test").Health)

	for _, want := range []int{http.StatusOK, http.StatusServiceUnavailable} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, want, rec.Code)
	}
}

func TestSystemHandler_Info(t *testing.T) {
	engine := gin.New()
	engine.GET("/info", NewSystemHandler(nil, "1.2.3").Info)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"1.2.3"`)
}

type recordingRegistry struct {
	mu    sync.Mutex
	conns []*websocket.Conn
}

func (r *recordingRegistry) AddClient(conn *websocket.Conn) {
	r.mu.Lock()
	r.conns = append(r.conns, conn)
	r.mu.Unlock()
}

func (r *recordingRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func TestRealtimeHandler_Stream(t *testing.T) {
	registry := &recordingRegistry{}
	var anonymous atomic.Bool

	engine := gin.New()
	engine.GET("/ws", func(c *gin.Context) {
		if !anonymous.Load() {
			c.Set(middleware.CallerKey, identity.NewCaller(uuid.New(), "viewer", identity.RoleQC))
		}
		c.Next()
	}, NewRealtimeHandler(registry, []string{"https://plant.example"}).Stream)
	srv := httptest.NewServer(engine)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	t.Run("allowed origin is upgraded", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://plant.example"}}
		conn, _, err := websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err)
		defer conn.Close()
		require.Eventually(t, func() bool { return registry.count() == 1 }, time.Second, 10*time.Millisecond)
	})

	t.Run("foreign origin is refused", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://evil.example"}}
		_, resp, err := websocket.DefaultDialer.Dial(url, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unauthenticated is refused before upgrade", func(t *testing.T) {
		anonymous.Store(true)
		defer anonymous.Store(false)
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
