package handler

import (
	"net/http"

	"github.com/fibc/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ClientRegistry accepts upgraded websocket connections
type ClientRegistry interface {
	AddClient(conn *websocket.Conn)
}

// RealtimeHandler upgrades authenticated requests to the event stream
type RealtimeHandler struct {
	BaseHandler
	hub      ClientRegistry
	upgrader websocket.Upgrader
}

// NewRealtimeHandler creates a handler. An empty allowedOrigins accepts only
// same-origin connections.
func NewRealtimeHandler(hub ClientRegistry, allowedOrigins []string) *RealtimeHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = struct{}{}
	}
	h := &RealtimeHandler{hub: hub}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || wildcard {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			return origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
	return h
}

// Stream GET /ws
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if _, ok := h.caller(c); !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		logger.L(c.Request.Context()).Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.AddClient(conn)
}
