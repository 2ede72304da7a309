// Package realtime pushes domain events to connected browsers so department
// screens refresh without polling.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/fibc/backend/internal/domain/shared"
	"github.com/fibc/backend/internal/infrastructure/event"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans serialized events out to websocket clients. A client whose send
// buffer is full is disconnected rather than blocking the publisher.
type Hub struct {
	serializer *event.EventSerializer
	logger     *zap.Logger

	mu        sync.RWMutex
	clients   map[*client]struct{}
	broadcast chan []byte
	done      chan struct{}
}

// NewHub creates a hub; call Run to start delivering
func NewHub(serializer *event.EventSerializer, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		serializer: serializer,
		logger:     logger,
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run delivers broadcasts until ctx is cancelled, then disconnects every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.removeLocked(c)
			}
			h.mu.Unlock()
			return
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("realtime client too slow, disconnecting")
					h.removeLocked(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Done is closed when Run returns
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// AddClient takes ownership of conn and starts its pumps
func (h *Hub) AddClient(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

// BroadcastMessage queues msg for every client; drops it when the queue is full
func (h *Hub) BroadcastMessage(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("realtime broadcast queue full, dropping message")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// EventTypes returns nil; every event can change what a screen shows
func (h *Hub) EventTypes() []string {
	return nil
}

// Handle serializes the event and broadcasts it
func (h *Hub) Handle(ctx context.Context, e shared.DomainEvent) error {
	data, err := h.serializer.Serialize(e)
	if err != nil {
		return err
	}
	h.BroadcastMessage(data)
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readPump drains client frames so pongs and close frames are processed
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ shared.EventHandler = (*Hub)(nil)
