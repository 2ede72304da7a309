package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MockEventHandler records every event the bus delivers to it.
type MockEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewMockEventHandler subscribes to eventTypes; none means every type.
func NewMockEventHandler(eventTypes ...string) *MockEventHandler {
	return &MockEventHandler{eventTypes: eventTypes}
}

func (h *MockEventHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns a copy of the delivered events.
func (h *MockEventHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

// HandledTypes returns the event types in arrival order.
func (h *MockEventHandler) HandledTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	types := make([]string, len(h.handled))
	for i, e := range h.handled {
		types[i] = e.EventType()
	}
	return types
}

// CountOf returns how many events of eventType were delivered.
func (h *MockEventHandler) CountOf(eventType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.handled {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

// FailWith makes subsequent Handle calls return err after recording.
func (h *MockEventHandler) FailWith(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *MockEventHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = nil
	h.err = nil
}

// NewTestEvent builds a bare event on a material unit aggregate.
func NewTestEvent(eventType string) *shared.BaseDomainEvent {
	return NewTestEventWithID(uuid.New(), eventType)
}

func NewTestEventWithID(eventID uuid.UUID, eventType string) *shared.BaseDomainEvent {
	return &shared.BaseDomainEvent{
		ID:        eventID,
		Type:      eventType,
		Timestamp: time.Now(),
		AggID:     uuid.New(),
		AggType:   "MaterialUnit",
	}
}
