package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEventHandler_Records(t *testing.T) {
	h := NewMockEventHandler("UnitStarted", "UnitCompleted")
	assert.Equal(t, []string{"UnitStarted", "UnitCompleted"}, h.EventTypes())

	started := NewTestEvent("UnitStarted")
	require.NoError(t, h.Handle(context.Background(), started))
	require.NoError(t, h.Handle(context.Background(), NewTestEvent("UnitCompleted")))
	require.NoError(t, h.Handle(context.Background(), NewTestEvent("UnitCompleted")))

	assert.Same(t, started, h.Handled()[0])
	assert.Equal(t, []string{"UnitStarted", "UnitCompleted", "UnitCompleted"}, h.HandledTypes())
	assert.Equal(t, 2, h.CountOf("UnitCompleted"))
	assert.Zero(t, h.CountOf("UnitConsumed"))
}

func TestMockEventHandler_FailWithAndReset(t *testing.T) {
	h := NewMockEventHandler()
	h.FailWith(assert.AnError)

	err := h.Handle(context.Background(), NewTestEvent("TaskStarted"))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, h.Handled(), 1, "failed deliveries are still recorded")

	h.Reset()
	assert.Empty(t, h.Handled())
	assert.NoError(t, h.Handle(context.Background(), NewTestEvent("TaskStarted")))
}

func TestNewTestEvent(t *testing.T) {
	id := NewTestUUID("event")
	event := NewTestEventWithID(id, "MovementRecorded")

	assert.Equal(t, id, event.EventID())
	assert.Equal(t, "MovementRecorded", event.EventType())
	assert.Equal(t, "MaterialUnit", event.AggregateType())
	assert.NotEqual(t, uuid.Nil, event.AggregateID())
	assert.False(t, event.OccurredAt().IsZero())
}
