package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("write without deadline")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaForwarder_Handle(t *testing.T) {
	writer := &fakeWriter{}
	serializer := NewEventSerializer()
	RegisterPlantEvents(serializer)
	f := NewKafkaForwarder(writer, serializer, nil)
	event := newMovementEvent()

	require.NoError(t, f.Handle(context.Background(), event))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, event.AggregateID().String(), string(msg.Key))
	assert.Equal(t, ledger.EventTypeMovementRecorded, header(msg, "event_type"))
	assert.Equal(t, event.EventID().String(), header(msg, "event_id"))

	decoded, err := serializer.Deserialize(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, event.EventID(), decoded.EventID())
}

func TestKafkaForwarder_WriteError(t *testing.T) {
	writer := &fakeWriter{err: kafka.LeaderNotAvailable}
	f := NewKafkaForwarder(writer, NewEventSerializer(), nil)

	err := f.Handle(context.Background(), newMovementEvent())
	assert.ErrorIs(t, err, kafka.LeaderNotAvailable)
	assert.ErrorContains(t, err, "kafka write MovementRecorded")
}

func TestKafkaForwarder_ReceivesEveryEventThroughBus(t *testing.T) {
	writer := &fakeWriter{}
	f := NewKafkaForwarder(writer, NewEventSerializer(), nil)
	assert.Nil(t, f.EventTypes())

	bus := NewInMemoryEventBus(nil)
	bus.Subscribe(NewIdempotentHandler(f, newMemoryStore(t), nil))

	event := newTestEvent("UnitStarted")
	require.NoError(t, bus.Publish(context.Background(), event, event, newTestEvent("OrderCreated")))
	assert.Len(t, writer.messages, 2, "the replayed event is forwarded once")

	require.NoError(t, f.Close())
	assert.True(t, writer.closed)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"kafka-1:9092", "kafka-2:9092"}, "fibc.domain-events")
	assert.Equal(t, "fibc.domain-events", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
