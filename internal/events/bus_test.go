package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-aurum/internal/events"
)

type memStore struct {
	inserted []events.Event
	failNext error
}

func (m *memStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return events.Event{}, err
	}
	ev := events.Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	m.inserted = append(m.inserted, ev)
	return ev, nil
}

type recordingNotifier struct {
	events []events.Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, ev events.Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	bus := &events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	aggregate := uuid.New()
	ev, err := bus.Emit(context.Background(), events.TopicSaleCommitted, aggregate, map[string]any{"invoiceNumber": "1001"})
	require.NoError(t, err)
	require.Equal(t, events.TopicSaleCommitted, ev.Topic)
	require.Equal(t, aggregate, ev.AggregateID)
	require.JSONEq(t, `{"invoiceNumber":"1001"}`, string(ev.Payload))

	require.Len(t, store.inserted, 1)
	require.Len(t, notifier.events, 1)
	require.Equal(t, ev.ID, notifier.events[0].ID)
}

func TestEmitNotifierFailureKeepsEvent(t *testing.T) {
	store := &memStore{}
	failing := &recordingNotifier{err: errors.New("queue down")}
	healthy := &recordingNotifier{}
	bus := &events.Bus{Store: store, Notifiers: []events.Notifier{failing, healthy}}

	_, err := bus.Emit(context.Background(), events.TopicStockDepleted, uuid.New(), nil)
	require.Error(t, err)
	require.Len(t, store.inserted, 1, "notifier failure must not undo the persisted event")
	require.Len(t, healthy.events, 1, "remaining notifiers still run")
}

func TestEmitStoreFailure(t *testing.T) {
	store := &memStore{failNext: errors.New("db down")}
	bus := &events.Bus{Store: store}

	_, err := bus.Emit(context.Background(), events.TopicSaleCommitted, uuid.New(), nil)
	require.Error(t, err)
	require.Empty(t, store.inserted)
}

func TestEmitValidation(t *testing.T) {
	bus := &events.Bus{Store: &memStore{}}
	ctx := context.Background()

	_, err := bus.Emit(ctx, "  ", uuid.New(), nil)
	require.Error(t, err)

	_, err = bus.Emit(ctx, events.TopicSaleCommitted, uuid.Nil, nil)
	require.Error(t, err)
}

func TestEmitPayloadEncodings(t *testing.T) {
	store := &memStore{}
	bus := &events.Bus{Store: store}
	ctx := context.Background()
	aggregate := uuid.New()

	cases := []struct {
		name    string
		payload any
		want    string
	}{
		{"nil", nil, `{}`},
		{"raw bytes", []byte(`{"n":1}`), `{"n":1}`},
		{"string", `{"n":2}`, `{"n":2}`},
		{"empty string", "   ", `{}`},
		{"struct", struct {
			N int `json:"n"`
		}{N: 3}, `{"n":3}`},
	}
	for _, c := range cases {
		ev, err := bus.Emit(ctx, "test.topic", aggregate, c.payload)
		require.NoError(t, err, c.name)
		require.JSONEq(t, c.want, string(ev.Payload), c.name)
	}

	_, err := bus.Emit(ctx, "test.topic", aggregate, []byte("not json"))
	require.Error(t, err)
}
