package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var emptyObject = []byte("{}")

// Event is one recorded domain occurrence.
type Event struct {
	ID          uuid.UUID
	Topic       string
	AggregateID uuid.UUID
	Payload     []byte
	OccurredAt  time.Time
}

// EventStore defines the persistence operations required by the event bus.
type EventStore interface {
	InsertEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error)
}

// Notifier reacts to emitted events (e.g. queueing receipts, alerts).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus persists domain events and fans them out to downstream handlers.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
}

// Emit records the event, then runs every notifier. Notifier failures are
// joined into the returned error but never undo the persisted event.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (Event, error) {
	if b == nil || b.Store == nil {
		return Event{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return Event{}, errors.New("events: topic is required")
	case aggregateID == uuid.Nil:
		return Event{}, errors.New("events: aggregate id is required")
	}

	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev, err := b.Store.InsertEvent(ctx, topic, aggregateID, encoded)
	if err != nil {
		return Event{}, fmt.Errorf("events: persist event: %w", err)
	}

	var notifyErrs error
	for _, n := range b.Notifiers {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			notifyErrs = errors.Join(notifyErrs, fmt.Errorf("events: notifier: %w", err))
		}
	}
	return ev, notifyErrs
}

// encodePayload normalises the payload to a JSON document. Raw bytes and
// strings must already be valid JSON; empty inputs become "{}".
func encodePayload(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return emptyObject, nil
	case []byte:
		return validateRaw(v)
	case json.RawMessage:
		return validateRaw(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return emptyObject, nil
		}
		return validateRaw([]byte(v))
	default:
		return json.Marshal(v)
	}
}

func validateRaw(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return emptyObject, nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), raw...), nil
}
