// Package events publishes domain events to a broker. Publishing is
// best-effort: callers log and count failures, they never fail a request
// because of one.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const TypeOrderPlaced = "order.placed"

// Event is the envelope written to every driver.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// New builds an envelope around data. Key orders events for the same
// aggregate (the order id for order events).
func New(eventType, key string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Noop discards events. Used when EVENTS_DRIVER=none.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }
