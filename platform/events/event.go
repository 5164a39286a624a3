// Package events is the in-process bus that lets the capture path announce a
// lead without knowing who reacts to it.
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus. Names are dotted,
// context first: "leads.lead.captured".
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events for the timestamp.
type BaseEvent struct {
	At time.Time `json:"occurred_at"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.At
}

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{At: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a closure subscribe.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus delivers events by name. Publish runs handlers in the background and
// only logs their errors; PublishSync waits and joins them.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	// Subscribe matches on Event.EventName.
	Subscribe(eventName string, handler Handler)
}
