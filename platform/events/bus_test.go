package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"funnel_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }

func TestPublishRunsAllHandlers(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, e Event) error {
			calls.Add(1)
			return nil
		}))
	}

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if calls.Load() != 3 {
		t.Fatalf("expected 3 handler calls, got %d", calls.Load())
	}
}

func TestPublishSurvivesCanceledPublisherContext(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var sawCanceled atomic.Bool
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, e Event) error {
		sawCanceled.Store(ctx.Err() != nil)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if sawCanceled.Load() {
		t.Fatal("expected handler context to be detached from publisher cancellation")
	}
}

func TestPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	boom := errors.New("boom")
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, e Event) error { return boom }))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, e Event) error { return nil }))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
}

func TestNewBaseEventIsUTC(t *testing.T) {
	e := testEvent{BaseEvent: NewBaseEvent()}
	if e.OccurredAt().IsZero() || e.OccurredAt().Location() != time.UTC {
		t.Fatalf("expected a UTC timestamp, got %v", e.OccurredAt())
	}
}
