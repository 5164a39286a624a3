package visitor

import (
	"context"
	"log/slog"
	"time"

	"funnel_backend/internal/arbiter"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
)

const beaconTimeout = 2 * time.Minute

// delivery carries a tab's fired trigger to the composer. Beacons must not
// depend on the tab's connection, so they go through the job queue or a
// detached goroutine.
type delivery struct {
	taskID   uuid.UUID
	notifier Notifier
	queue    BeaconQueue
	log      *logger.Logger
}

var _ arbiter.Dispatcher = (*delivery)(nil)

func (d *delivery) Beacon(p arbiter.Payload) {
	if d.queue != nil && p.Rating == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := d.queue.EnqueueDispatch(ctx, p.LeadID, string(p.Trigger))
		if err == nil {
			return
		}
		d.log.Warn("beacon enqueue failed, dispatching inline",
			slog.String("lead_id", p.LeadID.String()),
			slog.String("error", err.Error()),
		)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
		defer cancel()
		if err := d.send(ctx, p); err != nil {
			d.log.Warn("beacon dispatch failed",
				slog.String("lead_id", p.LeadID.String()),
				slog.String("trigger", string(p.Trigger)),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (d *delivery) Request(ctx context.Context, p arbiter.Payload) error {
	return d.send(ctx, p)
}

func (d *delivery) send(ctx context.Context, p arbiter.Payload) error {
	if p.Trigger == arbiter.TriggerCompletion {
		return d.notifier.NotifyCompletion(ctx, d.taskID, p.LeadID, p.Rating)
	}
	return d.notifier.Notify(ctx, p.LeadID)
}
