package visitor

import (
	"context"

	"github.com/google/uuid"
)

// SessionTask is what a tab needs to know about its task.
type SessionTask struct {
	ID              uuid.UUID
	Script          string
	OpeningQuestion string
}

// TaskLoader reads a task visible to the public funnel.
type TaskLoader interface {
	LoadSessionTask(ctx context.Context, taskID uuid.UUID) (SessionTask, error)
}

// Notifier runs the notification composer.
type Notifier interface {
	Notify(ctx context.Context, leadID uuid.UUID) error
	NotifyCompletion(ctx context.Context, taskID, leadID uuid.UUID, rating *int) error
}

// BeaconQueue hands a dispatch to the background worker.
type BeaconQueue interface {
	EnqueueDispatch(ctx context.Context, leadID uuid.UUID, trigger string) error
}
