package adapters

import (
	"context"

	"funnel_backend/internal/notification/service"
	"funnel_backend/internal/scheduler"
	"funnel_backend/internal/visitor"

	"github.com/google/uuid"
)

// NotificationDispatcher exposes the composer to the visitor gateway and the
// background worker.
type NotificationDispatcher struct {
	svc *service.Service
}

func NewNotificationDispatcher(svc *service.Service) *NotificationDispatcher {
	return &NotificationDispatcher{svc: svc}
}

func (a *NotificationDispatcher) Notify(ctx context.Context, leadID uuid.UUID) error {
	_, err := a.svc.Dispatch(ctx, leadID)
	return err
}

func (a *NotificationDispatcher) NotifyCompletion(ctx context.Context, taskID, leadID uuid.UUID, rating *int) error {
	_, err := a.svc.Complete(ctx, taskID, leadID, rating)
	return err
}

// DispatchLead ignores the trigger; every trigger sends the same notification.
func (a *NotificationDispatcher) DispatchLead(ctx context.Context, leadID uuid.UUID, _ string) error {
	return a.Notify(ctx, leadID)
}

var (
	_ visitor.Notifier     = (*NotificationDispatcher)(nil)
	_ scheduler.Dispatcher  = (*NotificationDispatcher)(nil)
)
