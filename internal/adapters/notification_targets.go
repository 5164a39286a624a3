package adapters

import (
	"context"
	"fmt"

	"funnel_backend/internal/notification/ports"
	"funnel_backend/internal/tasks/repository"
	"funnel_backend/internal/tasks/service"
	"funnel_backend/platform/apperr"

	"github.com/google/uuid"
)

// NotificationTargets resolves where a task's lead notifications go.
type NotificationTargets struct {
	tasks *service.Service
	repo  *repository.Repository
}

func NewNotificationTargets(tasks *service.Service, repo *repository.Repository) *NotificationTargets {
	return &NotificationTargets{tasks: tasks, repo: repo}
}

func (a *NotificationTargets) GetNotificationTarget(ctx context.Context, taskID uuid.UUID) (ports.Target, error) {
	task, err := a.tasks.Get(ctx, taskID)
	if apperr.Is(err, apperr.KindNotFound) {
		return ports.Target{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Target{}, err
	}

	ownerEmail, err := a.repo.GetOwnerEmail(ctx, task.OwnerID)
	if err != nil {
		return ports.Target{}, fmt.Errorf("load owner email: %w", err)
	}

	return ports.Target{
		TaskID:      task.ID,
		OwnerID:     task.OwnerID,
		Title:       task.Title,
		NotifyEmail: deref(task.NotifyEmail),
		OwnerEmail:  ownerEmail,
	}, nil
}

var _ ports.TaskTargets = (*NotificationTargets)(nil)
