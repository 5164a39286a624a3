package adapters

import (
	"context"

	"funnel_backend/internal/tasks/service"
	"funnel_backend/internal/visitor"
	"funnel_backend/platform/apperr"

	"github.com/google/uuid"
)

// VisitorTaskLoader adapts the task service for the visitor gateway. Hidden
// tasks look like missing ones.
type VisitorTaskLoader struct {
	tasks *service.Service
}

func NewVisitorTaskLoader(tasks *service.Service) *VisitorTaskLoader {
	return &VisitorTaskLoader{tasks: tasks}
}

func (a *VisitorTaskLoader) LoadSessionTask(ctx context.Context, taskID uuid.UUID) (visitor.SessionTask, error) {
	task, err := a.tasks.Get(ctx, taskID)
	if err != nil {
		return visitor.SessionTask{}, err
	}
	if !task.IsVisible {
		return visitor.SessionTask{}, apperr.NotFound("task not found")
	}
	return visitor.SessionTask{
		ID:              task.ID,
		Script:          task.Script,
		OpeningQuestion: task.OpeningQuestion,
	}, nil
}
