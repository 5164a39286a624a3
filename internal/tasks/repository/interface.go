package repository

import (
	"context"

	"github.com/google/uuid"
)

// TaskReader provides read-only access to tasks and their owners.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Task, error)
	GetOwnerEmail(ctx context.Context, ownerID uuid.UUID) (string, error)
}

var _ TaskReader = (*Repository)(nil)
