// Package ports declares what the leads context needs from other contexts.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// TaskDirectory resolves task ownership. OwnerOf returns an apperr NotFound
// error for unknown tasks, which doubles as the existence check.
type TaskDirectory interface {
	OwnerOf(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error)
}

// AbandonmentScheduler arranges the server-side safety net notification for
// a newly captured lead.
type AbandonmentScheduler interface {
	ScheduleAbandonmentCheck(ctx context.Context, leadID uuid.UUID) error
}
