package adapters

import (
	"context"
	"errors"
	"time"

	"funnel_backend/internal/leads/repository"
	"funnel_backend/internal/notification/ports"

	"github.com/google/uuid"
)

// NotificationLedger adapts the leads repository for the composer's
// at-most-once bookkeeping.
type NotificationLedger struct {
	repo *repository.Repository
}

func NewNotificationLedger(repo *repository.Repository) *NotificationLedger {
	return &NotificationLedger{repo: repo}
}

func (a *NotificationLedger) GetLead(ctx context.Context, id uuid.UUID) (ports.Lead, error) {
	lead, err := a.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ports.Lead{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Lead{}, err
	}
	return ports.Lead{
		ID:       lead.ID,
		TaskID:   lead.TaskID,
		Name:     deref(lead.Name),
		Phone:    lead.Phone,
		Email:    deref(lead.Email),
		Rating:   lead.Rating,
		Notified: lead.Notified,
	}, nil
}

func (a *NotificationLedger) SetRating(ctx context.Context, id uuid.UUID, rating int) error {
	err := a.repo.SetRating(ctx, id, rating)
	if errors.Is(err, repository.ErrNotFound) {
		return ports.ErrNotFound
	}
	return err
}

func (a *NotificationLedger) ClaimNotification(ctx context.Context, id uuid.UUID, until time.Time) (bool, error) {
	return a.repo.ClaimNotification(ctx, id, until)
}

func (a *NotificationLedger) ReleaseNotificationClaim(ctx context.Context, id uuid.UUID) error {
	return a.repo.ReleaseNotificationClaim(ctx, id)
}

func (a *NotificationLedger) MarkNotified(ctx context.Context, id uuid.UUID) error {
	return a.repo.MarkNotified(ctx, id)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ ports.LeadLedger = (*NotificationLedger)(nil)
