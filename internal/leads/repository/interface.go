package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	FindByIdentity(ctx context.Context, taskID uuid.UUID, phone, email string) (Lead, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]Lead, error)
}

// LeadWriter provides the identity writes used by the resolver.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	UpdateIdentity(ctx context.Context, id uuid.UUID, params UpdateIdentityParams) (Lead, error)
}

// NotificationLedger tracks the at-most-once owner notification of a lead.
type NotificationLedger interface {
	SetRating(ctx context.Context, id uuid.UUID, rating int) error
	ClaimNotification(ctx context.Context, id uuid.UUID, until time.Time) (bool, error)
	ReleaseNotificationClaim(ctx context.Context, id uuid.UUID) error
	MarkNotified(ctx context.Context, id uuid.UUID) error
}

// LeadsRepository is the full repository surface.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	NotificationLedger
}

var _ LeadsRepository = (*Repository)(nil)
