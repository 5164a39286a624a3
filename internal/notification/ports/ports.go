// Package ports defines what the notification composer needs from other
// bounded contexts. Adapters in internal/adapters implement them.
package ports

import (
	"context"
	"errors"
	"strings"
	"time"

	"funnel_backend/internal/transcript"

	"github.com/google/uuid"
)

// ErrNotFound is returned by adapters when the requested lead or task does
// not exist.
var ErrNotFound = errors.New("not found")

// Lead is the composer's view of a lead.
type Lead struct {
	ID       uuid.UUID
	TaskID   uuid.UUID
	Name     string
	Phone    string
	Email    string
	Rating   *int
	Notified bool
}

// LeadLedger reads leads and records the at-most-once notification.
type LeadLedger interface {
	GetLead(ctx context.Context, id uuid.UUID) (Lead, error)
	SetRating(ctx context.Context, id uuid.UUID, rating int) error
	ClaimNotification(ctx context.Context, id uuid.UUID, until time.Time) (bool, error)
	ReleaseNotificationClaim(ctx context.Context, id uuid.UUID) error
	MarkNotified(ctx context.Context, id uuid.UUID) error
}

// Target is where a task's lead notifications go.
type Target struct {
	TaskID      uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	NotifyEmail string
	OwnerEmail  string
}

// Recipient returns the task's notify address, falling back to the owner's
// account email. Blank addresses count as unset; empty when neither is set.
func (t Target) Recipient() string {
	if email := strings.TrimSpace(t.NotifyEmail); email != "" {
		return email
	}
	return strings.TrimSpace(t.OwnerEmail)
}

type TaskTargets interface {
	GetNotificationTarget(ctx context.Context, taskID uuid.UUID) (Target, error)
}

// Conversations reads transcripts and stores the analyzer's summary.
type Conversations interface {
	GetTranscript(ctx context.Context, leadID uuid.UUID) (transcript.Transcript, error)
	SetSummary(ctx context.Context, leadID uuid.UUID, summary string) error
}

// Analysis is the owner-facing digest of a conversation.
type Analysis struct {
	Summary  string
	Pains    []string
	Benefits []string
	Script   string
}

type Analyzer interface {
	Analyze(ctx context.Context, leadID uuid.UUID, tr transcript.Transcript) (Analysis, error)
}

// Archiver stores a copy of a notified conversation outside the database.
type Archiver interface {
	ArchiveTranscript(ctx context.Context, taskID, leadID uuid.UUID, tr transcript.Transcript) error
}
