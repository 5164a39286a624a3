package repository

import (
	"context"

	"funnel_backend/internal/transcript"

	"github.com/google/uuid"
)

// ConversationStore persists one transcript per lead.
type ConversationStore interface {
	Upsert(ctx context.Context, leadID uuid.UUID, tr transcript.Transcript, summary *string) error
	GetByLeadID(ctx context.Context, leadID uuid.UUID) (Conversation, error)
	SetSummary(ctx context.Context, leadID uuid.UUID, summary string) error
}

var _ ConversationStore = (*Repository)(nil)
