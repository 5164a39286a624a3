package adapters

import (
	"context"

	"funnel_backend/internal/capture"
	"funnel_backend/internal/conversations/service"
	"funnel_backend/internal/notification/ports"
	"funnel_backend/internal/transcript"

	"github.com/google/uuid"
)

// ConversationStore adapts the conversation service for both the capture
// session's saver and the notification composer.
type ConversationStore struct {
	conversations *service.Service
}

func NewConversationStore(conversations *service.Service) *ConversationStore {
	return &ConversationStore{conversations: conversations}
}

func (a *ConversationStore) Save(ctx context.Context, leadID uuid.UUID, tr transcript.Transcript) error {
	return a.conversations.Save(ctx, leadID, tr, "")
}

func (a *ConversationStore) GetTranscript(ctx context.Context, leadID uuid.UUID) (transcript.Transcript, error) {
	conv, err := a.conversations.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return conv.Transcript, nil
}

func (a *ConversationStore) SetSummary(ctx context.Context, leadID uuid.UUID, summary string) error {
	return a.conversations.SetSummary(ctx, leadID, summary)
}

var (
	_ capture.ConversationSaver = (*ConversationStore)(nil)
	_ ports.Conversations       = (*ConversationStore)(nil)
)
