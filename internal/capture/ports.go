package capture

import (
	"context"
	"errors"
	"strings"

	"funnel_backend/internal/transcript"

	"github.com/google/uuid"
)

// Identity is the contact triple collected by the capture flow.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Complete reports whether all three fields are present.
func (i Identity) Complete() bool {
	return strings.TrimSpace(i.Name) != "" && strings.TrimSpace(i.Email) != "" && strings.TrimSpace(i.Phone) != ""
}

// ChatResponder produces the agent's reply to a visitor message.
type ChatResponder interface {
	Reply(ctx context.Context, script string, history transcript.Transcript, message string) (string, error)
}

// LeadResolver materializes the lead for an identity. Both methods return
// uuid.Nil when there is nothing to return.
type LeadResolver interface {
	Resolve(ctx context.Context, taskID uuid.UUID, id Identity) (uuid.UUID, error)
	FindByIdentity(ctx context.Context, taskID uuid.UUID, id Identity) (uuid.UUID, error)
}

// ConversationSaver persists the full transcript of a lead.
type ConversationSaver interface {
	Save(ctx context.Context, leadID uuid.UUID, tr transcript.Transcript) error
}

// IdentityCache remembers a visitor's identity per browser profile so the
// same device is never asked twice.
type IdentityCache interface {
	Get(ctx context.Context, profile string) (Identity, bool, error)
	Put(ctx context.Context, profile string, id Identity) error
}

var errEmptyReply = errors.New("chat responder returned an empty reply")
