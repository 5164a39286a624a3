// Package service implements the conversation store: one upserted transcript
// per lead, last writer wins.
package service

import (
	"context"
	"errors"
	"strings"

	"funnel_backend/internal/conversations/repository"
	"funnel_backend/internal/transcript"
	"funnel_backend/platform/apperr"

	"github.com/google/uuid"
)

// LeadOwnership resolves which owner may read a lead's conversation.
type LeadOwnership interface {
	OwnerOfLead(ctx context.Context, leadID uuid.UUID) (uuid.UUID, error)
}

type Service struct {
	repo   repository.ConversationStore
	owners LeadOwnership
}

func New(repo repository.ConversationStore, owners LeadOwnership) *Service {
	return &Service{repo: repo, owners: owners}
}

// Save stores the complete transcript for a lead. An empty summary leaves the
// stored summary untouched.
func (s *Service) Save(ctx context.Context, leadID uuid.UUID, tr transcript.Transcript, summary string) error {
	if !tr.Valid() {
		return apperr.Validation("transcript contains an unknown speaker")
	}
	var sum *string
	if trimmed := strings.TrimSpace(summary); trimmed != "" {
		sum = &trimmed
	}
	err := s.repo.Upsert(ctx, leadID, tr, sum)
	if errors.Is(err, repository.ErrLeadNotFound) {
		return apperr.NotFound("lead not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to save conversation", err)
	}
	return nil
}

// Get returns the stored conversation. A lead without one yields an empty
// transcript rather than an error.
func (s *Service) Get(ctx context.Context, leadID uuid.UUID) (repository.Conversation, error) {
	conv, err := s.repo.GetByLeadID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Conversation{LeadID: leadID, Transcript: transcript.Transcript{}}, nil
	}
	if err != nil {
		return repository.Conversation{}, apperr.Wrap(apperr.KindInternal, "failed to load conversation", err)
	}
	return conv, nil
}

// SetSummary records the analyzer's summary.
func (s *Service) SetSummary(ctx context.Context, leadID uuid.UUID, summary string) error {
	err := s.repo.SetSummary(ctx, leadID, summary)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("conversation not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to store summary", err)
	}
	return nil
}

// GetForOwner returns a conversation if ownerID owns the lead's task.
func (s *Service) GetForOwner(ctx context.Context, leadID, ownerID uuid.UUID) (repository.Conversation, error) {
	owner, err := s.owners.OwnerOfLead(ctx, leadID)
	if err != nil {
		return repository.Conversation{}, err
	}
	if owner != ownerID {
		return repository.Conversation{}, apperr.Forbidden("lead belongs to another owner")
	}
	return s.Get(ctx, leadID)
}
