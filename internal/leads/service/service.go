// Package service implements the lead resolver: merging identity submissions
// under one task into a single lead.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"funnel_backend/internal/events"
	"funnel_backend/internal/identity"
	"funnel_backend/internal/leads/ports"
	"funnel_backend/internal/leads/repository"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/db"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/metrics"
	"funnel_backend/platform/phone"
	"funnel_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgLeadNotFound = "lead not found"
	msgInvalidPhone = "invalid phone number"
	msgInvalidEmail = "invalid email address"
)

// ResolveParams is one identity submission.
type ResolveParams struct {
	TaskID uuid.UUID
	Name   string
	Phone  string
	Email  string
}

// ResolveResult carries the canonical lead and whether it already existed.
type ResolveResult struct {
	Lead       repository.Lead
	WasUpdated bool
}

type Service struct {
	repo    repository.LeadsRepository
	tasks   ports.TaskDirectory
	bus     events.Bus
	log     *logger.Logger
	metrics *metrics.Recorder
}

func New(repo repository.LeadsRepository, tasks ports.TaskDirectory, bus events.Bus, log *logger.Logger, rec *metrics.Recorder) *Service {
	return &Service{repo: repo, tasks: tasks, bus: bus, log: log, metrics: rec}
}

// NormalizePhone strips separators and formats the number as E.164 so every
// spelling of one number maps to the same stored key.
func NormalizePhone(raw string) string {
	return phone.NormalizeE164(identity.StripPhone(raw))
}

func normalizeEmail(raw string) string {
	return strings.TrimSpace(raw)
}

// Resolve finds-or-creates the lead for an identity submission.
func (s *Service) Resolve(ctx context.Context, params ResolveParams) (ResolveResult, error) {
	if _, err := s.tasks.OwnerOf(ctx, params.TaskID); err != nil {
		return ResolveResult{}, err
	}
	if !identity.IsValidPhone(params.Phone) {
		return ResolveResult{}, apperr.Validation(msgInvalidPhone).WithDetails(map[string]string{"phone": "funnel_phone"})
	}
	email := normalizeEmail(params.Email)
	if email != "" && !identity.IsValidEmail(email) {
		return ResolveResult{}, apperr.Validation(msgInvalidEmail).WithDetails(map[string]string{"email": "funnel_email"})
	}

	name := sanitize.Line(params.Name)
	phoneKey := NormalizePhone(params.Phone)

	existing, err := s.repo.FindByIdentity(ctx, params.TaskID, phoneKey, email)
	switch {
	case err == nil:
		return s.merge(ctx, existing, name, phoneKey, email), nil
	case !errors.Is(err, repository.ErrNotFound):
		return ResolveResult{}, apperr.Wrap(apperr.KindInternal, "failed to look up lead", err)
	}

	created, err := s.repo.Create(ctx, repository.CreateLeadParams{
		TaskID: params.TaskID,
		Name:   name,
		Phone:  phoneKey,
		Email:  email,
	})
	if db.IsUniqueViolation(err) {
		// A concurrent submission inserted the same identity first.
		existing, findErr := s.repo.FindByIdentity(ctx, params.TaskID, phoneKey, email)
		if findErr != nil {
			return ResolveResult{}, apperr.Wrap(apperr.KindInternal, "failed to recover lead after conflict", findErr)
		}
		return s.merge(ctx, existing, name, phoneKey, email), nil
	}
	if err != nil {
		return ResolveResult{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	s.metrics.LeadResolved(true)
	s.log.WithContext(ctx).WithLead(created.TaskID.String(), created.ID.String()).Info("lead captured")
	s.bus.Publish(ctx, events.LeadCaptured{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    created.ID,
		TaskID:    created.TaskID,
	})

	return ResolveResult{Lead: created, WasUpdated: false}, nil
}

// merge enriches an existing lead. A failed update still resolves to the
// matched record so an in-progress capture is never broken.
func (s *Service) merge(ctx context.Context, existing repository.Lead, name, phoneKey, email string) ResolveResult {
	s.metrics.LeadResolved(false)
	updated, err := s.repo.UpdateIdentity(ctx, existing.ID, repository.UpdateIdentityParams{
		Name:  name,
		Phone: phoneKey,
		Email: email,
	})
	if err != nil {
		s.log.WithContext(ctx).WithLead(existing.TaskID.String(), existing.ID.String()).Warn("lead identity update failed, returning matched record",
			slog.String("error", err.Error()),
		)
		return ResolveResult{Lead: existing, WasUpdated: true}
	}
	return ResolveResult{Lead: updated, WasUpdated: true}
}

// FindByIdentity looks up a lead without writing. At least one of phone and
// email must be given.
func (s *Service) FindByIdentity(ctx context.Context, taskID uuid.UUID, rawPhone, rawEmail string) (repository.Lead, error) {
	phoneKey := ""
	if strings.TrimSpace(rawPhone) != "" {
		phoneKey = NormalizePhone(rawPhone)
	}
	email := normalizeEmail(rawEmail)
	if phoneKey == "" && email == "" {
		return repository.Lead{}, apperr.BadRequest("phone or email is required")
	}

	lead, err := s.repo.FindByIdentity(ctx, taskID, phoneKey, email)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to look up lead", err)
	}
	return lead, nil
}

// Get loads a lead by id.
func (s *Service) Get(ctx context.Context, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	return lead, nil
}

// ListForOwner lists a task's leads for its owner.
func (s *Service) ListForOwner(ctx context.Context, taskID, ownerID uuid.UUID) ([]repository.Lead, error) {
	owner, err := s.tasks.OwnerOf(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if owner != ownerID {
		return nil, apperr.Forbidden("task belongs to another owner")
	}
	leads, err := s.repo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}
	return leads, nil
}

// OwnerOfLead returns the owner of the task a lead belongs to.
func (s *Service) OwnerOfLead(ctx context.Context, leadID uuid.UUID) (uuid.UUID, error) {
	lead, err := s.Get(ctx, leadID)
	if err != nil {
		return uuid.Nil, err
	}
	return s.tasks.OwnerOf(ctx, lead.TaskID)
}
