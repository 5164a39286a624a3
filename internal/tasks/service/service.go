// Package service exposes read access to funnel tasks for visitors and owners.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"funnel_backend/internal/tasks/repository"
	"funnel_backend/internal/tasks/transport"
	"funnel_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	msgTaskNotFound = "task not found"
	qrSize          = 256
)

type Service struct {
	repo    repository.TaskReader
	baseURL string
}

func New(repo repository.TaskReader, appBaseURL string) *Service {
	return &Service{repo: repo, baseURL: strings.TrimRight(appBaseURL, "/")}
}

// Get loads a task or returns a NotFound error.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Task{}, apperr.NotFound(msgTaskNotFound)
	}
	if err != nil {
		return repository.Task{}, apperr.Wrap(apperr.KindInternal, "failed to load task", err)
	}
	return task, nil
}

// GetPublic returns the visitor-facing view of a visible task.
func (s *Service) GetPublic(ctx context.Context, id uuid.UUID) (transport.PublicTaskResponse, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return transport.PublicTaskResponse{}, err
	}
	if !task.IsVisible {
		return transport.PublicTaskResponse{}, apperr.NotFound(msgTaskNotFound)
	}
	return transport.PublicTaskResponse{
		ID:              task.ID,
		Title:           task.Title,
		Description:     task.Description,
		OpeningQuestion: task.OpeningQuestion,
		ShowOthers:      task.ShowOthers,
		SourcePostURL:   task.SourcePostURL,
	}, nil
}

// OwnerOf returns the owner id of a task.
func (s *Service) OwnerOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	return task.OwnerID, nil
}

// RequireOwner fails with Forbidden unless ownerID owns the task.
func (s *Service) RequireOwner(ctx context.Context, id, ownerID uuid.UUID) (repository.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return repository.Task{}, err
	}
	if task.OwnerID != ownerID {
		return repository.Task{}, apperr.Forbidden("task belongs to another owner")
	}
	return task, nil
}

// FunnelURL is the public link visitors open.
func (s *Service) FunnelURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/f/%s", s.baseURL, id)
}

// QRCode renders the funnel link as a PNG for the task owner.
func (s *Service) QRCode(ctx context.Context, id, ownerID uuid.UUID) ([]byte, error) {
	if _, err := s.RequireOwner(ctx, id, ownerID); err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(s.FunnelURL(id), qrcode.Medium, qrSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to render QR code", err)
	}
	return png, nil
}
