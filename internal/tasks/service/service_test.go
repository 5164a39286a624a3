package service

import (
	"bytes"
	"context"
	"testing"

	"funnel_backend/internal/tasks/repository"
	"funnel_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTaskRepo struct {
	tasks  map[uuid.UUID]repository.Task
	emails map[uuid.UUID]string
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return repository.Task{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTaskRepo) GetOwnerEmail(_ context.Context, ownerID uuid.UUID) (string, error) {
	return f.emails[ownerID], nil
}

func newFixture() (*Service, repository.Task) {
	task := repository.Task{
		ID:              uuid.New(),
		OwnerID:         uuid.New(),
		Title:           "Kitchen renovation",
		Script:          "secret sales script",
		OpeningQuestion: "What would you like to change?",
		IsVisible:       true,
	}
	repo := &fakeTaskRepo{tasks: map[uuid.UUID]repository.Task{task.ID: task}}
	return New(repo, "https://funnel.example.com/"), task
}

func TestGetPublicHidesNothingSensitive(t *testing.T) {
	svc, task := newFixture()

	resp, err := svc.GetPublic(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.OpeningQuestion, resp.OpeningQuestion)
	assert.Equal(t, task.Title, resp.Title)
}

func TestGetPublicUnknownTask(t *testing.T) {
	svc, _ := newFixture()

	_, err := svc.GetPublic(context.Background(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRequireOwner(t *testing.T) {
	svc, task := newFixture()

	_, err := svc.RequireOwner(context.Background(), task.ID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	got, err := svc.RequireOwner(context.Background(), task.ID, task.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestQRCodeIsPNG(t *testing.T) {
	svc, task := newFixture()

	assert.Equal(t, "https://funnel.example.com/f/"+task.ID.String(), svc.FunnelURL(task.ID))

	png, err := svc.QRCode(context.Background(), task.ID, task.OwnerID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
