package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("task not found")

// Task is read-only to the funnel; owners author it elsewhere.
type Task struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Title           string
	Description     string
	Script          string
	OpeningQuestion string
	NotifyEmail     *string
	IsVisible       bool
	ShowOthers      bool
	SourcePostURL   *string
	CreatedAt       time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Task, error) {
	var t Task
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, description, script, opening_question, notify_email,
			is_visible, show_others, source_post_url, created_at
		FROM tasks
		WHERE id = $1
	`, id).Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Script, &t.OpeningQuestion, &t.NotifyEmail,
		&t.IsVisible, &t.ShowOthers, &t.SourcePostURL, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

// GetOwnerEmail returns the account email of a task owner, or "" when the
// owner has none on record.
func (r *Repository) GetOwnerEmail(ctx context.Context, ownerID uuid.UUID) (string, error) {
	var email string
	err := r.pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, ownerID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return email, nil
}
