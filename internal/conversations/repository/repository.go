package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"funnel_backend/internal/transcript"
	"funnel_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound     = errors.New("conversation not found")
	ErrLeadNotFound = errors.New("lead not found")
)

const visibilityPrivate = "private"

type Conversation struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	Transcript transcript.Transcript
	Summary    *string
	Visibility string
	UpdatedAt  time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert replaces the stored transcript for a lead in one statement. A nil
// summary keeps the stored one.
func (r *Repository) Upsert(ctx context.Context, leadID uuid.UUID, tr transcript.Transcript, summary *string) error {
	payload, err := json.Marshal(tr.Clone())
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO conversations (lead_id, transcript, summary, visibility, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (lead_id) DO UPDATE SET
			transcript = EXCLUDED.transcript,
			summary = COALESCE(EXCLUDED.summary, conversations.summary),
			visibility = EXCLUDED.visibility,
			updated_at = now()
	`, leadID, payload, summary, visibilityPrivate)
	if db.IsForeignKeyViolation(err) {
		return ErrLeadNotFound
	}
	return err
}

func (r *Repository) GetByLeadID(ctx context.Context, leadID uuid.UUID) (Conversation, error) {
	var c Conversation
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_id, transcript, summary, visibility, updated_at
		FROM conversations
		WHERE lead_id = $1
	`, leadID).Scan(&c.ID, &c.LeadID, &raw, &c.Summary, &c.Visibility, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, err
	}
	if err := json.Unmarshal(raw, &c.Transcript); err != nil {
		return Conversation{}, fmt.Errorf("decode transcript: %w", err)
	}
	return c, nil
}

func (r *Repository) SetSummary(ctx context.Context, leadID uuid.UUID, summary string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations SET summary = $2, updated_at = now() WHERE lead_id = $1
	`, leadID, summary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
