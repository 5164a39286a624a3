package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Lead struct {
	ID                 uuid.UUID
	TaskID             uuid.UUID
	Name               *string
	Phone              string
	Email              *string
	Rating             *int
	Notified           bool
	NotifyClaimedUntil *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type CreateLeadParams struct {
	TaskID uuid.UUID
	Name   string
	Phone  string
	Email  string
}

// UpdateIdentityParams refreshes a lead's contact fields. Empty Name or Email
// keep the stored value; Phone always replaces it.
type UpdateIdentityParams struct {
	Name  string
	Phone string
	Email string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, task_id, name, phone, email, rating, notified, notify_claimed_until, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	var rating *int16
	err := row.Scan(&l.ID, &l.TaskID, &l.Name, &l.Phone, &l.Email, &rating, &l.Notified, &l.NotifyClaimedUntil, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	if rating != nil {
		v := int(*rating)
		l.Rating = &v
	}
	return l, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

// FindByIdentity returns the lead under taskID whose phone equals phone or,
// when email is non-empty, whose email matches case-insensitively. A phone
// match wins over an email match; ties go to the oldest lead.
func (r *Repository) FindByIdentity(ctx context.Context, taskID uuid.UUID, phone, email string) (Lead, error) {
	if phone == "" && email == "" {
		return Lead{}, ErrNotFound
	}
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE task_id = $1
		  AND (($2 <> '' AND phone = $2) OR ($3 <> '' AND lower(email) = lower($3)))
		ORDER BY (phone = $2) DESC, created_at ASC
		LIMIT 1
	`, taskID, phone, email))
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (task_id, name, phone, email)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''))
		RETURNING `+leadColumns,
		params.TaskID, params.Name, params.Phone, params.Email))
}

func (r *Repository) UpdateIdentity(ctx context.Context, id uuid.UUID, params UpdateIdentityParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET name = COALESCE(NULLIF($2, ''), name),
			phone = $3,
			email = COALESCE(NULLIF($4, ''), email),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, params.Name, params.Phone, params.Email))
}

func (r *Repository) SetRating(ctx context.Context, id uuid.UUID, rating int) error {
	tag, err := r.pool.Exec(ctx, `UPDATE leads SET rating = $2, updated_at = now() WHERE id = $1`, id, rating)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimNotification takes the dispatch lease for a lead that is not yet
// notified. It returns false when the lead is already notified or another
// dispatch holds an unexpired lease.
func (r *Repository) ClaimNotification(ctx context.Context, id uuid.UUID, until time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET notify_claimed_until = $2
		WHERE id = $1
		  AND notified = false
		  AND (notify_claimed_until IS NULL OR notify_claimed_until < now())
	`, id, until)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) ReleaseNotificationClaim(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE leads SET notify_claimed_until = NULL WHERE id = $1 AND notified = false`, id)
	return err
}

func (r *Repository) MarkNotified(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET notified = true, notify_claimed_until = NULL, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads WHERE task_id = $1 ORDER BY created_at DESC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}
