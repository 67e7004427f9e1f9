package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"remote-shoot-backend/internal/errs"
	"remote-shoot-backend/internal/models"
	"remote-shoot-backend/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository is the Postgres-backed session registry, for deployments
// that run more than one relay instance. It implements store.SessionStore.
// Signaling rooms are intentionally not externalized: candidate appends need
// atomic read-modify-write that this layer does not attempt.
type SessionRepository struct {
	db    *pgxpool.Pool
	clock store.Clock
}

func NewSessionRepository(db *pgxpool.Pool, clock store.Clock) *SessionRepository {
	return &SessionRepository{db: db, clock: clock}
}

// Migrate creates the sessions table if it does not exist.
func (r *SessionRepository) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS sessions (
			id              TEXT PRIMARY KEY,
			status          TEXT NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL,
			expires_at      TIMESTAMPTZ NOT NULL,
			photo_count     INT NOT NULL DEFAULT 0,
			last_capture_at TEXT
		)
	`
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate sessions table: %w", err)
	}
	return nil
}

func newToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

func (r *SessionRepository) Create(ctx context.Context) (*models.Session, error) {
	id, err := newToken()
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	session := &models.Session{
		ID:        id,
		Status:    models.StatusWaiting,
		CreatedAt: now,
		ExpiresAt: now.Add(models.SessionTTL),
	}

	query := `
		INSERT INTO sessions (id, status, created_at, expires_at, photo_count)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.db.Exec(ctx, query, session.ID, session.Status, session.CreatedAt, session.ExpiresAt, session.PhotoCount)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT id, status, created_at, expires_at, photo_count, last_capture_at
		FROM sessions
		WHERE id = $1
	`
	var session models.Session
	err := r.db.QueryRow(ctx, query, token).Scan(
		&session.ID, &session.Status, &session.CreatedAt, &session.ExpiresAt,
		&session.PhotoCount, &session.LastCaptureAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) UpdateStatus(ctx context.Context, token string, status models.SessionStatus) (*models.Session, error) {
	query := `UPDATE sessions SET status = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, status, token)
	if err != nil {
		return nil, fmt.Errorf("failed to update session status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, errs.ErrNotFound
	}
	return r.GetByToken(ctx, token)
}

func (r *SessionRepository) IncrementPhoto(ctx context.Context, token string, capturedAt string) (*models.Session, error) {
	if capturedAt == "" {
		capturedAt = r.clock.Now().UTC().Format(models.TimeLayout)
	}
	query := `
		UPDATE sessions
		SET photo_count = photo_count + 1, last_capture_at = $1
		WHERE id = $2
	`
	result, err := r.db.Exec(ctx, query, capturedAt, token)
	if err != nil {
		return nil, fmt.Errorf("failed to increment photo count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, errs.ErrNotFound
	}
	return r.GetByToken(ctx, token)
}
