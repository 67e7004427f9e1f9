package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"remote-shoot-backend/internal/errs"
	"remote-shoot-backend/internal/models"
)

// SessionStore is the token-keyed session registry. The memory backend below
// is the default; a Postgres-backed implementation lives in
// internal/repository for deployments that need the registry externalized.
type SessionStore interface {
	Create(ctx context.Context) (*models.Session, error)
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	UpdateStatus(ctx context.Context, token string, status models.SessionStatus) (*models.Session, error)
	IncrementPhoto(ctx context.Context, token string, capturedAt string) (*models.Session, error)
}

// MemorySessionStore keeps all sessions in a mutex-guarded map. Sessions are
// never deleted; an ended or expired session just becomes inert.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	clock    Clock
}

func NewMemorySessionStore(clock Clock) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*models.Session),
		clock:    clock,
	}
}

// newToken returns a 128-bit cryptographically random token as hex.
func newToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

func (s *MemorySessionStore) Create(_ context.Context) (*models.Session, error) {
	id, err := newToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &models.Session{
		ID:        id,
		Status:    models.StatusWaiting,
		CreatedAt: now,
		ExpiresAt: now.Add(models.SessionTTL),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return copySession(session), nil
}

func (s *MemorySessionStore) GetByToken(_ context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return copySession(session), nil
}

// UpdateStatus writes the status unconditionally; role authorization is the
// caller's responsibility.
func (s *MemorySessionStore) UpdateStatus(_ context.Context, token string, status models.SessionStatus) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, errs.ErrNotFound
	}
	session.Status = status
	return copySession(session), nil
}

func (s *MemorySessionStore) IncrementPhoto(_ context.Context, token string, capturedAt string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if capturedAt == "" {
		capturedAt = s.clock.Now().UTC().Format(models.TimeLayout)
	}
	session.PhotoCount++
	session.LastCaptureAt = &capturedAt
	return copySession(session), nil
}

func copySession(session *models.Session) *models.Session {
	out := *session
	if session.LastCaptureAt != nil {
		at := *session.LastCaptureAt
		out.LastCaptureAt = &at
	}
	return &out
}
