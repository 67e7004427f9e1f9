package services

import (
	"context"
	"fmt"

	"remote-shoot-backend/internal/errs"
	"remote-shoot-backend/internal/models"
	"remote-shoot-backend/internal/store"

	"github.com/rs/zerolog/log"
)

// RoomResetter clears the signaling room tied to a session. Satisfied by
// SignalingService.
type RoomResetter interface {
	Reset(roomID string)
}

// SessionService owns the session lifecycle rules: expiry, the role-gated
// status machine and photo-count bookkeeping.
type SessionService struct {
	store  store.SessionStore
	rooms  RoomResetter
	clock  store.Clock
	origin string
}

func NewSessionService(sessions store.SessionStore, rooms RoomResetter, clock store.Clock, origin string) *SessionService {
	return &SessionService{
		store:  sessions,
		rooms:  rooms,
		clock:  clock,
		origin: origin,
	}
}

// Create starts a new session. Always succeeds.
func (s *SessionService) Create(ctx context.Context) (*models.Session, error) {
	session, err := s.store.Create(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Str("session_id", session.ID).Time("expires_at", session.ExpiresAt).Msg("Session created")
	return session, nil
}

// URLs builds the two capability URLs for a session id.
func (s *SessionService) URLs(id string) (userURL, adminURL string) {
	return fmt.Sprintf("%s/s/%s", s.origin, id), fmt.Sprintf("%s/admin/%s", s.origin, id)
}

// EnsureActive reports whether the session is still within its TTL. It never
// mutates status; an expired session is rejected, not transitioned.
func (s *SessionService) EnsureActive(session *models.Session) bool {
	return !s.clock.Now().After(session.ExpiresAt)
}

// Get looks a session up by token and applies the role-dependent read gates.
func (s *SessionService) Get(ctx context.Context, token string, role models.Role) (*models.Session, error) {
	session, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !s.EnsureActive(session) {
		return nil, errs.ErrExpired
	}
	if role == models.RoleUser && session.Status == models.StatusEnded {
		return nil, errs.ErrEnded
	}
	return session, nil
}

// UpdateInput is a partial session mutation.
type UpdateInput struct {
	Status         *models.SessionStatus
	IncrementPhoto bool
	CapturedAt     string
}

// allowedTransition is the role-gated target table. The phone may only
// report readiness; everything else belongs to the photographer, including
// the waiting edge used as an admin reset.
func allowedTransition(role models.Role, next models.SessionStatus) bool {
	switch role {
	case models.RoleUser:
		return next == models.StatusReady
	case models.RoleAdmin:
		return next == models.StatusWaiting || next == models.StatusShooting || next == models.StatusEnded
	}
	return false
}

// Update applies a status change and/or a photo increment on behalf of a
// role. A transition to ended also resets the signaling room so the next
// session cannot see stale descriptions.
func (s *SessionService) Update(ctx context.Context, token string, role models.Role, in UpdateInput) (*models.Session, error) {
	session, err := s.Get(ctx, token, role)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		next := *in.Status
		if !allowedTransition(role, next) {
			return nil, errs.Forbidden("status not allowed")
		}
		session, err = s.store.UpdateStatus(ctx, token, next)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("session_id", session.ID).
			Str("role", string(role)).
			Str("status", string(next)).
			Msg("Session status updated")
		if next == models.StatusEnded {
			s.rooms.Reset(session.ID)
		}
	}

	if in.IncrementPhoto && role == models.RoleAdmin {
		session, err = s.store.IncrementPhoto(ctx, token, in.CapturedAt)
		if err != nil {
			return nil, err
		}
	}

	return session, nil
}
