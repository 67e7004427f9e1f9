package store

import (
	"encoding/json"
	"sync"

	"remote-shoot-backend/internal/errs"
	"remote-shoot-backend/internal/models"
)

// maxCandidatesPerRole bounds the append-only candidate lists so abandoned
// connection attempts cannot grow a room without limit. Publishes past the
// cap are dropped.
const maxCandidatesPerRole = 64

type roomState struct {
	offer      json.RawMessage
	answer     json.RawMessage
	candidates map[models.SignalRole][]json.RawMessage
	updatedAt  int64
}

// RoomStore is the signaling mailbox registry. A room carries at most one
// pending offer and answer plus one candidate list per role; it has no
// opinion about connection state.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*roomState
	clock Clock
}

func NewRoomStore(clock Clock) *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*roomState),
		clock: clock,
	}
}

// room creates the state lazily on first touch.
func (s *RoomStore) room(roomID string) *roomState {
	r, ok := s.rooms[roomID]
	if !ok {
		r = &roomState{
			candidates: map[models.SignalRole][]json.RawMessage{
				models.RolePhotographer: {},
				models.RoleCamera:       {},
			},
			updatedAt: s.clock.Now().UnixMilli(),
		}
		s.rooms[roomID] = r
	}
	return r
}

// Publish applies one signaling write. reset deletes the room entirely and
// is a no-op success when the room is absent.
func (s *RoomStore) Publish(roomID string, role models.SignalRole, typ models.SignalType, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if typ == models.SignalReset {
		delete(s.rooms, roomID)
		return nil
	}

	room := s.room(roomID)
	switch typ {
	case models.SignalOffer:
		if payload != nil {
			room.offer = payload
		}
	case models.SignalAnswer:
		if payload != nil {
			room.answer = payload
		}
	case models.SignalCandidate:
		if payload != nil && len(room.candidates[role]) < maxCandidatesPerRole {
			room.candidates[role] = append(room.candidates[role], payload)
		}
	default:
		return errs.BadRequest("unknown signal type")
	}

	room.updatedAt = s.clock.Now().UnixMilli()
	return nil
}

// Poll returns the room snapshot for one role: both descriptions plus the
// opposite role's candidates.
func (s *RoomStore) Poll(roomID string, role models.SignalRole) *models.RoomSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.room(roomID)
	remote := room.candidates[role.Opposite()]
	candidates := make([]json.RawMessage, len(remote))
	copy(candidates, remote)

	return &models.RoomSnapshot{
		Offer:      room.offer,
		Answer:     room.answer,
		Candidates: candidates,
		UpdatedAt:  room.updatedAt,
	}
}

// Reset deletes the room. Idempotent.
func (s *RoomStore) Reset(roomID string) {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()
}
