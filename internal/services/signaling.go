package services

import (
	"encoding/json"

	"remote-shoot-backend/internal/errs"
	"remote-shoot-backend/internal/models"
	"remote-shoot-backend/internal/store"

	"github.com/rs/zerolog/log"
)

// SignalSnapshot is the push/poll payload: the room snapshot plus the ok
// marker the polling clients expect.
type SignalSnapshot struct {
	OK bool `json:"ok"`
	*models.RoomSnapshot
}

// SignalingService fronts the room store and fans published changes out to
// WebSocket subscribers. It carries no connection-state semantics; it is a
// mailbox.
type SignalingService struct {
	rooms *store.RoomStore
	hub   *SignalHub
}

func NewSignalingService(rooms *store.RoomStore, hub *SignalHub) *SignalingService {
	return &SignalingService{rooms: rooms, hub: hub}
}

// Publish validates and applies one signaling write, then notifies
// subscribers of the room.
func (s *SignalingService) Publish(roomID string, role models.SignalRole, typ models.SignalType, payload json.RawMessage) error {
	if !typ.Valid() {
		return errs.BadRequest("unknown signal type")
	}
	if err := s.rooms.Publish(roomID, role, typ, payload); err != nil {
		return err
	}

	log.Debug().
		Str("room_id", roomID).
		Str("role", string(role)).
		Str("type", string(typ)).
		Msg("Signal published")

	s.push(roomID)
	return nil
}

// Poll returns the snapshot for one role.
func (s *SignalingService) Poll(roomID string, role models.SignalRole) *models.RoomSnapshot {
	return s.rooms.Poll(roomID, role)
}

// Reset deletes the room. Called whenever a session ends.
func (s *SignalingService) Reset(roomID string) {
	s.rooms.Reset(roomID)
	log.Info().Str("room_id", roomID).Msg("Signaling room reset")
	s.push(roomID)
}

func (s *SignalingService) push(roomID string) {
	for _, role := range s.hub.Roles(roomID) {
		snapshot := s.rooms.Poll(roomID, role)
		if err := s.hub.Send(roomID, role, SignalSnapshot{OK: true, RoomSnapshot: snapshot}); err != nil {
			log.Debug().Err(err).Str("room_id", roomID).Str("role", string(role)).Msg("Push skipped")
		}
	}
}
