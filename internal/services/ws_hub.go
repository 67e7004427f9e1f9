package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"remote-shoot-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// SignalHub manages WebSocket subscriptions to signaling rooms, keyed by
// (room, signal role). It is an optional push path: subscribers receive the
// same snapshot a poll would return, whenever the room changes.
type SignalHub struct {
	mu    sync.RWMutex
	conns map[string]map[models.SignalRole]*websocket.Conn
}

func NewSignalHub() *SignalHub {
	return &SignalHub{
		conns: make(map[string]map[models.SignalRole]*websocket.Conn),
	}
}

// Register registers a subscription, closing any previous connection for the
// same room and role.
func (h *SignalHub) Register(roomID string, role models.SignalRole, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.conns[roomID]
	if !ok {
		room = make(map[models.SignalRole]*websocket.Conn)
		h.conns[roomID] = room
	}
	if existing, ok := room[role]; ok {
		existing.Close()
	}
	room[role] = conn

	log.Info().Str("room_id", roomID).Str("role", string(role)).Msg("Signaling subscription registered")
}

// Unregister removes a subscription if conn is still the registered one.
func (h *SignalHub) Unregister(roomID string, role models.SignalRole, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.conns[roomID]
	if !ok {
		return
	}
	if current, ok := room[role]; ok && current == conn {
		current.Close()
		delete(room, role)
		if len(room) == 0 {
			delete(h.conns, roomID)
		}
		log.Info().Str("room_id", roomID).Str("role", string(role)).Msg("Signaling subscription unregistered")
	}
}

// Roles lists the currently subscribed roles for a room.
func (h *SignalHub) Roles(roomID string) []models.SignalRole {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roles := make([]models.SignalRole, 0, 2)
	for role := range h.conns[roomID] {
		roles = append(roles, role)
	}
	return roles
}

// Send pushes a message to one subscriber. A write failure drops the
// subscription.
func (h *SignalHub) Send(roomID string, role models.SignalRole, message any) error {
	h.mu.RLock()
	conn, ok := h.conns[roomID][role]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no subscriber for room %s role %s", roomID, role)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(roomID, role, conn)
		return fmt.Errorf("failed to push to subscriber: %w", err)
	}
	return nil
}
