package handlers

import (
	"net/http"

	"remote-shoot-backend/internal/errs"
	"remote-shoot-backend/internal/models"
	"remote-shoot-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Capability token is the access control, not the origin
	},
}

// WebSocketHandler serves the push-based signaling subscription. Subscribers
// receive the same snapshot a poll would return whenever the room changes;
// the HTTP polling endpoints stay authoritative.
type WebSocketHandler struct {
	hub       *services.SignalHub
	signaling *services.SignalingService
}

func NewWebSocketHandler(hub *services.SignalHub, signaling *services.SignalingService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, signaling: signaling}
}

// Subscribe handles GET /ws/signaling
func (h *WebSocketHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	role := models.SignalRole(r.URL.Query().Get("role"))
	if roomID == "" || !role.Valid() {
		respondError(w, errs.BadRequest("missing roomId or role"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade signaling subscription")
		return
	}

	h.hub.Register(roomID, role, conn)
	defer h.hub.Unregister(roomID, role, conn)

	// Initial state, so a subscriber never has to poll first.
	snapshot := h.signaling.Poll(roomID, role)
	if err := h.hub.Send(roomID, role, services.SignalSnapshot{OK: true, RoomSnapshot: snapshot}); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("Failed to send initial snapshot")
		return
	}

	// Inbound frames are not part of the contract; the read loop only
	// detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("room_id", roomID).Str("role", string(role)).Msg("Signaling subscription error")
			}
			return
		}
	}
}
