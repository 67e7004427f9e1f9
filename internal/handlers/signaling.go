package handlers

import (
	"encoding/json"
	"net/http"

	"remote-shoot-backend/internal/errs"
	"remote-shoot-backend/internal/models"
	"remote-shoot-backend/internal/services"
)

// SignalingHandler handles the relay's publish/poll endpoints.
type SignalingHandler struct {
	signaling *services.SignalingService
}

func NewSignalingHandler(signaling *services.SignalingService) *SignalingHandler {
	return &SignalingHandler{signaling: signaling}
}

type publishRequest struct {
	RoomID  string          `json:"roomId"`
	Role    string          `json:"role"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Publish handles POST /api/signaling
func (h *SignalingHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.BadRequest("invalid payload"))
		return
	}

	role := models.SignalRole(req.Role)
	typ := models.SignalType(req.Type)
	if req.RoomID == "" || !role.Valid() || !typ.Valid() {
		respondError(w, errs.BadRequest("invalid payload"))
		return
	}

	if err := h.signaling.Publish(req.RoomID, role, typ, req.Payload); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Poll handles GET /api/signaling
func (h *SignalingHandler) Poll(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	role := models.SignalRole(r.URL.Query().Get("role"))
	if roomID == "" || !role.Valid() {
		respondError(w, errs.BadRequest("missing roomId or role"))
		return
	}

	snapshot := h.signaling.Poll(roomID, role)
	respondJSON(w, http.StatusOK, services.SignalSnapshot{OK: true, RoomSnapshot: snapshot})
}
