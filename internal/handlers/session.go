package handlers

import (
	"encoding/json"
	"net/http"

	"remote-shoot-backend/internal/errs"
	"remote-shoot-backend/internal/models"
	"remote-shoot-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// SessionHandler handles session lifecycle HTTP requests
type SessionHandler struct {
	sessions *services.SessionService
}

func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type sessionPayload struct {
	ID            string               `json:"id"`
	Status        models.SessionStatus `json:"status"`
	PhotoCount    int                  `json:"photoCount"`
	LastCaptureAt *string              `json:"lastCaptureAt"`
	ExpiresAt     int64                `json:"expiresAt"`
}

func toPayload(session *models.Session) sessionPayload {
	return sessionPayload{
		ID:            session.ID,
		Status:        session.Status,
		PhotoCount:    session.PhotoCount,
		LastCaptureAt: session.LastCaptureAt,
		ExpiresAt:     session.ExpiresAt.UnixMilli(),
	}
}

type createResponse struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"sessionId"`
	UserURL   string `json:"userUrl"`
	AdminURL  string `json:"adminUrl"`
	ExpiresAt int64  `json:"expiresAt"`
	EmailText string `json:"emailText,omitempty"`
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, false)
}

// CreateBookingSession handles POST /api/bookly: same creation plus a
// ready-to-paste booking-mail body.
func (h *SessionHandler) CreateBookingSession(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, true)
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request, withEmailText bool) {
	session, err := h.sessions.Create(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		respondError(w, err)
		return
	}

	userURL, adminURL := h.sessions.URLs(session.ID)
	resp := createResponse{
		OK:        true,
		SessionID: session.ID,
		UserURL:   userURL,
		AdminURL:  adminURL,
		ExpiresAt: session.ExpiresAt.UnixMilli(),
	}
	if withEmailText {
		resp.EmailText = services.BookingEmailText(userURL)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetSession handles GET /api/sessions
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	role := models.Role(r.URL.Query().Get("role"))
	if token == "" || !role.Valid() {
		respondError(w, errs.BadRequest("missing token or role"))
		return
	}

	session, err := h.sessions.Get(r.Context(), token, role)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"role":    role,
		"session": toPayload(session),
	})
}

type updateRequest struct {
	Token          string  `json:"token"`
	Role           string  `json:"role"`
	Status         *string `json:"status"`
	IncrementPhoto bool    `json:"incrementPhoto"`
	CapturedAt     string  `json:"capturedAt"`
}

// UpdateSession handles PATCH /api/sessions
func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.BadRequest("invalid request body"))
		return
	}
	role := models.Role(req.Role)
	if req.Token == "" || !role.Valid() {
		respondError(w, errs.BadRequest("missing token or role"))
		return
	}

	in := services.UpdateInput{
		IncrementPhoto: req.IncrementPhoto,
		CapturedAt:     req.CapturedAt,
	}
	if req.Status != nil {
		status := models.SessionStatus(*req.Status)
		in.Status = &status
	}

	session, err := h.sessions.Update(r.Context(), req.Token, role, in)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"status":     session.Status,
		"photoCount": session.PhotoCount,
	})
}
