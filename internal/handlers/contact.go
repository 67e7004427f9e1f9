package handlers

import (
	"encoding/json"
	"net/http"

	"remote-shoot-backend/internal/errs"
	"remote-shoot-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ContactHandler forwards contact-form submissions by mail.
type ContactHandler struct {
	mailer services.Mailer
}

func NewContactHandler(mailer services.Mailer) *ContactHandler {
	return &ContactHandler{mailer: mailer}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Send handles POST /api/contact
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.BadRequest("invalid request body"))
		return
	}
	if req.Name == "" || req.Email == "" || req.Message == "" {
		respondError(w, errs.BadRequest("missing name, email, or message"))
		return
	}

	body := services.InquiryBody(req.Name, req.Email, req.Message)
	if err := h.mailer.Send(r.Context(), "お問い合わせ", body); err != nil {
		log.Error().Err(err).Msg("Failed to send contact mail")
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}
