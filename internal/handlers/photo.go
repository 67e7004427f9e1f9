package handlers

import (
	"encoding/json"
	"net/http"

	"remote-shoot-backend/internal/errs"
	"remote-shoot-backend/internal/models"
	"remote-shoot-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PhotoHandler handles capture uploads from the phone.
type PhotoHandler struct {
	photos *services.PhotoService
}

func NewPhotoHandler(photos *services.PhotoService) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

type uploadRequest struct {
	Token      string `json:"token"`
	Role       string `json:"role"`
	DataURL    string `json:"dataUrl"`
	CapturedAt string `json:"capturedAt"`
}

// Upload handles POST /api/photos
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.BadRequest("invalid request body"))
		return
	}
	if req.Token == "" || req.Role == "" || req.DataURL == "" {
		respondError(w, errs.BadRequest("missing token, role, or dataUrl"))
		return
	}

	result, err := h.photos.Upload(r.Context(), req.Token, models.Role(req.Role), req.DataURL, req.CapturedAt)
	if err != nil {
		log.Error().Err(err).Str("token", req.Token).Msg("Failed to store capture")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"photoId":    result.PhotoID,
		"photoCount": result.Session.PhotoCount,
	})
}
