package handlers

import (
	"encoding/json"
	"net/http"

	"remote-shoot-backend/internal/errs"
)

// ErrorResponse is the failure shape shared by every endpoint.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondJSON writes a JSON body. Responses are never cacheable: both
// clients poll these endpoints and must always see fresh state.
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// respondError maps a domain error to its HTTP status and reason code.
func respondError(w http.ResponseWriter, err error) {
	e := errs.From(err)
	respondJSON(w, e.Status, ErrorResponse{OK: false, Error: e.Message, Code: e.Code})
}
