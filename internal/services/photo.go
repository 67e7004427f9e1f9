package services

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"remote-shoot-backend/internal/errs"
	"remote-shoot-backend/internal/models"
	"remote-shoot-backend/internal/storage"
	"remote-shoot-backend/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PhotoService accepts captured frames from the phone and persists them.
type PhotoService struct {
	store store.SessionStore
	blobs storage.BlobStore
	clock store.Clock
}

func NewPhotoService(sessions store.SessionStore, blobs storage.BlobStore, clock store.Clock) *PhotoService {
	return &PhotoService{store: sessions, blobs: blobs, clock: clock}
}

// UploadResult reports a persisted capture.
type UploadResult struct {
	PhotoID  string
	Location string
	Session  *models.Session
}

// Upload validates the capture, writes the image bytes under
// <session-id>/<timestamp>.jpg and increments the session's photo counter.
// Only the user role may upload; the session must be neither expired nor
// ended.
func (s *PhotoService) Upload(ctx context.Context, token string, role models.Role, dataURL, capturedAt string) (*UploadResult, error) {
	session, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.clock.Now().After(session.ExpiresAt) {
		return nil, errs.ErrExpired
	}
	if role != models.RoleUser {
		return nil, errs.Forbidden("role not allowed")
	}
	if session.Status == models.StatusEnded {
		return nil, errs.ErrEnded
	}

	data, err := decodeImageDataURL(dataURL)
	if err != nil {
		return nil, err
	}

	key := session.ID + "/" + s.captureFilename(capturedAt)
	location, err := s.blobs.Save(ctx, key, data, "image/jpeg")
	if err != nil {
		return nil, err
	}

	updated, err := s.store.IncrementPhoto(ctx, token, capturedAt)
	if err != nil {
		return nil, err
	}

	photoID := uuid.New().String()
	log.Info().
		Str("session_id", session.ID).
		Str("photo_id", photoID).
		Str("location", location).
		Int("photo_count", updated.PhotoCount).
		Msg("Capture stored")

	return &UploadResult{PhotoID: photoID, Location: location, Session: updated}, nil
}

// decodeImageDataURL accepts only embedded-image payloads
// (data:image/...;base64,...).
func decodeImageDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return nil, errs.BadRequest("unsupported image")
	}
	idx := strings.Index(dataURL, ",")
	if idx < 0 {
		return nil, errs.BadRequest("unsupported image")
	}
	data, err := base64.StdEncoding.DecodeString(dataURL[idx+1:])
	if err != nil {
		return nil, errs.BadRequest("unsupported image")
	}
	return data, nil
}

// captureFilename derives the stored name from the capture timestamp,
// falling back to the server clock when the client supplies none or garbage.
func (s *PhotoService) captureFilename(capturedAt string) string {
	t := s.clock.Now()
	if capturedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, capturedAt); err == nil {
			t = parsed
		}
	}
	return t.UTC().Format("2006-01-02_15-04-05-000") + ".jpg"
}
