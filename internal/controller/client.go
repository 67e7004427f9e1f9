package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"remote-shoot-backend/internal/models"
)

// Client talks to the relay's session, signaling and photo endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SessionInfo is the session view returned to a polling client.
type SessionInfo struct {
	ID            string               `json:"id"`
	Status        models.SessionStatus `json:"status"`
	PhotoCount    int                  `json:"photoCount"`
	LastCaptureAt *string              `json:"lastCaptureAt"`
	ExpiresAt     int64                `json:"expiresAt"`
}

type apiEnvelope struct {
	OK      bool                 `json:"ok"`
	Error   string               `json:"error"`
	Session *SessionInfo         `json:"session"`
	Status  models.SessionStatus `json:"status"`

	PhotoCount int `json:"photoCount"`

	SessionID string `json:"sessionId"`
	UserURL   string `json:"userUrl"`
	AdminURL  string `json:"adminUrl"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// CreateResult is the output of session creation.
type CreateResult struct {
	SessionID string
	UserURL   string
	AdminURL  string
	ExpiresAt int64
}

func (c *Client) CreateSession(ctx context.Context) (*CreateResult, error) {
	var env apiEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &env); err != nil {
		return nil, err
	}
	if !env.OK {
		return nil, fmt.Errorf("create session failed: %s", env.Error)
	}
	return &CreateResult{
		SessionID: env.SessionID,
		UserURL:   env.UserURL,
		AdminURL:  env.AdminURL,
		ExpiresAt: env.ExpiresAt,
	}, nil
}

func (c *Client) GetSession(ctx context.Context, token string, role models.Role) (*SessionInfo, error) {
	path := fmt.Sprintf("/api/sessions?token=%s&role=%s", url.QueryEscape(token), role)
	var env apiEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	if !env.OK || env.Session == nil {
		return nil, fmt.Errorf("session lookup failed: %s", env.Error)
	}
	return env.Session, nil
}

func (c *Client) UpdateStatus(ctx context.Context, token string, role models.Role, status models.SessionStatus) error {
	body := map[string]any{"token": token, "role": role, "status": status}
	var env apiEnvelope
	if err := c.do(ctx, http.MethodPatch, "/api/sessions", body, &env); err != nil {
		return err
	}
	if !env.OK {
		return fmt.Errorf("status update to %s failed: %s", status, env.Error)
	}
	return nil
}

// UploadPhoto posts a captured frame as an embedded-image payload and
// returns the new photo count.
func (c *Client) UploadPhoto(ctx context.Context, token, dataURL, capturedAt string) (int, error) {
	body := map[string]any{
		"token":      token,
		"role":       models.RoleUser,
		"dataUrl":    dataURL,
		"capturedAt": capturedAt,
	}
	var env apiEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/photos", body, &env); err != nil {
		return 0, err
	}
	if !env.OK {
		return 0, fmt.Errorf("photo upload failed: %s", env.Error)
	}
	return env.PhotoCount, nil
}

// Publish sends one signaling write for a room.
func (c *Client) Publish(ctx context.Context, roomID string, role models.SignalRole, typ models.SignalType, payload json.RawMessage) error {
	body := map[string]any{"roomId": roomID, "role": role, "type": typ}
	if payload != nil {
		body["payload"] = payload
	}
	var env apiEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/signaling", body, &env); err != nil {
		return err
	}
	if !env.OK {
		return fmt.Errorf("publish %s failed: %s", typ, env.Error)
	}
	return nil
}

// Poll fetches the room snapshot for one role.
func (c *Client) Poll(ctx context.Context, roomID string, role models.SignalRole) (*models.RoomSnapshot, error) {
	path := fmt.Sprintf("/api/signaling?roomId=%s&role=%s", url.QueryEscape(roomID), role)
	var out struct {
		OK bool `json:"ok"`
		models.RoomSnapshot
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("signaling poll failed")
	}
	return &out.RoomSnapshot, nil
}

// ResetRoom clears the signaling room.
func (c *Client) ResetRoom(ctx context.Context, roomID string) error {
	return c.Publish(ctx, roomID, models.RolePhotographer, models.SignalReset, nil)
}
