package models

import (
	"encoding/json"
	"time"
)

// SessionStatus is the lifecycle state of a shooting session.
type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"
	StatusReady    SessionStatus = "ready"
	StatusShooting SessionStatus = "shooting"
	StatusEnded    SessionStatus = "ended"
)

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusReady, StatusShooting, StatusEnded:
		return true
	}
	return false
}

// Role distinguishes the phone holder from the photographer on the session
// API. Both roles are gated by possession of the same session token.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// SignalRole identifies the two sides of the signaling exchange.
type SignalRole string

const (
	RolePhotographer SignalRole = "photographer"
	RoleCamera       SignalRole = "camera"
)

func (r SignalRole) Valid() bool {
	return r == RolePhotographer || r == RoleCamera
}

// Opposite returns the other side of the exchange.
func (r SignalRole) Opposite() SignalRole {
	if r == RolePhotographer {
		return RoleCamera
	}
	return RolePhotographer
}

// SignalType is the kind of a signaling publish.
type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "candidate"
	SignalReset     SignalType = "reset"
)

func (t SignalType) Valid() bool {
	switch t {
	case SignalOffer, SignalAnswer, SignalCandidate, SignalReset:
		return true
	}
	return false
}

// SessionTTL is fixed at creation and never extended.
const SessionTTL = time.Hour

// TimeLayout renders timestamps the way the clients do (ISO 8601 with
// millisecond precision).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Session is a single photographer-phone shooting engagement. The ID doubles
// as the capability token for both roles.
type Session struct {
	ID            string        `json:"id"`
	Status        SessionStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	ExpiresAt     time.Time     `json:"expiresAt"`
	PhotoCount    int           `json:"photoCount"`
	LastCaptureAt *string       `json:"lastCaptureAt,omitempty"`
}

// RoomSnapshot is what a signaling poll returns: both descriptions plus the
// opposite role's candidates. Descriptions and candidates are opaque blobs;
// the relay never inspects them.
type RoomSnapshot struct {
	Offer      json.RawMessage   `json:"offer"`
	Answer     json.RawMessage   `json:"answer"`
	Candidates []json.RawMessage `json:"candidates"`
	UpdatedAt  int64             `json:"updatedAt"`
}

// ControlMessage is the JSON frame exchanged over the peer control channel.
// Frames with unknown types are ignored by both sides.
type ControlMessage struct {
	Type        string `json:"type"`
	RequestedAt string `json:"requestedAt,omitempty"`
	CapturedAt  string `json:"capturedAt,omitempty"`
}

const (
	ControlCapture  = "capture"
	ControlCaptured = "captured"
)
