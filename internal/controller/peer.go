package controller

import (
	"context"
	"encoding/json"
)

// ConnectionState mirrors the peer connection's aggregate state.
type ConnectionState string

const (
	StateNew          ConnectionState = "new"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
	StateFailed       ConnectionState = "failed"
	StateClosed       ConnectionState = "closed"
)

// DataChannel is the reliable, ordered control channel over the established
// peer connection.
type DataChannel interface {
	Send(data []byte) error
	IsOpen() bool
	OnOpen(fn func())
	OnMessage(fn func(data []byte))
}

// PeerConnection is the opaque media-transport abstraction the controllers
// orchestrate. Descriptions and candidates pass through as raw JSON blobs;
// the controllers never look inside them.
type PeerConnection interface {
	CreateOffer() (json.RawMessage, error)
	CreateAnswer() (json.RawMessage, error)
	SetLocalDescription(desc json.RawMessage) error
	SetRemoteDescription(desc json.RawMessage) error
	HasRemoteDescription() bool
	AddICECandidate(candidate json.RawMessage) error
	CreateDataChannel(label string) (DataChannel, error)
	OnDataChannel(fn func(DataChannel))
	OnICECandidate(fn func(candidate json.RawMessage))
	OnConnectionStateChange(fn func(state ConnectionState))
	Close() error
}

// PeerFactory builds a fresh peer connection for one connection attempt.
type PeerFactory func() (PeerConnection, error)

// FrameSource produces one encoded JPEG frame per capture command. The
// actual camera access lives behind this interface.
type FrameSource interface {
	Frame(ctx context.Context) ([]byte, error)
}

// candidateTracker is the per-connection-attempt dedup set and pending
// buffer. A fresh tracker is created for every attempt so candidates from a
// prior attempt are neither suppressed nor replayed.
type candidateTracker struct {
	seen    map[string]struct{}
	pending []json.RawMessage
}

func newCandidateTracker() *candidateTracker {
	return &candidateTracker{seen: make(map[string]struct{})}
}

// SeenBefore marks the candidate as seen and reports whether it already was.
// Equality is structural, on the serialized form.
func (t *candidateTracker) SeenBefore(candidate json.RawMessage) bool {
	key := string(candidate)
	if _, ok := t.seen[key]; ok {
		return true
	}
	t.seen[key] = struct{}{}
	return false
}

// Buffer queues a candidate that arrived before the remote description.
func (t *candidateTracker) Buffer(candidate json.RawMessage) {
	t.pending = append(t.pending, candidate)
}

// Drain returns the buffered candidates in arrival order and clears the
// buffer.
func (t *candidateTracker) Drain() []json.RawMessage {
	pending := t.pending
	t.pending = nil
	return pending
}
