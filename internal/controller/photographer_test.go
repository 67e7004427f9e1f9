package controller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"remote-shoot-backend/internal/models"
)

func newTestPhotographer(t *testing.T, client *Client, token string, peer *fakePeer) *Photographer {
	t.Helper()
	p := NewPhotographer(PhotographerConfig{
		Client:          client,
		Token:           token,
		NewPeer:         peerFactory(peer),
		SignalInterval:  10 * time.Millisecond,
		SessionInterval: 10 * time.Millisecond,
		CountdownTick:   time.Millisecond,
		Logger:          testLogger(),
	})
	t.Cleanup(p.Close)
	return p
}

func TestPhotographerLoadTracksSession(t *testing.T) {
	ctx := context.Background()
	client := newTestRelay(t)
	created, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	p := newTestPhotographer(t, client, created.SessionID, newFakePeer())
	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if p.SessionID() != created.SessionID {
		t.Errorf("SessionID() = %q, want %q", p.SessionID(), created.SessionID)
	}
	if p.Status() != models.StatusWaiting {
		t.Errorf("Status() = %q, want %q", p.Status(), models.StatusWaiting)
	}
	if p.PhotoCount() != 0 {
		t.Errorf("PhotoCount() = %d, want 0", p.PhotoCount())
	}
	if p.LastCaptureAt() != "" {
		t.Errorf("LastCaptureAt() = %q, want empty", p.LastCaptureAt())
	}
}

func TestPhotographerStartShootingPublishesOffer(t *testing.T) {
	ctx := context.Background()
	client := newTestRelay(t)
	created, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	peer := newFakePeer()
	p := newTestPhotographer(t, client, created.SessionID, peer)
	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := p.StartShooting(ctx); err != nil {
		t.Fatalf("StartShooting() error = %v", err)
	}

	info, err := client.GetSession(ctx, created.SessionID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if info.Status != models.StatusShooting {
		t.Errorf("session status = %q, want %q", info.Status, models.StatusShooting)
	}

	snapshot, err := client.Poll(ctx, created.SessionID, models.RoleCamera)
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	offer, _ := peer.CreateOffer()
	if string(snapshot.Offer) != string(offer) {
		t.Errorf("published offer = %s, want %s", snapshot.Offer, offer)
	}
}

func TestPhotographerAppliesAnswer(t *testing.T) {
	ctx := context.Background()
	client := newTestRelay(t)
	created, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	peer := newFakePeer()
	p := newTestPhotographer(t, client, created.SessionID, peer)
	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := p.StartShooting(ctx); err != nil {
		t.Fatalf("StartShooting() error = %v", err)
	}

	answer := json.RawMessage(`{"type":"answer","sdp":"v=0 camera-answer"}`)
	if err := client.Publish(ctx, created.SessionID, models.RoleCamera, models.SignalAnswer, answer); err != nil {
		t.Fatalf("Publish(answer) error = %v", err)
	}

	waitFor(t, 2*time.Second, "answer to be applied", func() bool {
		return peer.remoteDescription() != nil
	})
	if string(peer.remoteDescription()) != string(answer) {
		t.Errorf("remote description = %s, want %s", peer.remoteDescription(), answer)
	}
}

func TestPhotographerBuffersCandidatesUntilAnswer(t *testing.T) {
	ctx := context.Background()
	client := newTestRelay(t)
	created, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	peer := newFakePeer()
	p := newTestPhotographer(t, client, created.SessionID, peer)
	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := p.StartShooting(ctx); err != nil {
		t.Fatalf("StartShooting() error = %v", err)
	}

	c1 := json.RawMessage(`{"candidate":"candidate:1 1 udp 1 10.0.0.1 1111 typ host"}`)
	c2 := json.RawMessage(`{"candidate":"candidate:2 1 udp 1 10.0.0.2 2222 typ host"}`)
	for _, c := range []json.RawMessage{c1, c2} {
		if err := client.Publish(ctx, created.SessionID, models.RoleCamera, models.SignalCandidate, c); err != nil {
			t.Fatalf("Publish(candidate) error = %v", err)
		}
	}

	// No remote description yet: candidates must be held, not applied.
	time.Sleep(50 * time.Millisecond)
	if got := peer.addedCandidates(); len(got) != 0 {
		t.Fatalf("candidates applied before answer: %v", got)
	}

	answer := json.RawMessage(`{"type":"answer","sdp":"v=0 camera-answer"}`)
	if err := client.Publish(ctx, created.SessionID, models.RoleCamera, models.SignalAnswer, answer); err != nil {
		t.Fatalf("Publish(answer) error = %v", err)
	}

	waitFor(t, 2*time.Second, "buffered candidates to drain", func() bool {
		return len(peer.addedCandidates()) == 2
	})
	got := peer.addedCandidates()
	if got[0] != string(c1) || got[1] != string(c2) {
		t.Errorf("candidates applied out of order: %v", got)
	}

	// The buffered candidates were already marked seen; further polls must
	// not apply them again.
	time.Sleep(50 * time.Millisecond)
	if got := peer.addedCandidates(); len(got) != 2 {
		t.Errorf("candidates reapplied after drain: %v", got)
	}
}

func TestPhotographerDeduplicatesCandidates(t *testing.T) {
	ctx := context.Background()
	client := newTestRelay(t)
	created, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	peer := newFakePeer()
	p := newTestPhotographer(t, client, created.SessionID, peer)
	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := p.StartShooting(ctx); err != nil {
		t.Fatalf("StartShooting() error = %v", err)
	}

	answer := json.RawMessage(`{"type":"answer","sdp":"v=0 camera-answer"}`)
	if err := client.Publish(ctx, created.SessionID, models.RoleCamera, models.SignalAnswer, answer); err != nil {
		t.Fatalf("Publish(answer) error = %v", err)
	}

	c1 := json.RawMessage(`{"candidate":"candidate:1 1 udp 1 10.0.0.1 1111 typ host"}`)
	// The relay stores duplicates; deduplication is the consumer's job.
	if err := client.Publish(ctx, created.SessionID, models.RoleCamera, models.SignalCandidate, c1); err != nil {
		t.Fatalf("Publish(candidate) error = %v", err)
	}
	if err := client.Publish(ctx, created.SessionID, models.RoleCamera, models.SignalCandidate, c1); err != nil {
		t.Fatalf("Publish(candidate) error = %v", err)
	}
	c2 := json.RawMessage(`{"candidate":"candidate:2 1 udp 1 10.0.0.2 2222 typ host"}`)
	if err := client.Publish(ctx, created.SessionID, models.RoleCamera, models.SignalCandidate, c2); err != nil {
		t.Fatalf("Publish(candidate) error = %v", err)
	}

	waitFor(t, 2*time.Second, "both distinct candidates to apply", func() bool {
		return len(peer.addedCandidates()) >= 2
	})
	time.Sleep(50 * time.Millisecond)
	got := peer.addedCandidates()
	if len(got) != 2 {
		t.Fatalf("applied %d candidates, want 2: %v", len(got), got)
	}
	if got[0] != string(c1) || got[1] != string(c2) {
		t.Errorf("applied candidates = %v, want [%s %s]", got, c1, c2)
	}
}

func TestPhotographerRequestCaptureCountdown(t *testing.T) {
	var counts []int
	p := NewPhotographer(PhotographerConfig{
		CountdownTick: time.Millisecond,
		OnCountdown:   func(n int) { counts = append(counts, n) },
		Logger:        testLogger(),
	})
	channel := &fakeChannel{}
	channel.setOpen()
	p.channel = channel
	p.status = models.StatusShooting
	p.connected = true

	if err := p.RequestCapture(context.Background()); err != nil {
		t.Fatalf("RequestCapture() error = %v", err)
	}

	if len(counts) != 3 || counts[0] != 3 || counts[1] != 2 || counts[2] != 1 {
		t.Errorf("countdown = %v, want [3 2 1]", counts)
	}

	sent := channel.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	var msg models.ControlMessage
	if err := json.Unmarshal(sent[0], &msg); err != nil {
		t.Fatalf("capture message is not JSON: %v", err)
	}
	if msg.Type != models.ControlCapture {
		t.Errorf("message type = %q, want %q", msg.Type, models.ControlCapture)
	}
	if _, err := time.Parse(models.TimeLayout, msg.RequestedAt); err != nil {
		t.Errorf("requestedAt %q does not parse: %v", msg.RequestedAt, err)
	}
}

func TestPhotographerRequestCaptureRequiresOpenChannel(t *testing.T) {
	p := NewPhotographer(PhotographerConfig{CountdownTick: time.Millisecond, Logger: testLogger()})
	p.status = models.StatusShooting
	p.connected = true

	if err := p.RequestCapture(context.Background()); err != ErrChannelNotOpen {
		t.Errorf("RequestCapture() without channel error = %v, want ErrChannelNotOpen", err)
	}

	p.channel = &fakeChannel{} // exists but not open
	if err := p.RequestCapture(context.Background()); err != ErrChannelNotOpen {
		t.Errorf("RequestCapture() with closed channel error = %v, want ErrChannelNotOpen", err)
	}
}

func TestPhotographerRequestCaptureRequiresShootingAndConnected(t *testing.T) {
	p := NewPhotographer(PhotographerConfig{CountdownTick: time.Millisecond, Logger: testLogger()})
	channel := &fakeChannel{}
	channel.setOpen()
	p.channel = channel

	// Open channel alone is not enough: the session must be shooting and
	// the peer connected, matching the operator UI gate.
	p.status = models.StatusWaiting
	p.connected = false
	if err := p.RequestCapture(context.Background()); err != ErrNotShooting {
		t.Errorf("RequestCapture() while waiting error = %v, want ErrNotShooting", err)
	}

	p.status = models.StatusShooting
	p.connected = false
	if err := p.RequestCapture(context.Background()); err != ErrNotShooting {
		t.Errorf("RequestCapture() while disconnected error = %v, want ErrNotShooting", err)
	}

	p.status = models.StatusReady
	p.connected = true
	if err := p.RequestCapture(context.Background()); err != ErrNotShooting {
		t.Errorf("RequestCapture() while ready error = %v, want ErrNotShooting", err)
	}

	if sent := channel.sentMessages(); len(sent) != 0 {
		t.Errorf("capture sent despite gate: %s", sent)
	}
}

func TestPhotographerCapturedAckAndNextCut(t *testing.T) {
	p := NewPhotographer(PhotographerConfig{Logger: testLogger()})

	p.handleControlMessage([]byte(`{"type":"captured","capturedAt":"2026-03-04T05:06:07.890Z"}`))
	if p.LastCaptureAt() != "2026-03-04T05:06:07.890Z" {
		t.Errorf("LastCaptureAt() = %q, want ack timestamp", p.LastCaptureAt())
	}

	// Unknown and malformed payloads are ignored.
	p.handleControlMessage([]byte(`{"type":"noise"}`))
	p.handleControlMessage([]byte(`not json`))
	if p.LastCaptureAt() != "2026-03-04T05:06:07.890Z" {
		t.Errorf("LastCaptureAt() changed by ignored payload: %q", p.LastCaptureAt())
	}

	p.NextCut()
	if p.LastCaptureAt() != "" {
		t.Errorf("LastCaptureAt() after NextCut = %q, want empty", p.LastCaptureAt())
	}
}

func TestPhotographerRestartBeforeConnectedStopsFirstAttempt(t *testing.T) {
	ctx := context.Background()
	client := newTestRelay(t)
	created, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	peer1 := newFakePeer()
	peer2 := newFakePeer()
	p := NewPhotographer(PhotographerConfig{
		Client:          client,
		Token:           created.SessionID,
		NewPeer:         sequencePeerFactory(peer1, peer2),
		SignalInterval:  10 * time.Millisecond,
		SessionInterval: 10 * time.Millisecond,
		Logger:          testLogger(),
	})
	t.Cleanup(p.Close)
	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Start twice before the first attempt ever reaches connected: the
	// first peer and its signaling loop must not outlive the second attempt.
	if err := p.StartShooting(ctx); err != nil {
		t.Fatalf("StartShooting() error = %v", err)
	}
	if err := p.StartShooting(ctx); err != nil {
		t.Fatalf("second StartShooting() error = %v", err)
	}
	if !peer1.isClosed() {
		t.Error("first peer not closed after restart")
	}

	p.Close()
	if !peer2.isClosed() {
		t.Error("second peer not closed after Close")
	}

	// No loop survives Close: a late answer must go unapplied.
	answer := json.RawMessage(`{"type":"answer","sdp":"v=0 late"}`)
	if err := client.Publish(ctx, created.SessionID, models.RoleCamera, models.SignalAnswer, answer); err != nil {
		t.Fatalf("Publish(answer) error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if peer1.remoteDescription() != nil {
		t.Errorf("first attempt applied a late answer: %s", peer1.remoteDescription())
	}
	if peer2.remoteDescription() != nil {
		t.Errorf("closed second attempt applied a late answer: %s", peer2.remoteDescription())
	}
}

func TestPhotographerEndShootingResetsRoom(t *testing.T) {
	ctx := context.Background()
	client := newTestRelay(t)
	created, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	peer := newFakePeer()
	p := newTestPhotographer(t, client, created.SessionID, peer)
	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := p.StartShooting(ctx); err != nil {
		t.Fatalf("StartShooting() error = %v", err)
	}

	if err := p.EndShooting(ctx); err != nil {
		t.Fatalf("EndShooting() error = %v", err)
	}
	if p.Status() != models.StatusEnded {
		t.Errorf("Status() = %q, want %q", p.Status(), models.StatusEnded)
	}

	peer.mu.Lock()
	closed := peer.closed
	peer.mu.Unlock()
	if !closed {
		t.Error("peer connection not closed after EndShooting")
	}

	snapshot, err := client.Poll(ctx, created.SessionID, models.RoleCamera)
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if snapshot.Offer != nil || snapshot.Answer != nil || len(snapshot.Candidates) != 0 {
		t.Errorf("room not reset: %+v", snapshot)
	}

	if _, err := client.GetSession(ctx, created.SessionID, models.RoleUser); err == nil {
		t.Error("user read of ended session succeeded, want error")
	}
	if _, err := client.GetSession(ctx, created.SessionID, models.RoleAdmin); err != nil {
		t.Errorf("admin read of ended session error = %v", err)
	}
}
