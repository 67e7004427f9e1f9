package store

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"remote-shoot-backend/internal/models"
)

func TestRoomStore_CandidateVisibility(t *testing.T) {
	s := NewRoomStore(&fakeClock{now: time.Unix(0, 0)})
	cand := json.RawMessage(`{"candidate":"candidate:1 1 udp 2122260223 192.0.2.1 54321 typ host"}`)

	if err := s.Publish("room-1", models.RoleCamera, models.SignalCandidate, cand); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	asPhotographer := s.Poll("room-1", models.RolePhotographer)
	if len(asPhotographer.Candidates) != 1 || string(asPhotographer.Candidates[0]) != string(cand) {
		t.Fatalf("expected camera candidate visible to photographer, got %v", asPhotographer.Candidates)
	}

	asCamera := s.Poll("room-1", models.RoleCamera)
	if len(asCamera.Candidates) != 0 {
		t.Fatalf("expected no candidates for camera, got %d", len(asCamera.Candidates))
	}
}

func TestRoomStore_DescriptionsVisibleToBothRoles(t *testing.T) {
	s := NewRoomStore(&fakeClock{now: time.Unix(0, 0)})
	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	answer := json.RawMessage(`{"type":"answer","sdp":"v=0"}`)

	_ = s.Publish("room-1", models.RolePhotographer, models.SignalOffer, offer)
	_ = s.Publish("room-1", models.RoleCamera, models.SignalAnswer, answer)

	for _, role := range []models.SignalRole{models.RolePhotographer, models.RoleCamera} {
		snap := s.Poll("room-1", role)
		if string(snap.Offer) != string(offer) {
			t.Fatalf("role %s: missing offer", role)
		}
		if string(snap.Answer) != string(answer) {
			t.Fatalf("role %s: missing answer", role)
		}
	}
}

func TestRoomStore_ResetEmptiesRoom(t *testing.T) {
	clk := &fakeClock{now: time.Unix(100, 0)}
	s := NewRoomStore(clk)

	_ = s.Publish("room-1", models.RolePhotographer, models.SignalOffer, json.RawMessage(`{"type":"offer"}`))
	_ = s.Publish("room-1", models.RoleCamera, models.SignalCandidate, json.RawMessage(`{"candidate":"x"}`))

	if err := s.Publish("room-1", models.RolePhotographer, models.SignalReset, nil); err != nil {
		t.Fatalf("reset: %v", err)
	}

	snap := s.Poll("room-1", models.RolePhotographer)
	if snap.Offer != nil || snap.Answer != nil || len(snap.Candidates) != 0 {
		t.Fatalf("expected empty room after reset, got %+v", snap)
	}

	// Resetting an absent room is a no-op success.
	if err := s.Publish("room-1", models.RolePhotographer, models.SignalReset, nil); err != nil {
		t.Fatalf("second reset: %v", err)
	}
}

func TestRoomStore_CandidateCap(t *testing.T) {
	s := NewRoomStore(&fakeClock{now: time.Unix(0, 0)})

	for i := 0; i < maxCandidatesPerRole+10; i++ {
		cand := json.RawMessage(fmt.Sprintf(`{"candidate":"c-%d"}`, i))
		if err := s.Publish("room-1", models.RoleCamera, models.SignalCandidate, cand); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}

	snap := s.Poll("room-1", models.RolePhotographer)
	if len(snap.Candidates) != maxCandidatesPerRole {
		t.Fatalf("expected cap at %d, got %d", maxCandidatesPerRole, len(snap.Candidates))
	}
}

func TestRoomStore_UpdatedAtAdvances(t *testing.T) {
	clk := &fakeClock{now: time.Unix(100, 0)}
	s := NewRoomStore(clk)

	_ = s.Publish("room-1", models.RolePhotographer, models.SignalOffer, json.RawMessage(`{"type":"offer"}`))
	first := s.Poll("room-1", models.RolePhotographer).UpdatedAt

	clk.Advance(5 * time.Second)
	_ = s.Publish("room-1", models.RoleCamera, models.SignalAnswer, json.RawMessage(`{"type":"answer"}`))
	second := s.Poll("room-1", models.RolePhotographer).UpdatedAt

	if second-first != 5000 {
		t.Fatalf("expected updatedAt to advance 5000ms, got %d", second-first)
	}
}

func TestRoomStore_UnknownType(t *testing.T) {
	s := NewRoomStore(&fakeClock{now: time.Unix(0, 0)})
	if err := s.Publish("room-1", models.RoleCamera, models.SignalType("bogus"), nil); err == nil {
		t.Fatalf("expected error for unknown signal type")
	}
}
