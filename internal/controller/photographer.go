package controller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"remote-shoot-backend/internal/models"

	"github.com/rs/zerolog"
)

// PhotographerConfig wires a photographer console instance.
type PhotographerConfig struct {
	Client  *Client
	Token   string
	NewPeer PeerFactory

	// Poll cadences; fixed, no backoff.
	SignalInterval  time.Duration // default 1s
	SessionInterval time.Duration // default 2s
	CountdownTick   time.Duration // default 1s

	// OnCountdown receives 3, 2, 1 before a capture command is sent.
	OnCountdown func(n int)
	// OnSessionUpdate fires after each successful session poll.
	OnSessionUpdate func(info SessionInfo)

	Logger zerolog.Logger
}

// Photographer drives the session from the operator side: it owns the
// offering half of the signaling exchange and the capture command.
type Photographer struct {
	cfg PhotographerConfig

	mu            sync.Mutex
	sessionID     string
	status        models.SessionStatus
	photoCount    int
	lastCaptureAt *string
	connected     bool

	pc      PeerConnection
	channel DataChannel
	tracker *candidateTracker

	signalCtx    context.Context
	signalCancel context.CancelFunc
	signalDone   chan struct{}
}

// ErrChannelNotOpen is returned when a capture is requested before the
// control channel is up.
var ErrChannelNotOpen = errors.New("control channel is not open")

// ErrNotShooting is returned when a capture is requested while the session
// is not in the shooting state or the peer connection is down.
var ErrNotShooting = errors.New("session is not shooting or peer not connected")

func NewPhotographer(cfg PhotographerConfig) *Photographer {
	if cfg.SignalInterval == 0 {
		cfg.SignalInterval = time.Second
	}
	if cfg.SessionInterval == 0 {
		cfg.SessionInterval = 2 * time.Second
	}
	if cfg.CountdownTick == 0 {
		cfg.CountdownTick = time.Second
	}
	return &Photographer{cfg: cfg}
}

// Load fetches the session as admin and records its current state.
func (p *Photographer) Load(ctx context.Context) error {
	info, err := p.cfg.Client.GetSession(ctx, p.cfg.Token, models.RoleAdmin)
	if err != nil {
		return err
	}
	p.applySessionInfo(*info)
	return nil
}

// RunStatusLoop polls the session every SessionInterval until ctx is done.
// A failed poll yields a one-line advisory and is retried next cycle.
func (p *Photographer) RunStatusLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.SessionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := p.cfg.Client.GetSession(ctx, p.cfg.Token, models.RoleAdmin)
			if err != nil {
				p.cfg.Logger.Warn().Msg("通信が不安定です。少しお待ちください。")
				continue
			}
			p.applySessionInfo(*info)
			if p.cfg.OnSessionUpdate != nil {
				p.cfg.OnSessionUpdate(*info)
			}
		}
	}
}

func (p *Photographer) applySessionInfo(info SessionInfo) {
	p.mu.Lock()
	p.sessionID = info.ID
	p.status = info.Status
	p.photoCount = info.PhotoCount
	p.lastCaptureAt = info.LastCaptureAt
	p.mu.Unlock()
}

// StartShooting transitions the session to shooting and connects as the
// offering side if not already connected.
func (p *Photographer) StartShooting(ctx context.Context) error {
	if err := p.cfg.Client.UpdateStatus(ctx, p.cfg.Token, models.RoleAdmin, models.StatusShooting); err != nil {
		return err
	}
	p.mu.Lock()
	p.status = models.StatusShooting
	alreadyConnected := p.connected
	p.mu.Unlock()

	if alreadyConnected {
		return nil
	}
	return p.connect(ctx)
}

func (p *Photographer) connect(ctx context.Context) error {
	// A prior attempt that never reached connected would otherwise leak its
	// polling loop and peer when overwritten.
	p.stopSignaling()
	p.closePeer()

	pc, err := p.cfg.NewPeer()
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.pc = pc
	// Fresh dedup set and pending buffer for this attempt.
	p.tracker = newCandidateTracker()
	sessionID := p.sessionID
	p.mu.Unlock()

	pc.OnConnectionStateChange(func(state ConnectionState) {
		p.mu.Lock()
		p.connected = state == StateConnected
		p.mu.Unlock()
		if state == StateFailed || state == StateDisconnected {
			p.cfg.Logger.Warn().Str("state", string(state)).Msg("通信が不安定です。少しお待ちください。")
		}
	})

	signalCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	p.mu.Lock()
	p.signalCtx = signalCtx
	p.signalCancel = cancel
	p.signalDone = done
	p.mu.Unlock()

	pc.OnICECandidate(func(candidate json.RawMessage) {
		if err := p.cfg.Client.Publish(signalCtx, sessionID, models.RolePhotographer, models.SignalCandidate, candidate); err != nil {
			p.cfg.Logger.Debug().Err(err).Msg("Candidate publish failed")
		}
	})

	channel, err := pc.CreateDataChannel("control")
	if err != nil {
		cancel()
		pc.Close()
		return err
	}
	channel.OnMessage(p.handleControlMessage)
	p.mu.Lock()
	p.channel = channel
	p.mu.Unlock()

	offer, err := pc.CreateOffer()
	if err != nil {
		cancel()
		pc.Close()
		return err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		cancel()
		pc.Close()
		return err
	}
	if err := p.cfg.Client.Publish(ctx, sessionID, models.RolePhotographer, models.SignalOffer, offer); err != nil {
		cancel()
		pc.Close()
		return err
	}

	go p.signalLoop(signalCtx, done, pc, sessionID)
	return nil
}

// signalLoop polls the relay for the answer and remote candidates until
// canceled. Poll failures are retried on the next tick.
func (p *Photographer) signalLoop(ctx context.Context, done chan struct{}, pc PeerConnection, sessionID string) {
	defer close(done)
	ticker := time.NewTicker(p.cfg.SignalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot, err := p.cfg.Client.Poll(ctx, sessionID, models.RolePhotographer)
			if err != nil {
				p.cfg.Logger.Debug().Err(err).Msg("Signaling poll failed")
				continue
			}
			p.handleSnapshot(pc, snapshot)
		}
	}
}

func (p *Photographer) handleSnapshot(pc PeerConnection, snapshot *models.RoomSnapshot) {
	p.mu.Lock()
	tracker := p.tracker
	p.mu.Unlock()

	if snapshot.Answer != nil && !pc.HasRemoteDescription() {
		if err := pc.SetRemoteDescription(snapshot.Answer); err != nil {
			p.cfg.Logger.Warn().Err(err).Msg("Failed to apply answer")
			return
		}
		for _, queued := range tracker.Drain() {
			// AddICECandidate failures are timing noise while the
			// connection settles.
			_ = pc.AddICECandidate(queued)
		}
	}

	for _, candidate := range snapshot.Candidates {
		if tracker.SeenBefore(candidate) {
			continue
		}
		if !pc.HasRemoteDescription() {
			tracker.Buffer(candidate)
			continue
		}
		_ = pc.AddICECandidate(candidate)
	}
}

func (p *Photographer) handleControlMessage(data []byte) {
	var msg models.ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return // ignore non-JSON payloads
	}
	if msg.Type == models.ControlCaptured && msg.CapturedAt != "" {
		p.mu.Lock()
		at := msg.CapturedAt
		p.lastCaptureAt = &at
		p.mu.Unlock()
	}
}

// RequestCapture runs the countdown, then sends the capture command over the
// control channel. Available only while the session is shooting and the peer
// is connected. The countdown is operator UX only; nothing on the wire
// depends on it.
func (p *Photographer) RequestCapture(ctx context.Context) error {
	p.mu.Lock()
	channel := p.channel
	capturable := p.status == models.StatusShooting && p.connected
	p.mu.Unlock()
	if !capturable {
		return ErrNotShooting
	}
	if channel == nil || !channel.IsOpen() {
		return ErrChannelNotOpen
	}

	for n := 3; n >= 1; n-- {
		if p.cfg.OnCountdown != nil {
			p.cfg.OnCountdown(n)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.CountdownTick):
		}
	}

	msg := models.ControlMessage{
		Type:        models.ControlCapture,
		RequestedAt: time.Now().UTC().Format(models.TimeLayout),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return channel.Send(data)
}

// NextCut clears the last-capture marker locally; the photo count is
// untouched and nothing is sent to the relay.
func (p *Photographer) NextCut() {
	p.mu.Lock()
	p.lastCaptureAt = nil
	p.mu.Unlock()
}

// EndShooting transitions the session to ended, synchronously stops the
// signaling loop, resets the room and closes the peer connection.
func (p *Photographer) EndShooting(ctx context.Context) error {
	if err := p.cfg.Client.UpdateStatus(ctx, p.cfg.Token, models.RoleAdmin, models.StatusEnded); err != nil {
		return err
	}
	p.mu.Lock()
	p.status = models.StatusEnded
	sessionID := p.sessionID
	p.mu.Unlock()

	p.stopSignaling()
	if err := p.cfg.Client.ResetRoom(ctx, sessionID); err != nil {
		p.cfg.Logger.Warn().Err(err).Msg("Room reset failed")
	}
	p.closePeer()
	return nil
}

// Close tears the controller down without touching session state.
func (p *Photographer) Close() {
	p.stopSignaling()
	p.closePeer()
}

func (p *Photographer) stopSignaling() {
	p.mu.Lock()
	cancel := p.signalCancel
	done := p.signalDone
	p.signalCancel = nil
	p.signalDone = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *Photographer) closePeer() {
	p.mu.Lock()
	pc := p.pc
	p.pc = nil
	p.channel = nil
	p.connected = false
	p.mu.Unlock()

	if pc != nil {
		pc.Close()
	}
}

// SessionID returns the loaded session id.
func (p *Photographer) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

// Status returns the last observed session status.
func (p *Photographer) Status() models.SessionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// PhotoCount returns the last observed photo count.
func (p *Photographer) PhotoCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.photoCount
}

// LastCaptureAt returns the most recent capture timestamp, or "" after a
// NextCut.
func (p *Photographer) LastCaptureAt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastCaptureAt == nil {
		return ""
	}
	return *p.lastCaptureAt
}

// Connected reports whether the peer connection is up.
func (p *Photographer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}
