package controller

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"remote-shoot-backend/internal/models"

	"github.com/rs/zerolog"
)

// CameraConfig wires a phone-side controller instance.
type CameraConfig struct {
	Client  *Client
	Token   string
	NewPeer PeerFactory
	Frames  FrameSource

	SignalInterval time.Duration // default 1s

	Logger zerolog.Logger
}

// Camera is the phone-side controller: it answers the photographer's offer,
// listens for capture commands on the control channel and uploads frames.
type Camera struct {
	cfg CameraConfig

	mu        sync.Mutex
	sessionID string
	connected bool

	pc      PeerConnection
	channel DataChannel
	tracker *candidateTracker

	runCtx       context.Context
	signalCancel context.CancelFunc
	signalDone   chan struct{}
}

func NewCamera(cfg CameraConfig) *Camera {
	if cfg.SignalInterval == 0 {
		cfg.SignalInterval = time.Second
	}
	return &Camera{cfg: cfg}
}

// Load fetches the session as the user role.
func (c *Camera) Load(ctx context.Context) error {
	info, err := c.cfg.Client.GetSession(ctx, c.cfg.Token, models.RoleUser)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sessionID = info.ID
	c.mu.Unlock()
	return nil
}

// Start reports camera readiness and connects as the answering side.
func (c *Camera) Start(ctx context.Context) error {
	if err := c.cfg.Client.UpdateStatus(ctx, c.cfg.Token, models.RoleUser, models.StatusReady); err != nil {
		return err
	}
	return c.connect(ctx)
}

func (c *Camera) connect(ctx context.Context) error {
	// A prior attempt that never reached connected would otherwise leak its
	// polling loop and peer when overwritten.
	c.stop()

	pc, err := c.cfg.NewPeer()
	if err != nil {
		return err
	}

	signalCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	c.mu.Lock()
	c.pc = pc
	// Fresh dedup set and pending buffer for this attempt.
	c.tracker = newCandidateTracker()
	sessionID := c.sessionID
	c.runCtx = signalCtx
	c.signalCancel = cancel
	c.signalDone = done
	c.mu.Unlock()

	pc.OnConnectionStateChange(func(state ConnectionState) {
		c.mu.Lock()
		c.connected = state == StateConnected
		c.mu.Unlock()
		if state == StateFailed || state == StateDisconnected {
			c.cfg.Logger.Warn().Str("state", string(state)).Msg("通信が不安定です。少しお待ちください。")
		}
	})

	pc.OnICECandidate(func(candidate json.RawMessage) {
		if err := c.cfg.Client.Publish(signalCtx, sessionID, models.RoleCamera, models.SignalCandidate, candidate); err != nil {
			c.cfg.Logger.Debug().Err(err).Msg("Candidate publish failed")
		}
	})

	pc.OnDataChannel(func(channel DataChannel) {
		c.mu.Lock()
		c.channel = channel
		c.mu.Unlock()
		channel.OnMessage(c.handleControlMessage)
	})

	go c.signalLoop(signalCtx, done, pc, sessionID)
	return nil
}

// signalLoop polls for the offer and remote candidates. On first sight of an
// unconsumed offer it produces and publishes the answer, then drains any
// candidates buffered during the gap.
func (c *Camera) signalLoop(ctx context.Context, done chan struct{}, pc PeerConnection, sessionID string) {
	defer close(done)
	ticker := time.NewTicker(c.cfg.SignalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot, err := c.cfg.Client.Poll(ctx, sessionID, models.RoleCamera)
			if err != nil {
				c.cfg.Logger.Debug().Err(err).Msg("Signaling poll failed")
				continue
			}
			c.handleSnapshot(ctx, pc, sessionID, snapshot)
		}
	}
}

func (c *Camera) handleSnapshot(ctx context.Context, pc PeerConnection, sessionID string, snapshot *models.RoomSnapshot) {
	c.mu.Lock()
	tracker := c.tracker
	c.mu.Unlock()

	if snapshot.Offer != nil && !pc.HasRemoteDescription() {
		if err := c.answer(ctx, pc, sessionID, snapshot.Offer); err != nil {
			c.cfg.Logger.Warn().Err(err).Msg("Failed to answer offer")
			return
		}
		for _, queued := range tracker.Drain() {
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

func (c *Camera) answer(ctx context.Context, pc PeerConnection, sessionID string, offer json.RawMessage) error {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return err
	}
	answer, err := pc.CreateAnswer()
	if err != nil {
		return err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return err
	}
	return c.cfg.Client.Publish(ctx, sessionID, models.RoleCamera, models.SignalAnswer, answer)
}

func (c *Camera) handleControlMessage(data []byte) {
	var msg models.ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return // ignore non-JSON payloads
	}
	if msg.Type != models.ControlCapture {
		return
	}

	c.mu.Lock()
	ctx := c.runCtx
	c.mu.Unlock()
	if ctx == nil {
		return
	}
	go c.captureAndUpload(ctx)
}

// captureAndUpload grabs one frame, uploads it and acknowledges over the
// control channel.
func (c *Camera) captureAndUpload(ctx context.Context) {
	frame, err := c.cfg.Frames.Frame(ctx)
	if err != nil {
		c.cfg.Logger.Error().Err(err).Msg("Frame capture failed")
		return
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame)
	capturedAt := time.Now().UTC().Format(models.TimeLayout)

	count, err := c.cfg.Client.UploadPhoto(ctx, c.cfg.Token, dataURL, capturedAt)
	if err != nil {
		c.cfg.Logger.Error().Err(err).Msg("Photo upload failed")
		return
	}
	c.cfg.Logger.Info().Int("photo_count", count).Str("captured_at", capturedAt).Msg("Capture uploaded")

	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel != nil && channel.IsOpen() {
		ack, err := json.Marshal(models.ControlMessage{
			Type:       models.ControlCaptured,
			CapturedAt: capturedAt,
		})
		if err == nil {
			_ = channel.Send(ack)
		}
	}
}

// Close synchronously stops the signaling loop and closes the peer.
func (c *Camera) Close() {
	c.stop()
}

func (c *Camera) stop() {
	c.mu.Lock()
	cancel := c.signalCancel
	done := c.signalDone
	pc := c.pc
	c.signalCancel = nil
	c.signalDone = nil
	c.pc = nil
	c.channel = nil
	c.connected = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if pc != nil {
		pc.Close()
	}
}

// SessionID returns the loaded session id.
func (c *Camera) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Connected reports whether the peer connection is up.
func (c *Camera) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
