// Package rtc adapts pion/webrtc to the controller's opaque peer-connection
// contract. Descriptions and candidates cross the boundary as the same JSON
// blobs the signaling relay carries.
package rtc

import (
	"encoding/json"
	"fmt"

	"remote-shoot-backend/internal/config"
	"remote-shoot-backend/internal/controller"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// Peer wraps a pion peer connection.
type Peer struct {
	pc *webrtc.PeerConnection
}

// NewFactory returns a controller.PeerFactory over pion with the configured
// ICE servers.
func NewFactory(cfg config.WebRTCConfig) controller.PeerFactory {
	return func() (controller.PeerConnection, error) {
		return NewPeer(cfg)
	}
}

func NewPeer(cfg config.WebRTCConfig) (*Peer, error) {
	settings := webrtc.SettingEngine{
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	}
	api := webrtc.NewAPI(webrtc.WithSettingEngine(settings))

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: cfg.ICEServers}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}
	return &Peer{pc: pc}, nil
}

func (p *Peer) CreateOffer() (json.RawMessage, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	return json.Marshal(offer)
}

func (p *Peer) CreateAnswer() (json.RawMessage, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}
	return json.Marshal(answer)
}

func (p *Peer) SetLocalDescription(desc json.RawMessage) error {
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(desc, &sd); err != nil {
		return fmt.Errorf("invalid local description: %w", err)
	}
	return p.pc.SetLocalDescription(sd)
}

func (p *Peer) SetRemoteDescription(desc json.RawMessage) error {
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(desc, &sd); err != nil {
		return fmt.Errorf("invalid remote description: %w", err)
	}
	return p.pc.SetRemoteDescription(sd)
}

func (p *Peer) HasRemoteDescription() bool {
	return p.pc.RemoteDescription() != nil
}

func (p *Peer) AddICECandidate(candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return fmt.Errorf("invalid candidate: %w", err)
	}
	return p.pc.AddICECandidate(init)
}

func (p *Peer) CreateDataChannel(label string) (controller.DataChannel, error) {
	ordered := true
	dc, err := p.pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, fmt.Errorf("failed to create data channel: %w", err)
	}
	return &Channel{dc: dc}, nil
}

func (p *Peer) OnDataChannel(fn func(controller.DataChannel)) {
	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		fn(&Channel{dc: dc})
	})
}

func (p *Peer) OnICECandidate(fn func(json.RawMessage)) {
	p.pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return // end-of-candidates marker
		}
		data, err := json.Marshal(candidate.ToJSON())
		if err != nil {
			return
		}
		fn(data)
	})
}

func (p *Peer) OnConnectionStateChange(fn func(controller.ConnectionState)) {
	p.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		fn(controller.ConnectionState(state.String()))
	})
}

func (p *Peer) Close() error {
	return p.pc.Close()
}

// Channel wraps a pion data channel as the control channel.
type Channel struct {
	dc *webrtc.DataChannel
}

func (c *Channel) Send(data []byte) error {
	// Text frames, so browser peers receive strings.
	return c.dc.SendText(string(data))
}

func (c *Channel) IsOpen() bool {
	return c.dc.ReadyState() == webrtc.DataChannelStateOpen
}

func (c *Channel) OnOpen(fn func()) {
	c.dc.OnOpen(fn)
}

func (c *Channel) OnMessage(fn func([]byte)) {
	c.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		fn(msg.Data)
	})
}
