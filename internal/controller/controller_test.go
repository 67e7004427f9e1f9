package controller

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"remote-shoot-backend/internal/handlers"
	"remote-shoot-backend/internal/router"
	"remote-shoot-backend/internal/services"
	"remote-shoot-backend/internal/store"

	"github.com/rs/zerolog"
)

// fakeChannel is an in-memory control channel. Two channels can be linked so
// a Send on one side is delivered to the other, like an established data
// channel.
type fakeChannel struct {
	mu        sync.Mutex
	open      bool
	sent      [][]byte
	onOpen    func()
	onMessage func([]byte)
	remote    *fakeChannel
}

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	c.sent = append(c.sent, data)
	remote := c.remote
	c.mu.Unlock()
	if remote != nil {
		remote.deliver(data)
	}
	return nil
}

func (c *fakeChannel) deliver(data []byte) {
	c.mu.Lock()
	fn := c.onMessage
	c.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

func (c *fakeChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeChannel) OnOpen(fn func()) {
	c.mu.Lock()
	c.onOpen = fn
	c.mu.Unlock()
}

func (c *fakeChannel) OnMessage(fn func([]byte)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

func (c *fakeChannel) setOpen() {
	c.mu.Lock()
	c.open = true
	fn := c.onOpen
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *fakeChannel) sentMessages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// linkChannels wires two fake channels back to back and marks both open.
func linkChannels(a, b *fakeChannel) {
	a.mu.Lock()
	a.remote = b
	a.mu.Unlock()
	b.mu.Lock()
	b.remote = a
	b.mu.Unlock()
	a.setOpen()
	b.setOpen()
}

// fakePeer is a scripted peer connection: canned descriptions, recorded
// candidate applications.
type fakePeer struct {
	mu             sync.Mutex
	localDesc      json.RawMessage
	remoteDesc     json.RawMessage
	added          []string
	addErr         error
	setRemoteCalls int
	channel        *fakeChannel
	onDataChannel  func(DataChannel)
	onICE          func(json.RawMessage)
	onState        func(ConnectionState)
	closed         bool
}

func newFakePeer() *fakePeer { return &fakePeer{} }

func (p *fakePeer) CreateOffer() (json.RawMessage, error) {
	return json.RawMessage(`{"type":"offer","sdp":"v=0 fake-offer"}`), nil
}

func (p *fakePeer) CreateAnswer() (json.RawMessage, error) {
	return json.RawMessage(`{"type":"answer","sdp":"v=0 fake-answer"}`), nil
}

func (p *fakePeer) SetLocalDescription(desc json.RawMessage) error {
	p.mu.Lock()
	p.localDesc = desc
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) SetRemoteDescription(desc json.RawMessage) error {
	p.mu.Lock()
	p.remoteDesc = desc
	p.setRemoteCalls++
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) remoteDescriptionCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setRemoteCalls
}

func (p *fakePeer) HasRemoteDescription() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remoteDesc != nil
}

func (p *fakePeer) AddICECandidate(candidate json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addErr != nil {
		return p.addErr
	}
	p.added = append(p.added, string(candidate))
	return nil
}

func (p *fakePeer) CreateDataChannel(string) (DataChannel, error) {
	ch := &fakeChannel{}
	p.mu.Lock()
	p.channel = ch
	p.mu.Unlock()
	return ch, nil
}

func (p *fakePeer) OnDataChannel(fn func(DataChannel)) {
	p.mu.Lock()
	p.onDataChannel = fn
	p.mu.Unlock()
}

func (p *fakePeer) OnICECandidate(fn func(json.RawMessage)) {
	p.mu.Lock()
	p.onICE = fn
	p.mu.Unlock()
}

func (p *fakePeer) OnConnectionStateChange(fn func(ConnectionState)) {
	p.mu.Lock()
	p.onState = fn
	p.mu.Unlock()
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) fireDataChannel(ch DataChannel) {
	p.mu.Lock()
	fn := p.onDataChannel
	p.mu.Unlock()
	if fn != nil {
		fn(ch)
	}
}

func (p *fakePeer) emitCandidate(candidate json.RawMessage) {
	p.mu.Lock()
	fn := p.onICE
	p.mu.Unlock()
	if fn != nil {
		fn(candidate)
	}
}

func (p *fakePeer) setState(state ConnectionState) {
	p.mu.Lock()
	fn := p.onState
	p.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}

func (p *fakePeer) addedCandidates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.added))
	copy(out, p.added)
	return out
}

func (p *fakePeer) remoteDescription() json.RawMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remoteDesc
}

func (p *fakePeer) createdChannel() *fakeChannel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel
}

func peerFactory(p *fakePeer) PeerFactory {
	return func() (PeerConnection, error) { return p, nil }
}

// sequencePeerFactory hands out one peer per connection attempt.
func sequencePeerFactory(peers ...*fakePeer) PeerFactory {
	i := 0
	return func() (PeerConnection, error) {
		p := peers[i]
		i++
		return p, nil
	}
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// staticFrames always returns the same JPEG bytes.
type staticFrames struct{ data []byte }

func (s staticFrames) Frame(context.Context) ([]byte, error) { return s.data, nil }

type memoryBlobs struct {
	mu   sync.Mutex
	keys []string
}

func (b *memoryBlobs) Save(_ context.Context, key string, _ []byte, _ string) (string, error) {
	b.mu.Lock()
	b.keys = append(b.keys, key)
	b.mu.Unlock()
	return "mem://" + key, nil
}

// newTestRelay starts a full relay (memory stores, real handlers) and
// returns an API client pointed at it.
func newTestRelay(t *testing.T) *Client {
	t.Helper()

	clock := store.SystemClock()
	sessions := store.NewMemorySessionStore(clock)
	rooms := store.NewRoomStore(clock)
	hub := services.NewSignalHub()
	signaling := services.NewSignalingService(rooms, hub)
	sessionSvc := services.NewSessionService(sessions, signaling, clock, "http://test")
	photoSvc := services.NewPhotoService(sessions, &memoryBlobs{}, clock)

	r := router.New(
		handlers.NewSessionHandler(sessionSvc),
		handlers.NewSignalingHandler(signaling),
		handlers.NewPhotoHandler(photoSvc),
		handlers.NewWebSocketHandler(hub, signaling),
		nil,
	)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return NewClient(server.URL)
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
