// Package testutil holds in-memory implementations of the core ports for
// tests that run without a network or audio device.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

var ErrChannelNotOpen = errors.New("data channel not open")

type FakeDataChannel struct {
	mu        sync.Mutex
	label     string
	state     domain.DataChannelState
	sent      []string
	sendErr   error
	onOpen    func()
	onClose   func()
	onMessage func([]byte)
}

// NewFakeDataChannel creates a connecting channel with the given label
func NewFakeDataChannel(label string) *FakeDataChannel {
	return &FakeDataChannel{label: label, state: domain.DataChannelStateConnecting}
}

func (c *FakeDataChannel) Label() string { return c.label }

func (c *FakeDataChannel) ReadyState() domain.DataChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *FakeDataChannel) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	if c.state != domain.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *FakeDataChannel) OnOpen(f func()) {
	c.mu.Lock()
	c.onOpen = f
	c.mu.Unlock()
}

func (c *FakeDataChannel) OnClose(f func()) {
	c.mu.Lock()
	c.onClose = f
	c.mu.Unlock()
}

func (c *FakeDataChannel) OnMessage(f func([]byte)) {
	c.mu.Lock()
	c.onMessage = f
	c.mu.Unlock()
}

func (c *FakeDataChannel) Close() error {
	c.Shutdown()
	return nil
}

// Open moves the channel to open and fires the open handler.
func (c *FakeDataChannel) Open() {
	c.mu.Lock()
	c.state = domain.DataChannelStateOpen
	f := c.onOpen
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

// Shutdown moves the channel to closed and fires the close handler.
func (c *FakeDataChannel) Shutdown() {
	c.mu.Lock()
	c.state = domain.DataChannelStateClosed
	f := c.onClose
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

// Receive delivers data as if it arrived from the remote peer.
func (c *FakeDataChannel) Receive(data string) {
	c.mu.Lock()
	f := c.onMessage
	c.mu.Unlock()
	if f != nil {
		f([]byte(data))
	}
}

// FailSends makes every later SendText return err
func (c *FakeDataChannel) FailSends(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

// Sent returns the messages written so far
func (c *FakeDataChannel) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

type FakeSender struct {
	kind string
}

func (s *FakeSender) TrackKind() string { return s.kind }

// FakePeerConnection is an in-memory ports.PeerConnection driven by the test
type FakePeerConnection struct {
	mu sync.Mutex

	// AutoGather completes ICE gathering as soon as a local description is set.
	AutoGather bool

	// AnswerErr, when set, is returned by CreateAnswer.
	AnswerErr error

	local      *domain.SessionDescription
	remote     *domain.SessionDescription
	gathering  domain.ICEGatheringState
	gatherDone chan struct{}
	gatherOnce sync.Once
	channels   []*FakeDataChannel
	senders    []*FakeSender
	closed     bool

	onConnState func(domain.ConnectionState)
	onICEState  func(domain.ICEConnectionState)
	onChannel   func(ports.DataChannel)
	onTrack     func(domain.RemoteTrack)
}

// NewFakePeerConnection creates a connection that gathers ICE instantly
func NewFakePeerConnection() *FakePeerConnection {
	return &FakePeerConnection{
		AutoGather: true,
		gathering:  domain.ICEGatheringStateNew,
		gatherDone: make(chan struct{}),
	}
}

func (pc *FakePeerConnection) CreateOffer(ctx context.Context) (domain.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescription{}, err
	}
	return domain.SessionDescription{Type: domain.SDPTypeOffer, SDP: "v=0\r\no=- fake-offer\r\n"}, nil
}

func (pc *FakePeerConnection) CreateAnswer(ctx context.Context) (domain.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescription{}, err
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.AnswerErr != nil {
		return domain.SessionDescription{}, pc.AnswerErr
	}
	if pc.remote == nil || pc.remote.Type != domain.SDPTypeOffer {
		return domain.SessionDescription{}, errors.New("no remote offer")
	}
	return domain.SessionDescription{Type: domain.SDPTypeAnswer, SDP: "v=0\r\no=- fake-answer\r\n"}, nil
}

func (pc *FakePeerConnection) SetLocalDescription(desc domain.SessionDescription) error {
	pc.mu.Lock()
	if pc.closed {
		pc.mu.Unlock()
		return errors.New("peer connection closed")
	}
	pc.local = &desc
	pc.gathering = domain.ICEGatheringStateGathering
	auto := pc.AutoGather
	pc.mu.Unlock()

	if auto {
		pc.CompleteGathering()
	}
	return nil
}

func (pc *FakePeerConnection) SetRemoteDescription(desc domain.SessionDescription) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.closed {
		return errors.New("peer connection closed")
	}
	pc.remote = &desc
	return nil
}

// LocalDescription includes a host candidate once gathering has completed.
func (pc *FakePeerConnection) LocalDescription() *domain.SessionDescription {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.local == nil {
		return nil
	}
	desc := *pc.local
	if pc.gathering == domain.ICEGatheringStateComplete {
		desc.SDP += "a=candidate:1 1 udp 2130706431 127.0.0.1 50000 typ host\r\n"
	}
	return &desc
}

func (pc *FakePeerConnection) RemoteDescription() *domain.SessionDescription {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.remote
}

func (pc *FakePeerConnection) CreateDataChannel(label string) (ports.DataChannel, error) {
	ch := NewFakeDataChannel(label)
	pc.mu.Lock()
	pc.channels = append(pc.channels, ch)
	pc.mu.Unlock()
	return ch, nil
}

func (pc *FakePeerConnection) DataChannels() []*FakeDataChannel {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return append([]*FakeDataChannel(nil), pc.channels...)
}

func (pc *FakePeerConnection) AddTrack(track ports.AudioTrack) (ports.RTPSender, error) {
	s := &FakeSender{kind: track.Kind()}
	pc.mu.Lock()
	pc.senders = append(pc.senders, s)
	pc.mu.Unlock()
	return s, nil
}

func (pc *FakePeerConnection) RemoveTrack(sender ports.RTPSender) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	for i, s := range pc.senders {
		if ports.RTPSender(s) == sender {
			pc.senders = append(pc.senders[:i], pc.senders[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unknown sender")
}

func (pc *FakePeerConnection) GetSenders() []ports.RTPSender {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	out := make([]ports.RTPSender, 0, len(pc.senders))
	for _, s := range pc.senders {
		out = append(out, s)
	}
	return out
}

func (pc *FakePeerConnection) ICEGatheringState() domain.ICEGatheringState {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.gathering
}

func (pc *FakePeerConnection) GatheringComplete() <-chan struct{} {
	return pc.gatherDone
}

func (pc *FakePeerConnection) CompleteGathering() {
	pc.gatherOnce.Do(func() {
		pc.mu.Lock()
		pc.gathering = domain.ICEGatheringStateComplete
		pc.mu.Unlock()
		close(pc.gatherDone)
	})
}

func (pc *FakePeerConnection) OnConnectionStateChange(f func(domain.ConnectionState)) {
	pc.mu.Lock()
	pc.onConnState = f
	pc.mu.Unlock()
}

func (pc *FakePeerConnection) OnICEConnectionStateChange(f func(domain.ICEConnectionState)) {
	pc.mu.Lock()
	pc.onICEState = f
	pc.mu.Unlock()
}

func (pc *FakePeerConnection) OnDataChannel(f func(ports.DataChannel)) {
	pc.mu.Lock()
	pc.onChannel = f
	pc.mu.Unlock()
}

func (pc *FakePeerConnection) OnTrack(f func(domain.RemoteTrack)) {
	pc.mu.Lock()
	pc.onTrack = f
	pc.mu.Unlock()
}

func (pc *FakePeerConnection) Close() error {
	pc.mu.Lock()
	pc.closed = true
	pc.mu.Unlock()
	return nil
}

func (pc *FakePeerConnection) Closed() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.closed
}

func (pc *FakePeerConnection) EmitConnectionState(state domain.ConnectionState) {
	pc.mu.Lock()
	f := pc.onConnState
	pc.mu.Unlock()
	if f != nil {
		f(state)
	}
}

func (pc *FakePeerConnection) EmitICEConnectionState(state domain.ICEConnectionState) {
	pc.mu.Lock()
	f := pc.onICEState
	pc.mu.Unlock()
	if f != nil {
		f(state)
	}
}

// EmitDataChannel announces a channel opened by the remote peer.
func (pc *FakePeerConnection) EmitDataChannel(ch *FakeDataChannel) {
	pc.mu.Lock()
	f := pc.onChannel
	pc.mu.Unlock()
	if f != nil {
		f(ch)
	}
}

func (pc *FakePeerConnection) EmitTrack(track domain.RemoteTrack) {
	pc.mu.Lock()
	f := pc.onTrack
	pc.mu.Unlock()
	if f != nil {
		f(track)
	}
}

// FakeFactory hands out FakePeerConnections and remembers them
type FakeFactory struct {
	mu    sync.Mutex
	Err   error
	conns []*FakePeerConnection

	// Configure, if set, runs on every new connection before it is returned.
	Configure func(*FakePeerConnection)
}

func (f *FakeFactory) NewPeerConnection() (ports.PeerConnection, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	pc := NewFakePeerConnection()
	if f.Configure != nil {
		f.Configure(pc)
	}
	f.mu.Lock()
	f.conns = append(f.conns, pc)
	f.mu.Unlock()
	return pc, nil
}

// Last returns the most recently created connection
func (f *FakeFactory) Last() *FakePeerConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

type FakeTrack struct {
	mu      sync.Mutex
	id      string
	enabled bool
}

func (t *FakeTrack) ID() string   { return t.id }
func (t *FakeTrack) Kind() string { return "audio" }

func (t *FakeTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *FakeTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

// FakeMicrophone yields one fresh track per Start
type FakeMicrophone struct {
	mu       sync.Mutex
	StartErr error
	starts   int
	stops    int
	tracks   []*FakeTrack
}

func (m *FakeMicrophone) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		return m.StartErr
	}
	m.starts++
	m.tracks = []*FakeTrack{{id: fmt.Sprintf("mic-%d", m.starts), enabled: true}}
	return nil
}

func (m *FakeMicrophone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.tracks = nil
	return nil
}

func (m *FakeMicrophone) Tracks() []ports.AudioTrack {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.AudioTrack, 0, len(m.tracks))
	for _, t := range m.tracks {
		out = append(out, t)
	}
	return out
}

// Stops returns how many times Stop was called
func (m *FakeMicrophone) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// MockSpeech is a testify mock of ports.SpeechSynthesizer
type MockSpeech struct {
	mock.Mock
}

func (m *MockSpeech) Speak(ctx context.Context, text string, voice domain.VoiceHint) error {
	args := m.Called(ctx, text, voice)
	return args.Error(0)
}

type RecordingNotifier struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (n *RecordingNotifier) Notify(note domain.Notification) {
	n.mu.Lock()
	n.notes = append(n.notes, note)
	n.mu.Unlock()
}

func (n *RecordingNotifier) All() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.notes...)
}

func (n *RecordingNotifier) Toasts() []string {
	var out []string
	for _, note := range n.All() {
		if note.Kind == domain.KindToast {
			out = append(out, note.Message)
		}
	}
	return out
}

// States returns the state values published for kind, in order.
func (n *RecordingNotifier) States(kind domain.NotificationKind) []string {
	var out []string
	for _, note := range n.All() {
		if note.Kind == kind {
			out = append(out, note.State)
		}
	}
	return out
}

func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	n.notes = nil
	n.mu.Unlock()
}

// MetricCounts is a copy of what FakeMetrics has recorded.
type MetricCounts struct {
	Sent           int
	Queued         int
	Dropped        int
	Received       int
	Malformed      int
	Negotiations   []string
	GatherTimeouts int
}

// FakeMetrics counts the events it receives
type FakeMetrics struct {
	mu     sync.Mutex
	counts MetricCounts
}

func (m *FakeMetrics) CaptionSent()      { m.inc(&m.counts.Sent) }
func (m *FakeMetrics) CaptionQueued()    { m.inc(&m.counts.Queued) }
func (m *FakeMetrics) CaptionDropped()   { m.inc(&m.counts.Dropped) }
func (m *FakeMetrics) CaptionReceived()  { m.inc(&m.counts.Received) }
func (m *FakeMetrics) MalformedMessage() { m.inc(&m.counts.Malformed) }

func (m *FakeMetrics) NegotiationCompleted(op string, _ time.Duration, timedOut bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts.Negotiations = append(m.counts.Negotiations, op)
	if timedOut {
		m.counts.GatherTimeouts++
	}
}

func (m *FakeMetrics) ConnectionStateChanged(domain.ConnectionState)   {}
func (m *FakeMetrics) DataChannelStateChanged(domain.DataChannelState) {}

// Counts returns a snapshot of the recorded events
func (m *FakeMetrics) Counts() MetricCounts {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.counts
	c.Negotiations = append([]string(nil), m.counts.Negotiations...)
	return c
}

func (m *FakeMetrics) inc(p *int) {
	m.mu.Lock()
	*p++
	m.mu.Unlock()
}
