package services

import (
	"context"
	"encoding/json"
	"sync"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/ports"
	"manualcall/pkg/retry"

	"go.uber.org/zap"
)

// ChannelManagerConfig controls inbound speech and outbound retries
type ChannelManagerConfig struct {
	SpeakOnReceive bool
	VoiceLang      domain.Language
	VoiceName      string
	// SendRetry applies to sends on an open channel. Disabled by default:
	// a failed send is dropped, not re-queued.
	SendRetry retry.Config
}

// ChannelManager owns the caption data channel and its outbound queue.
type ChannelManager struct {
	cfg      ChannelManagerConfig
	log      *CaptionLog
	speech   ports.SpeechSynthesizer
	notifier ports.Notifier
	metrics  ports.CallMetrics
	logger   *zap.SugaredLogger

	// sendMu serializes every transmission so the queue drain on open and
	// direct sends never interleave.
	sendMu sync.Mutex

	mu         sync.Mutex
	channel    ports.DataChannel
	generation uint64
	state      domain.DataChannelState
	queue      []string
}

// NewChannelManager creates a manager with no channel attached. Captions are
// recorded in log
func NewChannelManager(
	cfg ChannelManagerConfig,
	log *CaptionLog,
	speech ports.SpeechSynthesizer,
	notifier ports.Notifier,
	metrics ports.CallMetrics,
	logger *zap.SugaredLogger,
) *ChannelManager {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ChannelManager{
		cfg:      cfg,
		log:      log,
		speech:   speech,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		state:    domain.DataChannelStateClosed,
	}
}

// Attach makes ch the active channel. Events from a previously attached
// channel are ignored from here on.
func (m *ChannelManager) Attach(ch ports.DataChannel) {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.channel = ch
	m.state = domain.DataChannelStateConnecting
	alreadyOpen := ch.ReadyState() == domain.DataChannelStateOpen
	m.mu.Unlock()

	m.logger.Infow("data channel attached",
		"label", ch.Label(),
		"already_open", alreadyOpen,
	)

	ch.OnOpen(func() { m.handleOpen(gen) })
	ch.OnClose(func() { m.handleClose(gen) })
	ch.OnMessage(func(data []byte) { m.handleMessage(gen, data) })

	if alreadyOpen {
		m.handleOpen(gen)
		return
	}
	m.publishState(domain.DataChannelStateConnecting)
}

// Detach forgets the active channel; late events from it are ignored.
func (m *ChannelManager) Detach() {
	m.mu.Lock()
	m.generation++
	m.channel = nil
	m.state = domain.DataChannelStateClosed
	m.mu.Unlock()
}

// Send transmits text when the channel is open and queues it otherwise.
// Queuing is not an error; a missing channel is.
func (m *ChannelManager) Send(ctx context.Context, text string) (domain.SendResult, error) {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	m.mu.Lock()
	ch := m.channel
	if ch == nil {
		m.mu.Unlock()
		return "", domain.ErrNoDataChannel
	}
	if m.state != domain.DataChannelStateOpen {
		m.queue = append(m.queue, text)
		queued := len(m.queue)
		m.mu.Unlock()

		m.metrics.CaptionQueued()
		m.logger.Debugw("caption queued", "queued", queued)
		m.notifier.Notify(domain.Toast(domain.LevelInfo, "DataChannel not open, queued"))
		return domain.SendQueued, nil
	}
	m.mu.Unlock()

	if !m.deliver(ctx, ch, text) {
		m.notifier.Notify(domain.Toast(domain.LevelWarning, "Caption send failed"))
		return domain.SendDropped, nil
	}
	return domain.SendDelivered, nil
}

// State returns the state of the attached channel, closed when none is attached
func (m *ChannelManager) State() domain.DataChannelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Log returns the caption log
func (m *ChannelManager) Log() *CaptionLog {
	return m.log
}

// Queued returns a copy of the captions waiting for the channel to open
func (m *ChannelManager) Queued() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.queue))
	copy(out, m.queue)
	return out
}

func (m *ChannelManager) handleOpen(gen uint64) {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	wasOpen := m.state == domain.DataChannelStateOpen
	m.state = domain.DataChannelStateOpen
	pending := m.queue
	m.queue = nil
	ch := m.channel
	m.mu.Unlock()

	if wasOpen && len(pending) == 0 {
		return
	}

	for _, text := range pending {
		m.deliver(context.Background(), ch, text)
	}

	if !wasOpen {
		m.logger.Infow("data channel open", "label", ch.Label(), "flushed", len(pending))
		m.publishState(domain.DataChannelStateOpen)
		m.notifier.Notify(domain.Toast(domain.LevelSuccess, "DataChannel open"))
	}
}

func (m *ChannelManager) handleClose(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.state == domain.DataChannelStateClosed {
		m.mu.Unlock()
		return
	}
	m.state = domain.DataChannelStateClosed
	queued := len(m.queue)
	m.mu.Unlock()

	m.logger.Infow("data channel closed", "queued", queued)
	m.publishState(domain.DataChannelStateClosed)
	m.notifier.Notify(domain.Toast(domain.LevelWarning, "DataChannel closed"))
}

func (m *ChannelManager) handleMessage(gen uint64, data []byte) {
	m.mu.Lock()
	stale := gen != m.generation
	m.mu.Unlock()
	if stale {
		return
	}

	var msg domain.ChannelMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		m.metrics.MalformedMessage()
		m.logger.Debugw("discarding malformed channel message", "size", len(data))
		return
	}
	if msg.Type != domain.MessageTypeCaption {
		m.logger.Debugw("ignoring channel message", "type", msg.Type)
		return
	}

	entry := m.log.Append(msg.Text, domain.OriginRemote)
	m.metrics.CaptionReceived()
	m.notifier.Notify(captionNotification(entry))

	if m.cfg.SpeakOnReceive && m.speech != nil {
		voice := VoiceFor(m.cfg.VoiceLang, m.cfg.VoiceName, msg.Text)
		if err := m.speech.Speak(context.Background(), msg.Text, voice); err != nil {
			m.logger.Warnw("speech synthesis failed", "voice", voice.Lang, "error", err)
		}
	}
}

// deliver sends one caption envelope and records it on success.
func (m *ChannelManager) deliver(ctx context.Context, ch ports.DataChannel, text string) bool {
	payload, err := json.Marshal(domain.ChannelMessage{Type: domain.MessageTypeCaption, Text: text})
	if err != nil {
		m.metrics.CaptionDropped()
		return false
	}

	err = retry.Retry(ctx, m.cfg.SendRetry, func() error {
		return ch.SendText(string(payload))
	})
	if err != nil {
		m.metrics.CaptionDropped()
		m.logger.Warnw("caption send failed", "label", ch.Label(), "error", err)
		return false
	}

	entry := m.log.Append(text, domain.OriginSelf)
	m.metrics.CaptionSent()
	m.notifier.Notify(captionNotification(entry))
	return true
}

func (m *ChannelManager) publishState(state domain.DataChannelState) {
	m.metrics.DataChannelStateChanged(state)
	m.notifier.Notify(domain.StateChange(domain.KindDataChannelState, string(state)))
}

func captionNotification(entry domain.CaptionEntry) domain.Notification {
	return domain.Notification{Kind: domain.KindCaption, Caption: &entry, At: entry.At}
}
