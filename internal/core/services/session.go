package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/ports"
	"manualcall/pkg/tracing"
	"manualcall/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionConfig is the per-call configuration shared by every session of a process
type SessionConfig struct {
	Role            domain.PeerRole
	Translation     domain.TranslationConfig
	Channel         ChannelManagerConfig
	CaptionLogLimit int
	GatherTimeout   time.Duration
}

// Dependencies are the adapters a session drives. Factory is required; nil
// notifier, metrics and logger default to no-ops
type Dependencies struct {
	Factory    ports.PeerConnectionFactory
	Microphone ports.MicrophoneSource
	Speech     ports.SpeechSynthesizer
	Translator ports.Translator
	Notifier   ports.Notifier
	Metrics    ports.CallMetrics
	Logger     *zap.SugaredLogger
}

// Session is one call attempt: a peer connection plus the components that
// own its pieces. Role is fixed for the lifetime of the session.
type Session struct {
	id        domain.SessionID
	cfg       SessionConfig
	createdAt time.Time

	pc         ports.PeerConnection
	mic        ports.MicrophoneSource
	translator ports.Translator
	notifier   *sessionNotifier
	logger     *zap.SugaredLogger

	log        *CaptionLog
	channels   *ChannelManager
	negotiator *Negotiator
	observer   *ConnectionObserver

	micMu  sync.Mutex
	micOn  atomic.Bool
	muted  atomic.Bool
	closed atomic.Bool
}

// Snapshot is a point-in-time view of a session for the control API.
type Snapshot struct {
	SessionID          domain.SessionID          `json:"session_id"`
	Role               domain.PeerRole           `json:"role"`
	Translation        domain.TranslationConfig  `json:"translation"`
	ConnectionState    domain.ConnectionState    `json:"connection_state"`
	ICEConnectionState domain.ICEConnectionState `json:"ice_connection_state"`
	ICEGatheringState  domain.ICEGatheringState  `json:"ice_gathering_state"`
	DataChannelState   domain.DataChannelState   `json:"datachannel_state"`
	MicOn              bool                      `json:"mic_on"`
	Muted              bool                      `json:"muted"`
	CallActive         bool                      `json:"call_active"`
	InCallView         bool                      `json:"in_call_view"`
	Busy               bool                      `json:"busy"`
	Queued             int                       `json:"queued"`
	CallDuration       time.Duration             `json:"call_duration_ns"`
	CallClock          string                    `json:"call_clock"`
	LocalDescription   string                    `json:"local_description,omitempty"`
	Captions           []domain.CaptionEntry     `json:"captions"`
	Closed             bool                      `json:"closed"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// OpenSession creates the peer connection for a new call and registers its
// event handlers. Remote data channels other than the caption channel are ignored
func OpenSession(cfg SessionConfig, deps Dependencies) (*Session, error) {
	if _, err := domain.ParsePeerRole(string(cfg.Role)); err != nil {
		return nil, err
	}
	if deps.Factory == nil {
		return nil, errors.New("peer connection factory is required")
	}
	if deps.Translator == nil {
		deps.Translator = NewCaptionTranslator()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}
	if cfg.CaptionLogLimit <= 0 {
		cfg.CaptionLogLimit = DefaultCaptionLogLimit
	}

	pc, err := deps.Factory.NewPeerConnection()
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	id := domain.SessionID(uuid.New().String())
	logger := deps.Logger.With("session_id", id, "role", cfg.Role)
	notifier := newSessionNotifier(id, deps.Notifier)

	s := &Session{
		id:         id,
		cfg:        cfg,
		createdAt:  time.Now(),
		pc:         pc,
		mic:        deps.Microphone,
		translator: deps.Translator,
		notifier:   notifier,
		logger:     logger,
		log:        NewCaptionLog(cfg.CaptionLogLimit),
	}
	s.channels = NewChannelManager(cfg.Channel, s.log, deps.Speech, notifier, deps.Metrics, logger)
	s.observer = NewConnectionObserver(notifier, deps.Metrics, logger)
	s.negotiator = NewNegotiator(NegotiatorConfig{
		SessionID:     id,
		Role:          cfg.Role,
		GatherTimeout: cfg.GatherTimeout,
	}, pc, s.channels, s.micOn.Load, notifier, deps.Metrics, logger)

	pc.OnConnectionStateChange(func(state domain.ConnectionState) {
		if s.closed.Load() {
			return
		}
		s.observer.HandleConnectionState(state)
	})
	pc.OnICEConnectionStateChange(func(state domain.ICEConnectionState) {
		if s.closed.Load() {
			return
		}
		s.observer.HandleICEConnectionState(state)
	})
	pc.OnDataChannel(func(ch ports.DataChannel) {
		if s.closed.Load() {
			return
		}
		if ch.Label() != CaptionChannelLabel {
			logger.Infow("ignoring unexpected data channel", "label", ch.Label())
			return
		}
		s.channels.Attach(ch)
	})
	pc.OnTrack(func(track domain.RemoteTrack) {
		if s.closed.Load() {
			return
		}
		logger.Infow("remote track received", "track_id", track.ID, "kind", track.Kind, "codec", track.Codec)
		notifier.Notify(domain.Toast(domain.LevelInfo, "Remote "+track.Kind+" track received"))
	})

	logger.Infow("session opened",
		"translation_mode", cfg.Translation.Mode,
		"source_lang", cfg.Translation.SourceLang,
		"target_lang", cfg.Translation.TargetLang,
	)
	return s, nil
}

// ID returns the session identifier used in logs and notifications
func (s *Session) ID() domain.SessionID { return s.id }

// Role returns the fixed negotiation role
func (s *Session) Role() domain.PeerRole { return s.cfg.Role }

// CaptionLog returns the bounded log of sent and received captions
func (s *Session) CaptionLog() *CaptionLog { return s.log }

// StartMic acquires the microphone and swaps its tracks onto the peer
// connection. On failure the microphone stays off.
func (s *Session) StartMic(ctx context.Context) error {
	if s.closed.Load() {
		return domain.ErrSessionClosed
	}
	s.micMu.Lock()
	defer s.micMu.Unlock()

	if s.mic == nil {
		s.notifier.Notify(domain.Toast(domain.LevelError, "Microphone failed"))
		return domain.ErrMicrophoneUnavailable
	}

	if err := s.mic.Start(ctx); err != nil {
		s.micOn.Store(false)
		s.logger.Warnw("microphone start failed", "error", err)
		s.notifier.Notify(domain.Toast(domain.LevelError, "Microphone failed"))
		return fmt.Errorf("%w: %v", domain.ErrMicrophoneUnavailable, err)
	}

	tracks := s.mic.Tracks()
	if err := s.negotiator.ReplaceAudioTracks(tracks); err != nil {
		_ = s.mic.Stop()
		s.micOn.Store(false)
		s.logger.Errorw("attaching microphone tracks failed", "error", err)
		s.notifier.Notify(domain.Toast(domain.LevelError, "Microphone failed"))
		return err
	}

	s.micOn.Store(true)
	s.muted.Store(false)
	s.logger.Infow("microphone started", "tracks", len(tracks))
	s.notifier.Notify(domain.Toast(domain.LevelSuccess, "Microphone started"))
	return nil
}

// StopMic stops the microphone and releases its tracks. It is a no-op when
// the microphone is already off
func (s *Session) StopMic() error {
	s.micMu.Lock()
	defer s.micMu.Unlock()
	return s.stopMicLocked(true)
}

func (s *Session) stopMicLocked(notify bool) error {
	if s.mic == nil || !s.micOn.Load() {
		return nil
	}
	err := s.mic.Stop()
	s.micOn.Store(false)
	s.muted.Store(false)
	if err != nil {
		s.logger.Warnw("microphone stop failed", "error", err)
	}
	if notify {
		s.notifier.Notify(domain.Toast(domain.LevelInfo, "Microphone stopped"))
	}
	return err
}

// ToggleMute flips the enabled flag on every local track and reports the
// new muted state.
func (s *Session) ToggleMute() (bool, error) {
	s.micMu.Lock()
	defer s.micMu.Unlock()

	if !s.micOn.Load() {
		s.notifier.Notify(domain.Toast(domain.LevelWarning, "Start microphone first"))
		return false, domain.ErrMicrophoneInactive
	}

	muted := !s.muted.Load()
	for _, track := range s.mic.Tracks() {
		track.SetEnabled(!muted)
	}
	s.muted.Store(muted)

	msg := "Microphone unmuted"
	if muted {
		msg = "Microphone muted"
	}
	s.notifier.Notify(domain.Toast(domain.LevelInfo, msg))
	return muted, nil
}

// CreateOffer creates the local offer and returns its exportable text. Caller only
func (s *Session) CreateOffer(ctx context.Context) (string, error) {
	if s.closed.Load() {
		return "", domain.ErrSessionClosed
	}
	return s.negotiator.CreateOffer(ctx)
}

// AcceptOffer applies a remote offer and returns the exportable answer text. Answerer only
func (s *Session) AcceptOffer(ctx context.Context, remoteText string) (string, error) {
	if s.closed.Load() {
		return "", domain.ErrSessionClosed
	}
	return s.negotiator.AcceptOffer(ctx, remoteText)
}

// SetRemoteDescription applies a pasted remote description on either side
func (s *Session) SetRemoteDescription(ctx context.Context, remoteText string) error {
	if s.closed.Load() {
		return domain.ErrSessionClosed
	}
	return s.negotiator.SetRemoteDescription(ctx, remoteText)
}

// SendCaption translates text per the session's translation config and
// hands it to the channel manager. It returns the text actually sent.
func (s *Session) SendCaption(ctx context.Context, text string) (string, domain.SendResult, error) {
	if s.closed.Load() {
		return "", "", domain.ErrSessionClosed
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.SendSkipped, nil
	}

	tc := s.cfg.Translation
	ctx, span := tracing.TraceCaption(ctx, string(s.id), string(tc.Mode))
	defer span.End()

	translated, err := s.translator.Translate(ctx, text, tc.SourceLang, tc.TargetLang, tc.Mode)
	if err != nil {
		tracing.RecordError(ctx, err)
		return "", "", fmt.Errorf("translate caption: %w", err)
	}

	result, err := s.channels.Send(ctx, translated)
	if err != nil {
		tracing.RecordError(ctx, err)
		if errors.Is(err, domain.ErrNoDataChannel) {
			s.notifier.Notify(domain.Toast(domain.LevelWarning, "No DataChannel yet"))
		}
		return translated, "", err
	}
	tracing.AddSpanAttributes(ctx, tracing.SendResultKey.String(string(result)))
	return translated, result, nil
}

// Close releases the microphone and the peer connection. Events arriving
// afterwards produce no notifications.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.notifier.silence()

	s.micMu.Lock()
	micErr := s.stopMicLocked(false)
	s.micMu.Unlock()

	s.channels.Detach()
	pcErr := s.pc.Close()
	s.logger.Infow("session closed", "call_duration", utils.FormatDuration(s.observer.CallDuration()))
	return errors.Join(micErr, pcErr)
}

// Snapshot returns the current state of the session
func (s *Session) Snapshot() Snapshot {
	duration := s.observer.CallDuration()
	return Snapshot{
		SessionID:          s.id,
		Role:               s.cfg.Role,
		Translation:        s.cfg.Translation,
		ConnectionState:    s.observer.ConnectionState(),
		ICEConnectionState: s.observer.ICEConnectionState(),
		ICEGatheringState:  s.pc.ICEGatheringState(),
		DataChannelState:   s.channels.State(),
		MicOn:              s.micOn.Load(),
		Muted:              s.muted.Load(),
		CallActive:         s.observer.CallActive(),
		InCallView:         s.observer.InCallView(),
		Busy:               s.negotiator.Busy(),
		Queued:             len(s.channels.Queued()),
		CallDuration:       duration,
		CallClock:          utils.FormatClock(duration),
		LocalDescription:   s.negotiator.LocalDescription(),
		Captions:           s.log.Entries(),
		Closed:             s.closed.Load(),
		CreatedAt:          s.createdAt,
	}
}

// sessionNotifier stamps the session id on outgoing notifications and
// drops everything once the session is closed.
type sessionNotifier struct {
	id     domain.SessionID
	next   ports.Notifier
	closed atomic.Bool
}

func newSessionNotifier(id domain.SessionID, next ports.Notifier) *sessionNotifier {
	if next == nil {
		next = nopNotifier{}
	}
	return &sessionNotifier{id: id, next: next}
}

func (n *sessionNotifier) Notify(note domain.Notification) {
	if n.closed.Load() {
		return
	}
	note.SessionID = n.id
	n.next.Notify(note)
}

func (n *sessionNotifier) silence() {
	n.closed.Store(true)
}
