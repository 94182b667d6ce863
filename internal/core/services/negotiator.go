package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/ports"
	"manualcall/pkg/tracing"

	"go.uber.org/zap"
)

const (
	DefaultICEGatherTimeout = 2 * time.Second
	CaptionChannelLabel     = "captions"
)

// NegotiatorConfig identifies the session and bounds the ICE gathering wait
type NegotiatorConfig struct {
	SessionID     domain.SessionID
	Role          domain.PeerRole
	GatherTimeout time.Duration
}

// Negotiator drives the offer/answer exchange for one peer connection.
// Callers copy the returned description text to the other peer by hand.
type Negotiator struct {
	cfg        NegotiatorConfig
	pc         ports.PeerConnection
	channels   *ChannelManager
	audioReady func() bool
	notifier   ports.Notifier
	metrics    ports.CallMetrics
	logger     *zap.SugaredLogger

	mu        sync.Mutex
	busy      bool
	localText string
}

// NewNegotiator creates a negotiator for pc. audioReady reports whether the
// microphone is on
func NewNegotiator(
	cfg NegotiatorConfig,
	pc ports.PeerConnection,
	channels *ChannelManager,
	audioReady func() bool,
	notifier ports.Notifier,
	metrics ports.CallMetrics,
	logger *zap.SugaredLogger,
) *Negotiator {
	if cfg.GatherTimeout <= 0 {
		cfg.GatherTimeout = DefaultICEGatherTimeout
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Negotiator{
		cfg:        cfg,
		pc:         pc,
		channels:   channels,
		audioReady: audioReady,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger.With("session_id", cfg.SessionID, "role", cfg.Role),
	}
}

// CreateOffer opens the caption channel, creates an offer and returns the
// local description once ICE gathering has finished or timed out.
func (n *Negotiator) CreateOffer(ctx context.Context) (string, error) {
	if err := n.precheck(domain.RoleCaller); err != nil {
		return "", err
	}
	if err := n.begin(); err != nil {
		return "", err
	}
	defer n.end()

	ctx, span := tracing.TraceNegotiation(ctx, "create_offer", string(n.cfg.SessionID), string(n.cfg.Role))
	defer span.End()
	start := time.Now()

	ch, err := n.pc.CreateDataChannel(CaptionChannelLabel)
	if err != nil {
		return "", n.fail(ctx, "create data channel", err)
	}
	n.channels.Attach(ch)

	offer, err := n.pc.CreateOffer(ctx)
	if err != nil {
		return "", n.fail(ctx, "create offer", err)
	}

	text, timedOut, err := n.finalizeLocal(ctx, offer)
	if err != nil {
		return "", n.fail(ctx, "finalize offer", err)
	}

	tracing.AddSpanAttributes(ctx, tracing.GatherTimedOut.Bool(timedOut))
	tracing.MeasureDuration(ctx, start)
	n.metrics.NegotiationCompleted("offer", time.Since(start), timedOut)
	n.logger.Infow("offer created", "gather_timed_out", timedOut, "duration", time.Since(start))
	n.notifier.Notify(domain.Toast(domain.LevelSuccess, "Offer created"))
	return text, nil
}

// AcceptOffer applies a pasted offer and returns the answer to send back.
func (n *Negotiator) AcceptOffer(ctx context.Context, remoteText string) (string, error) {
	if err := n.precheck(domain.RoleAnswerer); err != nil {
		return "", err
	}
	if err := n.begin(); err != nil {
		return "", err
	}
	defer n.end()

	ctx, span := tracing.TraceNegotiation(ctx, "accept_offer", string(n.cfg.SessionID), string(n.cfg.Role))
	defer span.End()
	start := time.Now()

	offer, err := ParseSessionDescription(remoteText)
	if err == nil && offer.Type != domain.SDPTypeOffer {
		err = fmt.Errorf("%w: expected offer, got %q", domain.ErrInvalidDescription, offer.Type)
	}
	if err != nil {
		return "", n.rejectInput(ctx, err)
	}

	if err := n.pc.SetRemoteDescription(offer); err != nil {
		return "", n.fail(ctx, "set remote description", err)
	}

	answer, err := n.pc.CreateAnswer(ctx)
	if err != nil {
		return "", n.fail(ctx, "create answer", err)
	}

	text, timedOut, err := n.finalizeLocal(ctx, answer)
	if err != nil {
		return "", n.fail(ctx, "finalize answer", err)
	}

	tracing.AddSpanAttributes(ctx, tracing.GatherTimedOut.Bool(timedOut))
	tracing.MeasureDuration(ctx, start)
	n.metrics.NegotiationCompleted("answer", time.Since(start), timedOut)
	n.logger.Infow("answer created", "gather_timed_out", timedOut, "duration", time.Since(start))
	n.notifier.Notify(domain.Toast(domain.LevelSuccess, "Answer created"))
	return text, nil
}

// SetRemoteDescription applies a pasted description. The caller uses it to
// consume the answer; it is legal for either role.
func (n *Negotiator) SetRemoteDescription(ctx context.Context, remoteText string) error {
	if err := n.begin(); err != nil {
		return err
	}
	defer n.end()

	ctx, span := tracing.TraceNegotiation(ctx, "set_remote", string(n.cfg.SessionID), string(n.cfg.Role))
	defer span.End()

	desc, err := ParseSessionDescription(remoteText)
	if err != nil {
		return n.rejectInput(ctx, err)
	}
	if err := n.pc.SetRemoteDescription(desc); err != nil {
		return n.fail(ctx, "set remote description", err)
	}

	n.logger.Infow("remote description set", "type", desc.Type)
	n.notifier.Notify(domain.Toast(domain.LevelSuccess, "Remote description set"))
	return nil
}

// Busy reports whether an offer or answer is being prepared
func (n *Negotiator) Busy() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.busy
}

// ReplaceAudioTracks removes every outbound audio sender and adds tracks in
// their place.
func (n *Negotiator) ReplaceAudioTracks(tracks []ports.AudioTrack) error {
	for _, sender := range n.pc.GetSenders() {
		if sender.TrackKind() != "audio" {
			continue
		}
		if err := n.pc.RemoveTrack(sender); err != nil {
			return fmt.Errorf("remove audio sender: %w", err)
		}
	}
	for _, track := range tracks {
		if _, err := n.pc.AddTrack(track); err != nil {
			return fmt.Errorf("add track %s: %w", track.ID(), err)
		}
	}
	return nil
}

// LocalDescription returns the last exported description text, if any.
func (n *Negotiator) LocalDescription() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.localText
}

func (n *Negotiator) precheck(required domain.PeerRole) error {
	if n.cfg.Role != required {
		n.notifier.Notify(domain.Toast(domain.LevelWarning, fmt.Sprintf("Only the %s can do this", required)))
		return domain.ErrWrongRole
	}
	if n.audioReady == nil || !n.audioReady() {
		n.notifier.Notify(domain.Toast(domain.LevelWarning, "Start microphone first"))
		return domain.ErrMicrophoneInactive
	}
	return nil
}

func (n *Negotiator) begin() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.busy {
		return domain.ErrBusy
	}
	n.busy = true
	return nil
}

func (n *Negotiator) end() {
	n.mu.Lock()
	n.busy = false
	n.mu.Unlock()
}

// finalizeLocal sets desc as the local description, waits for ICE
// gathering and exports the result.
func (n *Negotiator) finalizeLocal(ctx context.Context, desc domain.SessionDescription) (string, bool, error) {
	gathered := n.pc.GatheringComplete()
	if err := n.pc.SetLocalDescription(desc); err != nil {
		return "", false, fmt.Errorf("set local description: %w", err)
	}

	timedOut, err := n.waitForGathering(ctx, gathered)
	if err != nil {
		return "", timedOut, err
	}

	local := n.pc.LocalDescription()
	if local == nil {
		return "", timedOut, errors.New("local description unavailable")
	}
	text, err := ExportSessionDescription(*local)
	if err != nil {
		return "", timedOut, fmt.Errorf("export local description: %w", err)
	}

	n.mu.Lock()
	n.localText = text
	n.mu.Unlock()
	return text, timedOut, nil
}

// waitForGathering blocks until gathering completes or the timeout fires.
// A timeout is not an error: the description goes out with the candidates
// gathered so far.
func (n *Negotiator) waitForGathering(ctx context.Context, gathered <-chan struct{}) (bool, error) {
	if n.pc.ICEGatheringState() == domain.ICEGatheringStateComplete {
		return false, nil
	}

	timer := time.NewTimer(n.cfg.GatherTimeout)
	defer timer.Stop()

	select {
	case <-gathered:
		return false, nil
	case <-timer.C:
		n.logger.Warnw("ice gathering timed out, using partial candidates",
			"timeout", n.cfg.GatherTimeout,
			"gathering_state", n.pc.ICEGatheringState(),
		)
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (n *Negotiator) rejectInput(ctx context.Context, err error) error {
	tracing.RecordError(ctx, err)
	n.logger.Infow("rejected pasted description", "error", err)
	n.notifier.Notify(domain.Toast(domain.LevelWarning, "Invalid session description"))
	return err
}

func (n *Negotiator) fail(ctx context.Context, step string, err error) error {
	tracing.RecordError(ctx, err)
	n.logger.Errorw("negotiation step failed", "step", step, "error", err)
	n.notifier.Notify(domain.Toast(domain.LevelError, "Negotiation failed: "+step))
	return fmt.Errorf("%s: %w", step, err)
}
