package webrtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/ports"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

var errForeignTrack = errors.New("track is not backed by a pion local track")

// LocalTrack is implemented by audio tracks that can be attached to a pion
// peer connection.
type LocalTrack interface {
	ports.AudioTrack
	Local() webrtc.TrackLocal
}

type peerConnection struct {
	pc     *webrtc.PeerConnection
	stats  MediaStats
	logger *zap.SugaredLogger

	mu      sync.Mutex
	senders map[*webrtc.RTPSender]*rtpSender
}

func newPeerConnection(pc *webrtc.PeerConnection, stats MediaStats, logger *zap.SugaredLogger) *peerConnection {
	return &peerConnection{
		pc:      pc,
		stats:   stats,
		logger:  logger,
		senders: make(map[*webrtc.RTPSender]*rtpSender),
	}
}

func (p *peerConnection) CreateOffer(ctx context.Context) (domain.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescription{}, err
	}
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return domain.SessionDescription{}, err
	}
	return fromPion(offer), nil
}

func (p *peerConnection) CreateAnswer(ctx context.Context) (domain.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescription{}, err
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return domain.SessionDescription{}, err
	}
	return fromPion(answer), nil
}

func (p *peerConnection) SetLocalDescription(desc domain.SessionDescription) error {
	return p.pc.SetLocalDescription(toPion(desc))
}

func (p *peerConnection) SetRemoteDescription(desc domain.SessionDescription) error {
	return p.pc.SetRemoteDescription(toPion(desc))
}

func (p *peerConnection) LocalDescription() *domain.SessionDescription {
	desc := p.pc.LocalDescription()
	if desc == nil {
		return nil
	}
	out := fromPion(*desc)
	return &out
}

func (p *peerConnection) CreateDataChannel(label string) (ports.DataChannel, error) {
	dc, err := p.pc.CreateDataChannel(label, nil)
	if err != nil {
		return nil, err
	}
	return &dataChannel{dc: dc}, nil
}

func (p *peerConnection) AddTrack(track ports.AudioTrack) (ports.RTPSender, error) {
	local, ok := track.(LocalTrack)
	if !ok {
		return nil, errForeignTrack
	}

	sender, err := p.pc.AddTrack(local.Local())
	if err != nil {
		return nil, err
	}

	wrapped := &rtpSender{sender: sender}
	p.mu.Lock()
	p.senders[sender] = wrapped
	p.mu.Unlock()

	go readSenderRTCP(sender, p.stats, p.logger.With("track_id", track.ID()))
	return wrapped, nil
}

func (p *peerConnection) RemoveTrack(sender ports.RTPSender) error {
	wrapped, ok := sender.(*rtpSender)
	if !ok {
		return fmt.Errorf("unknown sender type %T", sender)
	}
	if err := p.pc.RemoveTrack(wrapped.sender); err != nil {
		return err
	}
	p.mu.Lock()
	delete(p.senders, wrapped.sender)
	p.mu.Unlock()
	return nil
}

func (p *peerConnection) GetSenders() []ports.RTPSender {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []ports.RTPSender
	for _, sender := range p.pc.GetSenders() {
		wrapped, ok := p.senders[sender]
		if !ok {
			wrapped = &rtpSender{sender: sender}
			p.senders[sender] = wrapped
		}
		out = append(out, wrapped)
	}
	return out
}

func (p *peerConnection) ICEGatheringState() domain.ICEGatheringState {
	return domain.ICEGatheringState(p.pc.ICEGatheringState().String())
}

func (p *peerConnection) GatheringComplete() <-chan struct{} {
	return webrtc.GatheringCompletePromise(p.pc)
}

func (p *peerConnection) OnConnectionStateChange(f func(domain.ConnectionState)) {
	p.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.logger.Infow("peer connection state changed", "connection_state", state)
		f(domain.ConnectionState(state.String()))
	})
}

func (p *peerConnection) OnICEConnectionStateChange(f func(domain.ICEConnectionState)) {
	p.pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		p.logger.Infow("peer ICE connection state changed", "ice_state", state)
		f(domain.ICEConnectionState(state.String()))
	})
}

func (p *peerConnection) OnDataChannel(f func(ports.DataChannel)) {
	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		f(&dataChannel{dc: dc})
	})
}

// OnTrack reports remote tracks and keeps their RTP and RTCP flowing so the
// interceptors see reception reports.
func (p *peerConnection) OnTrack(f func(domain.RemoteTrack)) {
	p.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		remote := domain.RemoteTrack{
			ID:       track.ID(),
			StreamID: track.StreamID(),
			Kind:     track.Kind().String(),
			Codec:    track.Codec().MimeType,
		}
		logger := p.logger.With("track_id", remote.ID, "codec", remote.Codec)

		go readReceiverRTCP(receiver, p.stats, logger)
		go drainRemoteTrack(track, p.stats, logger)

		f(remote)
	})
}

func (p *peerConnection) Close() error {
	return p.pc.Close()
}

type rtpSender struct {
	sender *webrtc.RTPSender
}

func (s *rtpSender) TrackKind() string {
	track := s.sender.Track()
	if track == nil {
		return ""
	}
	return track.Kind().String()
}

func toPion(desc domain.SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(desc.Type), SDP: desc.SDP}
}

func fromPion(desc webrtc.SessionDescription) domain.SessionDescription {
	return domain.SessionDescription{Type: desc.Type.String(), SDP: desc.SDP}
}
