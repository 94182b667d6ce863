package ports

import (
	"context"

	"manualcall/internal/core/domain"
)

// PeerConnection is the subset of RTCPeerConnection the core drives.
type PeerConnection interface {
	CreateOffer(ctx context.Context) (domain.SessionDescription, error)
	CreateAnswer(ctx context.Context) (domain.SessionDescription, error)
	SetLocalDescription(desc domain.SessionDescription) error
	SetRemoteDescription(desc domain.SessionDescription) error
	LocalDescription() *domain.SessionDescription

	CreateDataChannel(label string) (DataChannel, error)

	AddTrack(track AudioTrack) (RTPSender, error)
	RemoveTrack(sender RTPSender) error
	GetSenders() []RTPSender

	ICEGatheringState() domain.ICEGatheringState
	// GatheringComplete is closed once ICE gathering reaches complete.
	GatheringComplete() <-chan struct{}

	OnConnectionStateChange(func(domain.ConnectionState))
	OnICEConnectionStateChange(func(domain.ICEConnectionState))
	OnDataChannel(func(DataChannel))
	OnTrack(func(domain.RemoteTrack))

	Close() error
}

// PeerConnectionFactory creates a fresh peer connection per session
type PeerConnectionFactory interface {
	NewPeerConnection() (PeerConnection, error)
}

// DataChannel is the subset of RTCDataChannel used for captions
type DataChannel interface {
	Label() string
	ReadyState() domain.DataChannelState
	SendText(text string) error
	OnOpen(func())
	OnClose(func())
	OnMessage(func(data []byte))
	Close() error
}

type RTPSender interface {
	// TrackKind is "audio", "video" or empty when the sender carries no track.
	TrackKind() string
}

type AudioTrack interface {
	ID() string
	Kind() string
	Enabled() bool
	SetEnabled(enabled bool)
}

// MicrophoneSource captures local audio. Start replaces any running capture.
type MicrophoneSource interface {
	Start(ctx context.Context) error
	Stop() error
	Tracks() []AudioTrack
}
