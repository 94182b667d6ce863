package domain

import "fmt"

type SessionID string

// PeerRole decides which side creates the offer
type PeerRole string

const (
	RoleCaller   PeerRole = "caller"
	RoleAnswerer PeerRole = "answerer"
)

// ParsePeerRole validates a configured role
func ParsePeerRole(s string) (PeerRole, error) {
	switch PeerRole(s) {
	case RoleCaller, RoleAnswerer:
		return PeerRole(s), nil
	default:
		return "", fmt.Errorf("unknown peer role %q", s)
	}
}

// ConnectionState mirrors RTCPeerConnectionState.
type ConnectionState string

const (
	ConnectionStateNew          ConnectionState = "new"
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateFailed       ConnectionState = "failed"
	ConnectionStateClosed       ConnectionState = "closed"
)

// IsTerminal reports whether the call should be considered over.
func (s ConnectionState) IsTerminal() bool {
	return s == ConnectionStateDisconnected || s == ConnectionStateFailed || s == ConnectionStateClosed
}

type ICEConnectionState string

const (
	ICEConnectionStateNew          ICEConnectionState = "new"
	ICEConnectionStateChecking     ICEConnectionState = "checking"
	ICEConnectionStateConnected    ICEConnectionState = "connected"
	ICEConnectionStateCompleted    ICEConnectionState = "completed"
	ICEConnectionStateDisconnected ICEConnectionState = "disconnected"
	ICEConnectionStateFailed       ICEConnectionState = "failed"
	ICEConnectionStateClosed       ICEConnectionState = "closed"
)

type ICEGatheringState string

const (
	ICEGatheringStateNew       ICEGatheringState = "new"
	ICEGatheringStateGathering ICEGatheringState = "gathering"
	ICEGatheringStateComplete  ICEGatheringState = "complete"
)

type DataChannelState string

const (
	DataChannelStateClosed     DataChannelState = "closed"
	DataChannelStateConnecting DataChannelState = "connecting"
	DataChannelStateOpen       DataChannelState = "open"
)

// SDP types accepted in a pasted description.
const (
	SDPTypeOffer    = "offer"
	SDPTypeAnswer   = "answer"
	SDPTypePranswer = "pranswer"
	SDPTypeRollback = "rollback"
)

// SessionDescription is the JSON form exchanged by copy and paste.
// It matches what browsers and pion produce for RTCSessionDescription.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// RemoteTrack describes a media track announced by the remote peer.
type RemoteTrack struct {
	ID       string `json:"id"`
	StreamID string `json:"stream_id"`
	Kind     string `json:"kind"`
	Codec    string `json:"codec"`
}
