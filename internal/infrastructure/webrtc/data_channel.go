package webrtc

import (
	"manualcall/internal/core/domain"

	"github.com/pion/webrtc/v3"
)

type dataChannel struct {
	dc *webrtc.DataChannel
}

func (d *dataChannel) Label() string { return d.dc.Label() }

// ReadyState folds closing into closed; the core only needs to know
// whether sending is possible.
func (d *dataChannel) ReadyState() domain.DataChannelState {
	return channelState(d.dc.ReadyState())
}

func (d *dataChannel) SendText(text string) error { return d.dc.SendText(text) }

func (d *dataChannel) OnOpen(f func()) { d.dc.OnOpen(f) }

func (d *dataChannel) OnClose(f func()) { d.dc.OnClose(f) }

func (d *dataChannel) OnMessage(f func(data []byte)) {
	d.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		f(msg.Data)
	})
}

func (d *dataChannel) Close() error { return d.dc.Close() }

func channelState(state webrtc.DataChannelState) domain.DataChannelState {
	switch state {
	case webrtc.DataChannelStateOpen:
		return domain.DataChannelStateOpen
	case webrtc.DataChannelStateConnecting:
		return domain.DataChannelStateConnecting
	default:
		return domain.DataChannelStateClosed
	}
}
