package domain

import "time"

type Origin string

const (
	OriginSelf   Origin = "self"
	OriginRemote Origin = "remote"
)

// CaptionEntry is one line of the caption log
type CaptionEntry struct {
	Text   string    `json:"text"`
	Origin Origin    `json:"origin"`
	At     time.Time `json:"at"`
}

// Message types carried over the caption data channel.
const (
	MessageTypeCaption     = "caption"
	MessageTypeShowMediaUI = "show_media_ui"
)

// ChannelMessage is the JSON envelope sent over the caption data channel
type ChannelMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// SendResult reports what happened to an outbound caption
type SendResult string

const (
	SendDelivered SendResult = "delivered"
	SendQueued    SendResult = "queued"
	SendDropped   SendResult = "dropped"
	SendSkipped   SendResult = "skipped"
)
