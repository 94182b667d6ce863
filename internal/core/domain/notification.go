package domain

import "time"

type NotificationKind string

const (
	KindToast            NotificationKind = "toast"
	KindConnectionState  NotificationKind = "connection_state"
	KindICEState         NotificationKind = "ice_state"
	KindDataChannelState NotificationKind = "datachannel_state"
	KindCaption          NotificationKind = "caption"
	KindView             NotificationKind = "view"
)

type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is everything the core reports to its UI collaborator.
type Notification struct {
	SessionID SessionID         `json:"session_id,omitempty"`
	Kind      NotificationKind  `json:"kind"`
	Level     NotificationLevel `json:"level,omitempty"`
	Message   string            `json:"message,omitempty"`
	State     string            `json:"state,omitempty"`
	Caption   *CaptionEntry     `json:"caption,omitempty"`
	At        time.Time         `json:"at"`
}

// Toast creates a short user-facing message
func Toast(level NotificationLevel, message string) Notification {
	return Notification{Kind: KindToast, Level: level, Message: message, At: time.Now()}
}

// StateChange creates a state-change event of the given kind
func StateChange(kind NotificationKind, state string) Notification {
	return Notification{Kind: kind, State: state, At: time.Now()}
}
