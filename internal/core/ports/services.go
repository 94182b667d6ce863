package ports

import (
	"context"
	"time"

	"manualcall/internal/core/domain"
)

// Translator converts caption text between languages
type Translator interface {
	Translate(ctx context.Context, text string, from, to domain.Language, mode domain.TranslationMode) (string, error)
}

// SpeechSynthesizer speaks received captions
type SpeechSynthesizer interface {
	Speak(ctx context.Context, text string, voice domain.VoiceHint) error
}

// Notifier receives every state change, toast and caption the core reports
type Notifier interface {
	Notify(n domain.Notification)
}

// CallMetrics records call and caption events
type CallMetrics interface {
	CaptionSent()
	CaptionQueued()
	CaptionDropped()
	CaptionReceived()
	MalformedMessage()
	NegotiationCompleted(operation string, duration time.Duration, gatherTimedOut bool)
	ConnectionStateChanged(state domain.ConnectionState)
	DataChannelStateChanged(state domain.DataChannelState)
}
