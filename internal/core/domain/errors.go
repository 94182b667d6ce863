package domain

import "errors"

var (
	ErrMicrophoneInactive    = errors.New("start microphone first")
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")
	ErrNoDataChannel         = errors.New("no data channel attached")
	ErrInvalidDescription    = errors.New("invalid session description")
	ErrWrongRole             = errors.New("operation not allowed for this role")
	ErrBusy                  = errors.New("negotiation already in progress")
	ErrSessionClosed         = errors.New("session closed")
)
