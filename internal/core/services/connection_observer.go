package services

import (
	"sync"
	"time"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/ports"

	"go.uber.org/zap"
)

// ConnectionObserver folds peer connection events into the call flags the
// UI renders. The ICE state is informational; only the connection state
// decides whether a call is active.
type ConnectionObserver struct {
	notifier ports.Notifier
	metrics  ports.CallMetrics
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu        sync.RWMutex
	connState domain.ConnectionState
	iceState  domain.ICEConnectionState
	active    bool
	inCall    bool
	startedAt time.Time
	endedAt   time.Time
}

// NewConnectionObserver creates an observer in the new state. Nil collaborators
// are replaced with no-ops.
func NewConnectionObserver(notifier ports.Notifier, metrics ports.CallMetrics, logger *zap.SugaredLogger) *ConnectionObserver {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ConnectionObserver{
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		connState: domain.ConnectionStateNew,
		iceState:  domain.ICEConnectionStateNew,
	}
}

// HandleConnectionState applies a peer connection state change. Connected
// starts the call and switches to the in-call view; a terminal state ends the
// call and switches the view back to idle. Repeated states are ignored.
func (o *ConnectionObserver) HandleConnectionState(state domain.ConnectionState) {
	o.mu.Lock()
	if o.connState == state {
		o.mu.Unlock()
		return
	}
	o.connState = state

	var toast *domain.Notification
	view := ""
	switch {
	case state == domain.ConnectionStateConnected:
		if !o.active {
			o.startedAt = o.now()
			o.endedAt = time.Time{}
		}
		o.active = true
		if !o.inCall {
			view = "in_call"
		}
		o.inCall = true
		t := domain.Toast(domain.LevelSuccess, "Connected")
		toast = &t
	case state.IsTerminal():
		wasActive := o.active
		if o.inCall {
			view = "idle"
		}
		o.active = false
		o.inCall = false
		if wasActive {
			o.endedAt = o.now()
		}
		level := domain.LevelInfo
		if state == domain.ConnectionStateFailed {
			level = domain.LevelError
		}
		t := domain.Toast(level, "Disconnected")
		toast = &t
	}
	o.mu.Unlock()

	o.logger.Infow("connection state changed", "state", state)
	o.metrics.ConnectionStateChanged(state)
	o.notifier.Notify(domain.StateChange(domain.KindConnectionState, string(state)))
	if view != "" {
		o.notifier.Notify(domain.StateChange(domain.KindView, view))
	}
	if toast != nil {
		o.notifier.Notify(*toast)
	}
}

// HandleICEConnectionState publishes an ICE state change and its toast. It
// never changes the call flags.
func (o *ConnectionObserver) HandleICEConnectionState(state domain.ICEConnectionState) {
	o.mu.Lock()
	if o.iceState == state {
		o.mu.Unlock()
		return
	}
	o.iceState = state
	o.mu.Unlock()

	o.logger.Debugw("ice connection state changed", "state", state)
	o.notifier.Notify(domain.StateChange(domain.KindICEState, string(state)))
	switch state {
	case domain.ICEConnectionStateConnected:
		o.notifier.Notify(domain.Toast(domain.LevelSuccess, "ICE connected"))
	case domain.ICEConnectionStateFailed, domain.ICEConnectionStateDisconnected:
		o.notifier.Notify(domain.Toast(domain.LevelWarning, "ICE "+string(state)))
	}
}

// CallActive reports whether the peer connection is connected
func (o *ConnectionObserver) CallActive() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.active
}

// InCallView reports whether the UI should show the in-call view
func (o *ConnectionObserver) InCallView() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.inCall
}

// ConnectionState returns the last peer connection state
func (o *ConnectionObserver) ConnectionState() domain.ConnectionState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.connState
}

// ICEConnectionState returns the last ICE connection state
func (o *ConnectionObserver) ICEConnectionState() domain.ICEConnectionState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.iceState
}

// CallDuration is the time spent connected in the current or last call.
func (o *ConnectionObserver) CallDuration() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	switch {
	case o.startedAt.IsZero():
		return 0
	case o.active:
		return o.now().Sub(o.startedAt)
	default:
		return o.endedAt.Sub(o.startedAt)
	}
}
