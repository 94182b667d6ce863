package services

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// SessionManager holds the single live call session and swaps it for a fresh
// one on reset.
type SessionManager struct {
	cfg    SessionConfig
	deps   Dependencies
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	current *Session
}

// NewSessionManager opens the first session
func NewSessionManager(cfg SessionConfig, deps Dependencies) (*SessionManager, error) {
	s, err := OpenSession(cfg, deps)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SessionManager{cfg: cfg, deps: deps, logger: logger, current: s}, nil
}

// Current returns the active session
func (m *SessionManager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset closes the current session and opens a new one with the same
// configuration. The old session is closed even if opening fails.
func (m *SessionManager) Reset() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var previous string
	if old := m.current; old != nil {
		previous = string(old.ID())
		if err := old.Close(); err != nil {
			m.logger.Warnw("closing session on reset", "session_id", previous, "error", err)
		}
	}

	s, err := OpenSession(m.cfg, m.deps)
	if err != nil {
		return nil, fmt.Errorf("reopen session: %w", err)
	}
	m.current = s
	m.logger.Infow("session reset", "previous_session_id", previous, "session_id", s.ID())
	return s, nil
}

// Close closes the active session
func (m *SessionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.Close()
}
