package services

import "time"

// SetClock replaces the observer clock in tests.
func (o *ConnectionObserver) SetClock(now func() time.Time) {
	o.mu.Lock()
	o.now = now
	o.mu.Unlock()
}
