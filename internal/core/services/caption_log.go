package services

import (
	"sync"
	"time"

	"manualcall/internal/core/domain"
)

const DefaultCaptionLogLimit = 50

// CaptionLog keeps the most recent captions, oldest dropped first.
type CaptionLog struct {
	mu      sync.RWMutex
	entries []domain.CaptionEntry
	start   int
	size    int
	now     func() time.Time
}

// NewCaptionLog creates a log holding up to limit entries
func NewCaptionLog(limit int) *CaptionLog {
	if limit <= 0 {
		limit = DefaultCaptionLogLimit
	}
	return &CaptionLog{
		entries: make([]domain.CaptionEntry, limit),
		now:     time.Now,
	}
}

// Append records a caption, evicting the oldest entry when full
func (l *CaptionLog) Append(text string, origin domain.Origin) domain.CaptionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := domain.CaptionEntry{Text: text, Origin: origin, At: l.now()}
	capacity := len(l.entries)
	if l.size < capacity {
		l.entries[(l.start+l.size)%capacity] = entry
		l.size++
	} else {
		l.entries[l.start] = entry
		l.start = (l.start + 1) % capacity
	}
	return entry
}

// Entries returns a copy in append order.
func (l *CaptionLog) Entries() []domain.CaptionEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.CaptionEntry, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.entries[(l.start+i)%len(l.entries)]
	}
	return out
}

// Len returns the number of entries held
func (l *CaptionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Limit returns the capacity of the log
func (l *CaptionLog) Limit() int {
	return len(l.entries)
}
