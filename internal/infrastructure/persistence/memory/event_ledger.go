package memory

import (
	"sync"
	"time"
)

// EventLedger is the process-wide set of admitted event ids.
// Implements event.Ledger. Thread-safe for concurrent access.
//
// Entries live at least for the retention period; Prune drops older ones so
// the set stays bounded. Retention must exceed the request replay window,
// otherwise a replayed but still authentic request could be admitted twice.
type EventLedger struct {
	mu        sync.Mutex
	admitted  map[string]time.Time // event id -> admission time
	retention time.Duration
	now       func() time.Time
}

// NewEventLedger creates an empty ledger. A zero retention keeps entries forever.
func NewEventLedger(retention time.Duration) *EventLedger {
	return &EventLedger{
		admitted:  make(map[string]time.Time),
		retention: retention,
		now:       time.Now,
	}
}

// TryAdmit records id and returns true on the first call only.
func (l *EventLedger) TryAdmit(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.admitted[id]; ok {
		return false
	}
	l.admitted[id] = l.now()
	return true
}

// Seen reports whether id was already admitted.
func (l *EventLedger) Seen(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.admitted[id]
	return ok
}

// Prune removes entries older than the retention period and returns how many were dropped.
func (l *EventLedger) Prune() int {
	if l.retention <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.retention)
	removed := 0
	for id, at := range l.admitted {
		if at.Before(cutoff) {
			delete(l.admitted, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked ids.
func (l *EventLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.admitted)
}
