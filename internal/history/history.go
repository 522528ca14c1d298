// Package history keeps bounded, insertion-ordered records of dispatch outcomes.
package history

import (
	"sync"
	"time"

	"notifyd/internal/notification"
)

const (
	DefaultCapacity        = 1000
	DefaultFailureCapacity = 100
)

// Entry is an append-only snapshot of one dispatch outcome.
type Entry struct {
	Request        notification.Request
	Success        bool
	FailedChannels []string
	At             time.Time
}

// Ledger holds two bounded FIFO sequences: all outcomes and failures only.
// Once a sequence is full, appending evicts its oldest entry.
//
// It is safe for concurrent use.
type Ledger struct {
	mu sync.Mutex

	cap     int
	failCap int

	entries  []Entry
	failures []Entry
}

func New(capacity, failureCapacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if failureCapacity <= 0 {
		failureCapacity = DefaultFailureCapacity
	}
	return &Ledger{cap: capacity, failCap: failureCapacity}
}

func (l *Ledger) Append(e Entry) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
	if !e.Success {
		l.failures = append(l.failures, e)
		if len(l.failures) > l.failCap {
			l.failures = l.failures[len(l.failures)-l.failCap:]
		}
	}
	l.mu.Unlock()
}

// Recent returns up to limit entries, most-recent-last.
func (l *Ledger) Recent(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return tail(l.entries, limit)
}

// Failures returns up to limit failed entries, most-recent-last.
func (l *Ledger) Failures(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return tail(l.failures, limit)
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func tail(src []Entry, limit int) []Entry {
	if limit <= 0 || limit > len(src) {
		limit = len(src)
	}
	out := make([]Entry, limit)
	copy(out, src[len(src)-limit:])
	return out
}
