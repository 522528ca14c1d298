// Package group tracks chained and batched notification groups.
package group

import (
	"sync"
	"time"
)

// Chain is a caller-defined grouping of related notifications that must be
// cancellable together. Created lazily on first use.
type Chain struct {
	ID        string
	Members   []string
	CreatedAt time.Time
	Active    bool
}

// Batch aggregates success/failure accounting for notifications submitted
// together. Finalized (DoneAt set) once every member has been attempted.
type Batch struct {
	ID        string
	Total     int
	Success   int
	Failed    int
	Members   []string
	StartedAt time.Time
	DoneAt    time.Time
}

// Tracker owns the chain and batch maps. All mutation goes through its
// methods; it is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	chains  map[string]*Chain
	batches map[string]*Batch
}

func NewTracker() *Tracker {
	return &Tracker{
		chains:  map[string]*Chain{},
		batches: map[string]*Batch{},
	}
}

// AddToChain appends a notification id to the chain, creating it if absent.
func (t *Tracker) AddToChain(chainID, noteID string) {
	if chainID == "" || noteID == "" {
		return
	}
	t.mu.Lock()
	c := t.chains[chainID]
	if c == nil {
		c = &Chain{ID: chainID, CreatedAt: time.Now(), Active: true}
		t.chains[chainID] = c
	}
	c.Members = append(c.Members, noteID)
	t.mu.Unlock()
}

// ChainMembers returns a copy of the chain's member ids.
func (t *Tracker) ChainMembers(chainID string) ([]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.chains[chainID]
	if !ok {
		return nil, false
	}
	return append([]string(nil), c.Members...), true
}

// RemoveChain dissolves the chain entry. Returns false if absent.
func (t *Tracker) RemoveChain(chainID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.chains[chainID]; !ok {
		return false
	}
	delete(t.chains, chainID)
	return true
}

// RemoveFromChain drops one member; an emptied chain is removed entirely.
func (t *Tracker) RemoveFromChain(chainID, noteID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.chains[chainID]
	if !ok {
		return
	}
	n := 0
	for _, id := range c.Members {
		if id == noteID {
			continue
		}
		c.Members[n] = id
		n++
	}
	c.Members = c.Members[:n]
	if len(c.Members) == 0 {
		delete(t.chains, chainID)
	}
}

func (t *Tracker) ChainCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.chains)
}

// StartBatch records a new batch. An existing id is reset.
func (t *Tracker) StartBatch(batchID string, total int) {
	if batchID == "" {
		return
	}
	t.mu.Lock()
	t.batches[batchID] = &Batch{ID: batchID, Total: total, StartedAt: time.Now()}
	t.mu.Unlock()
}

// BatchAttempt records one member outcome.
func (t *Tracker) BatchAttempt(batchID, memberID string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.batches[batchID]
	if b == nil {
		return
	}
	if memberID != "" {
		b.Members = append(b.Members, memberID)
	}
	if ok {
		b.Success++
	} else {
		b.Failed++
	}
}

// FinishBatch sets the end timestamp. Returns the final counts.
func (t *Tracker) FinishBatch(batchID string) (success, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.batches[batchID]
	if b == nil {
		return 0, 0
	}
	b.DoneAt = time.Now()
	return b.Success, b.Failed
}

// BatchStatus returns a copy of the batch record.
func (t *Tracker) BatchStatus(batchID string) (Batch, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.batches[batchID]
	if !ok {
		return Batch{}, false
	}
	cp := *b
	cp.Members = append([]string(nil), b.Members...)
	return cp, true
}
