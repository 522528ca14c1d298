package registry

import (
	"sync"

	"notifyd/internal/eventbus"
	"notifyd/internal/notification"
)

type providerEntry struct {
	p       notification.Provider
	enabled bool
}

// Providers holds the capability-matched delivery units used by queued
// dispatch. Same contract as Registry: unique keys, insertion order,
// boolean outcomes.
type Providers struct {
	mu    sync.Mutex
	order []string
	provs map[string]*providerEntry

	bus eventbus.Bus
}

func NewProviders(bus eventbus.Bus) *Providers {
	return &Providers{provs: map[string]*providerEntry{}, bus: bus}
}

func (r *Providers) Register(p notification.Provider) {
	if p == nil || p.ID() == "" {
		return
	}
	id := p.ID()
	r.mu.Lock()
	if _, ok := r.provs[id]; !ok {
		r.order = append(r.order, id)
	}
	r.provs[id] = &providerEntry{p: p, enabled: true}
	r.mu.Unlock()
	r.emitStatus(id, true)
}

func (r *Providers) Unregister(id string) bool {
	r.mu.Lock()
	if _, ok := r.provs[id]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.provs, id)
	n := 0
	for _, oid := range r.order {
		if oid == id {
			continue
		}
		r.order[n] = oid
		n++
	}
	r.order = r.order[:n]
	r.mu.Unlock()
	r.emitStatus(id, false)
	return true
}

func (r *Providers) SetEnabled(id string, enabled bool) bool {
	r.mu.Lock()
	e, ok := r.provs[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	e.enabled = enabled
	r.mu.Unlock()
	r.emitStatus(id, enabled)
	return true
}

// List returns the enabled providers in registration order.
func (r *Providers) List() []notification.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notification.Provider, 0, len(r.order))
	for _, id := range r.order {
		if e := r.provs[id]; e != nil && e.enabled {
			out = append(out, e.p)
		}
	}
	return out
}

// All returns every provider regardless of enabled state.
func (r *Providers) All() []notification.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notification.Provider, 0, len(r.order))
	for _, id := range r.order {
		if e := r.provs[id]; e != nil {
			out = append(out, e.p)
		}
	}
	return out
}

func (r *Providers) emitStatus(id string, enabled bool) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(eventbus.Event{
		Type: eventbus.EventChannelStatus,
		Data: eventbus.ChannelStatusEvent{ID: id, Enabled: enabled},
	})
}
