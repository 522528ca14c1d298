// Package registry owns the named delivery channels and providers.
//
// Keys are unique; insertion order is preserved so default iteration is
// deterministic. Not-found style operations return a boolean outcome, never
// an error.
package registry

import (
	"sync"

	"notifyd/internal/eventbus"
	"notifyd/internal/notification"
)

type channelEntry struct {
	id       string
	ch       notification.Channel
	enabled  bool
	settings map[string]any
}

// Registry holds immediate fan-out channels.
type Registry struct {
	mu    sync.Mutex
	order []string
	chans map[string]*channelEntry

	bus eventbus.Bus
}

func New(bus eventbus.Bus) *Registry {
	return &Registry{chans: map[string]*channelEntry{}, bus: bus}
}

// Register adds a channel under id, enabled by default. Registering an
// existing id overwrites it silently (last write wins) while keeping its
// position in the iteration order.
func (r *Registry) Register(id string, ch notification.Channel) {
	if id == "" || ch == nil {
		return
	}
	r.mu.Lock()
	if _, ok := r.chans[id]; !ok {
		r.order = append(r.order, id)
	}
	r.chans[id] = &channelEntry{id: id, ch: ch, enabled: true}
	r.mu.Unlock()
	r.emitStatus(id, true)
}

// Unregister removes the channel. Returns false (and emits nothing) if absent.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	if _, ok := r.chans[id]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.chans, id)
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

// SetEnabled flips the enabled flag. Returns false if absent.
func (r *Registry) SetEnabled(id string, enabled bool) bool {
	r.mu.Lock()
	e, ok := r.chans[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	e.enabled = enabled
	r.mu.Unlock()
	r.emitStatus(id, enabled)
	return true
}

// SetSettings replaces the per-channel configuration mapping.
func (r *Registry) SetSettings(id string, settings map[string]any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.chans[id]
	if !ok {
		return false
	}
	e.settings = settings
	return true
}

func (r *Registry) Settings(id string) (map[string]any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.chans[id]
	if !ok {
		return nil, false
	}
	return e.settings, true
}

// Get returns the channel and its enabled flag.
func (r *Registry) Get(id string) (notification.Channel, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.chans[id]
	if !ok {
		return nil, false, false
	}
	return e.ch, e.enabled, true
}

// IDs returns every registered id in insertion order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// ListAvailable returns ids where enabled && Available(), in insertion order.
//
// Available() is called outside the registry lock: channel probes may be
// slow and must not block concurrent registry mutation.
func (r *Registry) ListAvailable() []string {
	r.mu.Lock()
	type probe struct {
		id string
		ch notification.Channel
	}
	probes := make([]probe, 0, len(r.order))
	for _, id := range r.order {
		if e := r.chans[id]; e != nil && e.enabled {
			probes = append(probes, probe{id: id, ch: e.ch})
		}
	}
	r.mu.Unlock()

	out := make([]string, 0, len(probes))
	for _, p := range probes {
		if p.ch.Available() {
			out = append(out, p.id)
		}
	}
	return out
}

func (r *Registry) emitStatus(id string, enabled bool) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(eventbus.Event{
		Type: eventbus.EventChannelStatus,
		Data: eventbus.ChannelStatusEvent{ID: id, Enabled: enabled},
	})
}
