// Package dispatch is the queued, capability-matched delivery engine.
//
// Requests are submitted to a bounded queue and drained on a periodic tick.
// Each drained request goes to the first registered provider that can handle
// it; there is no multi-provider fan-out and no retry of failed sends.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"notifyd/internal/dnd"
	"notifyd/internal/eventbus"
	"notifyd/internal/group"
	"notifyd/internal/notification"
	"notifyd/internal/registry"
	logx "notifyd/pkg/logx"
)

// Config controls the queued dispatcher.
type Config struct {
	// Enabled gates both Submit and the drain tick. A disabled dispatcher
	// rejects new requests and leaves its queue untouched until re-enabled.
	Enabled bool

	// TickEvery is the drain interval. Zero means the 500ms default.
	TickEvery time.Duration

	// QueueSize bounds the pending queue. Zero means 256.
	QueueSize int
}

func (c *Config) applyDefaults() {
	if c.TickEvery <= 0 {
		c.TickEvery = 500 * time.Millisecond
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
}

// active describes a request currently inside a provider Send call, kept so
// Cancel can reach a live delivery.
type active struct {
	providerID string
	chainID    string
}

// Service owns the queue, the drain loop, and cancellation. Safe for
// concurrent use.
type Service struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config

	queue  []notification.Request
	active map[string]active

	provs  *registry.Providers
	policy *dnd.Policy
	groups *group.Tracker
	bus    eventbus.Bus

	c       *cron.Cron
	started bool
}

func New(cfg Config, provs *registry.Providers, policy *dnd.Policy, groups *group.Tracker, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg.applyDefaults()
	return &Service{
		log:    log,
		cfg:    cfg,
		active: map[string]active{},
		provs:  provs,
		policy: policy,
		groups: groups,
		bus:    bus,
	}
}

// Apply updates Enabled and QueueSize at runtime. TickEvery changes take
// effect on the next Start.
func (s *Service) Apply(cfg Config) {
	cfg.applyDefaults()
	s.mu.Lock()
	cfg.TickEvery = s.cfg.TickEvery
	s.cfg = cfg
	s.mu.Unlock()
}

// SetEnabled flips the Submit gate.
func (s *Service) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.cfg.Enabled = enabled
	s.mu.Unlock()
}

// Submit enqueues a request for the next drain tick. Returns false when the
// dispatcher is disabled or the queue is full; the request is dropped, not
// blocked on.
func (s *Service) Submit(req notification.Request) bool {
	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		s.log.Debug("dispatch disabled; request rejected", logx.String("note", req.ID))
		return false
	}
	if len(s.queue) >= s.cfg.QueueSize {
		s.mu.Unlock()
		s.log.Warn("dispatch queue full; request dropped",
			logx.String("note", req.ID), logx.Int("size", s.cfg.QueueSize))
		return false
	}
	s.queue = append(s.queue, req)
	s.mu.Unlock()

	if req.ChainID != "" && req.ReminderID != "" {
		s.groups.AddToChain(req.ChainID, req.ID)
	}
	return true
}

// Drain delivers every queued request, highest priority first. Equal
// priorities keep submission order. The queue lock is released around each
// provider call so Submit and Cancel stay responsive.
//
// While the dispatcher is disabled Drain is a no-op: the queue is kept
// intact for a later re-enable. Enabled is re-checked per pop because
// SetEnabled may race with an in-progress drain.
func (s *Service) Drain(ctx context.Context) {
	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return
	}
	sort.SliceStable(s.queue, func(i, j int) bool {
		return s.queue[i].Priority > s.queue[j].Priority
	})
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if !s.cfg.Enabled || len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		req := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.deliver(ctx, req)
	}
}

func (s *Service) deliver(ctx context.Context, req notification.Request) {
	if s.policy != nil && s.policy.Suppressed(time.Now(), req.Priority) {
		s.log.Debug("queued request suppressed by dnd", logx.String("note", req.ID))
		return
	}

	var target notification.Provider
	for _, p := range s.provs.List() {
		if notification.Supports(p, req.Type) && p.CanHandle(req) && p.Available() {
			target = p
			break
		}
	}
	if target == nil {
		s.log.Warn("no available provider", logx.String("note", req.ID), logx.String("type", string(req.Type)))
		s.publish(eventbus.Event{
			Type: eventbus.EventFailed,
			Data: eventbus.FailedEvent{ID: req.ID, Reason: "no available provider"},
		})
		return
	}

	s.mu.Lock()
	s.active[req.ID] = active{providerID: target.ID(), chainID: req.ChainID}
	s.mu.Unlock()

	ok := s.trySend(ctx, target, req)

	s.mu.Lock()
	delete(s.active, req.ID)
	s.mu.Unlock()

	if ok {
		s.log.Debug("queued request delivered",
			logx.String("note", req.ID), logx.String("provider", target.ID()))
		s.publish(eventbus.Event{
			Type: eventbus.EventSent,
			Data: eventbus.SentEvent{ID: req.ID, Request: req},
		})
	} else {
		s.publish(eventbus.Event{
			Type: eventbus.EventFailed,
			Data: eventbus.FailedEvent{ID: req.ID, Reason: fmt.Sprintf("provider %s failed", target.ID())},
		})
	}
}

func (s *Service) trySend(ctx context.Context, p notification.Provider, req notification.Request) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("provider panicked during send",
				logx.String("provider", p.ID()), logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
			ok = false
		}
	}()
	if err := p.Send(ctx, req.Title, req.Message, req.Options()); err != nil {
		s.log.Warn("provider send failed",
			logx.String("provider", p.ID()), logx.String("note", req.ID), logx.Err(err))
		return false
	}
	return true
}

// Cancel removes the request from the queue, or asks its provider to retract
// a live delivery. A cancelled member of a chain cascades to the rest of the
// chain. Returns true if anything was cancelled.
func (s *Service) Cancel(id string) bool {
	return s.cancelOne(id, map[string]struct{}{})
}

// CancelChain cancels every member of the chain and dissolves it.
// Returns true iff the chain existed, whatever each member's state was.
func (s *Service) CancelChain(chainID string) bool {
	return s.cancelChain(chainID, map[string]struct{}{})
}

func (s *Service) cancelOne(id string, visited map[string]struct{}) bool {
	if _, seen := visited[id]; seen {
		return false
	}
	visited[id] = struct{}{}

	var chainID string
	cancelled := false

	s.mu.Lock()
	n := 0
	for _, req := range s.queue {
		if req.ID == id {
			chainID = req.ChainID
			cancelled = true
			continue
		}
		s.queue[n] = req
		n++
	}
	s.queue = s.queue[:n]

	var providerID string
	if a, ok := s.active[id]; ok {
		providerID = a.providerID
		chainID = a.chainID
		delete(s.active, id)
	}
	s.mu.Unlock()

	if providerID != "" {
		for _, p := range s.provs.All() {
			if p.ID() == providerID {
				if p.Cancel(id) {
					cancelled = true
				}
				break
			}
		}
	}

	if cancelled {
		s.log.Debug("request cancelled", logx.String("note", id))
		s.publish(eventbus.Event{
			Type: eventbus.EventCancelled,
			Data: eventbus.CancelledEvent{ID: id},
		})
	}
	if chainID != "" {
		if s.cancelChain(chainID, visited) {
			cancelled = true
		}
	}
	return cancelled
}

func (s *Service) cancelChain(chainID string, visited map[string]struct{}) bool {
	if chainID == "" {
		return false
	}
	if _, seen := visited["chain:"+chainID]; seen {
		return false
	}
	visited["chain:"+chainID] = struct{}{}

	members, ok := s.groups.ChainMembers(chainID)
	if !ok {
		return false
	}
	// Members already delivered or gone do not matter: an existing chain is
	// always dissolved, and that alone counts as a successful cancel.
	for _, id := range members {
		s.cancelOne(id, visited)
	}
	s.groups.RemoveChain(chainID)
	return true
}

// Start begins the periodic drain tick.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	tick := s.cfg.TickEvery
	s.mu.Unlock()

	c := cron.New()
	spec := fmt.Sprintf("@every %s", tick)
	_, err := c.AddFunc(spec, func() { s.Drain(ctx) })
	if err != nil {
		s.log.Error("drain tick registration failed", logx.String("spec", spec), logx.Err(err))
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return
	}
	c.Start()

	s.mu.Lock()
	s.c = c
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()
	s.log.Info("dispatch started", logx.Duration("tick", tick))
}

// Stop halts the tick. Queued requests are kept for a later Start.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.started = false
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}
}

// Snapshot reports queue depth and in-flight count.
func (s *Service) Snapshot() (queued, inFlight int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue), len(s.active)
}

func (s *Service) publish(e eventbus.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
