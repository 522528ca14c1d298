package dispatch

import (
	"context"
	"sync"
	"testing"

	"notifyd/internal/dnd"
	"notifyd/internal/eventbus"
	"notifyd/internal/group"
	"notifyd/internal/notification"
	"notifyd/internal/registry"
	logx "notifyd/pkg/logx"
)

type stubProvider struct {
	id        string
	types     []notification.Type
	canHandle bool
	available bool

	mu        sync.Mutex
	delivered []string
	cancelled []string
}

func (p *stubProvider) Send(_ context.Context, _, _ string, _ *notification.SendOptions) error {
	return nil
}

func (p *stubProvider) Available() bool                     { return p.available }
func (p *stubProvider) ID() string                          { return p.id }
func (p *stubProvider) Name() string                        { return p.id }
func (p *stubProvider) SupportedTypes() []notification.Type { return p.types }
func (p *stubProvider) CanHandle(notification.Request) bool { return p.canHandle }

func (p *stubProvider) Cancel(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, id)
	return true
}

// recordingProvider additionally notes delivery order.
type recordingProvider struct{ stubProvider }

func (p *recordingProvider) Send(_ context.Context, title, _ string, _ *notification.SendOptions) error {
	p.mu.Lock()
	p.delivered = append(p.delivered, title)
	p.mu.Unlock()
	return nil
}

func newService(cfg Config, provs *registry.Providers) *Service {
	return New(cfg, provs, dnd.New(dnd.Window{}), group.NewTracker(), eventbus.New(), logx.Nop())
}

func req(title string, prio notification.Priority) notification.Request {
	return notification.NewRequest(title, "m", notification.TypeInfo, prio)
}

func TestDeliverPicksFirstCapableProvider(t *testing.T) {
	t.Parallel()
	provs := registry.NewProviders(nil)
	tray := &recordingProvider{stubProvider{id: "tray", canHandle: false, available: true}}
	console := &recordingProvider{stubProvider{id: "console", canHandle: true, available: true}}
	provs.Register(tray)
	provs.Register(console)

	s := newService(Config{Enabled: true}, provs)
	if !s.Submit(req("hello", notification.PriorityNormal)) {
		t.Fatal("Submit rejected")
	}
	s.Drain(context.Background())

	if len(tray.delivered) != 0 {
		t.Fatal("non-matching provider must not deliver")
	}
	if len(console.delivered) != 1 {
		t.Fatalf("console delivered %d, want 1", len(console.delivered))
	}
}

func TestDrainOrdersByPriority(t *testing.T) {
	t.Parallel()
	provs := registry.NewProviders(nil)
	p := &recordingProvider{stubProvider{id: "p", canHandle: true, available: true}}
	provs.Register(p)

	s := newService(Config{Enabled: true}, provs)
	s.Submit(req("low", notification.PriorityLow))
	s.Submit(req("urgent", notification.PriorityUrgent))
	s.Submit(req("normal-a", notification.PriorityNormal))
	s.Submit(req("normal-b", notification.PriorityNormal))
	s.Drain(context.Background())

	want := []string{"urgent", "normal-a", "normal-b", "low"}
	if len(p.delivered) != len(want) {
		t.Fatalf("delivered %v, want %v", p.delivered, want)
	}
	for i, w := range want {
		if p.delivered[i] != w {
			t.Fatalf("delivered %v, want %v", p.delivered, want)
		}
	}
}

func TestSubmitRejectedWhenDisabled(t *testing.T) {
	t.Parallel()
	s := newService(Config{Enabled: false}, registry.NewProviders(nil))
	if s.Submit(req("x", notification.PriorityNormal)) {
		t.Fatal("disabled dispatcher must reject submissions")
	}
	if queued, _ := s.Snapshot(); queued != 0 {
		t.Fatalf("queued = %d, want 0", queued)
	}
}

func TestSubmitDroppedWhenQueueFull(t *testing.T) {
	t.Parallel()
	s := newService(Config{Enabled: true, QueueSize: 1}, registry.NewProviders(nil))
	if !s.Submit(req("a", notification.PriorityNormal)) {
		t.Fatal("first submit must be accepted")
	}
	if s.Submit(req("b", notification.PriorityNormal)) {
		t.Fatal("submit over capacity must be dropped")
	}
}

func TestDrainIsNoOpWhileDisabled(t *testing.T) {
	t.Parallel()
	provs := registry.NewProviders(nil)
	p := &recordingProvider{stubProvider{id: "p", canHandle: true, available: true}}
	provs.Register(p)

	s := newService(Config{Enabled: true}, provs)
	s.Submit(req("held", notification.PriorityNormal))
	s.SetEnabled(false)

	s.Drain(context.Background())
	if len(p.delivered) != 0 {
		t.Fatalf("disabled dispatcher delivered %v", p.delivered)
	}
	if queued, _ := s.Snapshot(); queued != 1 {
		t.Fatalf("queued = %d, want 1 (queue must survive a disabled drain)", queued)
	}

	s.SetEnabled(true)
	s.Drain(context.Background())
	if len(p.delivered) != 1 {
		t.Fatalf("re-enabled dispatcher delivered %v, want the held request", p.delivered)
	}
}

func TestCancelRemovesFromQueue(t *testing.T) {
	t.Parallel()
	provs := registry.NewProviders(nil)
	p := &recordingProvider{stubProvider{id: "p", canHandle: true, available: true}}
	provs.Register(p)

	s := newService(Config{Enabled: true}, provs)
	r := req("x", notification.PriorityNormal)
	s.Submit(r)
	if !s.Cancel(r.ID) {
		t.Fatal("Cancel of a queued request must return true")
	}
	s.Drain(context.Background())
	if len(p.delivered) != 0 {
		t.Fatal("cancelled request must not be delivered")
	}
	if s.Cancel(r.ID) {
		t.Fatal("Cancel of an already-cancelled request must return false")
	}
}

func TestCancelCascadesThroughChain(t *testing.T) {
	t.Parallel()
	provs := registry.NewProviders(nil)
	p := &recordingProvider{stubProvider{id: "p", canHandle: true, available: true}}
	provs.Register(p)

	groups := group.NewTracker()
	s := New(Config{Enabled: true}, provs, dnd.New(dnd.Window{}), groups, eventbus.New(), logx.Nop())

	a := req("a", notification.PriorityNormal)
	a.ChainID, a.ReminderID = "lesson", "rem-a"
	b := req("b", notification.PriorityNormal)
	b.ChainID, b.ReminderID = "lesson", "rem-b"
	s.Submit(a)
	s.Submit(b)

	if !s.Cancel(a.ID) {
		t.Fatal("Cancel must succeed")
	}
	if groups.ChainCount() != 0 {
		t.Fatal("cascade must dissolve the chain")
	}
	s.Drain(context.Background())
	if len(p.delivered) != 0 {
		t.Fatalf("chain members still delivered: %v", p.delivered)
	}
}

func TestCancelChainDirect(t *testing.T) {
	t.Parallel()
	provs := registry.NewProviders(nil)
	p := &recordingProvider{stubProvider{id: "p", canHandle: true, available: true}}
	provs.Register(p)

	groups := group.NewTracker()
	s := New(Config{Enabled: true}, provs, dnd.New(dnd.Window{}), groups, eventbus.New(), logx.Nop())

	a := req("a", notification.PriorityNormal)
	a.ChainID, a.ReminderID = "morning", "rem-1"
	s.Submit(a)

	if !s.CancelChain("morning") {
		t.Fatal("CancelChain must cancel queued members")
	}
	if s.CancelChain("morning") {
		t.Fatal("second CancelChain must return false")
	}
}

func TestCancelChainAfterDelivery(t *testing.T) {
	t.Parallel()
	provs := registry.NewProviders(nil)
	p := &recordingProvider{stubProvider{id: "p", canHandle: true, available: true}}
	provs.Register(p)

	groups := group.NewTracker()
	s := New(Config{Enabled: true}, provs, dnd.New(dnd.Window{}), groups, eventbus.New(), logx.Nop())

	a := req("a", notification.PriorityNormal)
	a.ChainID, a.ReminderID = "lesson", "rem-1"
	s.Submit(a)
	s.Drain(context.Background())
	if len(p.delivered) != 1 {
		t.Fatalf("delivered %v, want 1", p.delivered)
	}

	// The chain still exists even though its only member was delivered;
	// cancelling it must succeed and dissolve it.
	if !s.CancelChain("lesson") {
		t.Fatal("CancelChain of an existing chain must return true")
	}
	if groups.ChainCount() != 0 {
		t.Fatal("chain must be dissolved")
	}
	if s.CancelChain("lesson") {
		t.Fatal("CancelChain of a dissolved chain must return false")
	}
}
