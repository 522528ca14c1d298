package registry

import (
	"context"
	"testing"
	"time"

	"notifyd/internal/eventbus"
	"notifyd/internal/notification"
)

type stubChannel struct {
	available bool
}

func (s *stubChannel) Send(ctx context.Context, title, message string, opt *notification.SendOptions) error {
	return nil
}
func (s *stubChannel) Available() bool { return s.available }

func TestRegisterOverwriteKeepsOrder(t *testing.T) {
	t.Parallel()
	r := New(nil)
	r.Register("popup", &stubChannel{available: true})
	r.Register("sound", &stubChannel{available: true})
	r.Register("popup", &stubChannel{available: false}) // last write wins

	ids := r.IDs()
	if len(ids) != 2 || ids[0] != "popup" || ids[1] != "sound" {
		t.Fatalf("ids = %v, want [popup sound]", ids)
	}
	ch, enabled, ok := r.Get("popup")
	if !ok || !enabled {
		t.Fatal("overwritten channel must remain registered and enabled")
	}
	if ch.Available() {
		t.Fatal("Get must return the most recently registered instance")
	}
}

func TestUnregisterIdempotence(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	r := New(bus)
	r.Register("tray", &stubChannel{available: true})

	if !r.Unregister("tray") {
		t.Fatal("first Unregister must return true")
	}
	if r.Unregister("tray") {
		t.Fatal("second Unregister must return false")
	}

	// One register event plus one unregister event; nothing for the no-op.
	count := 0
	deadline := time.After(200 * time.Millisecond)
	for count < 2 {
		select {
		case <-events:
			count++
		case <-deadline:
			t.Fatalf("expected 2 status events, got %d", count)
		}
	}
	select {
	case e := <-events:
		t.Fatalf("unexpected extra event %v after idempotent unregister", e.Type)
	default:
	}
}

func TestListAvailableFiltersAndOrders(t *testing.T) {
	t.Parallel()
	r := New(nil)
	r.Register("popup", &stubChannel{available: true})
	r.Register("sound", &stubChannel{available: true})
	r.Register("voice", &stubChannel{available: false})
	r.SetEnabled("sound", false)

	got := r.ListAvailable()
	if len(got) != 1 || got[0] != "popup" {
		t.Fatalf("ListAvailable = %v, want [popup]", got)
	}
}

func TestSetEnabledMissing(t *testing.T) {
	t.Parallel()
	r := New(nil)
	if r.SetEnabled("nope", true) {
		t.Fatal("SetEnabled on a missing id must return false")
	}
}
