// Package manager implements immediate multi-channel fan-out dispatch.
package manager

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"notifyd/internal/dnd"
	"notifyd/internal/eventbus"
	"notifyd/internal/group"
	"notifyd/internal/history"
	"notifyd/internal/notification"
	"notifyd/internal/registry"
	"notifyd/internal/reminder"
	"notifyd/internal/storage"
	"notifyd/internal/template"
	logx "notifyd/pkg/logx"
)

// Service fans a request out to an explicit (or default) channel set within
// one call. Success means at least one channel delivered.
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config

	reg    *registry.Registry
	policy *dnd.Policy
	ledger *history.Ledger
	groups *group.Tracker
	bus    eventbus.Bus
	store  storage.Store

	// reminders is optional; Cancel only succeeds for pending scheduled items.
	reminders *reminder.Scheduler

	limiter *rate.Limiter
}

func New(cfg Config, reg *registry.Registry, policy *dnd.Policy, groups *group.Tracker, bus eventbus.Bus, store storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		log:    log,
		reg:    reg,
		policy: policy,
		groups: groups,
		bus:    bus,
		store:  store,
	}
	s.applyLocked(cfg)
	// Ledger capacity is fixed at construction; Apply does not resize it.
	s.ledger = history.New(s.cfg.HistorySize, s.cfg.FailureHistorySize)
	return s
}

// SetReminders wires the scheduler used by Cancel. Called once at app wiring.
func (s *Service) SetReminders(r *reminder.Scheduler) {
	s.mu.Lock()
	s.reminders = r
	s.mu.Unlock()
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = history.DefaultCapacity
	}
	if cfg.FailureHistorySize <= 0 {
		cfg.FailureHistorySize = history.DefaultFailureCapacity
	}
	if cfg.TestRatePerSec <= 0 {
		cfg.TestRatePerSec = 5
	}
	if cfg.AutoRetry {
		// Accepted but inert: nothing re-enqueues a failed send.
		s.log.Debug("auto_retry is configured but has no effect",
			logx.Int("retry_count", cfg.RetryCount))
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.TestRatePerSec), cfg.TestRatePerSec)
}

// Send generates an id, applies DND policy, renders templates, and attempts
// every resolved channel in order. It returns the notification id in all
// cases; an empty id signals an internal fault.
func (s *Service) Send(ctx context.Context, req SendRequest) (id string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("send panicked",
				logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			if s.bus != nil {
				s.bus.Publish(eventbus.Event{
					Type: eventbus.EventFailed,
					Data: eventbus.FailedEvent{ID: id, Reason: fmt.Sprintf("internal fault: %v", r)},
				})
			}
			id = ""
		}
	}()

	n := s.buildRequest(req)
	id = n.ID

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	// Policy decision, not an error: the request is swallowed without a
	// ledger entry or failure event.
	if s.policy != nil && s.policy.Suppressed(time.Now(), n.Priority) {
		s.log.Debug("notification suppressed by dnd",
			logx.String("note", id), logx.String("priority", n.Priority.String()))
		return id
	}

	channels := req.Channels
	if len(channels) == 0 {
		channels = s.defaultChannels(cfg.DefaultChannels)
	}

	title, message := template.Render(n.Title, n.Message, req.TemplateData)
	n = n.WithText(title, message)
	opt := n.Options()

	successCount := 0
	var failed []string
	for _, chID := range channels {
		ch, enabled, ok := s.reg.Get(chID)
		if !ok || !enabled || !ch.Available() {
			failed = append(failed, chID)
			continue
		}
		if s.trySend(ctx, chID, ch, n.Title, n.Message, opt) {
			successCount++
		} else {
			failed = append(failed, chID)
		}
	}

	s.ledger.Append(history.Entry{
		Request:        n,
		Success:        successCount > 0,
		FailedChannels: failed,
	})
	s.persist(n, successCount > 0, failed, "")

	if n.ChainID != "" && n.ReminderID != "" {
		s.groups.AddToChain(n.ChainID, id)
	}

	if n.Priority >= notification.PriorityHigh && s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventImportant,
			Data: eventbus.ImportantEvent{ID: id, Priority: n.Priority},
		})
	}

	if successCount > 0 {
		s.log.Debug("notification sent",
			logx.String("note", id), logx.Int("delivered", successCount), logx.Int("failed", len(failed)))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{
				Type: eventbus.EventSent,
				Data: eventbus.SentEvent{ID: id, Request: n},
			})
		}
	} else {
		reason := "no channels delivered"
		if len(failed) > 0 {
			reason = "failed channels: " + strings.Join(failed, ", ")
		}
		s.log.Warn("notification failed", logx.String("note", id), logx.String("reason", reason))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{
				Type: eventbus.EventFailed,
				Data: eventbus.FailedEvent{ID: id, Reason: reason},
			})
		}
	}
	return id
}

// ScheduleAt defers a send until fireAt via the reminder scheduler.
// The returned id names the pre-built request and can cancel it.
func (s *Service) ScheduleAt(req SendRequest, fireAt time.Time) string {
	s.mu.Lock()
	sched := s.reminders
	s.mu.Unlock()
	if sched == nil {
		return ""
	}
	n := s.buildRequest(req)
	sched.ScheduleAt(n, fireAt)
	return n.ID
}

// Cancel removes a pending scheduled notification. Returns false if the id
// is not a pending scheduled item.
func (s *Service) Cancel(id string) bool {
	s.mu.Lock()
	sched := s.reminders
	s.mu.Unlock()
	if sched == nil || !sched.Cancel(id) {
		return false
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventCancelled,
			Data: eventbus.CancelledEvent{ID: id},
		})
	}
	return true
}

// GetHistory returns up to limit ledger entries, most-recent-last.
func (s *Service) GetHistory(limit int) []history.Entry {
	if limit <= 0 {
		limit = 100
	}
	return s.ledger.Recent(limit)
}

// Failures returns up to limit failed entries, most-recent-last.
func (s *Service) Failures(limit int) []history.Entry {
	return s.ledger.Failures(limit)
}

// TestAllChannels attempts a synthetic send on every enabled and available
// channel. Disabled or unavailable channels are recorded as false without
// being invoked.
func (s *Service) TestAllChannels(ctx context.Context) map[string]bool {
	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()

	out := map[string]bool{}
	for _, id := range s.reg.IDs() {
		ch, enabled, ok := s.reg.Get(id)
		if !ok || !enabled || !ch.Available() {
			out[id] = false
			continue
		}
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				out[id] = false
				continue
			}
		}
		out[id] = s.trySend(ctx, id, ch, "Test", "test notification", &notification.SendOptions{})
	}
	return out
}

// Snapshot reports the manager's operational counters.
type Snapshot struct {
	HistoryLen int
	Chains     int
	Channels   []string
}

func (s *Service) Snapshot() Snapshot {
	return Snapshot{
		HistoryLen: s.ledger.Len(),
		Chains:     s.groups.ChainCount(),
		Channels:   s.reg.IDs(),
	}
}

func (s *Service) buildRequest(req SendRequest) notification.Request {
	s.mu.Lock()
	tmpl, hasTmpl := s.cfg.Templates[req.Type]
	s.mu.Unlock()

	title, message := req.Title, req.Message
	if hasTmpl {
		if title == "" {
			title = tmpl.Title
		}
		if message == "" {
			message = tmpl.Message
		}
	}

	n := notification.NewRequest(title, message, req.Type, req.Priority)
	n.Duration = req.Duration
	n.Icon = req.Icon
	n.Actions = req.Actions
	n.Data = req.TemplateData
	n.ChainID = req.ChainID
	n.ReminderID = req.ReminderID
	return n
}

// defaultChannels intersects the configured default set with the currently
// available channels, preserving the configured order.
func (s *Service) defaultChannels(defaults []string) []string {
	available := s.reg.ListAvailable()
	if len(defaults) == 0 {
		return available
	}
	avail := make(map[string]struct{}, len(available))
	for _, id := range available {
		avail[id] = struct{}{}
	}
	out := make([]string, 0, len(defaults))
	for _, id := range defaults {
		if _, ok := avail[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// trySend invokes one channel, absorbing both errors and panics: a faulty
// channel never aborts the fan-out to the remaining channels.
func (s *Service) trySend(ctx context.Context, id string, ch notification.Channel, title, message string, opt *notification.SendOptions) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("channel panicked during send",
				logx.String("channel", id), logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
			ok = false
		}
	}()
	if err := ch.Send(ctx, title, message, opt); err != nil {
		s.log.Warn("channel send failed", logx.String("channel", id), logx.Err(err))
		return false
	}
	return true
}

// persist mirrors a ledger entry into the optional store, best-effort.
func (s *Service) persist(n notification.Request, success bool, failed []string, batchID string) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	err := s.store.AppendHistory(ctx, storage.HistoryRecord{
		At:             time.Now(),
		NoteID:         n.ID,
		Title:          n.Title,
		Message:        n.Message,
		Type:           string(n.Type),
		Priority:       n.Priority.String(),
		Success:        success,
		FailedChannels: strings.Join(failed, ","),
		ChainID:        n.ChainID,
		BatchID:        batchID,
	})
	if err != nil {
		s.log.Debug("history persist failed", logx.Err(err))
	}
}
