// Package reminder arms single-shot timers that feed pre-built requests back
// into the immediate dispatch path at a given wall-clock time.
package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"notifyd/internal/notification"
	logx "notifyd/pkg/logx"
)

// FireFunc receives the pre-built request when its timer elapses.
type FireFunc func(req notification.Request)

// housekeepEvery controls how many housekeeping runs pass between sweeps of
// fired entries. Cleanup is amortized to bound bookkeeping cost.
const housekeepEvery = 5

type entry struct {
	timer  *time.Timer
	noteID string
	at     time.Time
	ver    uint64
	done   bool
}

// Scheduler owns the timer table. Arming a key that already has a live timer
// replaces it (the prior timer is stopped first). It is safe for concurrent use.
type Scheduler struct {
	mu      sync.Mutex
	log     logx.Logger
	fire    FireFunc
	entries map[string]*entry
	byNote  map[string]string // note id -> timer key
	vers    map[string]uint64

	c      *cron.Cron
	hkRuns uint64
}

func New(fire FireFunc, log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{
		log:     log,
		fire:    fire,
		entries: map[string]*entry{},
		byNote:  map[string]string{},
		vers:    map[string]uint64{},
	}
}

// ScheduleAt arms a timer for req at fireAt. If fireAt is not in the future
// the call is a silent no-op (the reminder window has already passed).
//
// The timer key is derived from the request's reminder id ("advance_<id>");
// a request without one is keyed by its own id.
func (s *Scheduler) ScheduleAt(req notification.Request, fireAt time.Time) {
	delay := time.Until(fireAt)
	if delay <= 0 {
		s.log.Debug("reminder in the past; skipping",
			logx.String("note", req.ID), logx.Time("at", fireAt))
		return
	}

	key := timerKey(req)

	s.mu.Lock()
	if old, ok := s.entries[key]; ok {
		if old.timer != nil {
			_ = old.timer.Stop()
		}
		delete(s.byNote, old.noteID)
	}
	// Bump version so stale callbacks from a replaced timer are ignored.
	ver := s.vers[key] + 1
	s.vers[key] = ver

	localKey := key
	localVer := ver
	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		e := s.entries[localKey]
		if e == nil || e.ver != localVer || e.done {
			s.mu.Unlock()
			return
		}
		e.done = true
		delete(s.byNote, e.noteID)
		fire := s.fire
		s.mu.Unlock()

		if fire != nil {
			fire(req)
		}
	})

	s.entries[key] = &entry{timer: timer, noteID: req.ID, at: fireAt, ver: ver}
	s.byNote[req.ID] = key
	s.mu.Unlock()

	s.log.Debug("reminder armed",
		logx.String("key", key), logx.String("note", req.ID),
		logx.Time("at", fireAt), logx.Duration("in", delay))
}

// Cancel removes a still-pending timer by the notification id it carries.
// Returns false if the id does not name a pending scheduled item.
func (s *Scheduler) Cancel(noteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byNote[noteID]
	if !ok {
		return false
	}
	e := s.entries[key]
	if e == nil || e.done {
		return false
	}
	if e.timer != nil {
		_ = e.timer.Stop()
	}
	delete(s.entries, key)
	delete(s.byNote, noteID)
	delete(s.vers, key)
	return true
}

// Pending reports the number of armed, not yet fired timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if !e.done {
			n++
		}
	}
	return n
}

// Start begins periodic housekeeping. Fired entries are swept every Nth run
// rather than on every tick.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.c = cron.New()
	_, err := s.c.AddFunc("@every 1m", s.housekeep)
	if err != nil {
		s.log.Error("reminder housekeeping registration failed", logx.Err(err))
		s.c = nil
		return
	}
	s.c.Start()

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()
}

// Stop halts housekeeping and stops every live timer.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	for _, e := range s.entries {
		if e.timer != nil {
			_ = e.timer.Stop()
		}
	}
	s.entries = map[string]*entry{}
	s.byNote = map[string]string{}
	s.vers = map[string]uint64{}
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}
}

func (s *Scheduler) housekeep() {
	s.mu.Lock()
	s.hkRuns++
	if s.hkRuns%housekeepEvery != 0 {
		s.mu.Unlock()
		return
	}
	removed := 0
	for key, e := range s.entries {
		if e.done {
			delete(s.entries, key)
			delete(s.vers, key)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.log.Debug("reminder entries swept", logx.Int("removed", removed))
	}
}

func timerKey(req notification.Request) string {
	if req.ReminderID != "" {
		return "advance_" + req.ReminderID
	}
	return "advance_" + req.ID
}
