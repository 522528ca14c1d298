// Package dnd evaluates the do-not-disturb window.
package dnd

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"notifyd/internal/notification"
)

// Window is a pure configuration value. Start/End are local wall-clock
// times of day ("HH:MM", no date). A Start after End spans midnight.
type Window struct {
	Enabled bool
	Start   string
	End     string

	// AllowUrgent is accepted for config compatibility but carries no
	// extra meaning: priority >= high always passes the window.
	AllowUrgent bool

	WeekendsOnly bool
}

// Policy holds the current window and answers suppression queries.
// It is safe for concurrent use; Apply may race with Suppressed.
type Policy struct {
	mu  sync.Mutex
	win Window
}

func New(win Window) *Policy {
	return &Policy{win: win}
}

func (p *Policy) Apply(win Window) {
	p.mu.Lock()
	p.win = win
	p.mu.Unlock()
}

func (p *Policy) Window() Window {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.win
}

// Suppressed reports whether a delivery at now with the given priority
// should be swallowed.
//
// Priority >= high always wins over the window: the dispatch rule is
// "skip only when DND active AND priority < high".
func (p *Policy) Suppressed(now time.Time, prio notification.Priority) bool {
	p.mu.Lock()
	win := p.win
	p.mu.Unlock()

	if !win.Enabled {
		return false
	}
	if prio >= notification.PriorityHigh {
		return false
	}
	if win.WeekendsOnly {
		wd := now.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			return false
		}
	}

	start, err := parseHHMM(win.Start)
	if err != nil {
		return false
	}
	end, err := parseHHMM(win.End)
	if err != nil {
		return false
	}

	tod := now.Hour()*60 + now.Minute()
	if start <= end {
		return start <= tod && tod <= end
	}
	// Window spans midnight.
	return tod >= start || tod <= end
}

// parseHHMM returns minutes since midnight.
func parseHHMM(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return h*60 + m, nil
}
