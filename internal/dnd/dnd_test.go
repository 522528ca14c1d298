package dnd

import (
	"strconv"
	"testing"
	"time"

	"notifyd/internal/notification"
)

// at builds a timestamp on the given weekday with the given wall-clock time.
func at(weekday time.Weekday, hhmm string) time.Time {
	// 2026-08-03 is a Monday.
	base := time.Date(2026, 8, 3, 0, 0, 0, 0, time.Local)
	base = base.AddDate(0, 0, (int(weekday-time.Monday)+7)%7)
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	return time.Date(base.Year(), base.Month(), base.Day(), h, m, 0, 0, time.Local)
}

func TestSuppressedMidnightSpan(t *testing.T) {
	t.Parallel()
	p := New(Window{Enabled: true, Start: "22:00", End: "07:00"})

	if !p.Suppressed(at(time.Monday, "23:30"), notification.PriorityNormal) {
		t.Fatal("23:30 inside 22:00-07:00 window must be suppressed")
	}
	if !p.Suppressed(at(time.Monday, "06:15"), notification.PriorityNormal) {
		t.Fatal("06:15 inside 22:00-07:00 window must be suppressed")
	}
	if p.Suppressed(at(time.Monday, "10:00"), notification.PriorityNormal) {
		t.Fatal("10:00 outside 22:00-07:00 window must not be suppressed")
	}
}

func TestSuppressedSameDayWindow(t *testing.T) {
	t.Parallel()
	p := New(Window{Enabled: true, Start: "12:00", End: "14:00"})

	if !p.Suppressed(at(time.Tuesday, "13:00"), notification.PriorityLow) {
		t.Fatal("13:00 inside 12:00-14:00 must be suppressed")
	}
	if p.Suppressed(at(time.Tuesday, "14:01"), notification.PriorityLow) {
		t.Fatal("14:01 outside 12:00-14:00 must not be suppressed")
	}
}

func TestHighPriorityOverridesWindow(t *testing.T) {
	t.Parallel()
	p := New(Window{Enabled: true, Start: "00:00", End: "23:59"})

	if p.Suppressed(at(time.Monday, "12:00"), notification.PriorityHigh) {
		t.Fatal("priority high must never be suppressed")
	}
	if p.Suppressed(at(time.Monday, "12:00"), notification.PriorityUrgent) {
		t.Fatal("priority urgent must never be suppressed")
	}

	// The override holds with allow_urgent unset: high and urgent always
	// pass, the flag adds nothing on top.
	p2 := New(Window{Enabled: true, Start: "00:00", End: "23:59", AllowUrgent: false})
	if p2.Suppressed(at(time.Monday, "12:00"), notification.PriorityUrgent) {
		t.Fatal("urgent must pass regardless of allow_urgent")
	}
	if !p.Suppressed(at(time.Monday, "12:00"), notification.PriorityNormal) {
		t.Fatal("priority normal inside all-day window must be suppressed")
	}
}

func TestDisabledWindow(t *testing.T) {
	t.Parallel()
	p := New(Window{Enabled: false, Start: "00:00", End: "23:59"})
	if p.Suppressed(at(time.Monday, "12:00"), notification.PriorityLow) {
		t.Fatal("disabled window must not suppress")
	}
}

func TestWeekendsOnly(t *testing.T) {
	t.Parallel()
	p := New(Window{Enabled: true, Start: "00:00", End: "23:59", WeekendsOnly: true})

	if p.Suppressed(at(time.Wednesday, "12:00"), notification.PriorityNormal) {
		t.Fatal("weekday must not be suppressed by a weekends-only window")
	}
	if !p.Suppressed(at(time.Saturday, "12:00"), notification.PriorityNormal) {
		t.Fatal("saturday must be suppressed by a weekends-only window")
	}
	if !p.Suppressed(at(time.Sunday, "12:00"), notification.PriorityNormal) {
		t.Fatal("sunday must be suppressed by a weekends-only window")
	}
}

func TestMalformedTimesFailOpen(t *testing.T) {
	t.Parallel()
	p := New(Window{Enabled: true, Start: "25:00", End: "07:00"})
	if p.Suppressed(at(time.Monday, "03:00"), notification.PriorityLow) {
		t.Fatal("malformed window must not suppress")
	}
}
