package notification

import (
	"context"
	"time"
)

// Priority orders requests for queue draining and DND evaluation.
// Higher values drain first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// Type classifies a notification for template lookup and provider matching.
type Type string

const (
	TypeInfo       Type = "info"
	TypeWarning    Type = "warning"
	TypeError      Type = "error"
	TypeSuccess    Type = "success"
	TypeReminder   Type = "reminder"
	TypeClassStart Type = "class_start"
	TypeClassEnd   Type = "class_end"
	TypeBreakStart Type = "break_start"
	TypeCustom     Type = "custom"
)

// Action is a named button/action attached to a notification.
type Action struct {
	ID    string
	Label string
}

// SendOptions carries display hints that channels may honor or ignore.
type SendOptions struct {
	Duration time.Duration
	Icon     string
	Actions  []Action
	Data     map[string]any
}

// Channel is a delivery surface invoked for immediate, explicit fan-out.
//
// Send returns nil on successful delivery. Implementations are expected to
// return quickly; a slow channel stalls the dispatcher that invoked it.
type Channel interface {
	Send(ctx context.Context, title, message string, opt *SendOptions) error
	Available() bool
}

// Provider is a delivery surface selected automatically by capability for
// queued single-best-match dispatch.
type Provider interface {
	Channel

	ID() string
	Name() string
	SupportedTypes() []Type
	CanHandle(req Request) bool

	// Cancel removes a live notification previously delivered by this
	// provider. Providers without live tracking return false.
	Cancel(id string) bool
}

// Supports reports whether t is in the provider's declared type set.
// An empty set means the provider accepts every type.
func Supports(p Provider, t Type) bool {
	types := p.SupportedTypes()
	if len(types) == 0 {
		return true
	}
	for _, st := range types {
		if st == t {
			return true
		}
	}
	return false
}
