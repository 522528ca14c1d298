package manager

import (
	"time"

	"notifyd/internal/notification"
)

// Template is a per-type title/message pattern with {key} placeholders.
type Template struct {
	Title   string
	Message string
}

// Config controls the channel manager.
type Config struct {
	// DefaultChannels is used when a send names no channels. It is
	// intersected with the currently available channel set.
	DefaultChannels []string

	HistorySize        int
	FailureHistorySize int

	// TestRatePerSec paces synthetic test sends and batch fan-out.
	TestRatePerSec int

	// Templates maps a notification type to its default text pattern.
	Templates map[notification.Type]Template

	// AutoRetry / RetryCount / RetryInterval are accepted for config
	// compatibility but not enforced: failed sends are never re-queued.
	AutoRetry     bool
	RetryCount    int
	RetryInterval time.Duration
}

// SendRequest describes one immediate fan-out send.
type SendRequest struct {
	Title    string
	Message  string
	Type     notification.Type
	Priority notification.Priority

	// Channels, when non-empty, is attempted verbatim; disabled or
	// unavailable members count as failed channels.
	Channels []string

	TemplateData map[string]any

	ChainID    string
	ReminderID string

	Duration time.Duration
	Icon     string
	Actions  []notification.Action
}
