package eventbus

import "notifyd/internal/notification"

// Event types published by the dispatch engine.
const (
	EventSent          = "notify.sent"
	EventFailed        = "notify.failed"
	EventCancelled     = "notify.cancelled"
	EventImportant     = "notify.important"
	EventChannelStatus = "channel.status"
	EventBatchDone     = "batch.completed"
)

// SentEvent carries a snapshot of the delivered request.
type SentEvent struct {
	ID      string
	Request notification.Request
}

type FailedEvent struct {
	ID     string
	Reason string
}

type CancelledEvent struct {
	ID string
}

// ImportantEvent fires for priority >= high regardless of delivery outcome.
type ImportantEvent struct {
	ID       string
	Priority notification.Priority
}

type ChannelStatusEvent struct {
	ID      string
	Enabled bool
}

type BatchDoneEvent struct {
	ID      string
	Success int
	Failed  int
}
