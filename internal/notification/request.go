package notification

import (
	"time"

	"github.com/google/uuid"
)

// Request describes one notification. It is a value type: the id is assigned
// exactly once at construction and every derived variant is a fresh copy,
// never an in-place mutation.
type Request struct {
	ID        string
	Title     string
	Message   string
	Type      Type
	Priority  Priority
	Duration  time.Duration
	Icon      string
	Actions   []Action
	Data      map[string]any
	CreatedAt time.Time

	// Origin channel id, if the request was built by a channel-bound caller.
	ChannelID string

	ChainID    string
	ReminderID string
}

// NewRequest builds a request with a process-unique id and creation timestamp.
func NewRequest(title, message string, typ Type, prio Priority) Request {
	if typ == "" {
		typ = TypeInfo
	}
	return Request{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Type:      typ,
		Priority:  prio,
		CreatedAt: time.Now(),
	}
}

// WithText returns a copy carrying rendered title/message text.
func (r Request) WithText(title, message string) Request {
	r.Title = title
	r.Message = message
	return r
}

// Options projects the display-relevant fields for a channel call.
func (r Request) Options() *SendOptions {
	return &SendOptions{
		Duration: r.Duration,
		Icon:     r.Icon,
		Actions:  r.Actions,
		Data:     r.Data,
	}
}
