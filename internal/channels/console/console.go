// Package console delivers notifications to a terminal stream. It is the
// fallback surface that is always available.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"notifyd/internal/notification"
)

// Notifier writes one line per notification. It satisfies both the plain
// channel and the capability-matched provider contracts.
type Notifier struct {
	mu  sync.Mutex
	out io.Writer
}

func New() *Notifier {
	return &Notifier{out: os.Stdout}
}

// NewWriter directs output to w instead of stdout.
func NewWriter(w io.Writer) *Notifier {
	return &Notifier{out: w}
}

func (n *Notifier) Send(_ context.Context, title, message string, opt *notification.SendOptions) error {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), title)
	if message != "" {
		line += ": " + message
	}
	if opt != nil {
		for _, a := range opt.Actions {
			line += fmt.Sprintf(" [%s]", a.Label)
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintln(n.out, line)
	return err
}

func (n *Notifier) Available() bool { return true }

func (n *Notifier) ID() string                          { return "console" }
func (n *Notifier) Name() string                        { return "Console" }
func (n *Notifier) SupportedTypes() []notification.Type { return nil }
func (n *Notifier) CanHandle(notification.Request) bool { return true }

// Cancel is a no-op: printed lines cannot be retracted.
func (n *Notifier) Cancel(string) bool { return false }
