// Package logfile appends notifications as JSON lines to a file. Useful as a
// durable, greppable delivery surface on headless hosts.
package logfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"notifyd/internal/notification"
)

type record struct {
	At      time.Time `json:"at"`
	Title   string    `json:"title"`
	Message string    `json:"message,omitempty"`
	Icon    string    `json:"icon,omitempty"`
}

// Notifier holds the file handle open for the channel's lifetime.
type Notifier struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// New opens (or creates) the log file in append mode.
func New(path string) (*Notifier, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Notifier{path: path, f: f}, nil
}

func (n *Notifier) Send(_ context.Context, title, message string, opt *notification.SendOptions) error {
	rec := record{At: time.Now(), Title: title, Message: message}
	if opt != nil {
		rec.Icon = opt.Icon
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.f == nil {
		return os.ErrClosed
	}
	_, err = n.f.Write(line)
	return err
}

func (n *Notifier) Available() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.f != nil
}

func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.f == nil {
		return nil
	}
	err := n.f.Close()
	n.f = nil
	return err
}

func (n *Notifier) ID() string                          { return "logfile" }
func (n *Notifier) Name() string                        { return "Log file" }
func (n *Notifier) SupportedTypes() []notification.Type { return nil }
func (n *Notifier) CanHandle(notification.Request) bool { return true }
func (n *Notifier) Cancel(string) bool                  { return false }
