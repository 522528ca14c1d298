package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free JSON Lines backend
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// HistoryRecord is the flat, schema-stable projection of one ledger entry.
type HistoryRecord struct {
	At             time.Time `json:"at"`
	NoteID         string    `json:"note_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Type           string    `json:"type"`
	Priority       string    `json:"priority"`
	Success        bool      `json:"success"`
	FailedChannels string    `json:"failed_channels,omitempty"`
	ChainID        string    `json:"chain_id,omitempty"`
	BatchID        string    `json:"batch_id,omitempty"`
}
