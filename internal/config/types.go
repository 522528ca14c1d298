// Package config loads, validates, and watches the daemon configuration.
//
// Files may be JSON or YAML; YAML is coerced to JSON so both formats go
// through the same strict decoder. Unknown keys are rejected.
package config

import (
	"bytes"
	"encoding/json"
)

type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Manager  ManagerConfig  `json:"manager"`
	Dispatch DispatchConfig `json:"dispatch"`
	DND      DNDConfig      `json:"dnd"`

	// Channels maps channel id to its enable flag and opaque settings.
	Channels map[string]ChannelConfigRaw `json:"channels"`

	// Templates maps notification type to its default text pattern.
	Templates map[string]TemplateConfig `json:"templates,omitempty"`

	Storage  *StorageConfig  `json:"storage,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ManagerConfig controls immediate fan-out.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type ManagerConfig struct {
	DefaultChannels    []string `json:"default_channels,omitempty"`
	HistorySize        int      `json:"history_size,omitempty"`
	FailureHistorySize int      `json:"failure_history_size,omitempty"`
	TestRatePerSec     int      `json:"test_rate_per_sec,omitempty"`

	// AutoRetry and friends are accepted but have no effect; failed sends
	// are never re-queued.
	AutoRetry     bool   `json:"auto_retry,omitempty"`
	RetryCount    int    `json:"retry_count,omitempty"`
	RetryInterval string `json:"retry_interval,omitempty"`
}

// DispatchConfig controls the queued dispatcher.
type DispatchConfig struct {
	Enabled bool `json:"enabled"`
	// TickEvery is a Go duration string; default "500ms".
	TickEvery string `json:"tick_every,omitempty"`
	QueueSize int    `json:"queue_size,omitempty"`
}

// DNDConfig is the quiet window. Start/End are "HH:MM" local times; a Start
// after End spans midnight.
type DNDConfig struct {
	Enabled      bool   `json:"enabled"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	AllowUrgent  bool   `json:"allow_urgent,omitempty"`
	WeekendsOnly bool   `json:"weekends_only,omitempty"`
}

type TemplateConfig struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// StorageConfig controls the optional history persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./notifyd_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
	// Timeout is a Go duration string for each API call.
	Timeout string `json:"timeout,omitempty"`
}

type ChannelConfigRaw struct {
	Enabled bool            `json:"enabled"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// UnmarshalJSON disallows unknown fields so typoed channel keys are caught
// during reload instead of being silently ignored.
func (c *ChannelConfigRaw) UnmarshalJSON(b []byte) error {
	type tmp struct {
		Enabled bool            `json:"enabled"`
		Config  json.RawMessage `json:"config,omitempty"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var t tmp
	if err := dec.Decode(&t); err != nil {
		return err
	}
	*c = ChannelConfigRaw{Enabled: t.Enabled, Config: t.Config}
	return nil
}
