package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{
		"logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}},
		"manager": {"default_channels": ["console"], "history_size": 50},
		"dispatch": {"enabled": true, "tick_every": "250ms"},
		"dnd": {"enabled": true, "start": "22:00", "end": "07:00"},
		"channels": {
			"console": {"enabled": true},
			"logfile": {"enabled": true, "config": {"path": "/tmp/notify.log"}}
		}
	}`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if len(cfg.Manager.DefaultChannels) != 1 || cfg.Manager.DefaultChannels[0] != "console" {
		t.Fatalf("default channels = %v", cfg.Manager.DefaultChannels)
	}
	if !cfg.DND.Enabled || cfg.DND.Start != "22:00" {
		t.Fatalf("dnd = %+v", cfg.DND)
	}
	if _, ok := cfg.Channels["logfile"]; !ok {
		t.Fatal("logfile channel missing")
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
logging:
  level: info
  console: true
dispatch:
  enabled: true
  queue_size: 32
channels:
  console:
    enabled: true
templates:
  class_start:
    title: "Class {class}"
    message: "starts in {minutes} min"
`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dispatch.QueueSize != 32 {
		t.Fatalf("queue_size = %d", cfg.Dispatch.QueueSize)
	}
	tmpl, ok := cfg.Templates["class_start"]
	if !ok || tmpl.Title != "Class {class}" {
		t.Fatalf("templates = %+v", cfg.Templates)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"logging": {"level": "info"}, "mistyped": true}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("unknown top-level key must be rejected")
	}

	path = writeFile(t, "config2.json", `{"channels": {"console": {"enabled": true, "timeout": 5}}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("unknown channel key must be rejected")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"logging": {"level": "info"}} {"extra": 1}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("trailing JSON document must be rejected")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", "1m30s"); err != nil || d != 90*time.Second {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: got %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "not-a-duration"); err == nil {
		t.Fatal("garbage must be rejected")
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("negative must be rejected")
	}
	if d, err := ParseDurationOrDefault("x", "", time.Second); err != nil || d != time.Second {
		t.Fatalf("default: got %v, %v", d, err)
	}
}
