package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"notifyd/internal/config"
	"notifyd/internal/dispatch"
	"notifyd/internal/dnd"
	"notifyd/internal/manager"
	"notifyd/internal/notification"
	"notifyd/internal/storage"
	logx "notifyd/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapManagerConfig(cfg *config.Config) (manager.Config, error) {
	retry, err := config.ParseDurationField("manager.retry_interval", cfg.Manager.RetryInterval)
	if err != nil {
		return manager.Config{}, err
	}

	var templates map[notification.Type]manager.Template
	if len(cfg.Templates) > 0 {
		templates = make(map[notification.Type]manager.Template, len(cfg.Templates))
		for k, t := range cfg.Templates {
			templates[notification.Type(k)] = manager.Template{Title: t.Title, Message: t.Message}
		}
	}

	return manager.Config{
		DefaultChannels:    cfg.Manager.DefaultChannels,
		HistorySize:        cfg.Manager.HistorySize,
		FailureHistorySize: cfg.Manager.FailureHistorySize,
		TestRatePerSec:     cfg.Manager.TestRatePerSec,
		Templates:          templates,
		AutoRetry:          cfg.Manager.AutoRetry,
		RetryCount:         cfg.Manager.RetryCount,
		RetryInterval:      retry,
	}, nil
}

func mapDispatchConfig(cfg *config.Config) (dispatch.Config, error) {
	tick, err := config.ParseDurationOrDefault("dispatch.tick_every", cfg.Dispatch.TickEvery, 500*time.Millisecond)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		Enabled:   cfg.Dispatch.Enabled,
		TickEvery: tick,
		QueueSize: cfg.Dispatch.QueueSize,
	}, nil
}

func mapDNDWindow(cfg *config.Config) dnd.Window {
	return dnd.Window{
		Enabled:      cfg.DND.Enabled,
		Start:        cfg.DND.Start,
		End:          cfg.DND.End,
		AllowUrgent:  cfg.DND.AllowUrgent,
		WeekendsOnly: cfg.DND.WeekendsOnly,
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// logfileSettings is the per-channel config block for the logfile channel.
type logfileSettings struct {
	Path string `json:"path"`
}

func parseLogfileSettings(raw json.RawMessage) (logfileSettings, error) {
	out := logfileSettings{Path: "./notifyd_notifications.log"}
	if len(raw) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return logfileSettings{}, fmt.Errorf("channels.logfile.config: %w", err)
	}
	if strings.TrimSpace(out.Path) == "" {
		out.Path = "./notifyd_notifications.log"
	}
	return out, nil
}

func validateConfig(cfg *config.Config) error {
	if cfg.Manager.HistorySize < 0 {
		return fmt.Errorf("manager.history_size must be >= 0")
	}
	if cfg.Manager.FailureHistorySize < 0 {
		return fmt.Errorf("manager.failure_history_size must be >= 0")
	}
	if cfg.Manager.TestRatePerSec < 0 {
		return fmt.Errorf("manager.test_rate_per_sec must be >= 0")
	}
	if cfg.Dispatch.QueueSize < 0 {
		return fmt.Errorf("dispatch.queue_size must be >= 0")
	}
	if _, err := config.ParseDurationField("manager.retry_interval", cfg.Manager.RetryInterval); err != nil {
		return err
	}
	if _, err := config.ParseDurationField("dispatch.tick_every", cfg.Dispatch.TickEvery); err != nil {
		return err
	}
	if cfg.Storage != nil {
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
	}
	if raw, ok := cfg.Channels["logfile"]; ok {
		if _, err := parseLogfileSettings(raw.Config); err != nil {
			return err
		}
	}
	return nil
}
