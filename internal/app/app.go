// Package app wires configuration, channels, and the dispatch services into
// one runnable unit.
package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"notifyd/internal/channels/console"
	"notifyd/internal/channels/logfile"
	"notifyd/internal/channels/telegram"
	"notifyd/internal/config"
	"notifyd/internal/dispatch"
	"notifyd/internal/dnd"
	"notifyd/internal/eventbus"
	"notifyd/internal/group"
	"notifyd/internal/manager"
	"notifyd/internal/notification"
	"notifyd/internal/registry"
	"notifyd/internal/reminder"
	"notifyd/internal/storage"
	logx "notifyd/pkg/logx"
)

type App struct {
	cfgPath string
	cfgm    *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store storage.Store

	reg    *registry.Registry
	provs  *registry.Providers
	policy *dnd.Policy
	groups *group.Tracker

	mgr       *manager.Service
	disp      *dispatch.Service
	reminders *reminder.Scheduler

	logfileCh *logfile.Notifier

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	policy := dnd.New(mapDNDWindow(cfg))
	groups := group.NewTracker()
	reg := registry.New(bus)
	provs := registry.NewProviders(bus)

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		reg:     reg,
		provs:   provs,
		policy:  policy,
		groups:  groups,
	}
	if err := a.buildChannels(cfg); err != nil {
		return nil, err
	}

	mgrCfg, err := mapManagerConfig(cfg)
	if err != nil {
		return nil, err
	}
	a.mgr = manager.New(mgrCfg, reg, policy, groups, bus, store,
		log.With(logx.String("comp", "manager")))

	dispCfg, err := mapDispatchConfig(cfg)
	if err != nil {
		return nil, err
	}
	a.disp = dispatch.New(dispCfg, provs, policy, groups, bus,
		log.With(logx.String("comp", "dispatch")))

	a.reminders = reminder.New(a.fireReminder, log.With(logx.String("comp", "reminder")))
	a.mgr.SetReminders(a.reminders)

	return a, nil
}

func (a *App) Manager() *manager.Service      { return a.mgr }
func (a *App) Dispatch() *dispatch.Service    { return a.disp }
func (a *App) Reminders() *reminder.Scheduler { return a.reminders }

// buildChannels instantiates every configured channel and registers it with
// both the fan-out registry and the provider set.
func (a *App) buildChannels(cfg *config.Config) error {
	register := func(id string, ch notification.Provider, enabled bool) {
		a.reg.Register(id, ch)
		a.provs.Register(ch)
		if !enabled {
			a.reg.SetEnabled(id, false)
			a.provs.SetEnabled(id, false)
		}
	}

	// Console is always present; config may only disable it.
	consoleEnabled := true
	if cc, ok := cfg.Channels["console"]; ok {
		consoleEnabled = cc.Enabled
	}
	register("console", console.New(), consoleEnabled)

	if lc, ok := cfg.Channels["logfile"]; ok {
		set, err := parseLogfileSettings(lc.Config)
		if err != nil {
			return err
		}
		ch, err := logfile.New(set.Path)
		if err != nil {
			return err
		}
		a.logfileCh = ch
		register("logfile", ch, lc.Enabled)
	}

	if tc, ok := cfg.Channels["telegram"]; ok {
		if cfg.Telegram == nil || strings.TrimSpace(cfg.Telegram.Token) == "" {
			a.log.Warn("telegram channel configured without telegram credentials; skipping")
		} else {
			timeout, err := config.ParseDurationOrDefault("telegram.timeout", cfg.Telegram.Timeout, 8*time.Second)
			if err != nil {
				return err
			}
			ch, err := telegram.New(telegram.Config{
				Token:   cfg.Telegram.Token,
				ChatID:  cfg.Telegram.ChatID,
				Timeout: timeout,
			}, a.log.With(logx.String("comp", "telegram")))
			if err != nil {
				return err
			}
			register("telegram", ch, tc.Enabled)
		}
	}
	return nil
}

// fireReminder pushes an elapsed reminder back into delivery: through the
// queued dispatcher when it accepts, otherwise straight through the manager.
func (a *App) fireReminder(req notification.Request) {
	if a.disp.Submit(req) {
		return
	}
	a.mgr.Send(context.Background(), manager.SendRequest{
		Title:        req.Title,
		Message:      req.Message,
		Type:         req.Type,
		Priority:     req.Priority,
		TemplateData: req.Data,
		ChainID:      req.ChainID,
		ReminderID:   req.ReminderID,
		Duration:     req.Duration,
		Icon:         req.Icon,
		Actions:      req.Actions,
	})
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validateConfig(cfg)
	})

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()

	updates := a.cfgm.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(updates)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-updates:
				if !ok {
					return
				}
				a.applyConfig(cfg)
			}
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logEvents(runCtx)
	}()

	a.disp.Start(runCtx)
	a.reminders.Start(runCtx)

	a.log.Info("started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.reminders.Stop(ctx)
	a.disp.Stop(ctx)
	a.wg.Wait()

	if a.logfileCh != nil {
		_ = a.logfileCh.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
	return nil
}

// applyConfig pushes a validated reload into every running service.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(mapLoggingConfig(cfg))
	a.policy.Apply(mapDNDWindow(cfg))

	if mgrCfg, err := mapManagerConfig(cfg); err == nil {
		a.mgr.Apply(mgrCfg)
	}
	if dispCfg, err := mapDispatchConfig(cfg); err == nil {
		a.disp.Apply(dispCfg)
	}

	// Channels are not re-created on reload, only toggled.
	for id, cc := range cfg.Channels {
		a.reg.SetEnabled(id, cc.Enabled)
		a.provs.SetEnabled(id, cc.Enabled)
	}

	a.log.Info("config applied")
}

// logEvents mirrors bus traffic into the log so deliveries are observable
// without a separate metrics surface.
func (a *App) logEvents(ctx context.Context) {
	events, unsub := a.bus.Subscribe(64)
	defer unsub()
	log := a.log.With(logx.String("comp", "events"))
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			switch d := e.Data.(type) {
			case eventbus.SentEvent:
				log.Debug("sent", logx.String("note", d.ID), logx.String("type", string(d.Request.Type)))
			case eventbus.FailedEvent:
				log.Warn("delivery failed", logx.String("note", d.ID), logx.String("reason", d.Reason))
			case eventbus.CancelledEvent:
				log.Debug("cancelled", logx.String("note", d.ID))
			case eventbus.ImportantEvent:
				log.Info("important notification", logx.String("note", d.ID),
					logx.String("priority", d.Priority.String()))
			case eventbus.ChannelStatusEvent:
				log.Debug("channel status", logx.String("channel", d.ID), logx.Bool("enabled", d.Enabled))
			case eventbus.BatchDoneEvent:
				log.Info("batch completed", logx.String("batch", d.ID),
					logx.Int("success", d.Success), logx.Int("failed", d.Failed))
			}
		}
	}
}
