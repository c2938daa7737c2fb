// Package app wires configuration, logging, transport and the poll loop
// into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"github.com/dew-77/homework-bot/internal/config"
	"github.com/dew-77/homework-bot/internal/homework"
	"github.com/dew-77/homework-bot/internal/notifier"
	"github.com/dew-77/homework-bot/internal/practicum"
	"github.com/dew-77/homework-bot/internal/storage"
	"github.com/dew-77/homework-bot/internal/transport/telegram"
	"github.com/dew-77/homework-bot/internal/watcher"
	"github.com/dew-77/homework-bot/pkg/logx"
)

type Options struct {
	// SdNotify replaces daemon.SdNotify. Tests use it to observe readiness.
	SdNotify func(state string) (bool, error)
}

type App struct {
	cfgm *config.ConfigManager

	log  logx.Logger
	logs *logx.Service

	adapter *telegram.Adapter
	store   storage.Store
	client  *practicum.Client
	notif   *notifier.Service
	watcher *watcher.Watcher

	sdNotify func(state string) (bool, error)
}

// New builds the app from the config committed in cfgm. Load must have
// succeeded before.
func New(cfgm *config.ConfigManager, opt Options) (*App, error) {
	cfg := cfgm.Get()
	if cfg == nil {
		return nil, errors.New("config is not loaded")
	}
	if opt.SdNotify == nil {
		opt.SdNotify = func(state string) (bool, error) { return daemon.SdNotify(false, state) }
	}

	_, _, sendTimeout := cfg.NotifierDurations()
	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
	// The bot only sends, so the getMe handshake is skipped.
	ad, err := telegram.New(telegram.Config{
		Token:   cfg.Telegram.Token,
		APIURL:  cfg.Telegram.APIURL,
		Offline: true,
		Timeout: sendTimeout,
	}, bootLog)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	// Start with the Telegram sink off, point it at the chat, then enable.
	logCfg := mapLoggingConfig(cfg)
	bootCfg := logCfg
	bootCfg.Telegram.Enabled = false
	logSvc, log := logx.New(bootCfg, ad)
	logSvc.SetTelegramTarget(cfg.ChatID())
	logSvc.Apply(logCfg)

	sched, err := watcher.ParseSchedule(cfg.Poll.Schedule)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	store, err := storage.Open(mapStorageConfig(cfg), log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}
	if store != nil {
		log.Info("delivery journal enabled", logx.String("driver", cfg.Storage.Driver))
	}

	a := &App{
		cfgm:     cfgm,
		log:      log.With(logx.String("comp", "app")),
		logs:     logSvc,
		adapter:  ad,
		store:    store,
		client:   practicum.NewClient(mapPracticumConfig(cfg)),
		sdNotify: opt.SdNotify,
	}
	a.notif = notifier.New(mapNotifierConfig(cfg), ad, log.With(logx.String("comp", "notifier")), store)
	a.watcher = watcher.New(a.client, homework.NewTracker(), a.notif, log.With(logx.String("comp", "watcher")), watcher.Options{
		Schedule:  sched,
		Heartbeat: a.heartbeat,
	})
	return a, nil
}

func (a *App) Logger() logx.Logger { return a.log }

// Run polls until ctx is done, then releases every resource. It also
// watches the config file and applies logging changes.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	updates := a.cfgm.Subscribe(4)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.watcher.Run(gctx) })
	g.Go(func() error { return a.cfgm.Watch(gctx) })
	g.Go(func() error {
		a.reloadLoop(gctx, updates)
		return nil
	})

	a.notify(daemon.SdNotifyReady)
	a.log.Info("bot started",
		logx.String("config", a.cfgm.Path()),
		logx.Int64("watermark", int64(a.watcher.Watermark())),
	)

	err := g.Wait()
	a.cfgm.Unsubscribe(updates)
	a.notify(daemon.SdNotifyStopping)
	a.log.Info("bot stopped")
	return err
}

func (a *App) heartbeat() { a.notify(daemon.SdNotifyWatchdog) }

// notify is a no-op outside systemd.
func (a *App) notify(state string) {
	if _, err := a.sdNotify(state); err != nil {
		a.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
	}
}

func (a *App) close() {
	a.client.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("journal close failed", logx.Err(err))
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
