package app

import (
	"time"

	"github.com/dew-77/homework-bot/internal/config"
	"github.com/dew-77/homework-bot/internal/notifier"
	"github.com/dew-77/homework-bot/internal/practicum"
	"github.com/dew-77/homework-bot/internal/storage"
	"github.com/dew-77/homework-bot/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapNotifierConfig(cfg *config.Config) notifier.Config {
	base, maxDelay, send := cfg.NotifierDurations()
	return notifier.Config{
		ChatID:        cfg.ChatID(),
		RatePerSec:    cfg.Notifier.RatePerSec,
		RetryMax:      cfg.Notifier.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
		SendTimeout:   send,
	}
}

func mapPracticumConfig(cfg *config.Config) practicum.Config {
	return practicum.Config{
		Endpoint: cfg.Practicum.Endpoint,
		Token:    cfg.Practicum.Token,
		Timeout:  cfg.RequestTimeout(),
	}
}

// mapStorageConfig returns a zero Config (storage disabled) for the "none"
// driver.
func mapStorageConfig(cfg *config.Config) storage.Config {
	switch cfg.Storage.Driver {
	case "", "none":
		return storage.Config{}
	}
	busy := cfg.StorageBusyTimeout()
	if busy <= 0 {
		busy = time.Second
	}
	return storage.Config{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path, BusyTimeout: busy}
}
