package config

import (
	"strings"

	"github.com/dew-77/homework-bot/pkg/logx"
)

// SummarizeConfigChange returns the changed sections, safe attrs for logging
// (tokens are never included) and whether any change needs a restart to
// take effect. Only the logging section is applied live.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, bool) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)
	restart := false

	if oldCfg.Practicum.Token != newCfg.Practicum.Token ||
		oldCfg.Practicum.Endpoint != newCfg.Practicum.Endpoint ||
		oldCfg.Practicum.RequestTimeout != newCfg.Practicum.RequestTimeout {
		changed = append(changed, "practicum")
		restart = true
		attrs = append(attrs,
			logx.String("practicum.endpoint", newCfg.Practicum.Endpoint),
			logx.Bool("practicum.token_changed", oldCfg.Practicum.Token != newCfg.Practicum.Token),
		)
	}

	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
		restart = true
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
			logx.Bool("telegram.chat_changed", oldCfg.Telegram.ChatID != newCfg.Telegram.ChatID),
		)
	}

	if oldCfg.Poll != newCfg.Poll {
		changed = append(changed, "poll")
		restart = true
		attrs = append(attrs, logx.String("poll.schedule", newCfg.Poll.Schedule))
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", strings.ToUpper(newCfg.Logging.Level)),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		restart = true
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		restart = true
		attrs = append(attrs, logx.String("storage.driver", newCfg.Storage.Driver))
	}

	return changed, attrs, restart
}
