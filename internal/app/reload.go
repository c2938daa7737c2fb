package app

import (
	"context"
	"strings"

	"github.com/dew-77/homework-bot/internal/config"
	"github.com/dew-77/homework-bot/pkg/logx"
)

// reloadLoop applies published configs. Only logging is applied live; any
// other change is reported and waits for a restart.
func (a *App) reloadLoop(ctx context.Context, updates <-chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-updates:
			if !ok {
				return
			}
			newCfg = latest(updates, newCfg)
			a.apply(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// latest drains updates and returns the newest config.
func latest(updates <-chan *config.Config, cur *config.Config) *config.Config {
	for {
		select {
		case newer, ok := <-updates:
			if !ok {
				return cur
			}
			if newer != nil {
				cur = newer
			}
		default:
			return cur
		}
	}
}

func (a *App) apply(oldCfg, newCfg *config.Config) {
	sections, attrs, restart := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config changed", fields...)
	if restart {
		a.log.Warn("some config changes need a restart to take effect")
	}

	a.logs.SetTelegramTarget(newCfg.ChatID())
	a.logs.Apply(mapLoggingConfig(newCfg))
}
