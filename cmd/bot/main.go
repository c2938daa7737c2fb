package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/dew-77/homework-bot/internal/app"
	"github.com/dew-77/homework-bot/internal/config"
	"github.com/dew-77/homework-bot/pkg/logx"
)

func main() {
	os.Exit(run())
}

// bootLogger writes to the console and to the default log file, so that
// startup failures land in the same places as the bot's own records.
func bootLogger(path string) (*logx.Service, logx.Logger) {
	svc, log := logx.New(logx.Config{
		Level:   "DEBUG",
		Console: true,
		File:    logx.FileConfig{Enabled: true, Path: path},
	}, nil)
	return svc, log.With(logx.String("comp", "main"))
}

func run() int {
	bootSvc, boot := bootLogger(config.Defaults().Logging.File.Path)
	defer func() { _ = bootSvc.Close() }()

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		boot.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		boot.Warn("maxprocs failed", logx.Err(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadDotEnv(""); err != nil {
		boot.Warn("reading .env failed", logx.Err(err))
	}

	cfgm := config.NewConfigManager(os.Getenv(config.EnvConfigPath))
	if _, err := cfgm.Load(); err != nil {
		boot.Critical("configuration is invalid, exiting", logx.Err(err))
		return 1
	}

	a, err := app.New(cfgm, app.Options{})
	if err != nil {
		boot.Critical("startup failed", logx.Err(err))
		return 1
	}

	if err := a.Run(ctx); err != nil {
		boot.Error("bot stopped with error", logx.Err(err))
		return 1
	}
	return 0
}
