package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvConfigPath     = "HOMEWORK_BOT_CONFIG"
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
	defaultDotEnvPath = ".env"
)

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set are kept. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = defaultDotEnvPath
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// applyEnv overlays credentials from the environment on cfg.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	set(&cfg.Practicum.Token, EnvPracticumToken)
	set(&cfg.Telegram.Token, EnvTelegramToken)
	set(&cfg.Telegram.ChatID, EnvTelegramChatID)
}

// normalize trims whitespace so that blank values count as missing.
func normalize(cfg *Config) {
	cfg.Practicum.Token = strings.TrimSpace(cfg.Practicum.Token)
	cfg.Practicum.Endpoint = strings.TrimSpace(cfg.Practicum.Endpoint)
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	cfg.Telegram.ChatID = strings.TrimSpace(cfg.Telegram.ChatID)
	cfg.Telegram.APIURL = strings.TrimSpace(cfg.Telegram.APIURL)
	cfg.Poll.Schedule = strings.TrimSpace(cfg.Poll.Schedule)
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
}
