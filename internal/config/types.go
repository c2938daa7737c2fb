package config

// Config is the full bot configuration.
//
// All durations are Go duration strings (e.g. "500ms", "30s", "10m").
// Credentials are normally supplied through the environment (or a .env file)
// rather than the config file; the env tag names the variable.
type Config struct {
	Practicum PracticumConfig `json:"practicum"`
	Telegram  TelegramConfig  `json:"telegram"`
	Poll      PollConfig      `json:"poll"`
	Logging   LoggingConfig   `json:"logging"`
	Notifier  NotifierConfig  `json:"notifier"`
	Storage   StorageConfig   `json:"storage"`
}

type PracticumConfig struct {
	Token          string `json:"token" env:"PRACTICUM_TOKEN" validate:"required"`
	Endpoint       string `json:"endpoint" validate:"omitempty,url"`
	RequestTimeout string `json:"request_timeout" validate:"duration"`
}

type TelegramConfig struct {
	Token  string `json:"token" env:"TELEGRAM_TOKEN" validate:"required"`
	ChatID string `json:"chat_id" env:"TELEGRAM_CHAT_ID" validate:"required,chatid"`
	// APIURL overrides the Bot API base URL. Leave empty for api.telegram.org.
	APIURL string `json:"api_url,omitempty" validate:"omitempty,url"`
}

// PollConfig controls how often the status endpoint is queried.
//
// Schedule accepts a Go duration ("10m", "600s") or a cron expression
// prefixed with "cron:" ("cron:*/10 * * * *").
type PollConfig struct {
	Schedule string `json:"schedule" validate:"required,schedule"`
}

type LoggingConfig struct {
	Level    string          `json:"level" validate:"loglevel"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram mirrors log records at or above MinLevel into the
// notification chat.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level" validate:"loglevel"`
	RatePerSec int    `json:"rate_per_sec" validate:"gte=0"`
}

type NotifierConfig struct {
	RatePerSec    int    `json:"rate_per_sec" validate:"gte=0"`
	RetryMax      int    `json:"retry_max" validate:"gte=0,lte=20"`
	RetryBase     string `json:"retry_base" validate:"duration"`
	RetryMaxDelay string `json:"retry_max_delay" validate:"duration"`
	SendTimeout   string `json:"send_timeout" validate:"duration"`
}

// StorageConfig controls the optional delivery journal.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./homework_bot_store" }
type StorageConfig struct {
	Driver      string `json:"driver" validate:"omitempty,oneof=none file sqlite sqlite3"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty" validate:"duration"` // sqlite only
}

// Defaults returns the built-in configuration. Credentials are empty.
func Defaults() *Config {
	return &Config{
		Practicum: PracticumConfig{
			Endpoint:       "https://practicum.yandex.ru/api/user_api/homework_statuses/",
			RequestTimeout: "30s",
		},
		Poll: PollConfig{Schedule: "10m"},
		Logging: LoggingConfig{
			Level:   "DEBUG",
			Console: true,
			File:    LoggingFile{Enabled: true, Path: "main.log"},
			Telegram: LoggingTelegram{
				MinLevel:   "ERROR",
				RatePerSec: 1,
			},
		},
		Notifier: NotifierConfig{
			RatePerSec:    1,
			RetryMax:      2,
			RetryBase:     "500ms",
			RetryMaxDelay: "5s",
			SendTimeout:   "10s",
		},
		Storage: StorageConfig{Path: "./homework_bot_store"},
	}
}
