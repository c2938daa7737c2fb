package config

import (
	"strconv"
	"strings"
	"time"
)

// ChatID returns the parsed notification chat id. Validate guarantees it
// parses.
func (c *Config) ChatID() int64 {
	id, _ := strconv.ParseInt(strings.TrimSpace(c.Telegram.ChatID), 10, 64)
	return id
}

func (c *Config) RequestTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("practicum.request_timeout", c.Practicum.RequestTimeout, 30*time.Second)
	return d
}

// NotifierDurations returns retry base, retry max delay and send timeout.
// Zero values mean "use the notifier default".
func (c *Config) NotifierDurations() (base, maxDelay, send time.Duration) {
	base, _ = ParseDurationField("notifier.retry_base", c.Notifier.RetryBase)
	maxDelay, _ = ParseDurationField("notifier.retry_max_delay", c.Notifier.RetryMaxDelay)
	send, _ = ParseDurationField("notifier.send_timeout", c.Notifier.SendTimeout)
	return base, maxDelay, send
}

func (c *Config) StorageBusyTimeout() time.Duration {
	d, _ := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	return d
}
