package notifier

import (
	"time"

	"github.com/dew-77/homework-bot/internal/transport"
)

// Config controls delivery.
type Config struct {
	// ChatID is the default destination.
	ChatID        int64
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	SendTimeout   time.Duration
}

// Notification is a single message to deliver. A zero Target means the
// configured default chat.
type Notification struct {
	Kind    string
	Target  transport.ChatTarget
	Text    string
	Options *transport.SendOptions
}

type HistoryItem struct {
	At   time.Time
	Kind string
	Text string
}

const historyLimit = 100
