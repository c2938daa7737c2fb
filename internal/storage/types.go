package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines journal next to Path
//   - "sqlite": SQLite database file (build tag "sqlite")
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Delivery kinds.
const (
	KindStatus  = "status"
	KindFailure = "failure"
)

// DeliveryEntry records one notification attempt.
type DeliveryEntry struct {
	At       time.Time `json:"at"`
	ChatID   int64     `json:"chat_id"`
	Kind     string    `json:"kind"`
	OK       bool      `json:"ok"`
	Attempts int       `json:"attempts"`
	TookMS   int64     `json:"took_ms"`
	Error    string    `json:"error,omitempty"`
	Text     string    `json:"text"`
}
