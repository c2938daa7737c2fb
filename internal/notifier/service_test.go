package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dew-77/homework-bot/internal/storage"
	"github.com/dew-77/homework-bot/internal/transport"
	"github.com/dew-77/homework-bot/pkg/logx"
)

type flakySender struct {
	mu       sync.Mutex
	failures int
	calls    int
	targets  []transport.ChatTarget
}

func (f *flakySender) SendText(_ context.Context, to transport.ChatTarget, _ string, _ *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.targets = append(f.targets, to)
	if f.calls <= f.failures {
		return transport.MessageRef{}, errors.New("telegram: bad gateway")
	}
	return transport.MessageRef{ChatID: to.ChatID, MessageID: f.calls}, nil
}

type memStore struct {
	mu      sync.Mutex
	entries []storage.DeliveryEntry
}

func (m *memStore) AppendDelivery(_ context.Context, e storage.DeliveryEntry) error {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	return nil
}

func (m *memStore) Close() error { return nil }

func fastConfig() Config {
	return Config{ChatID: 99, RatePerSec: 100, RetryMax: 2, RetryBase: time.Millisecond, RetryMaxDelay: 2 * time.Millisecond}
}

func TestNotifyRetriesThenSucceeds(t *testing.T) {
	sender := &flakySender{failures: 2}
	st := &memStore{}
	svc := New(fastConfig(), sender, logx.Nop(), st)

	err := svc.Notify(context.Background(), Notification{Kind: storage.KindStatus, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 3, sender.calls)
	assert.Equal(t, int64(99), sender.targets[0].ChatID)

	hist := svc.Snapshot()
	require.Len(t, hist, 1)
	assert.Equal(t, "hello", hist[0].Text)

	require.Len(t, st.entries, 1)
	assert.True(t, st.entries[0].OK)
	assert.Equal(t, 3, st.entries[0].Attempts)
}

func TestNotifyExhaustsRetries(t *testing.T) {
	sender := &flakySender{failures: 10}
	st := &memStore{}
	svc := New(fastConfig(), sender, logx.Nop(), st)

	err := svc.Notify(context.Background(), Notification{Kind: storage.KindFailure, Text: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad gateway")
	assert.Equal(t, 3, sender.calls)
	assert.Empty(t, svc.Snapshot())

	require.Len(t, st.entries, 1)
	assert.False(t, st.entries[0].OK)
	assert.Equal(t, "telegram: bad gateway", st.entries[0].Error)
}

func TestNotifyExplicitTarget(t *testing.T) {
	sender := &flakySender{}
	svc := New(fastConfig(), sender, logx.Nop(), nil)

	require.NoError(t, svc.Notify(context.Background(), Notification{Target: transport.ChatTarget{ChatID: 7}, Text: "x"}))
	assert.Equal(t, int64(7), sender.targets[0].ChatID)
}

func TestNotifyRejectsMissingTargetAndText(t *testing.T) {
	sender := &flakySender{}
	cfg := fastConfig()
	cfg.ChatID = 0
	svc := New(cfg, sender, logx.Nop(), nil)

	assert.ErrorIs(t, svc.Notify(context.Background(), Notification{Text: "x"}), ErrNoTarget)
	assert.ErrorIs(t, svc.Notify(context.Background(), Notification{}), ErrEmptyText)
	assert.Zero(t, sender.calls)
}

func TestNotifyCancelledContext(t *testing.T) {
	sender := &flakySender{failures: 10}
	cfg := fastConfig()
	cfg.RetryMax = 50
	cfg.RetryBase = 50 * time.Millisecond
	cfg.RetryMaxDelay = 50 * time.Millisecond
	svc := New(cfg, sender, logx.Nop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	err := svc.Notify(ctx, Notification{Text: "x"})
	require.Error(t, err)
	assert.Less(t, sender.calls, 50)
}

func TestHistoryIsCapped(t *testing.T) {
	svc := New(fastConfig(), &flakySender{}, logx.Nop(), nil)
	for i := 0; i < historyLimit+5; i++ {
		svc.appendHistory("status", "m")
	}
	assert.Len(t, svc.Snapshot(), historyLimit)
}
