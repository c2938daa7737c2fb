package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/dew-77/homework-bot/internal/storage"
	"github.com/dew-77/homework-bot/internal/transport"
	"github.com/dew-77/homework-bot/pkg/logx"
)

var (
	ErrNoTarget  = errors.New("notifier: no target chat")
	ErrEmptyText = errors.New("notifier: empty text")
)

// Service is safe for concurrent use, although the watcher only calls it
// from one goroutine.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	sender transport.Sender
	store  storage.Store
	log    logx.Logger

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender transport.Sender, log logx.Logger, store storage.Store) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{sender: sender, store: store, log: log}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 5 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	s.cfg = cfg
	// Token bucket: burst = rate per sec, so a status + failure pair is not delayed.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Notify delivers n, retrying transient failures. It returns the last send
// error once retries are exhausted or ctx is done.
func (s *Service) Notify(ctx context.Context, n Notification) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if n.Text == "" {
		return ErrEmptyText
	}

	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	to := n.Target
	if to.ChatID == 0 {
		to.ChatID = cfg.ChatID
	}
	if to.ChatID == 0 {
		return ErrNoTarget
	}
	opts := n.Options
	if opts == nil {
		opts = &transport.SendOptions{DisablePreview: true}
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.RetryBase
	eb.MaxInterval = cfg.RetryMaxDelay
	eb.MaxElapsedTime = 0
	bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(cfg.RetryMax)), ctx)

	start := time.Now()
	attempts := 0
	op := func() error {
		attempts++
		if err := lim.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		defer cancel()
		_, err := s.sender.SendText(callCtx, to, n.Text, opts)
		return err
	}
	notify := func(err error, next time.Duration) {
		s.log.Debug("notify send failed, retrying",
			logx.Err(err), logx.Int("attempt", attempts), logx.Duration("next", next))
	}

	err := backoff.RetryNotify(op, bo, notify)
	s.journal(ctx, storage.DeliveryEntry{
		At:       start,
		ChatID:   to.ChatID,
		Kind:     n.Kind,
		OK:       err == nil,
		Attempts: attempts,
		TookMS:   time.Since(start).Milliseconds(),
		Error:    errString(err),
		Text:     n.Text,
	})
	if err != nil {
		return err
	}

	s.appendHistory(n.Kind, n.Text)
	s.log.Debug("message sent", logx.String("kind", n.Kind), logx.Int("attempts", attempts))
	return nil
}

func (s *Service) journal(ctx context.Context, e storage.DeliveryEntry) {
	if s.store == nil {
		return
	}
	// The journal must not depend on the send context still being alive.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 250*time.Millisecond)
	defer cancel()
	if err := s.store.AppendDelivery(jctx, e); err != nil {
		s.log.Warn("journal append failed", logx.Err(err))
	}
}

// Snapshot returns a copy of the recent delivery history, oldest first.
func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(kind, text string) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: time.Now(), Kind: kind, Text: text})
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.hmu.Unlock()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
