package watcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dew-77/homework-bot/internal/homework"
	"github.com/dew-77/homework-bot/internal/notifier"
	"github.com/dew-77/homework-bot/internal/storage"
	"github.com/dew-77/homework-bot/pkg/logx"
)

// StatusFetcher is implemented by practicum.Client.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, watermark homework.Watermark) (homework.StatusResponse, error)
}

// Notifier is implemented by notifier.Service.
type Notifier interface {
	Notify(ctx context.Context, n notifier.Notification) error
}

// ErrPanic marks a tick that panicked.
var ErrPanic = errors.New("poll iteration panicked")

type Options struct {
	// Schedule decides when the next poll happens. Nil means every
	// DefaultInterval.
	Schedule cron.Schedule
	// Start is the initial watermark. Zero means the current time.
	Start homework.Watermark
	// Heartbeat is called after every tick, successful or not.
	Heartbeat func()
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// Watcher owns the watermark and drives the tracker. It is meant to run on
// a single goroutine.
type Watcher struct {
	fetch    StatusFetcher
	tracker  *homework.Tracker
	notifier Notifier
	log      logx.Logger

	schedule  cron.Schedule
	heartbeat func()
	now       func() time.Time

	watermark homework.Watermark
}

func New(fetch StatusFetcher, tracker *homework.Tracker, n Notifier, log logx.Logger, opt Options) *Watcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if tracker == nil {
		tracker = homework.NewTracker()
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Schedule == nil {
		opt.Schedule = cron.Every(DefaultInterval)
	}
	if opt.Heartbeat == nil {
		opt.Heartbeat = func() {}
	}
	wm := opt.Start
	if wm == 0 {
		wm = homework.Watermark(opt.Now().Unix())
	}
	return &Watcher{
		fetch:     fetch,
		tracker:   tracker,
		notifier:  n,
		log:       log,
		schedule:  opt.Schedule,
		heartbeat: opt.Heartbeat,
		now:       opt.Now,
		watermark: wm,
	}
}

// Watermark returns the lower bound used by the next poll.
func (w *Watcher) Watermark() homework.Watermark { return w.watermark }

// Run polls immediately and then on every schedule activation until ctx is
// done. It only returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("watcher started", logx.Int64("watermark", int64(w.watermark)))
	for {
		_ = w.Tick(ctx)
		w.heartbeat()
		if ctx.Err() != nil {
			break
		}

		now := w.now()
		next := w.schedule.Next(now)
		wait := next.Sub(now)
		w.log.Debug("sleeping until next poll", logx.Time("next", next), logx.Duration("wait", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
		if ctx.Err() != nil {
			break
		}
	}
	w.log.Info("watcher stopped", logx.Int64("watermark", int64(w.watermark)))
	return nil
}

// Tick runs one poll iteration. When it returns an error the failure has
// already been logged and reported to the chat, and the watermark is
// unchanged.
func (w *Watcher) Tick(ctx context.Context) error {
	err := w.iterate(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		// Shutdown, not a failure.
		return ctx.Err()
	}

	w.log.Error("poll iteration failed",
		logx.String("kind", errKind(err)),
		logx.Int64("watermark", int64(w.watermark)),
		logx.Err(err),
	)
	w.deliver(ctx, storage.KindFailure, homework.FailureMessage(err))
	return err
}

func (w *Watcher) iterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			id := uuid.NewString()
			w.log.Critical("poll iteration panicked",
				logx.String("panic_id", id),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %v (id %s)", ErrPanic, r, id)
		}
	}()

	resp, err := w.fetch.FetchStatus(ctx, w.watermark)
	if err != nil {
		return err
	}
	w.log.Trace("status response",
		logx.Int("items", len(resp.Items)),
		logx.Int64("next_watermark", int64(resp.NextWatermark)),
	)

	if len(resp.Items) == 0 {
		w.log.Debug("no new statuses", logx.Int64("watermark", int64(w.watermark)))
	} else {
		msg, changed, err := w.tracker.Observe(resp.Items[0])
		if err != nil {
			return err
		}
		if changed {
			w.deliver(ctx, storage.KindStatus, msg)
		} else {
			w.log.Debug("status unchanged")
		}
	}

	w.advance(resp.NextWatermark)
	return nil
}

// advance moves the watermark forward. It never goes back.
func (w *Watcher) advance(next homework.Watermark) {
	if next < w.watermark {
		w.log.Warn("ignoring watermark that goes back",
			logx.Int64("current", int64(w.watermark)),
			logx.Int64("received", int64(next)),
		)
		return
	}
	w.watermark = next
}

// deliver sends text and swallows any delivery error after logging it.
func (w *Watcher) deliver(ctx context.Context, kind, text string) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, notifier.Notification{Kind: kind, Text: text}); err != nil {
		w.log.Error("notification failed", logx.String("kind", kind), logx.Err(err))
		return
	}
	w.log.Debug("notification sent", logx.String("kind", kind))
}

func errKind(err error) string {
	switch {
	case errors.Is(err, homework.ErrTransport):
		return "transport"
	case errors.Is(err, homework.ErrStatusCode):
		return "status_code"
	case errors.Is(err, homework.ErrSchema):
		return "schema"
	case errors.Is(err, ErrPanic):
		return "panic"
	default:
		return "unknown"
	}
}
