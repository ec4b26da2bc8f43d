package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mlempinen/pianola"
	"go.uber.org/zap"
)

// Replayer plays a sealed recording back through the live-input path. A
// goroutine waits out each event's offset on a deterministic timer and
// delivers it to the Events channel, from which the update loop feeds it to
// the engine exactly as a live key press. Cancellation is checked at every
// wait: stopping mid-recording delivers no further events.
type Replayer struct {
	events chan pianola.LiveEvent
	cancel context.CancelFunc
	done   chan struct{}
	active atomic.Bool
	logger *zap.Logger
}

func NewReplayer(logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		events: make(chan pianola.LiveEvent, 256),
		logger: logger,
	}
}

// Events is the stream of due replay events, drained by the update loop.
func (r *Replayer) Events() <-chan pianola.LiveEvent { return r.events }

// Active reports whether a replay is in progress.
func (r *Replayer) Active() bool { return r.active.Load() }

// Start begins replaying the recording. Returns false if a replay is already
// running or the recording is nil.
func (r *Replayer) Start(rec *pianola.Recording) bool {
	if rec == nil || !r.active.CompareAndSwap(false, true) {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.logger.Info("replay started", zap.Int("events", len(rec.Events)))
	go r.run(ctx, rec)
	return true
}

// Stop cancels a running replay. Safe to call when none is running.
func (r *Replayer) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Replayer) run(ctx context.Context, rec *pianola.Recording) {
	defer func() {
		r.active.Store(false)
		close(r.done)
	}()
	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}
	for _, ev := range rec.Events {
		if ctx.Err() != nil {
			return
		}
		if wait := time.Until(start.Add(ev.Offset())); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case r.events <- ev.Event:
		}
	}
}
