package engine

import (
	"time"

	"github.com/mlempinen/pianola"
	"go.uber.org/zap"
)

// Capturer records a live performance as a capture log. Events are stamped
// relative to a fixed start instant at append time, so offsets are
// non-decreasing by construction. Owned by the update loop.
type Capturer struct {
	active bool
	start  time.Time
	events []pianola.RecordedEvent
	logger *zap.Logger
}

func NewCapturer(logger *zap.Logger) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capturer{logger: logger}
}

// Start begins a new capture anchored to now. A no-op returning false when a
// capture is already active.
func (c *Capturer) Start(now time.Time) bool {
	if c.active {
		return false
	}
	c.active = true
	c.start = now
	c.events = nil
	c.logger.Info("capture started")
	return true
}

// Record appends the event stamped with its offset from the capture start.
// A no-op when not capturing.
func (c *Capturer) Record(ev pianola.LiveEvent, now time.Time) {
	if !c.active {
		return
	}
	c.events = append(c.events, pianola.RecordedEvent{
		OffsetMS: now.Sub(c.start).Milliseconds(),
		Event:    ev,
	})
}

// Stop seals the capture and returns the recording. Returns false when no
// capture was active.
func (c *Capturer) Stop(now time.Time) (*pianola.Recording, bool) {
	if !c.active {
		return nil, false
	}
	c.active = false
	rec := &pianola.Recording{
		Events:     c.events,
		DurationMS: now.Sub(c.start).Milliseconds(),
	}
	c.events = nil
	c.logger.Info("capture stopped",
		zap.Int("events", len(rec.Events)),
		zap.Int64("durationMS", rec.DurationMS))
	return rec, true
}

func (c *Capturer) Active() bool { return c.active }
