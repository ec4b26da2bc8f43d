package engine

import (
	"time"

	"github.com/mlempinen/pianola"
	"go.uber.org/zap"
)

// PlayState is the sequencer's play/pause/stop state machine.
type PlayState int

const (
	StateStopped PlayState = iota
	StatePlaying
	StatePaused
)

func (s PlayState) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "stopped"
}

// Sequencer turns a loaded Sequence into wall-clock-driven playback. It is
// owned by the update loop and never called concurrently; PollDueEvents is
// pure computation over wall-clock deltas and never blocks.
//
// While playing, the anchor instant is maintained so that
// TicksFor(now-anchor) equals the current absolute tick: play and seek set
// anchor = now - TimeFor(position), and every tempo change re-anchors at the
// change's tick so position stays continuous across it.
type Sequencer struct {
	seq      *pianola.Sequence
	next     int // index of the next pending event in seq.Events
	state    PlayState
	anchor   time.Time
	position uint64
	tempo    int // microseconds per quarter note, updated by tempo events
	tpq      int
	loop     bool

	logger *zap.Logger
}

func NewSequencer(logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		state:  StateStopped,
		tempo:  pianola.DefaultTempo,
		tpq:    pianola.DefaultTicksPerQuarter,
		logger: logger,
	}
}

// Load replaces the loaded sequence and resets playback to the start. The
// previous sequence is left intact if seq is nil, so a failed parse upstream
// never clobbers sequencer state.
func (s *Sequencer) Load(seq *pianola.Sequence) {
	if seq == nil {
		return
	}
	s.seq = seq
	s.state = StateStopped
	s.rewind()
	s.logger.Info("sequence loaded",
		zap.Int("events", len(seq.Events)),
		zap.Uint64("totalTicks", seq.TotalTicks),
		zap.Int("tempo", seq.Tempo),
		zap.Int("ticksPerQuarter", seq.TicksPerQuarter))
}

func (s *Sequencer) rewind() {
	s.next = 0
	s.position = 0
	s.tempo = s.seq.Tempo
	s.tpq = s.seq.TicksPerQuarter
}

// Play starts or resumes playback. A no-op when no sequence is loaded.
// Resuming anchors playback so that the current position is preserved.
func (s *Sequencer) Play(now time.Time) {
	if s.seq == nil {
		return
	}
	s.state = StatePlaying
	s.anchor = now.Add(-pianola.TimeFor(s.position, s.tempo, s.tpq))
}

// Pause freezes playback at the current position. Position is recomputed
// from the wall clock first so that a later Play resumes exactly here.
func (s *Sequencer) Pause(now time.Time) {
	if s.state != StatePlaying {
		return
	}
	s.position = s.currentTick(now)
	s.state = StatePaused
}

// Stop is a hard reset to the start of the sequence, unlike Pause.
func (s *Sequencer) Stop() {
	if s.seq == nil {
		return
	}
	s.state = StateStopped
	s.rewind()
}

// TogglePlayback pauses when playing and plays otherwise.
func (s *Sequencer) TogglePlayback(now time.Time) {
	if s.state == StatePlaying {
		s.Pause(now)
	} else {
		s.Play(now)
	}
}

// Seek jumps to the given fraction of the sequence's total length. Events at
// or before the target tick are discarded from the pending queue; tempo
// changes among them still take effect so playback past the seek point runs
// at the right speed.
func (s *Sequencer) Seek(fraction float32, now time.Time) {
	if s.seq == nil {
		return
	}
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	target := uint64(float64(s.seq.TotalTicks) * float64(fraction))
	if target < s.position {
		s.rewind()
	}
	for s.next < len(s.seq.Events) && s.seq.Events[s.next].Tick <= target {
		if m := s.seq.Events[s.next].Message; m.Kind == pianola.KindTempo {
			s.tempo = m.Tempo
		}
		s.next++
	}
	s.position = target
	if s.state == StatePlaying {
		s.anchor = now.Add(-pianola.TimeFor(s.position, s.tempo, s.tpq))
	}
}

func (s *Sequencer) currentTick(now time.Time) uint64 {
	tick := pianola.TicksFor(now.Sub(s.anchor), s.tempo, s.tpq)
	if tick > s.seq.TotalTicks {
		tick = s.seq.TotalTicks
	}
	return tick
}

// PollDueEvents returns the messages of every event whose tick has been
// reached, in tick order, and advances the playback position. Draining is
// unbounded: a dense burst of events is delivered in full rather than being
// spread over later cycles, so playback cannot lag behind the wall clock.
// When the queue empties, the sequencer either loops back to the start and
// keeps playing, or stops with the sequence still loaded so that a later
// Play restarts it.
func (s *Sequencer) PollDueEvents(now time.Time) []pianola.Message {
	if s.state != StatePlaying || s.seq == nil {
		return nil
	}
	current := s.currentTick(now)
	var due []pianola.Message
	for s.next < len(s.seq.Events) && s.seq.Events[s.next].Tick <= current {
		ev := s.seq.Events[s.next]
		s.next++
		s.position = ev.Tick
		if ev.Message.Kind == pianola.KindTempo {
			s.tempo = ev.Message.Tempo
			s.anchor = now.Add(-pianola.TimeFor(s.position, s.tempo, s.tpq))
			current = s.currentTick(now)
			continue
		}
		due = append(due, ev.Message)
	}
	if current > s.position {
		s.position = current
	}
	if s.next >= len(s.seq.Events) {
		if s.loop {
			s.rewind()
			s.Play(now)
		} else {
			s.state = StateStopped
			s.rewind()
		}
	}
	return due
}

// SetLoop enables or disables automatic restart when the sequence ends.
func (s *Sequencer) SetLoop(enabled bool) { s.loop = enabled }

func (s *Sequencer) Loop() bool { return s.loop }

func (s *Sequencer) State() PlayState { return s.state }

func (s *Sequencer) Loaded() bool { return s.seq != nil }

// Position returns the current playback position in ticks.
func (s *Sequencer) Position() uint64 { return s.position }

// TotalTicks returns the length of the loaded sequence in ticks, 0 when
// nothing is loaded.
func (s *Sequencer) TotalTicks() uint64 {
	if s.seq == nil {
		return 0
	}
	return s.seq.TotalTicks
}

// Progress returns the playback position as a fraction of the total length.
func (s *Sequencer) Progress() float32 {
	total := s.TotalTicks()
	if total == 0 {
		return 0
	}
	p := float32(float64(s.position) / float64(total))
	if p > 1 {
		p = 1
	}
	return p
}

// TimeInfo returns the current position and total length as wall-clock
// durations at the current tempo.
func (s *Sequencer) TimeInfo() (position, length time.Duration) {
	return pianola.TimeFor(s.position, s.tempo, s.tpq),
		pianola.TimeFor(s.TotalTicks(), s.tempo, s.tpq)
}
