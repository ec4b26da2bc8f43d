package engine_test

import (
	"testing"
	"time"

	"github.com/mlempinen/pianola"
	"github.com/mlempinen/pianola/engine"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func noteSequence(ticks ...uint64) *pianola.Sequence {
	events := make([]pianola.ScheduledEvent, len(ticks))
	for i, tick := range ticks {
		events[i] = pianola.ScheduledEvent{Tick: tick, Message: pianola.NoteOn(60, 100)}
	}
	return pianola.NewSequence(events, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter)
}

func TestSequencerUnloaded(t *testing.T) {
	s := engine.NewSequencer(nil)
	s.Play(base)
	s.Seek(0.5, base)
	s.Stop()
	if got := s.PollDueEvents(base); got != nil {
		t.Errorf("unloaded sequencer returned events: %v", got)
	}
	if s.Loaded() || s.State() != engine.StateStopped {
		t.Error("unloaded sequencer changed state")
	}
	s.Load(nil)
	if s.Loaded() {
		t.Error("Load(nil) marked the sequencer loaded")
	}
}

func TestSequencerPlaybackOrder(t *testing.T) {
	s := engine.NewSequencer(nil)
	s.Load(noteSequence(0, 240, 480))
	s.Play(base)

	// at 250ms only the first two events are due
	due := s.PollDueEvents(base.Add(250 * time.Millisecond))
	if len(due) != 2 {
		t.Fatalf("got %v events at 250ms, want 2: %v", len(due), due)
	}
	due = s.PollDueEvents(base.Add(600 * time.Millisecond))
	if len(due) != 1 {
		t.Fatalf("got %v events at 600ms, want 1: %v", len(due), due)
	}
}

func TestSequencerUnboundedDraining(t *testing.T) {
	ticks := make([]uint64, 100)
	for i := range ticks {
		ticks[i] = uint64(i)
	}
	s := engine.NewSequencer(nil)
	s.Load(noteSequence(ticks...))
	s.Play(base)
	due := s.PollDueEvents(base.Add(10 * time.Second))
	if len(due) != 100 {
		t.Errorf("a dense burst was not drained in one poll: got %v events, want 100", len(due))
	}
}

func TestSequencerPauseResumePreservesPosition(t *testing.T) {
	s := engine.NewSequencer(nil)
	s.Load(noteSequence(0, 480))
	s.Play(base)
	s.PollDueEvents(base.Add(250 * time.Millisecond))
	s.Pause(base.Add(250 * time.Millisecond))

	before := s.Position()
	if before != 240 {
		t.Errorf("position at pause = %v, want 240", before)
	}

	// resume much later; position must not have drifted
	resume := base.Add(time.Hour)
	s.Play(resume)
	s.PollDueEvents(resume)
	if after := s.Position(); after != before {
		t.Errorf("position after resume = %v, want %v", after, before)
	}
	if s.State() != engine.StatePlaying {
		t.Errorf("state after resume = %v, want playing", s.State())
	}
}

func TestSequencerStopRewinds(t *testing.T) {
	s := engine.NewSequencer(nil)
	s.Load(noteSequence(0, 480))
	s.Play(base)
	s.PollDueEvents(base.Add(250 * time.Millisecond))
	s.Stop()
	if s.Position() != 0 || s.State() != engine.StateStopped {
		t.Errorf("Stop left position %v state %v", s.Position(), s.State())
	}
	// the sequence stays loaded and can be replayed from the start
	s.Play(base.Add(time.Second))
	due := s.PollDueEvents(base.Add(time.Second))
	if len(due) != 1 {
		t.Errorf("replay after stop returned %v events, want the tick-0 event", len(due))
	}
}

func TestSequencerSeek(t *testing.T) {
	ticks := make([]uint64, 0, 20)
	for tick := uint64(0); tick <= 1000; tick += 100 {
		ticks = append(ticks, tick)
	}
	s := engine.NewSequencer(nil)
	s.Load(noteSequence(ticks...))
	s.Seek(0.5, base)

	if pos := s.Position(); pos < 490 || pos > 510 {
		t.Errorf("position after Seek(0.5) = %v, want about 500", pos)
	}

	s.Play(base)
	due := s.PollDueEvents(base.Add(10 * time.Second))
	// 5 events remain past tick 500
	if len(due) != 5 {
		t.Errorf("got %v events after seeking to the middle, want 5", len(due))
	}
}

func TestSequencerSeekBackwards(t *testing.T) {
	s := engine.NewSequencer(nil)
	s.Load(noteSequence(0, 500, 1000))
	s.Play(base)
	s.PollDueEvents(base.Add(600 * time.Millisecond))
	s.Seek(0.1, base.Add(600*time.Millisecond))
	if pos := s.Position(); pos != 100 {
		t.Errorf("position after backwards seek = %v, want 100", pos)
	}
	// the events before the new position are skipped, later ones replayed
	due := s.PollDueEvents(base.Add(10 * time.Second))
	if len(due) != 2 {
		t.Errorf("got %v events after backwards seek, want 2", len(due))
	}
}

func TestSequencerSeekClamps(t *testing.T) {
	s := engine.NewSequencer(nil)
	s.Load(noteSequence(0, 1000))
	s.Seek(2, base)
	if pos := s.Position(); pos != 1000 {
		t.Errorf("Seek(2) position = %v, want 1000", pos)
	}
	s.Seek(-1, base)
	if pos := s.Position(); pos != 0 {
		t.Errorf("Seek(-1) position = %v, want 0", pos)
	}
}

func TestSequencerLoop(t *testing.T) {
	s := engine.NewSequencer(nil)
	s.Load(noteSequence(0, 96))
	s.SetLoop(true)
	s.Play(base)

	due := s.PollDueEvents(base.Add(150 * time.Millisecond))
	if len(due) != 2 {
		t.Fatalf("got %v events, want 2", len(due))
	}
	if s.State() != engine.StatePlaying {
		t.Errorf("state after loop restart = %v, want playing", s.State())
	}
	if pos := s.Position(); pos > 10 {
		t.Errorf("position after loop restart = %v, want near 0", pos)
	}
	// the restarted pass delivers the tick-0 event again
	due = s.PollDueEvents(base.Add(160 * time.Millisecond))
	if len(due) != 1 {
		t.Errorf("restarted pass returned %v events, want 1", len(due))
	}
}

func TestSequencerNaturalEnd(t *testing.T) {
	s := engine.NewSequencer(nil)
	s.Load(noteSequence(0, 96))
	s.Play(base)
	s.PollDueEvents(base.Add(150 * time.Millisecond))
	if s.State() != engine.StateStopped {
		t.Errorf("state after natural end = %v, want stopped", s.State())
	}
	if !s.Loaded() {
		t.Error("natural end unloaded the sequence")
	}
	if s.Position() != 0 {
		t.Errorf("position after natural end = %v, want 0", s.Position())
	}
}

func TestSequencerTempoChange(t *testing.T) {
	events := []pianola.ScheduledEvent{
		{Tick: 0, Message: pianola.NoteOn(60, 100)},
		{Tick: 480, Message: pianola.TempoChange(250000)}, // double speed
		{Tick: 960, Message: pianola.NoteOn(64, 100)},
	}
	s := engine.NewSequencer(nil)
	s.Load(pianola.NewSequence(events, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter))
	s.Play(base)

	// at the old tempo tick 960 would be due at 1s; after the tempo change
	// at 500ms the remaining 480 ticks take only 250ms
	due := s.PollDueEvents(base.Add(500 * time.Millisecond))
	if len(due) != 1 {
		t.Fatalf("got %v events at 500ms, want 1: %v", len(due), due)
	}
	for _, msg := range due {
		if msg.Kind == pianola.KindTempo {
			t.Error("tempo change leaked out of the sequencer")
		}
	}
	due = s.PollDueEvents(base.Add(760 * time.Millisecond))
	if len(due) != 1 || due[0].Note != 64 {
		t.Errorf("got %v at 760ms, want the note at tick 960", due)
	}
}

func TestSequencerProgress(t *testing.T) {
	s := engine.NewSequencer(nil)
	if s.Progress() != 0 {
		t.Errorf("Progress without a sequence = %v, want 0", s.Progress())
	}
	s.Load(noteSequence(0, 1000))
	s.Seek(0.25, base)
	if got := s.Progress(); got < 0.24 || got > 0.26 {
		t.Errorf("Progress = %v, want 0.25", got)
	}
}
