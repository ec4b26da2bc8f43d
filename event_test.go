package pianola_test

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/mlempinen/pianola"
)

func TestNewSequenceSortsEvents(t *testing.T) {
	events := []pianola.ScheduledEvent{
		{Tick: 960, Message: pianola.NoteOff(60)},
		{Tick: 0, Message: pianola.NoteOn(60, 100)},
		{Tick: 480, Message: pianola.NoteOn(64, 100)},
	}
	seq := pianola.NewSequence(events, 0, 0)
	if err := seq.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if seq.Tempo != pianola.DefaultTempo {
		t.Errorf("Tempo = %v, want default %v", seq.Tempo, pianola.DefaultTempo)
	}
	if seq.TicksPerQuarter != pianola.DefaultTicksPerQuarter {
		t.Errorf("TicksPerQuarter = %v, want default %v", seq.TicksPerQuarter, pianola.DefaultTicksPerQuarter)
	}
	if seq.TotalTicks != 960 {
		t.Errorf("TotalTicks = %v, want 960", seq.TotalTicks)
	}
	if seq.Events[0].Tick != 0 || seq.Events[1].Tick != 480 || seq.Events[2].Tick != 960 {
		t.Errorf("events not sorted: %v", seq.Events)
	}
}

func TestNewSequenceStableForEqualTicks(t *testing.T) {
	// a note retriggered on the same tick must keep its off-before-on order
	events := []pianola.ScheduledEvent{
		{Tick: 480, Message: pianola.NoteOff(60)},
		{Tick: 480, Message: pianola.NoteOn(60, 100)},
	}
	seq := pianola.NewSequence(events, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter)
	if seq.Events[0].Message.Kind != pianola.KindNoteOff || seq.Events[1].Message.Kind != pianola.KindNoteOn {
		t.Errorf("equal-tick events reordered: %v, %v", seq.Events[0].Message, seq.Events[1].Message)
	}
}

func TestValidateUnsorted(t *testing.T) {
	seq := &pianola.Sequence{
		Events: []pianola.ScheduledEvent{
			{Tick: 480, Message: pianola.NoteOn(60, 100)},
			{Tick: 0, Message: pianola.NoteOff(60)},
		},
	}
	if err := seq.Validate(); !errors.Is(err, pianola.ErrUnsortedSequence) {
		t.Errorf("Validate = %v, want ErrUnsortedSequence", err)
	}
}

func TestSequenceCopy(t *testing.T) {
	seq := pianola.NewSequence([]pianola.ScheduledEvent{
		{Tick: 0, Message: pianola.NoteOn(60, 100)},
	}, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter)
	cp := seq.Copy()
	cp.Events[0].Tick = 123
	if seq.Events[0].Tick != 0 {
		t.Error("Copy shares the events slice with the original")
	}
}

func TestQueueMonotonicity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("adjacent events are ordered by tick after construction", prop.ForAll(
		func(ticks []uint64) bool {
			events := make([]pianola.ScheduledEvent, len(ticks))
			for i, tick := range ticks {
				events[i] = pianola.ScheduledEvent{Tick: tick, Message: pianola.NoteOn(60, 100)}
			}
			seq := pianola.NewSequence(events, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter)
			for i := 1; i < len(seq.Events); i++ {
				if seq.Events[i-1].Tick > seq.Events[i].Tick {
					return false
				}
			}
			return seq.Validate() == nil
		},
		gen.SliceOf(gen.UInt64Range(0, 1_000_000)),
	))

	properties.TestingRun(t)
}

func TestMessageString(t *testing.T) {
	tests := []struct {
		msg  pianola.Message
		want string
	}{
		{pianola.NoteOn(60, 100), "NoteOn(C5, vel 100)"},
		{pianola.NoteOff(61), "NoteOff(C#5)"},
		{pianola.TempoChange(500000), "Tempo(500000 us/quarter)"},
	}
	for _, test := range tests {
		if got := test.msg.String(); got != test.want {
			t.Errorf("String() = %q, want %q", got, test.want)
		}
	}
}
