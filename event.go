package pianola

import (
	"errors"
	"fmt"
	"slices"
)

type (
	// Message is a single sequenced or live musical message. Only the fields
	// relevant for the Kind are set: Note and Velocity for KindNoteOn, Note
	// for KindNoteOff and Tempo for KindTempo.
	Message struct {
		Kind     MessageKind
		Note     byte
		Velocity byte
		Tempo    int // microseconds per quarter note, KindTempo only
	}

	MessageKind int

	// ScheduledEvent is a Message pinned to an absolute tick position in a
	// Sequence. Ticks are relative to the Sequence's TicksPerQuarter
	// resolution.
	ScheduledEvent struct {
		Tick    uint64
		Message Message
	}

	// Sequence is the time-tagged event list extracted from a standard MIDI
	// file, with all tracks merged. Once constructed it is treated as
	// immutable: the sequencer indexes into Events but never modifies them.
	// Events are sorted ascending by Tick; events with equal ticks keep the
	// order they had in the file.
	Sequence struct {
		Events          []ScheduledEvent
		TicksPerQuarter int
		Tempo           int // microseconds per quarter note in effect at tick 0
		TotalTicks      uint64
	}
)

const (
	KindNoteOn MessageKind = iota
	KindNoteOff
	KindTempo
)

var ErrUnsortedSequence = errors.New("sequence events are not sorted by tick")

func NoteOn(note, velocity byte) Message {
	return Message{Kind: KindNoteOn, Note: note, Velocity: velocity}
}

func NoteOff(note byte) Message {
	return Message{Kind: KindNoteOff, Note: note}
}

func TempoChange(microsPerQuarter int) Message {
	return Message{Kind: KindTempo, Tempo: microsPerQuarter}
}

func (m Message) String() string {
	switch m.Kind {
	case KindNoteOn:
		return fmt.Sprintf("NoteOn(%s, vel %d)", NoteString(m.Note), m.Velocity)
	case KindNoteOff:
		return fmt.Sprintf("NoteOff(%s)", NoteString(m.Note))
	case KindTempo:
		return fmt.Sprintf("Tempo(%d us/quarter)", m.Tempo)
	}
	return "Unknown"
}

// NewSequence sorts events stably by tick and wraps them into a Sequence.
// tempo and tpq fall back to the defaults when non-positive.
func NewSequence(events []ScheduledEvent, tempo, tpq int) *Sequence {
	if tempo <= 0 {
		tempo = DefaultTempo
	}
	if tpq <= 0 {
		tpq = DefaultTicksPerQuarter
	}
	slices.SortStableFunc(events, func(a, b ScheduledEvent) int {
		switch {
		case a.Tick < b.Tick:
			return -1
		case a.Tick > b.Tick:
			return 1
		}
		return 0
	})
	var total uint64
	if len(events) > 0 {
		total = events[len(events)-1].Tick
	}
	return &Sequence{
		Events:          events,
		TicksPerQuarter: tpq,
		Tempo:           tempo,
		TotalTicks:      total,
	}
}

// Validate checks the sorted-by-tick invariant. A freshly parsed or
// constructed Sequence always passes; this exists for sequences assembled by
// hand.
func (s *Sequence) Validate() error {
	for i := 1; i < len(s.Events); i++ {
		if s.Events[i-1].Tick > s.Events[i].Tick {
			return fmt.Errorf("%w: event %d at tick %d follows tick %d",
				ErrUnsortedSequence, i, s.Events[i].Tick, s.Events[i-1].Tick)
		}
	}
	return nil
}

// Copy makes a deep copy of the Sequence.
func (s *Sequence) Copy() *Sequence {
	events := make([]ScheduledEvent, len(s.Events))
	copy(events, s.Events)
	return &Sequence{
		Events:          events,
		TicksPerQuarter: s.TicksPerQuarter,
		Tempo:           s.Tempo,
		TotalTicks:      s.TotalTicks,
	}
}
