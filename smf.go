package pianola

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadSequenceFile parses a standard MIDI file from disk into a Sequence.
func ReadSequenceFile(path string) (*Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	seq, err := ReadSequence(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return seq, nil
}

// ReadSequence parses standard MIDI file data into a Sequence. All tracks are
// merged into a single event list ordered by absolute tick. Note-ons with
// velocity zero become note-offs. Tempo meta events are kept in the sequence
// as KindTempo messages so the sequencer can apply them as playback reaches
// them; the Sequence's Tempo field is the tempo in effect at tick zero.
// Timecode (SMPTE) resolution is normalized to frames-per-second times
// ticks-per-frame ticks per quarter note. A malformed file yields an error,
// never a crash.
func ReadSequence(r io.Reader) (*Sequence, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read SMF data: %w", err)
	}
	raw, tpq := normalizeResolution(raw)
	data, err := parseSMF(raw)
	if err != nil {
		return nil, err
	}
	if tpq == 0 {
		mt, ok := data.TimeFormat.(smf.MetricTicks)
		if !ok {
			return nil, fmt.Errorf("unsupported SMF time format %v", data.TimeFormat)
		}
		tpq = int(mt)
	}
	if tpq <= 0 {
		return nil, fmt.Errorf("invalid SMF resolution %d", tpq)
	}

	var events []ScheduledEvent
	tempo := DefaultTempo
	for _, track := range data.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)
			var channel, note, velocity uint8
			var bpm float64
			switch {
			case ev.Message.GetNoteStart(&channel, &note, &velocity):
				events = append(events, ScheduledEvent{Tick: tick, Message: NoteOn(note, velocity)})
			case ev.Message.GetNoteEnd(&channel, &note):
				events = append(events, ScheduledEvent{Tick: tick, Message: NoteOff(note)})
			case ev.Message.GetMetaTempo(&bpm):
				if bpm <= 0 {
					continue
				}
				micros := int(math.Round(60e6 / bpm))
				events = append(events, ScheduledEvent{Tick: tick, Message: TempoChange(micros)})
				if tick == 0 {
					tempo = micros
				}
			}
		}
	}
	return NewSequence(events, tempo, tpq), nil
}

// normalizeResolution rewrites a timecode (SMPTE) division in the MThd header
// to the equivalent metric resolution of fps*ticksPerFrame ticks per quarter
// note. The smf reader's absolute-time pass handles only metric resolution;
// patching the division up front leaves every delta time in the file
// unchanged. Returns the resolution it patched in, or 0 for metric files.
// Malformed headers are passed through untouched so the reader reports its
// own error.
func normalizeResolution(data []byte) ([]byte, int) {
	if len(data) < 14 || string(data[:4]) != "MThd" {
		return data, 0
	}
	division := binary.BigEndian.Uint16(data[12:14])
	if division&0x8000 == 0 {
		return data, 0
	}
	// high byte is the negated frame rate, low byte the ticks per frame
	fps := int(-int8(byte(division >> 8)))
	subframes := int(division & 0xff)
	tpq := fps * subframes
	if tpq <= 0 || tpq > 0x7fff {
		return data, 0
	}
	patched := bytes.Clone(data)
	binary.BigEndian.PutUint16(patched[12:14], uint16(tpq))
	return patched, tpq
}

// parseSMF reads the data through the smf package, converting reader panics
// on malformed input into errors so a bad file can never take down the
// update loop.
func parseSMF(data []byte) (parsed *smf.SMF, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("parse SMF: %v", p)
		}
	}()
	parsed, err = smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse SMF: %w", err)
	}
	return parsed, nil
}
