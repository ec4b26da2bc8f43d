package engine

import (
	"time"

	"github.com/mlempinen/pianola"
)

// keyGrace is how long a key stays in the pressed set without a release
// event. Terminals rarely deliver key-up, so entries are dropped after this
// grace period to avoid stuck keys.
const keyGrace = 300 * time.Millisecond

// Keys tracks the live-input state: which notes are held, the sustain pedal,
// and the mapping from computer-keyboard characters to MIDI notes at the
// current octave. Owned by the update loop; not safe for concurrent use.
type Keys struct {
	pressed  map[byte]time.Time
	deferred map[byte]struct{} // releases held back by the sustain pedal
	sustain  bool

	octave  int
	mapping map[rune]byte
	cfg     pianola.KeyConfig
}

func NewKeys(cfg pianola.KeyConfig) *Keys {
	k := &Keys{
		pressed:  make(map[byte]time.Time),
		deferred: make(map[byte]struct{}),
		octave:   4,
		cfg:      cfg,
	}
	k.rebuildMapping()
	return k
}

// Press marks the note as held.
func (k *Keys) Press(note byte, now time.Time) {
	k.pressed[note] = now
	delete(k.deferred, note)
}

// Release handles a key release. With the sustain pedal up it removes the
// note from the pressed set and reports that the voice should stop. With the
// pedal down the note keeps sounding and showing as pressed; the release is
// deferred until the pedal lifts.
func (k *Keys) Release(note byte) (stopVoice bool) {
	if k.sustain {
		k.deferred[note] = struct{}{}
		return false
	}
	delete(k.pressed, note)
	return true
}

// SetSustain changes the pedal state. Lifting the pedal returns the notes
// whose releases were deferred while it was down; the caller stops their
// voices. Lifting also clears the pressed set.
func (k *Keys) SetSustain(pressed bool) (release []byte) {
	if k.sustain == pressed {
		return nil
	}
	k.sustain = pressed
	if pressed {
		return nil
	}
	for note := range k.deferred {
		release = append(release, note)
	}
	clear(k.deferred)
	clear(k.pressed)
	return release
}

func (k *Keys) Sustain() bool { return k.sustain }

// Update drops pressed entries older than the grace timeout while the pedal
// is up. This only affects the visual pressed set; voices end on their own.
func (k *Keys) Update(now time.Time) {
	if k.sustain {
		return
	}
	for note, at := range k.pressed {
		if now.Sub(at) >= keyGrace {
			delete(k.pressed, note)
		}
	}
}

// Pressed returns the currently held notes.
func (k *Keys) Pressed() []byte {
	notes := make([]byte, 0, len(k.pressed))
	for note := range k.pressed {
		notes = append(notes, note)
	}
	return notes
}

func (k *Keys) IsPressed(note byte) bool {
	_, ok := k.pressed[note]
	return ok
}

// Octave returns the current base octave for keyboard input.
func (k *Keys) Octave() int { return k.octave }

// ShiftOctave moves the keyboard mapping up or down, clamped to octaves 0-8.
func (k *Keys) ShiftOctave(delta int) {
	octave := k.octave + delta
	if octave < 0 {
		octave = 0
	} else if octave > 8 {
		octave = 8
	}
	if octave != k.octave {
		k.octave = octave
		k.rebuildMapping()
	}
}

// NoteForKey maps a typed character to a MIDI note at the current octave.
func (k *Keys) NoteForKey(r rune) (byte, bool) {
	note, ok := k.mapping[r]
	return note, ok
}

// rebuildMapping lays the configured white-key row onto the white keys from
// the current octave upwards and the black-key row onto the black keys.
func (k *Keys) rebuildMapping() {
	k.mapping = make(map[rune]byte)
	white := []rune(k.cfg.WhiteRow)
	black := []rune(k.cfg.BlackRow)
	var wi, bi int
	for n := k.octave * 12; n <= int(pianola.HighestNote) && n < 128; n++ {
		note := byte(n)
		if pianola.IsBlackKey(note) {
			if bi < len(black) {
				k.mapping[black[bi]] = note
				bi++
			}
		} else {
			if wi < len(white) {
				k.mapping[white[wi]] = note
				wi++
			}
		}
		if wi >= len(white) && bi >= len(black) {
			break
		}
	}
}
