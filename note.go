package pianola

import (
	"fmt"
	"math"
	"strings"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteToFrequency returns the equal-tempered frequency of a MIDI note,
// with A4 (note 69) at 440 Hz.
func NoteToFrequency(note byte) float32 {
	return float32(440 * math.Pow(2, (float64(note)-69)/12))
}

// FrequencyToNote returns the MIDI note closest to the given frequency.
func FrequencyToNote(frequency float32) byte {
	return byte(math.Round(69 + 12*math.Log2(float64(frequency)/440)))
}

// NoteString formats a note as e.g. "C#5".
func NoteString(note byte) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12)
}

// NoteName splits a note into its name within the octave and the octave
// number.
func NoteName(note byte) (name string, octave int) {
	return noteNames[note%12], int(note / 12)
}

// ParseNote converts a note name ("C", "F#", "Bb"...) and octave to a MIDI
// note number.
func ParseNote(name string, octave int) (byte, error) {
	var base int
	switch strings.ToUpper(name) {
	case "C":
		base = 0
	case "C#", "DB":
		base = 1
	case "D":
		base = 2
	case "D#", "EB":
		base = 3
	case "E":
		base = 4
	case "F":
		base = 5
	case "F#", "GB":
		base = 6
	case "G":
		base = 7
	case "G#", "AB":
		base = 8
	case "A":
		base = 9
	case "A#", "BB":
		base = 10
	case "B":
		base = 11
	default:
		return 0, fmt.Errorf("invalid note name %q", name)
	}
	n := octave*12 + base
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("note %s%d out of MIDI range", name, octave)
	}
	return byte(n), nil
}

// IsBlackKey reports whether the note falls on a black piano key.
func IsBlackKey(note byte) bool {
	switch note % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}
