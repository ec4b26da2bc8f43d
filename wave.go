package pianola

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// SampleRate is the fixed rate of all generated waveforms and of the audio
// output path.
const SampleRate = 44100

// The bank covers the 88 keys of a standard piano.
const (
	LowestNote  byte = 21 // A0
	HighestNote byte = 108
)

const (
	waveSeconds = 1.0
	waveAttack  = 0.1
	waveRelease = 0.3
	waveAmp     = 0.3
)

// WaveBank holds one precomputed waveform per playable note. Voices started
// from the bank share the underlying sample slice, so callers must treat the
// returned slices as read-only.
type WaveBank struct {
	waves map[byte][]float32
}

// NewWaveBank synthesizes the waveform for every note in the playable range.
func NewWaveBank() *WaveBank {
	b := &WaveBank{waves: make(map[byte][]float32, int(HighestNote-LowestNote)+1)}
	for note := LowestNote; note <= HighestNote; note++ {
		b.waves[note] = Synthesize(NoteToFrequency(note), waveSeconds)
	}
	return b
}

// Wave returns the precomputed waveform for a note, or false if the note is
// outside the bank's range.
func (b *WaveBank) Wave(note byte) ([]float32, bool) {
	w, ok := b.waves[note]
	return w, ok
}

// Synthesize renders a mono sine wave of the given frequency and duration in
// seconds, shaped by a linear attack and a linear release tail towards the
// end, at the bank's fixed amplitude.
func Synthesize(frequency float32, seconds float64) []float32 {
	n := int(SampleRate * seconds)
	samples := make([]float32, n)
	envelope := make([]float32, n)
	omega := 2 * math.Pi * float64(frequency) / SampleRate
	for i := range samples {
		samples[i] = float32(math.Sin(omega * float64(i)))
		t := float64(i) / SampleRate
		switch {
		case t < waveAttack:
			envelope[i] = float32(t / waveAttack)
		case t > seconds-waveRelease:
			envelope[i] = float32((seconds - t) / waveRelease)
		default:
			envelope[i] = 1
		}
	}
	vek32.Mul_Inplace(samples, envelope)
	vek32.MulNumber_Inplace(samples, waveAmp)
	return samples
}
