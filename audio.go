package pianola

import (
	"errors"
	"sync"
)

// ErrNoBackend is returned when an engine is constructed without an output
// backend. Callers who want silence should pass a NullBackend instead.
var ErrNoBackend = errors.New("no output backend")

type (
	// OutputBackend abstracts the note-output device. Start begins sounding
	// the given mono waveform at the given gain and returns a handle to the
	// running voice. Errors from Start are per-voice and recoverable; an
	// unusable device should instead fail when the backend is constructed.
	OutputBackend interface {
		Start(pcm []float32, gain float32) (VoiceHandle, error)
		Close() error
	}

	// VoiceHandle controls one sounding voice. Stop is idempotent. Finished
	// reports whether the voice has run out of samples on its own; a stopped
	// voice is also finished. All methods are non-blocking.
	VoiceHandle interface {
		Stop()
		SetGain(gain float32)
		Finished() bool
	}
)

// NullBackend is an OutputBackend that produces no sound. It stands in for
// the real device in tests and when running muted; voices run forever until
// stopped, unless the test finishes them explicitly.
type NullBackend struct {
	mu     sync.Mutex
	voices []*NullVoice
}

type NullVoice struct {
	mu       sync.Mutex
	gain     float32
	stopped  bool
	finished bool
}

func NewNullBackend() *NullBackend {
	return &NullBackend{}
}

func (b *NullBackend) Start(pcm []float32, gain float32) (VoiceHandle, error) {
	v := &NullVoice{gain: gain}
	b.mu.Lock()
	b.voices = append(b.voices, v)
	b.mu.Unlock()
	return v, nil
}

func (b *NullBackend) Close() error { return nil }

// Started returns every voice the backend has ever started, in order.
func (b *NullBackend) Started() []*NullVoice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*NullVoice(nil), b.voices...)
}

func (v *NullVoice) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.finished = true
	v.mu.Unlock()
}

func (v *NullVoice) SetGain(gain float32) {
	v.mu.Lock()
	v.gain = gain
	v.mu.Unlock()
}

func (v *NullVoice) Finished() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.finished
}

// Finish marks the voice as having played to the end of its samples.
func (v *NullVoice) Finish() {
	v.mu.Lock()
	v.finished = true
	v.mu.Unlock()
}

// Stopped reports whether Stop was called, as opposed to finishing naturally.
func (v *NullVoice) Stopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

func (v *NullVoice) Gain() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gain
}
