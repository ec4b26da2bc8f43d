package engine

import (
	"sync"

	"github.com/mlempinen/pianola"
	"go.uber.org/zap"
)

// Voices is the note-output registry: it maps each MIDI note to at most one
// sounding voice on the backend. The map is the only state shared with the
// backend's asynchronous rendering; every structural change happens under the
// mutex, but backend calls (starting, stopping, re-gaining voices) are made
// outside it so the lock is never held across I/O.
type Voices struct {
	mu     sync.Mutex
	active map[byte]pianola.VoiceHandle
	gain   float32

	backend pianola.OutputBackend
	bank    *pianola.WaveBank
	logger  *zap.Logger
}

func NewVoices(backend pianola.OutputBackend, bank *pianola.WaveBank, logger *zap.Logger) *Voices {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Voices{
		active:  make(map[byte]pianola.VoiceHandle),
		gain:    0.7,
		backend: backend,
		bank:    bank,
		logger:  logger,
	}
}

// NoteOn starts a voice for the note, retriggering: an already-sounding voice
// for the same note is stopped and discarded first, so two voices can never
// overlap on one note. A backend failure drops the note with a log entry;
// playback continues.
func (v *Voices) NoteOn(note, velocity byte) {
	pcm, ok := v.bank.Wave(note)
	if !ok {
		return
	}
	v.mu.Lock()
	old := v.active[note]
	delete(v.active, note)
	gain := v.gain
	v.mu.Unlock()
	if old != nil {
		old.Stop()
	}
	handle, err := v.backend.Start(pcm, gain)
	if err != nil {
		v.logger.Warn("voice allocation failed, note dropped",
			zap.Uint8("note", note),
			zap.Uint8("velocity", velocity),
			zap.Error(err))
		return
	}
	v.mu.Lock()
	v.active[note] = handle
	v.mu.Unlock()
}

// NoteOff stops and removes the voice for the note, if any.
func (v *Voices) NoteOff(note byte) {
	v.mu.Lock()
	handle := v.active[note]
	delete(v.active, note)
	v.mu.Unlock()
	if handle != nil {
		handle.Stop()
	}
}

// StopAll silences every active voice.
func (v *Voices) StopAll() {
	v.mu.Lock()
	handles := make([]pianola.VoiceHandle, 0, len(v.active))
	for note, handle := range v.active {
		handles = append(handles, handle)
		delete(v.active, note)
	}
	v.mu.Unlock()
	for _, handle := range handles {
		handle.Stop()
	}
}

// SetVolume clamps the global volume to [0, 1] and applies it to the active
// voices immediately; future voices start at the new volume.
func (v *Voices) SetVolume(volume float32) {
	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}
	v.mu.Lock()
	v.gain = volume
	handles := make([]pianola.VoiceHandle, 0, len(v.active))
	for _, handle := range v.active {
		handles = append(handles, handle)
	}
	v.mu.Unlock()
	for _, handle := range handles {
		handle.SetGain(volume)
	}
}

// Volume returns the current global volume.
func (v *Voices) Volume() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gain
}

// Cleanup reclaims voices whose output has finished on its own, bounding
// resource use. It is idempotent; the update loop calls it every cycle. A
// voice retriggered between the unlocked Finished check and the removal is
// left alone.
func (v *Voices) Cleanup() {
	v.mu.Lock()
	type entry struct {
		note   byte
		handle pianola.VoiceHandle
	}
	entries := make([]entry, 0, len(v.active))
	for note, handle := range v.active {
		entries = append(entries, entry{note, handle})
	}
	v.mu.Unlock()

	for _, e := range entries {
		if !e.handle.Finished() {
			continue
		}
		v.mu.Lock()
		if v.active[e.note] == e.handle {
			delete(v.active, e.note)
		}
		v.mu.Unlock()
	}
}

// ActiveNotes returns the notes with a live voice, for tests and
// visualization.
func (v *Voices) ActiveNotes() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	notes := make([]byte, 0, len(v.active))
	for note := range v.active {
		notes = append(notes, note)
	}
	return notes
}

// Close stops all voices and releases the backend.
func (v *Voices) Close() error {
	v.StopAll()
	return v.backend.Close()
}
