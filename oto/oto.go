// Package oto implements the note-output backend on top of the oto/v3
// audio library. Each voice owns its own oto player reading a precomputed
// waveform; the device mixes concurrently sounding voices itself.
package oto

import (
	"bytes"
	"fmt"

	"github.com/ebitengine/oto/v3"

	"github.com/mlempinen/pianola"
)

type Backend struct {
	context *oto.Context
}

type Voice struct {
	player *oto.Player
}

// NewBackend opens the audio device. This is the only fatal failure point of
// the audio stack; per-voice errors later on are recoverable.
func NewBackend(sampleRate int) (*Backend, error) {
	if sampleRate <= 0 {
		sampleRate = pianola.SampleRate
	}
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Backend{context: context}, nil
}

func (b *Backend) Start(pcm []float32, gain float32) (pianola.VoiceHandle, error) {
	if b.context == nil {
		return nil, pianola.ErrNoBackend
	}
	player := b.context.NewPlayer(bytes.NewReader(floatBufferToLEBytes(pcm)))
	player.SetVolume(float64(gain))
	player.Play()
	return &Voice{player: player}, nil
}

// Close releases the backend. oto contexts cannot be closed once created,
// so only future voices are refused.
func (b *Backend) Close() error {
	b.context = nil
	return nil
}

func (v *Voice) Stop() {
	v.player.Close()
}

func (v *Voice) SetGain(gain float32) {
	v.player.SetVolume(float64(gain))
}

func (v *Voice) Finished() bool {
	return !v.player.IsPlaying()
}
