package engine

import "github.com/mlempinen/pianola"

// Command messages accepted on Broker.ToEngine. Unknown message types are
// ignored; a stale sender must never crash the update loop.
type (
	PlayMsg           struct{}
	PauseMsg          struct{}
	StopMsg           struct{}
	TogglePlaybackMsg struct{}

	SeekMsg struct{ Fraction float32 }
	LoadMsg struct{ Path string }
	LoopMsg struct{ Enabled bool }

	SetVolumeMsg struct{ Volume float32 }

	NoteOnMsg struct {
		Note     byte
		Velocity byte
	}
	NoteOffMsg struct{ Note byte }
	SustainMsg struct{ Pressed bool }

	StartCaptureMsg struct{}
	StopCaptureMsg  struct{}

	StartReplayMsg struct{ Recording *pianola.Recording }
	StopReplayMsg  struct{}
)
