package engine

import (
	"time"

	"github.com/mlempinen/pianola"
	"go.uber.org/zap"
)

// Engine owns every mutable piece of the player: the sequencer, the voice
// registry, the keyboard state, capture and replay. It has no goroutines of
// its own; the host drives it by calling Update once per cycle from a single
// goroutine. Commands arrive on the broker's ToEngine channel and a state
// snapshot goes out on ToUI after each cycle.
type Engine struct {
	broker  *Broker
	seq     *Sequencer
	voices  *Voices
	keys    *Keys
	capture *Capturer
	replay  *Replayer
	logger  *zap.Logger

	status string

	// notes that changed during the current cycle, reported to the UI
	notesOn  []byte
	notesOff []byte
}

// NewEngine builds an engine around the given backend. The wave bank is
// synthesized up front so that note-on during playback never allocates.
func NewEngine(broker *Broker, backend pianola.OutputBackend, cfg pianola.Config, logger *zap.Logger) (*Engine, error) {
	if backend == nil {
		return nil, pianola.ErrNoBackend
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	bank := pianola.NewWaveBank()
	voices := NewVoices(backend, bank, logger)
	voices.SetVolume(cfg.Audio.Volume)
	return &Engine{
		broker:  broker,
		seq:     NewSequencer(logger),
		voices:  voices,
		keys:    NewKeys(cfg.Keys),
		capture: NewCapturer(logger),
		replay:  NewReplayer(logger),
		logger:  logger,
	}, nil
}

func (e *Engine) Sequencer() *Sequencer { return e.seq }
func (e *Engine) Voices() *Voices      { return e.voices }
func (e *Engine) Keys() *Keys          { return e.keys }

// Update runs one engine cycle: drain pending commands, feed due replay
// events through the live path, fire due sequencer events, prune finished
// voices and notify the UI. now is injected so tests can drive time.
func (e *Engine) Update(now time.Time) {
	e.notesOn = e.notesOn[:0]
	e.notesOff = e.notesOff[:0]

	e.drainCommands(now)
	e.drainReplay(now)
	e.fireDue(now)

	e.keys.Update(now)
	e.voices.Cleanup()
	e.notify()
}

func (e *Engine) drainCommands(now time.Time) {
	for {
		select {
		case msg := <-e.broker.ToEngine:
			e.handleCommand(msg, now)
		default:
			return
		}
	}
}

func (e *Engine) handleCommand(msg any, now time.Time) {
	switch m := msg.(type) {
	case PlayMsg:
		e.seq.Play(now)
	case PauseMsg:
		e.seq.Pause(now)
	case StopMsg:
		e.seq.Stop()
		e.voices.StopAll()
	case TogglePlaybackMsg:
		e.seq.TogglePlayback(now)
	case SeekMsg:
		e.voices.StopAll()
		e.seq.Seek(m.Fraction, now)
	case LoadMsg:
		seq, err := pianola.ReadSequenceFile(m.Path)
		if err != nil {
			// a failed load must not disturb whatever is playing
			e.logger.Warn("load failed", zap.String("path", m.Path), zap.Error(err))
			e.status = "load failed: " + err.Error()
			return
		}
		e.voices.StopAll()
		e.seq.Load(seq)
		e.status = ""
	case LoopMsg:
		e.seq.SetLoop(m.Enabled)
	case SetVolumeMsg:
		e.voices.SetVolume(m.Volume)
	case NoteOnMsg:
		e.applyLive(pianola.LiveNoteOn(m.Note, m.Velocity), now)
	case NoteOffMsg:
		e.applyLive(pianola.LiveNoteOff(m.Note), now)
	case SustainMsg:
		e.applyLive(pianola.LiveSustain(m.Pressed), now)
	case StartCaptureMsg:
		e.capture.Start(now)
	case StopCaptureMsg:
		if rec, ok := e.capture.Stop(now); ok {
			TrySend(e.broker.ToUI, MsgToUI{Data: rec})
		}
	case StartReplayMsg:
		e.replay.Start(m.Recording)
	case StopReplayMsg:
		e.replay.Stop()
	default:
		e.logger.Warn("unknown engine command", zap.Any("msg", msg))
	}
}

func (e *Engine) drainReplay(now time.Time) {
	for {
		select {
		case ev := <-e.replay.Events():
			e.applyLive(ev, now)
		default:
			return
		}
	}
}

// applyLive routes a live event, whether from the keyboard, a MIDI device or
// a replay, through keyboard state, the voice registry and the capture log.
// Sequencer events never pass through here, so a capture holds only what the
// player actually played.
func (e *Engine) applyLive(ev pianola.LiveEvent, now time.Time) {
	switch ev.Kind {
	case pianola.EventNoteOn:
		e.keys.Press(ev.Note, now)
		e.voices.NoteOn(ev.Note, ev.Velocity)
		e.notesOn = append(e.notesOn, ev.Note)
	case pianola.EventNoteOff:
		if e.keys.Release(ev.Note) {
			e.voices.NoteOff(ev.Note)
		}
		e.notesOff = append(e.notesOff, ev.Note)
	case pianola.EventSustainPedal:
		for _, note := range e.keys.SetSustain(ev.Pressed) {
			e.voices.NoteOff(note)
		}
	}
	e.capture.Record(ev, now)
}

// fireDue pulls every event the sequencer owes for this cycle and sounds it.
// Playback events bypass keyboard state and the capture log.
func (e *Engine) fireDue(now time.Time) {
	for _, msg := range e.seq.PollDueEvents(now) {
		switch msg.Kind {
		case pianola.KindNoteOn:
			e.voices.NoteOn(msg.Note, msg.Velocity)
			e.notesOn = append(e.notesOn, msg.Note)
		case pianola.KindNoteOff:
			e.voices.NoteOff(msg.Note)
			e.notesOff = append(e.notesOff, msg.Note)
		}
	}
}

func (e *Engine) notify() {
	position, length := e.seq.TimeInfo()
	TrySend(e.broker.ToUI, MsgToUI{
		NotesOn:      append([]byte(nil), e.notesOn...),
		NotesOff:     append([]byte(nil), e.notesOff...),
		Playing:      e.seq.State() == StatePlaying,
		PositionTick: e.seq.Position(),
		TotalTicks:   e.seq.TotalTicks(),
		Position:     position,
		Length:       length,
		Capturing:    e.capture.Active(),
		Replaying:    e.replay.Active(),
		Status:       e.status,
	})
}

// Close stops all voices and releases the audio backend.
func (e *Engine) Close() error {
	e.replay.Stop()
	return e.voices.Close()
}
