package pianola

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// LiveEvent is one element of a captured performance: a key press, a key
	// release or a sustain pedal change. The field layout matches the on-disk
	// capture log format, so the type serializes as-is with both JSON and
	// YAML.
	LiveEvent struct {
		Kind     LiveEventKind `json:"type" yaml:"type"`
		Note     byte          `json:"midi_note,omitempty" yaml:"midi_note,omitempty"`
		Velocity byte          `json:"velocity,omitempty" yaml:"velocity,omitempty"`
		Pressed  bool          `json:"pressed,omitempty" yaml:"pressed,omitempty"`
	}

	LiveEventKind string

	// RecordedEvent is a LiveEvent stamped with its offset from the start of
	// the capture, in whole milliseconds.
	RecordedEvent struct {
		OffsetMS int64     `json:"timestamp_ms" yaml:"timestamp_ms"`
		Event    LiveEvent `json:"event_type" yaml:"event_type"`
	}

	// Recording is a sealed capture log. Offsets are non-decreasing by
	// construction: the capturer stamps each event against a fixed start
	// instant at append time.
	Recording struct {
		Events     []RecordedEvent `json:"events" yaml:"events"`
		DurationMS int64           `json:"duration_ms" yaml:"duration_ms"`
	}
)

const (
	EventNoteOn       LiveEventKind = "NoteOn"
	EventNoteOff      LiveEventKind = "NoteOff"
	EventSustainPedal LiveEventKind = "SustainPedal"
)

func LiveNoteOn(note, velocity byte) LiveEvent {
	return LiveEvent{Kind: EventNoteOn, Note: note, Velocity: velocity}
}

func LiveNoteOff(note byte) LiveEvent {
	return LiveEvent{Kind: EventNoteOff, Note: note}
}

func LiveSustain(pressed bool) LiveEvent {
	return LiveEvent{Kind: EventSustainPedal, Pressed: pressed}
}

func (e RecordedEvent) Offset() time.Duration {
	return time.Duration(e.OffsetMS) * time.Millisecond
}

func (r *Recording) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

func (r *Recording) validate() error {
	var prev int64
	for i, ev := range r.Events {
		if ev.OffsetMS < prev {
			return fmt.Errorf("event %d offset %dms precedes %dms", i, ev.OffsetMS, prev)
		}
		switch ev.Event.Kind {
		case EventNoteOn, EventNoteOff, EventSustainPedal:
		default:
			return fmt.Errorf("event %d has unknown type %q", i, ev.Event.Kind)
		}
		prev = ev.OffsetMS
	}
	return nil
}

// Save writes the recording to path, as YAML when the extension is .yml or
// .yaml and as indented JSON otherwise.
func (r *Recording) Save(path string) error {
	var data []byte
	var err error
	if isYAMLPath(path) {
		data, err = yaml.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal recording: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write recording %s: %w", path, err)
	}
	return nil
}

// LoadRecording reads a recording saved by Save. A file that fails to parse
// is reported as an error; callers surface it as "no recording available"
// rather than aborting.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording %s: %w", path, err)
	}
	var r Recording
	if isYAMLPath(path) {
		err = yaml.Unmarshal(data, &r)
	} else {
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("parse recording %s: %w", path, err)
	}
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("invalid recording %s: %w", path, err)
	}
	return &r, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}
