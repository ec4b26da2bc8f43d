package main

import (
	"path/filepath"
	"testing"

	"github.com/mlempinen/pianola"
	"github.com/mlempinen/pianola/engine"
)

func drainCommands(t *testing.T, broker *engine.Broker) []any {
	t.Helper()
	var msgs []any
	for {
		select {
		case msg := <-broker.ToEngine:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func TestPlaylistDispatchesOneItemAtATime(t *testing.T) {
	recPath := filepath.Join(t.TempDir(), "take.json")
	rec := &pianola.Recording{
		Events:     []pianola.RecordedEvent{{OffsetMS: 0, Event: pianola.LiveNoteOn(60, 100)}},
		DurationMS: 10,
	}
	if err := rec.Save(recPath); err != nil {
		t.Fatal(err)
	}

	broker := engine.NewBroker()
	p := &playlist{broker: broker, paths: []string{"first.mid", "second.mid", recPath}}

	if !p.startNext() {
		t.Fatal("startNext failed on a fresh playlist")
	}
	msgs := drainCommands(t, broker)
	if len(msgs) != 2 {
		t.Fatalf("first item dispatched %v commands, want load and play: %v", len(msgs), msgs)
	}
	load, ok := msgs[0].(engine.LoadMsg)
	if !ok || load.Path != "first.mid" {
		t.Errorf("first command = %+v, want LoadMsg for first.mid", msgs[0])
	}
	if _, ok := msgs[1].(engine.PlayMsg); !ok {
		t.Errorf("second command = %+v, want PlayMsg", msgs[1])
	}

	// the second file is not loaded until the playlist advances
	if !p.startNext() {
		t.Fatal("startNext failed with items remaining")
	}
	msgs = drainCommands(t, broker)
	if load, ok := msgs[0].(engine.LoadMsg); !ok || load.Path != "second.mid" {
		t.Errorf("advance dispatched %+v, want LoadMsg for second.mid", msgs[0])
	}

	if !p.startNext() {
		t.Fatal("startNext failed on the recording item")
	}
	msgs = drainCommands(t, broker)
	if len(msgs) != 1 {
		t.Fatalf("recording item dispatched %v commands, want 1: %v", len(msgs), msgs)
	}
	replay, ok := msgs[0].(engine.StartReplayMsg)
	if !ok || len(replay.Recording.Events) != 1 {
		t.Errorf("recording item dispatched %+v, want StartReplayMsg", msgs[0])
	}

	if p.startNext() {
		t.Error("exhausted playlist reported another item")
	}
}

func TestPlaylistSkipsUnreadableRecording(t *testing.T) {
	broker := engine.NewBroker()
	p := &playlist{broker: broker, paths: []string{filepath.Join(t.TempDir(), "missing.json")}}
	if p.startNext() {
		t.Error("playlist dispatched an unreadable recording")
	}
	if msgs := drainCommands(t, broker); len(msgs) != 0 {
		t.Errorf("unreadable recording sent commands: %v", msgs)
	}
}
