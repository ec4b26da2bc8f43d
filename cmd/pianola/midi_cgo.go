//go:build cgo

package main

import (
	"github.com/mlempinen/pianola/engine"
	"github.com/mlempinen/pianola/gomidi"
)

func newMIDIContext(broker *engine.Broker) midiInput {
	return gomidi.NewContext(broker)
}
