//go:build !cgo

package main

import (
	"errors"

	"github.com/mlempinen/pianola/engine"
)

type nullMIDIContext struct{}

func (nullMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error {
	return errors.New("MIDI input requires a cgo build")
}

func (nullMIDIContext) Close() {}

func newMIDIContext(broker *engine.Broker) midiInput {
	return nullMIDIContext{}
}
