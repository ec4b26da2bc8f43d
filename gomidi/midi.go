// Package gomidi feeds events from a hardware MIDI keyboard into the
// engine's command channel, using the rtmidi driver.
package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/mlempinen/pianola/engine"
)

const sustainController = 64

type (
	// RTMIDIContext owns the rtmidi driver and at most one open input
	// device. Incoming messages are translated to engine commands and
	// pushed onto the broker without blocking; when the engine falls
	// behind, messages are dropped rather than stalling the MIDI thread.
	RTMIDIContext struct {
		driver    *rtmididrv.Driver
		currentIn drivers.In
		broker    *engine.Broker
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}
)

// NewContext opens the rtmidi driver. A nil driver is kept around to mean
// "no MIDI available"; all operations then degrade to no-ops.
func NewContext(broker *engine.Broker) *RTMIDIContext {
	c := RTMIDIContext{broker: broker}
	c.driver, _ = rtmididrv.New()
	return &c
}

// InputDevices yields all MIDI input devices known to the driver.
func (c *RTMIDIContext) InputDevices(yield func(RTMIDIDevice) bool) {
	if c.driver == nil {
		return
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return
	}
	for _, in := range ins {
		if !yield(RTMIDIDevice{context: c, in: in}) {
			break
		}
	}
}

// TryToOpenBy opens the first input whose name starts with namePrefix, or
// the first available input when takeFirst is set.
func (c *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	var opened bool
	var openErr error
	c.InputDevices(func(device RTMIDIDevice) bool {
		if takeFirst || strings.HasPrefix(device.String(), namePrefix) {
			openErr = device.Open()
			opened = openErr == nil
			return false
		}
		return true
	})
	if opened || openErr != nil {
		return openErr
	}
	if takeFirst {
		return errors.New("no MIDI inputs available")
	}
	return fmt.Errorf("no MIDI input starting with %q", namePrefix)
}

// Open the device, closing the currently open one if necessary.
func (d RTMIDIDevice) Open() error {
	if d.context.currentIn == d.in {
		return nil
	}
	if d.context.driver == nil {
		return errors.New("no driver available")
	}
	if d.context.HasDeviceOpen() {
		d.context.currentIn.Close()
	}
	d.context.currentIn = d.in
	if err := d.in.Open(); err != nil {
		d.context.currentIn = nil
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	if _, err := midi.ListenTo(d.in, d.context.handleMessage); err != nil {
		d.in.Close()
		d.context.currentIn = nil
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	return nil
}

func (d RTMIDIDevice) String() string {
	return d.in.String()
}

func (c *RTMIDIContext) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.driver.Close()
}

func (c *RTMIDIContext) handleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity, controller, value uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		engine.TrySend(c.broker.ToEngine, any(engine.NoteOnMsg{Note: key, Velocity: velocity}))
	case msg.GetNoteEnd(&channel, &key):
		engine.TrySend(c.broker.ToEngine, any(engine.NoteOffMsg{Note: key}))
	case msg.GetControlChange(&channel, &controller, &value):
		if controller == sustainController {
			engine.TrySend(c.broker.ToEngine, any(engine.SustainMsg{Pressed: value >= 64}))
		}
	}
}
