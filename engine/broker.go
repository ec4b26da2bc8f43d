package engine

import "time"

type (
	// Broker is the centralized message hub between the engine and whatever
	// presentation layer drives it. Communication is many-to-one per
	// recipient: commands flow into ToEngine and are drained by the engine's
	// update cycle; per-cycle notifications flow out through ToUI. All sends
	// from the engine side are non-blocking so the update loop can never
	// dead-lock on a slow or absent consumer.
	Broker struct {
		ToEngine chan any // command messages, see messages.go
		ToUI     chan MsgToUI
	}

	// MsgToUI is the per-update notification. NotesOn and NotesOff list the
	// notes that started and stopped sounding during the cycle, for
	// visualization. Status carries a transient human-readable message and is
	// empty on most cycles. Data boxes infrequent payloads such as a finished
	// *pianola.Recording.
	MsgToUI struct {
		NotesOn  []byte
		NotesOff []byte

		Playing      bool
		PositionTick uint64
		TotalTicks   uint64
		Position     time.Duration
		Length       time.Duration

		Capturing bool
		Replaying bool

		Status string
		Data   any
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToEngine: make(chan any, 1024),
		ToUI:     make(chan MsgToUI, 1024),
	}
}

// TrySend sends a value to a channel if it is not full. It is guaranteed to
// be non-blocking; returns true if the value was sent.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}
