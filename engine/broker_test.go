package engine_test

import (
	"testing"

	"github.com/mlempinen/pianola/engine"
)

func TestTrySendNeverBlocks(t *testing.T) {
	ch := make(chan int, 1)
	if !engine.TrySend(ch, 1) {
		t.Error("send to an empty channel failed")
	}
	if engine.TrySend(ch, 2) {
		t.Error("send to a full channel succeeded")
	}
	if got := <-ch; got != 1 {
		t.Errorf("received %v, want the first value", got)
	}
}

func TestBrokerChannelsBuffered(t *testing.T) {
	broker := engine.NewBroker()
	if !engine.TrySend(broker.ToEngine, any(engine.PlayMsg{})) {
		t.Error("command send failed on a fresh broker")
	}
	if !engine.TrySend(broker.ToUI, engine.MsgToUI{Playing: true}) {
		t.Error("notification send failed on a fresh broker")
	}
	msg := <-broker.ToUI
	if !msg.Playing {
		t.Error("notification lost its payload")
	}
}
