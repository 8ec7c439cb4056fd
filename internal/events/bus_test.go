package events

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan FormatSwitchedEvent, 1)

	unsub := bus.Subscribe(func(e FormatSwitchedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(FormatSwitchedEvent{Index: 2, Width: 1280, Height: 720})

	select {
	case got := <-received:
		if got.Index != 2 {
			t.Errorf("received index %d, want 2", got.Index)
		}
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBusTypeIsolation(t *testing.T) {
	bus := New()
	started := make(chan StreamStartedEvent, 1)

	unsub := bus.Subscribe(func(e StreamStartedEvent) {
		started <- e
	})
	defer unsub()

	// A different event type must not reach the handler.
	bus.Publish(StreamStoppedEvent{Direction: "sink"})

	select {
	case e := <-started:
		t.Errorf("handler received %+v for an unrelated event type", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := New()
	received := make(chan FrameDroppedEvent, 1)

	unsub := bus.Subscribe(func(e FrameDroppedEvent) {
		received <- e
	})
	unsub()

	bus.Publish(FrameDroppedEvent{Reason: "pool_exhausted"})

	select {
	case <-received:
		t.Error("handler received an event after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeToChannelDropsWhenFull(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[SinkActivityEvent](bus, ch)
	defer unsub()

	bus.Publish(SinkActivityEvent{Live: true})
	bus.Publish(SinkActivityEvent{Live: false})

	// Give the dispatcher time to flush; only one event fits.
	time.Sleep(50 * time.Millisecond)
	if len(ch) != 1 {
		t.Errorf("channel has %d events, want 1", len(ch))
	}
}
