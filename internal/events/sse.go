package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges callback-based subscriptions to a channel, for
// SSE handlers that drain events in a select loop. Sends never block; an
// event is dropped when the channel is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
