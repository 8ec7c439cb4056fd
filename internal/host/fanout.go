package host

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/openvcam/vcamd/internal/format"
	"github.com/openvcam/vcamd/internal/pool"
)

// Delivery is one frame as seen by a fanout consumer. The payload is an
// owned copy; consumers keep it as long as they like.
type Delivery struct {
	Data        []byte
	Width       uint32
	Height      uint32
	PixelFormat format.PixelFormat
	Timing      FrameTiming
}

// Fanout is an in-process source boundary that broadcasts delivered frames
// to subscribed consumers. Slow consumers lose frames rather than stall
// the pipeline: sends never block.
type Fanout struct {
	mu          sync.Mutex
	subscribers map[uint64]chan Delivery
	nextID      uint64
	bufferSize  int

	delivered atomic.Uint64
	dropped   atomic.Uint64

	logger *slog.Logger
}

// NewFanout creates a fanout output with the given per-subscriber channel
// buffer size.
func NewFanout(bufferSize int, logger *slog.Logger) *Fanout {
	if bufferSize <= 0 {
		bufferSize = 8
	}
	return &Fanout{
		subscribers: make(map[uint64]chan Delivery),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Subscribe registers a consumer and returns its delivery channel and id.
func (f *Fanout) Subscribe() (<-chan Delivery, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	ch := make(chan Delivery, f.bufferSize)
	f.subscribers[f.nextID] = ch
	return ch, f.nextID
}

// Unsubscribe removes a consumer and closes its channel.
func (f *Fanout) Unsubscribe(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ch, ok := f.subscribers[id]; ok {
		delete(f.subscribers, id)
		close(ch)
	}
}

// Deliver broadcasts the frame to every subscriber. The frame payload is
// copied once so the pooled buffer can be released as soon as Deliver
// returns.
func (f *Fanout) Deliver(frame *pool.Frame, timing FrameTiming) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.delivered.Add(1)
	if len(f.subscribers) == 0 {
		return nil
	}

	d := Delivery{
		Data:        append([]byte(nil), frame.Data...),
		Width:       frame.Width,
		Height:      frame.Height,
		PixelFormat: frame.PixelFormat,
		Timing:      timing,
	}

	for id, ch := range f.subscribers {
		select {
		case ch <- d:
		default:
			f.dropped.Add(1)
			f.logger.Debug("Dropping frame for slow consumer", "subscriber", id, "sequence", timing.Sequence)
		}
	}
	return nil
}

// Stats returns total delivered frames and per-consumer drops.
func (f *Fanout) Stats() (delivered, dropped uint64) {
	return f.delivered.Load(), f.dropped.Load()
}

// SubscriberCount returns the number of attached consumers.
func (f *Fanout) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
