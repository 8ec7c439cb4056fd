package host

import (
	"errors"
	"sync"
	"time"

	"github.com/openvcam/vcamd/internal/format"
	"github.com/openvcam/vcamd/internal/pool"
)

// ErrQueueFull is returned when a producer submits faster than the
// forwarder drains.
var ErrQueueFull = errors.New("sink queue full")

// DefaultQueueDepth bounds the in-memory sink queue.
const DefaultQueueDepth = 16

// defaultStartupBuffers is the minimum number of buffers a producer should
// queue before starting delivery.
const defaultStartupBuffers = 1

// MemorySinkQueue is an in-process sink boundary: producers submit raw
// frame payloads with their own presentation timestamps, the forwarder
// dequeues them one per poll tick.
type MemorySinkQueue struct {
	mu       sync.Mutex
	frames   []*pool.Frame
	capacity int
	nextSeq  uint64

	serviced      uint64
	lastServiced  uint64
	droppedOnFull uint64
}

// NewMemorySinkQueue creates a sink queue bounded at capacity frames.
func NewMemorySinkQueue(capacity int) *MemorySinkQueue {
	if capacity <= 0 {
		capacity = DefaultQueueDepth
	}
	return &MemorySinkQueue{capacity: capacity}
}

// Submit enqueues one producer frame. The payload is not copied; callers
// hand over ownership. Returns the assigned sequence number.
func (q *MemorySinkQueue) Submit(data []byte, width, height uint32, pix format.PixelFormat, pts time.Duration, discontinuity bool) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) >= q.capacity {
		q.droppedOnFull++
		return 0, ErrQueueFull
	}

	q.nextSeq++
	f := &pool.Frame{
		Data:          data,
		Width:         width,
		Height:        height,
		PixelFormat:   pix,
		PTS:           pts,
		Sequence:      q.nextSeq,
		Discontinuity: discontinuity,
	}
	q.frames = append(q.frames, f)
	return q.nextSeq, nil
}

// Dequeue pops the oldest pending frame.
func (q *MemorySinkQueue) Dequeue() (*pool.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return nil, false
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	return f, true
}

// NotifyServiced records that the scheduled output for seq was serviced.
func (q *MemorySinkQueue) NotifyServiced(seq uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.serviced++
	q.lastServiced = seq
}

// Depth returns the number of pending frames.
func (q *MemorySinkQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// StartupBufferCount returns the minimum startup buffer count property.
func (q *MemorySinkQueue) StartupBufferCount() int {
	return defaultStartupBuffers
}

// ServicedCount returns how many sequence numbers were acknowledged and
// the most recent one.
func (q *MemorySinkQueue) ServicedCount() (uint64, uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.serviced, q.lastServiced
}
