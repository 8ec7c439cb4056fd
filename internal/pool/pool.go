// Package pool implements the bounded frame-buffer allocator backing the
// active video format. A pool is created for one format descriptor and
// replaced wholesale on every format switch.
package pool

import (
	"errors"
	"fmt"
	"time"

	"github.com/openvcam/vcamd/internal/format"
)

// ErrExhausted is returned by Get when every pooled buffer is out. This is
// an expected, recoverable condition: the caller drops the frame and tries
// again on the next tick.
var ErrExhausted = errors.New("buffer pool exhausted")

// DefaultCapacity is the allocation-threshold ceiling of a pool: the
// number of frames that may be out at once before Get reports exhaustion.
const DefaultCapacity = 5

// Frame is one pooled video frame buffer plus its transient timing info.
// Timing fields are reset on every Get and are never persisted.
type Frame struct {
	Data        []byte
	Width       uint32
	Height      uint32
	PixelFormat format.PixelFormat

	// PTS is the presentation timestamp embedded by the producer,
	// measured on the monotonic host clock.
	PTS time.Duration
	// Sequence is the producer-assigned sequence number of the frame.
	Sequence uint64
	// Discontinuity marks a gap in the producer's frame sequence.
	Discontinuity bool

	owner *Pool
}

// Release returns the frame to its owning pool. Frames without an owner
// (sink-injected buffers, or buffers whose pool was already replaced by a
// format switch) are simply dropped for the collector.
func (f *Frame) Release() {
	if f.owner != nil {
		f.owner.put(f)
	}
}

// Pool is a fixed-capacity allocator of frames sized to one descriptor.
type Pool struct {
	desc format.Descriptor
	free chan *Frame
}

// New allocates a pool of capacity frames sized for desc.
func New(desc format.Descriptor, capacity int) (*Pool, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	size, err := desc.FrameSize()
	if err != nil {
		return nil, fmt.Errorf("sizing pool for %s: %w", desc, err)
	}

	p := &Pool{
		desc: desc,
		free: make(chan *Frame, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.free <- &Frame{
			Data:        make([]byte, size),
			Width:       desc.Width,
			Height:      desc.Height,
			PixelFormat: desc.PixelFormat,
			owner:       p,
		}
	}
	return p, nil
}

// Get takes a free frame from the pool, or ErrExhausted when none is
// available. It never blocks.
func (p *Pool) Get() (*Frame, error) {
	select {
	case f := <-p.free:
		f.PTS = 0
		f.Sequence = 0
		f.Discontinuity = false
		return f, nil
	default:
		return nil, ErrExhausted
	}
}

// put returns a frame to the free list. A frame coming back after the pool
// was drained is dropped; a format switch may leave one in flight.
func (p *Pool) put(f *Frame) {
	if f.owner != p {
		return
	}
	select {
	case p.free <- f:
	default:
	}
}

// Descriptor returns the format the pool's buffers are sized for.
func (p *Pool) Descriptor() format.Descriptor { return p.desc }

// Capacity returns the pool's buffer-count ceiling.
func (p *Pool) Capacity() int { return cap(p.free) }

// Available returns the number of frames currently free.
func (p *Pool) Available() int { return len(p.free) }

// drain detaches all idle buffers so they are reclaimed. In-flight buffers
// still release into the replaced pool, which is unreachable once they do;
// nothing is forcibly destroyed while in flight.
func (p *Pool) drain() {
	for {
		select {
		case f := <-p.free:
			f.owner = nil
		default:
			return
		}
	}
}
