package camera

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/openvcam/vcamd/internal/format"
)

// Direction names one side of the device.
type Direction int

// Stream directions.
const (
	// DirectionSource faces consumers: frames flow out.
	DirectionSource Direction = iota
	// DirectionSink faces the external producer: frames flow in.
	DirectionSink
)

func (d Direction) String() string {
	switch d {
	case DirectionSource:
		return "source"
	case DirectionSink:
		return "sink"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection maps a direction name to its value.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "source":
		return DirectionSource, nil
	case "sink":
		return DirectionSink, nil
	default:
		return 0, fmt.Errorf("unknown stream direction %q", s)
	}
}

// Property identifies one externally readable stream property.
type Property string

// Stream properties answered at the property-query boundary.
const (
	PropertyActiveFormatIndex  Property = "active_format_index"
	PropertyFrameDuration      Property = "frame_duration"
	PropertyQueueDepth         Property = "queue_depth"
	PropertyStartupBufferCount Property = "startup_buffer_count"
)

var (
	sourceProperties = []Property{PropertyActiveFormatIndex, PropertyFrameDuration}
	sinkProperties   = []Property{PropertyActiveFormatIndex, PropertyFrameDuration, PropertyQueueDepth, PropertyStartupBufferCount}
)

// Stream is the per-direction facade over the device: the reference-counted
// start/stop state and a cached mirror of the active format for lock-free
// property reads. Mirrors are written only by the device's commit job,
// atomically with the authoritative index, so reads never see a stale
// index/duration pair.
type Stream struct {
	dev *Device
	id  uuid.UUID
	dir Direction

	properties []Property

	index   atomic.Int32
	desc    atomic.Pointer[format.Descriptor]
	clients atomic.Int32
}

func newStream(dev *Device, id uuid.UUID, dir Direction) *Stream {
	props := sourceProperties
	if dir == DirectionSink {
		props = sinkProperties
	}
	return &Stream{dev: dev, id: id, dir: dir, properties: props}
}

// setMirror updates the cached index/descriptor pair. Called only from the
// serial queue as part of a format-switch commit.
func (s *Stream) setMirror(index int, desc format.Descriptor) {
	s.desc.Store(&desc)
	s.index.Store(int32(index))
}

// ID returns the stream's fixed identifier.
func (s *Stream) ID() uuid.UUID { return s.id }

// Direction returns the stream's direction.
func (s *Stream) Direction() Direction { return s.dir }

// Properties returns the stream's fixed capability set.
func (s *Stream) Properties() []Property {
	out := make([]Property, len(s.properties))
	copy(out, s.properties)
	return out
}

// HasProperty reports whether the stream answers for the given property.
func (s *Stream) HasProperty(p Property) bool {
	for _, have := range s.properties {
		if have == p {
			return true
		}
	}
	return false
}

// Catalog returns the device's immutable format catalog.
func (s *Stream) Catalog() *format.Catalog { return s.dev.catalog }

// ActiveFormatIndex returns the stream's mirrored active index.
func (s *Stream) ActiveFormatIndex() int { return int(s.index.Load()) }

// ActiveDescriptor returns the mirrored active format descriptor.
func (s *Stream) ActiveDescriptor() format.Descriptor { return *s.desc.Load() }

// FrameDuration returns the fastest negotiated duration of the active
// format, the value reported at the property boundary.
func (s *Stream) FrameDuration() format.Duration { return s.ActiveDescriptor().Min() }

// SetActiveFormatIndex requests a format switch; validation and commit
// happen asynchronously on the device's serial queue.
func (s *Stream) SetActiveFormatIndex(index int) {
	s.dev.RequestFormatSwitch(index)
}

// QueueDepth returns the number of pending sink buffers.
func (s *Stream) QueueDepth() int { return s.dev.sink.Depth() }

// StartupBufferCount returns the minimum number of buffers a producer
// should queue before starting.
func (s *Stream) StartupBufferCount() int { return s.dev.sink.StartupBufferCount() }

// PropertyValue answers a property query. Properties outside the stream's
// declared capability set are not answered.
func (s *Stream) PropertyValue(p Property) (any, bool) {
	if !s.HasProperty(p) {
		return nil, false
	}
	switch p {
	case PropertyActiveFormatIndex:
		return s.ActiveFormatIndex(), true
	case PropertyFrameDuration:
		return s.FrameDuration(), true
	case PropertyQueueDepth:
		return s.QueueDepth(), true
	case PropertyStartupBufferCount:
		return s.StartupBufferCount(), true
	}
	return nil, false
}

// Clients returns the current reference count.
func (s *Stream) Clients() int { return int(s.clients.Load()) }

// Start authorizes the client and increments the stream's reference count.
// The first start arms the direction's timer. Never blocks on the pipeline.
func (s *Stream) Start(clientID string) error {
	if err := s.dev.cfg.Authorize(clientID, s.dir); err != nil {
		return fmt.Errorf("client %q not authorized for %s stream: %w", clientID, s.dir, err)
	}
	s.dev.do(func() { s.dev.startStream(s) })
	return nil
}

// Stop decrements the reference count; the last stop tears the direction's
// timer down. Stopping more often than starting is absorbed.
func (s *Stream) Stop() {
	s.dev.do(func() { s.dev.stopStream(s) })
}
