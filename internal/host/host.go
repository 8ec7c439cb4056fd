// Package host defines the boundary between the camera core and the
// surrounding media subsystem: frame delivery towards consumers, buffer
// consumption from the producer, stream registration and the monotonic
// clock. The core only ever talks to these interfaces; in-process
// implementations live in this package so the daemon runs end to end
// without a platform media stack.
package host

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openvcam/vcamd/internal/pool"
)

// FrameTiming carries the per-frame presentation metadata handed to the
// source boundary alongside a frame.
type FrameTiming struct {
	// PTS is the presentation timestamp on the monotonic host clock.
	PTS time.Duration
	// Sequence is set for forwarded frames only.
	Sequence uint64
	// Discontinuity marks a gap in the producer's sequence.
	Discontinuity bool
}

// Clock supplies monotonic timestamps for frame pacing and stamping.
type Clock interface {
	Now() time.Duration
}

// FrameOutput is the source boundary: it hands a completed frame and its
// timing to the outside world. Deliver must not take ownership of the
// frame; the caller releases it after Deliver returns.
type FrameOutput interface {
	Deliver(f *pool.Frame, timing FrameTiming) error
}

// SinkQueue is the sink boundary: the poll side pulls client-submitted
// buffers and acknowledges serviced sequence numbers.
type SinkQueue interface {
	// Dequeue returns the next producer-submitted frame, or false when
	// none is pending. Absence of data is the normal idle state.
	Dequeue() (*pool.Frame, bool)
	// NotifyServiced acknowledges that scheduled output for the given
	// sequence number has been serviced, draining the producer's queue.
	NotifyServiced(seq uint64)
	// Depth returns the number of pending frames.
	Depth() int
	// StartupBufferCount returns the minimum number of buffers a
	// producer should queue before starting.
	StartupBufferCount() int
}

// Registrar announces the device and its streams to the host subsystem.
type Registrar interface {
	RegisterDevice(info DeviceInfo) error
	RegisterStream(info StreamInfo) error
}

// DeviceInfo describes one virtual camera device.
type DeviceInfo struct {
	ID   uuid.UUID
	Name string
}

// StreamInfo describes one direction of a registered device.
type StreamInfo struct {
	ID        uuid.UUID
	DeviceID  uuid.UUID
	Direction string
}

// Identifiers are the three fixed IDs supplied once at process start.
type Identifiers struct {
	Device       uuid.UUID
	SourceStream uuid.UUID
	SinkStream   uuid.UUID
}

// ParseIdentifiers parses the three identifier strings. Any missing or
// malformed identifier is a configuration error; startup treats it as fatal.
func ParseIdentifiers(device, source, sink string) (Identifiers, error) {
	var ids Identifiers
	var err error

	if ids.Device, err = uuid.Parse(device); err != nil {
		return Identifiers{}, fmt.Errorf("invalid device identifier %q: %w", device, err)
	}
	if ids.SourceStream, err = uuid.Parse(source); err != nil {
		return Identifiers{}, fmt.Errorf("invalid source stream identifier %q: %w", source, err)
	}
	if ids.SinkStream, err = uuid.Parse(sink); err != nil {
		return Identifiers{}, fmt.Errorf("invalid sink stream identifier %q: %w", sink, err)
	}
	return ids, nil
}

// clock measures monotonic time since process start.
type clock struct {
	start time.Time
}

// NewClock returns a monotonic host clock.
func NewClock() Clock {
	return &clock{start: time.Now()}
}

func (c *clock) Now() time.Duration {
	return time.Since(c.start)
}
