package camera

import (
	"time"

	"github.com/openvcam/vcamd/internal/format"
	"github.com/openvcam/vcamd/internal/host"
	"github.com/openvcam/vcamd/internal/metrics"
)

// sinkPollDivisor sets the sink poll cadence at this multiple of the
// fastest negotiated frame rate. Polling faster than the frame rate bounds
// the latency between a producer submitting a buffer and the forwarder
// picking it up, at the cost of extra wake-ups.
const sinkPollDivisor = 3

// forwarder polls the sink boundary for producer-submitted buffers and
// hands them to the source boundary. All fields are owned by the device's
// serial queue.
type forwarder struct {
	dev *Device

	running bool
	cancel  chan struct{}
}

func newForwarder(dev *Device) *forwarder {
	return &forwarder{dev: dev}
}

func (f *forwarder) start(desc format.Descriptor) {
	if f.running {
		return
	}
	f.running = true
	f.spawn(pollPeriod(desc))
}

func (f *forwarder) stop() {
	if !f.running {
		return
	}
	f.running = false
	close(f.cancel)
}

func (f *forwarder) reschedule(desc format.Descriptor) {
	if !f.running {
		return
	}
	close(f.cancel)
	f.spawn(pollPeriod(desc))
}

func (f *forwarder) spawn(period time.Duration) {
	cancel := make(chan struct{})
	f.cancel = cancel
	f.dev.spawnTicker(period, cancel, f.tick)
	f.dev.logger.Debug("Sink forwarder armed", "period", period)
}

func pollPeriod(desc format.Descriptor) time.Duration {
	period := desc.Min().Interval() / sinkPollDivisor
	if period <= 0 {
		period = time.Millisecond
	}
	return period
}

// tick runs on the serial queue. At most one buffer is consumed per tick;
// an empty queue is the normal idle state, not an error.
func (f *forwarder) tick() {
	if !f.running {
		return
	}

	frame, ok := f.dev.sink.Dequeue()
	if !ok {
		return
	}
	defer frame.Release()

	now := f.dev.clock.Now()
	if now > frame.PTS {
		metrics.ForwardLatency.Observe((now - frame.PTS).Seconds())
	}
	metrics.SinkQueueDepth.Set(float64(f.dev.sink.Depth()))

	if f.dev.source.clients.Load() > 0 {
		// Deliver with the buffer's own embedded timestamp so the
		// producer's cadence survives the hop.
		timing := host.FrameTiming{
			PTS:           frame.PTS,
			Sequence:      frame.Sequence,
			Discontinuity: frame.Discontinuity,
		}
		if err := f.dev.output.Deliver(frame, timing); err != nil {
			f.dev.logger.Warn("Forwarded delivery failed", "sequence", frame.Sequence, "error", err)
			metrics.FramesDropped.WithLabelValues("delivery_failed").Inc()
		} else {
			metrics.FramesDelivered.WithLabelValues("sink").Inc()
		}
	}

	// The producer's queue must keep draining whether or not anyone is
	// consuming.
	f.dev.sink.NotifyServiced(frame.Sequence)
}
