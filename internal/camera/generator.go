package camera

import (
	"errors"
	"time"

	"github.com/openvcam/vcamd/internal/events"
	"github.com/openvcam/vcamd/internal/format"
	"github.com/openvcam/vcamd/internal/host"
	"github.com/openvcam/vcamd/internal/metrics"
	"github.com/openvcam/vcamd/internal/placeholder"
	"github.com/openvcam/vcamd/internal/pool"
)

// dropLogInterval rate-limits pool-exhaustion logging.
const dropLogInterval = time.Second

// generator synthesizes placeholder frames at the fastest negotiated rate
// of the active format while no live sink frames are flowing. All fields
// are owned by the device's serial queue.
type generator struct {
	dev *Device
	img *placeholder.Image

	running bool
	cancel  chan struct{}

	lastDropLog time.Time
}

func newGenerator(dev *Device, img *placeholder.Image) *generator {
	return &generator{dev: dev, img: img}
}

// start arms the placeholder timer at the descriptor's fastest duration.
// Idempotent while running: further starts only bumped the reference count
// upstream.
func (g *generator) start(desc format.Descriptor) {
	if g.running {
		return
	}
	g.running = true
	g.spawn(desc.Min().Interval())
}

// stop cancels the timer. One tick that was already enqueued may still
// run; it checks g.running and becomes a no-op.
func (g *generator) stop() {
	if !g.running {
		return
	}
	g.running = false
	close(g.cancel)
}

// reschedule restarts the timer at the new format's pace. No-op unless the
// generator is running.
func (g *generator) reschedule(desc format.Descriptor) {
	if !g.running {
		return
	}
	close(g.cancel)
	g.spawn(desc.Min().Interval())
}

func (g *generator) spawn(period time.Duration) {
	cancel := make(chan struct{})
	g.cancel = cancel
	g.dev.spawnTicker(period, cancel, g.tick)
	g.dev.logger.Debug("Placeholder generator armed", "period", period)
}

// tick runs on the serial queue once per frame period.
func (g *generator) tick() {
	if !g.running {
		return
	}
	// The forwarder owns frame delivery while the producer is live.
	if g.dev.sinkLive {
		return
	}

	p := g.dev.pools.Current()
	f, err := p.Get()
	if err != nil {
		if errors.Is(err, pool.ErrExhausted) {
			g.logDrop("pool_exhausted")
			return
		}
		g.logDrop(err.Error())
		return
	}
	defer f.Release()

	if err := g.img.Render(f.Data, f.Width, f.Height, f.PixelFormat); err != nil {
		g.dev.logger.Error("Placeholder render failed", "error", err)
		metrics.FramesDropped.WithLabelValues("render_failed").Inc()
		return
	}

	timing := host.FrameTiming{PTS: g.dev.clock.Now()}
	if err := g.dev.output.Deliver(f, timing); err != nil {
		g.dev.logger.Warn("Placeholder delivery failed", "error", err)
		metrics.FramesDropped.WithLabelValues("delivery_failed").Inc()
		return
	}
	metrics.FramesDelivered.WithLabelValues("placeholder").Inc()
}

// logDrop logs a dropped tick, at most once per dropLogInterval.
func (g *generator) logDrop(reason string) {
	metrics.FramesDropped.WithLabelValues(reason).Inc()
	now := time.Now()
	if now.Sub(g.lastDropLog) < dropLogInterval {
		return
	}
	g.lastDropLog = now
	g.dev.logger.Warn("Dropping placeholder tick", "reason", reason)
	g.dev.bus.Publish(events.FrameDroppedEvent{
		Origin:    "placeholder",
		Reason:    reason,
		Timestamp: now.Format(time.RFC3339),
	})
}
