// Package camera implements the virtual camera frame pipeline: format
// negotiation, buffer-pool lifecycle across format switches, timer-paced
// placeholder synthesis and timer-paced sink forwarding.
//
// All mutable pipeline state is owned by a single serial job queue. Timer
// ticks, start/stop transitions and format-switch commits all execute as
// jobs on that queue, so none of them ever run concurrently with each
// other and no tick can observe a half-switched format. Callers of
// start/stop/switch never block; they only enqueue work.
package camera

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openvcam/vcamd/internal/events"
	"github.com/openvcam/vcamd/internal/format"
	"github.com/openvcam/vcamd/internal/host"
	"github.com/openvcam/vcamd/internal/metrics"
	"github.com/openvcam/vcamd/internal/placeholder"
	"github.com/openvcam/vcamd/internal/pool"
)

// jobQueueSize bounds the serial queue. Ticks and control requests are
// small and drain quickly; the buffer only absorbs bursts.
const jobQueueSize = 128

// AuthorizeFunc decides whether a client may start a stream. The default
// policy allows everyone; the hook stays for future policy.
type AuthorizeFunc func(clientID string, direction Direction) error

// Config carries everything a Device needs at construction. Output, Sink,
// Registrar, Clock and Placeholder are the boundaries to the surrounding
// media subsystem.
type Config struct {
	Name        string
	Identifiers host.Identifiers

	Modes           []format.Mode
	PixelFormat     format.PixelFormat
	PreferredWidth  uint32
	PreferredHeight uint32
	PoolCapacity    int

	Output      host.FrameOutput
	Sink        host.SinkQueue
	Registrar   host.Registrar
	Clock       host.Clock
	Placeholder *placeholder.Image

	Authorize AuthorizeFunc
	Bus       *events.Bus
	Logger    *slog.Logger
}

// Device is the format-switch coordinator and owner of the frame pipeline.
// It holds the single authoritative active-format index; the per-direction
// stream facades carry read-only mirrors of it.
type Device struct {
	cfg    Config
	logger *slog.Logger
	bus    *events.Bus

	catalog *format.Catalog
	pools   *pool.Manager

	output host.FrameOutput
	sink   host.SinkQueue
	clock  host.Clock

	source     *Stream
	sinkStream *Stream

	generator *generator
	forwarder *forwarder

	jobs chan func()
	quit chan struct{}
	done chan struct{}

	closeOnce sync.Once

	// activeIndex is the authoritative index, mutated only on the serial
	// queue. The atomic shadow serves lock-free external reads.
	activeIndex int
	active      atomic.Int32

	// sinkLive gates placeholder synthesis; owned by the serial queue.
	sinkLive     bool
	sinkLiveRead atomic.Bool
}

// New builds the catalog, the initial buffer pool and both stream facades,
// registers everything with the host boundary and starts the serial queue.
// Every error here is a configuration failure; callers abort startup.
func New(cfg Config) (*Device, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Bus == nil {
		cfg.Bus = events.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = host.NewClock()
	}
	if cfg.Authorize == nil {
		cfg.Authorize = func(string, Direction) error { return nil }
	}
	if cfg.Output == nil || cfg.Sink == nil || cfg.Registrar == nil {
		return nil, fmt.Errorf("device %q: output, sink and registrar boundaries are required", cfg.Name)
	}
	if cfg.Placeholder == nil {
		return nil, fmt.Errorf("device %q: placeholder image is required", cfg.Name)
	}
	ids := cfg.Identifiers
	if ids.Device == uuid.Nil || ids.SourceStream == uuid.Nil || ids.SinkStream == uuid.Nil {
		return nil, fmt.Errorf("device %q: missing identifiers", cfg.Name)
	}

	catalog, err := format.NewCatalog(cfg.PixelFormat, cfg.Modes, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("building format catalog: %w", err)
	}
	defaultIndex := catalog.DefaultIndex(cfg.PreferredWidth, cfg.PreferredHeight)

	pools := pool.NewManager(cfg.PoolCapacity, cfg.Logger)
	if err := pools.Rebuild(catalog.Descriptor(defaultIndex)); err != nil {
		return nil, fmt.Errorf("building initial buffer pool: %w", err)
	}

	d := &Device{
		cfg:     cfg,
		logger:  cfg.Logger,
		bus:     cfg.Bus,
		catalog: catalog,
		pools:   pools,
		output:  cfg.Output,
		sink:    cfg.Sink,
		clock:   cfg.Clock,
		jobs:    make(chan func(), jobQueueSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	d.activeIndex = defaultIndex
	d.active.Store(int32(defaultIndex))

	d.source = newStream(d, ids.SourceStream, DirectionSource)
	d.sinkStream = newStream(d, ids.SinkStream, DirectionSink)
	desc := catalog.Descriptor(defaultIndex)
	d.source.setMirror(defaultIndex, desc)
	d.sinkStream.setMirror(defaultIndex, desc)

	d.generator = newGenerator(d, cfg.Placeholder)
	d.forwarder = newForwarder(d)

	if err := d.register(); err != nil {
		return nil, err
	}

	go d.run()

	d.logger.Info("Device initialized",
		"name", cfg.Name,
		"formats", catalog.Len(),
		"active", defaultIndex,
		"format", desc.String())
	metrics.ActiveFormatIndex.Set(float64(defaultIndex))
	return d, nil
}

func (d *Device) register() error {
	if err := d.cfg.Registrar.RegisterDevice(host.DeviceInfo{ID: d.cfg.Identifiers.Device, Name: d.cfg.Name}); err != nil {
		return fmt.Errorf("registering device: %w", err)
	}
	for _, s := range []*Stream{d.source, d.sinkStream} {
		info := host.StreamInfo{ID: s.id, DeviceID: d.cfg.Identifiers.Device, Direction: s.dir.String()}
		if err := d.cfg.Registrar.RegisterStream(info); err != nil {
			return fmt.Errorf("registering %s stream: %w", s.dir, err)
		}
	}
	return nil
}

// run drains the serial queue until Close.
func (d *Device) run() {
	defer close(d.done)
	for {
		select {
		case job := <-d.jobs:
			job()
		case <-d.quit:
			return
		}
	}
}

// do enqueues a job on the serial queue. Never blocks past shutdown.
func (d *Device) do(job func()) {
	select {
	case d.jobs <- job:
	case <-d.quit:
	}
}

// Close stops both timers and the serial queue. Idempotent. A tick already
// executing when Close is called completes first.
func (d *Device) Close() {
	d.closeOnce.Do(func() {
		stopped := make(chan struct{})
		d.do(func() {
			d.generator.stop()
			d.forwarder.stop()
			close(stopped)
		})
		select {
		case <-stopped:
		case <-d.quit:
		}
		close(d.quit)
		<-d.done
	})
}

// Name returns the device display name.
func (d *Device) Name() string { return d.cfg.Name }

// ID returns the device identifier.
func (d *Device) ID() uuid.UUID { return d.cfg.Identifiers.Device }

// SourceStream returns the consumer-facing stream facade.
func (d *Device) SourceStream() *Stream { return d.source }

// SinkStream returns the producer-facing stream facade.
func (d *Device) SinkStream() *Stream { return d.sinkStream }

// Catalog returns the immutable format catalog.
func (d *Device) Catalog() *format.Catalog { return d.catalog }

// ActiveFormatIndex returns the authoritative active index. Safe from any
// goroutine.
func (d *Device) ActiveFormatIndex() int { return int(d.active.Load()) }

// ActiveDescriptor returns the descriptor at the active index.
func (d *Device) ActiveDescriptor() format.Descriptor {
	return d.catalog.Descriptor(d.ActiveFormatIndex())
}

// SinkLive reports whether a producer is actively streaming.
func (d *Device) SinkLive() bool { return d.sinkLiveRead.Load() }

// RequestFormatSwitch asynchronously requests a switch to the given
// catalog index. Validation and commit run on the serial queue; invalid or
// redundant requests are absorbed there.
func (d *Device) RequestFormatSwitch(index int) {
	d.do(func() { d.commitFormatSwitch(index) })
}

// commitFormatSwitch validates and commits a switch. Runs on the serial
// queue, so it is never concurrent with a tick: no frame is ever built
// against a half-updated duration/dimension pair.
func (d *Device) commitFormatSwitch(index int) {
	if index < 0 || index >= d.catalog.Len() {
		d.logger.Warn("Rejecting format switch", "requested", index, "catalog_len", d.catalog.Len())
		metrics.SwitchesRejected.Inc()
		d.bus.Publish(events.FormatSwitchRejectedEvent{
			Requested: index,
			Reason:    "index out of range",
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}
	if index == d.activeIndex {
		d.logger.Debug("Ignoring redundant format switch", "index", index)
		return
	}

	desc := d.catalog.Descriptor(index)
	if err := d.pools.Rebuild(desc); err != nil {
		d.logger.Error("Format switch failed, keeping previous format",
			"requested", index, "error", err)
		metrics.SwitchesRejected.Inc()
		d.bus.Publish(events.FormatSwitchRejectedEvent{
			Requested: index,
			Reason:    err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}
	metrics.PoolRebuilds.Inc()

	d.activeIndex = index
	d.active.Store(int32(index))
	d.source.setMirror(index, desc)
	d.sinkStream.setMirror(index, desc)

	d.generator.reschedule(desc)
	d.forwarder.reschedule(desc)

	durations := make([]string, len(desc.Durations))
	for i, dur := range desc.Durations {
		durations[i] = dur.String()
	}
	d.bus.Publish(events.FormatSwitchedEvent{
		Index:     index,
		Width:     desc.Width,
		Height:    desc.Height,
		Durations: durations,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	metrics.ActiveFormatIndex.Set(float64(index))
	d.logger.Info("Format switched", "index", index, "format", desc.String())
}

// startStream and stopStream run on the serial queue.
func (d *Device) startStream(s *Stream) {
	count := s.clients.Add(1)
	metrics.StreamClients.WithLabelValues(s.dir.String()).Set(float64(count))
	if count > 1 {
		return
	}

	switch s.dir {
	case DirectionSource:
		d.generator.start(d.ActiveDescriptor())
	case DirectionSink:
		d.sinkLive = true
		d.sinkLiveRead.Store(true)
		d.forwarder.start(d.ActiveDescriptor())
		d.bus.Publish(events.SinkActivityEvent{Live: true, Timestamp: time.Now().Format(time.RFC3339)})
	}

	d.bus.Publish(events.StreamStartedEvent{
		StreamID:  s.id.String(),
		Direction: s.dir.String(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	d.logger.Info("Stream started", "direction", s.dir, "clients", count)
}

func (d *Device) stopStream(s *Stream) {
	if s.clients.Load() == 0 {
		// Unbalanced stop; the count never goes negative.
		d.logger.Warn("Ignoring stop with no active clients", "direction", s.dir)
		return
	}
	count := s.clients.Add(-1)
	metrics.StreamClients.WithLabelValues(s.dir.String()).Set(float64(count))
	if count > 0 {
		return
	}

	switch s.dir {
	case DirectionSource:
		d.generator.stop()
	case DirectionSink:
		d.sinkLive = false
		d.sinkLiveRead.Store(false)
		d.forwarder.stop()
		d.bus.Publish(events.SinkActivityEvent{Live: false, Timestamp: time.Now().Format(time.RFC3339)})
	}

	d.bus.Publish(events.StreamStoppedEvent{
		StreamID:  s.id.String(),
		Direction: s.dir.String(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	d.logger.Info("Stream stopped", "direction", s.dir)
}

// spawnTicker runs a ticker goroutine that enqueues tick jobs until cancel
// or device shutdown. Cancellation is best effort: a tick already enqueued
// may still execute once after stop, and ticks tolerate that.
func (d *Device) spawnTicker(period time.Duration, cancel <-chan struct{}, tick func()) {
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-cancel:
				return
			case <-d.quit:
				return
			case <-t.C:
				d.do(tick)
			}
		}
	}()
}
