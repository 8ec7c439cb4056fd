package camera

import (
	"errors"
	"image"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/openvcam/vcamd/internal/format"
	"github.com/openvcam/vcamd/internal/host"
	"github.com/openvcam/vcamd/internal/metrics"
	"github.com/openvcam/vcamd/internal/placeholder"
	"github.com/openvcam/vcamd/internal/pool"
)

// captureOutput records everything delivered to the source boundary.
type captureOutput struct {
	mu         sync.Mutex
	deliveries []host.FrameTiming
}

func (c *captureOutput) Deliver(_ *pool.Frame, timing host.FrameTiming) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = append(c.deliveries, timing)
	return nil
}

func (c *captureOutput) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deliveries)
}

func (c *captureOutput) timings() []host.FrameTiming {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]host.FrameTiming, len(c.deliveries))
	copy(out, c.deliveries)
	return out
}

// fixedClock returns a settable monotonic timestamp.
type fixedClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *fixedClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) set(d time.Duration) {
	c.mu.Lock()
	c.now = d
	c.mu.Unlock()
}

type testFixture struct {
	dev    *Device
	output *captureOutput
	sink   *host.MemorySinkQueue
	clock  *fixedClock
}

func testIdentifiers() host.Identifiers {
	return host.Identifiers{
		Device:       uuid.New(),
		SourceStream: uuid.New(),
		SinkStream:   uuid.New(),
	}
}

func newTestDevice(t *testing.T, modes []format.Mode, opts ...func(*Config)) *testFixture {
	t.Helper()

	output := &captureOutput{}
	sink := host.NewMemorySinkQueue(8)
	clock := &fixedClock{}

	cfg := Config{
		Name:            "test-cam",
		Identifiers:     testIdentifiers(),
		Modes:           modes,
		PixelFormat:     format.PixelFormatRGBA,
		PreferredWidth:  1920,
		PreferredHeight: 1080,
		Output:          output,
		Sink:            sink,
		Registrar:       host.NewLoopbackRegistrar(slog.Default()),
		Clock:           clock,
		Placeholder:     placeholder.New(image.NewRGBA(image.Rect(0, 0, 4, 4))),
		Logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dev, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(dev.Close)

	return &testFixture{dev: dev, output: output, sink: sink, clock: clock}
}

// runOn executes fn on the device's serial queue and waits for it, so the
// test observes queue-owned state without racing.
func runOn(d *Device, fn func()) {
	done := make(chan struct{})
	d.do(func() {
		fn()
		close(done)
	})
	<-done
}

func flush(d *Device) { runOn(d, func() {}) }

var defaultTestModes = []format.Mode{
	{Width: 1920, Height: 1080, FPS: 60},
	{Width: 1920, Height: 1080, FPS: 30},
	{Width: 1280, Height: 720, FPS: 60},
}

func TestNewSelectsPreferredResolution(t *testing.T) {
	fx := newTestDevice(t, defaultTestModes)

	if got := fx.dev.ActiveFormatIndex(); got != 0 {
		t.Errorf("active index = %d, want 0 (preferred 1920x1080)", got)
	}
	desc := fx.dev.ActiveDescriptor()
	if desc.Width != 1920 || desc.Height != 1080 {
		t.Errorf("active descriptor is %dx%d, want 1920x1080", desc.Width, desc.Height)
	}
	if len(desc.Durations) != 2 {
		t.Errorf("1920x1080 has %d durations, want 2", len(desc.Durations))
	}
}

func TestNewRequiresIdentifiers(t *testing.T) {
	cfg := Config{
		Name:        "broken",
		Modes:       defaultTestModes,
		PixelFormat: format.PixelFormatRGBA,
		Output:      &captureOutput{},
		Sink:        host.NewMemorySinkQueue(8),
		Registrar:   host.NewLoopbackRegistrar(slog.Default()),
		Placeholder: placeholder.New(image.NewRGBA(image.Rect(0, 0, 2, 2))),
	}
	if _, err := New(cfg); err == nil {
		t.Error("New without identifiers should fail")
	}
}

func TestFormatSwitchOutOfRangeRejected(t *testing.T) {
	fx := newTestDevice(t, defaultTestModes)

	fx.dev.RequestFormatSwitch(99)
	fx.dev.RequestFormatSwitch(-1)
	flush(fx.dev)

	if got := fx.dev.ActiveFormatIndex(); got != 0 {
		t.Errorf("active index = %d after rejected switches, want 0", got)
	}
	if got := fx.dev.SourceStream().ActiveFormatIndex(); got != 0 {
		t.Errorf("source mirror = %d after rejected switches, want 0", got)
	}
}

func TestFormatSwitchRedundantSkipsRebuild(t *testing.T) {
	fx := newTestDevice(t, defaultTestModes)

	before := fx.dev.pools.Current()
	fx.dev.RequestFormatSwitch(fx.dev.ActiveFormatIndex())
	flush(fx.dev)

	if fx.dev.pools.Current() != before {
		t.Error("redundant switch rebuilt the buffer pool")
	}
}

func TestFormatSwitchUpdatesBothMirrors(t *testing.T) {
	fx := newTestDevice(t, defaultTestModes)

	fx.dev.RequestFormatSwitch(1)
	flush(fx.dev)

	if got := fx.dev.ActiveFormatIndex(); got != 1 {
		t.Fatalf("active index = %d, want 1", got)
	}
	for _, s := range []*Stream{fx.dev.SourceStream(), fx.dev.SinkStream()} {
		if got := s.ActiveFormatIndex(); got != 1 {
			t.Errorf("%s mirror = %d, want 1", s.Direction(), got)
		}
		if d := s.ActiveDescriptor(); d.Width != 1280 {
			t.Errorf("%s mirror descriptor is %dx%d, want 1280x720", s.Direction(), d.Width, d.Height)
		}
	}

	// The rebuilt pool hands out frames sized for the new format.
	runOn(fx.dev, func() {
		f, err := fx.dev.pools.Current().Get()
		if err != nil {
			t.Errorf("Get from rebuilt pool failed: %v", err)
			return
		}
		defer f.Release()
		if f.Width != 1280 || f.Height != 720 {
			t.Errorf("pool frame is %dx%d, want 1280x720", f.Width, f.Height)
		}
	})
}

func TestStartStopReferenceCounting(t *testing.T) {
	fx := newTestDevice(t, defaultTestModes)
	src := fx.dev.SourceStream()

	for i := 0; i < 3; i++ {
		if err := src.Start("client"); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
	}
	flush(fx.dev)
	if got := src.Clients(); got != 3 {
		t.Fatalf("clients = %d after 3 starts, want 3", got)
	}
	runOn(fx.dev, func() {
		if !fx.dev.generator.running {
			t.Error("generator not running with active source clients")
		}
	})

	for i := 0; i < 3; i++ {
		src.Stop()
	}
	flush(fx.dev)
	if got := src.Clients(); got != 0 {
		t.Fatalf("clients = %d after balanced stops, want 0", got)
	}
	runOn(fx.dev, func() {
		if fx.dev.generator.running {
			t.Error("generator still running after last stop")
		}
	})
}

func TestStreamClientsGaugeTracksEveryStartAndStop(t *testing.T) {
	fx := newTestDevice(t, defaultTestModes)
	src := fx.dev.SourceStream()
	gauge := metrics.StreamClients.WithLabelValues("source")

	for i := 0; i < 3; i++ {
		if err := src.Start("client"); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
	}
	flush(fx.dev)
	if got := testutil.ToFloat64(gauge); got != 3 {
		t.Errorf("gauge = %v after 3 starts, want 3", got)
	}

	src.Stop()
	flush(fx.dev)
	if got := testutil.ToFloat64(gauge); got != 2 {
		t.Errorf("gauge = %v after first stop, want 2", got)
	}

	src.Stop()
	src.Stop()
	flush(fx.dev)
	if got := testutil.ToFloat64(gauge); got != 0 {
		t.Errorf("gauge = %v after balanced stops, want 0", got)
	}
}

func TestStopNeverUnderflows(t *testing.T) {
	fx := newTestDevice(t, defaultTestModes)
	src := fx.dev.SourceStream()

	src.Stop()
	src.Stop()
	flush(fx.dev)
	if got := src.Clients(); got != 0 {
		t.Errorf("clients = %d after unbalanced stops, want 0", got)
	}

	if err := src.Start("client"); err != nil {
		t.Fatal(err)
	}
	flush(fx.dev)
	if got := src.Clients(); got != 1 {
		t.Errorf("clients = %d after start following unbalanced stops, want 1", got)
	}
}

func TestAuthorizeHookRejects(t *testing.T) {
	denied := errors.New("policy says no")
	fx := newTestDevice(t, defaultTestModes, func(cfg *Config) {
		cfg.Authorize = func(clientID string, _ Direction) error {
			if clientID == "blocked" {
				return denied
			}
			return nil
		}
	})

	if err := fx.dev.SourceStream().Start("blocked"); !errors.Is(err, denied) {
		t.Errorf("Start error = %v, want policy denial", err)
	}
	flush(fx.dev)
	if got := fx.dev.SourceStream().Clients(); got != 0 {
		t.Errorf("clients = %d after denied start, want 0", got)
	}
}

func TestPlaceholderDeliveryCadence(t *testing.T) {
	// 100 fps keeps the test fast: one frame every 10ms.
	modes := []format.Mode{{Width: 32, Height: 32, FPS: 100}}
	fx := newTestDevice(t, modes, func(cfg *Config) {
		cfg.PreferredWidth = 32
		cfg.PreferredHeight = 32
	})

	if err := fx.dev.SourceStream().Start("viewer"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	fx.dev.SourceStream().Stop()
	flush(fx.dev)

	got := fx.output.count()
	if got < 5 {
		t.Errorf("delivered %d placeholder frames in 200ms at 100fps, want at least 5", got)
	}

	// After stop, at most one already-enqueued tick may still land.
	time.Sleep(50 * time.Millisecond)
	if after := fx.output.count(); after > got+1 {
		t.Errorf("deliveries kept flowing after stop: %d -> %d", got, after)
	}
}

func TestPlaceholderSkipsWhileSinkLive(t *testing.T) {
	modes := []format.Mode{{Width: 32, Height: 32, FPS: 100}}
	fx := newTestDevice(t, modes, func(cfg *Config) {
		cfg.PreferredWidth = 32
		cfg.PreferredHeight = 32
	})

	if err := fx.dev.SinkStream().Start("producer"); err != nil {
		t.Fatal(err)
	}
	flush(fx.dev)
	if err := fx.dev.SourceStream().Start("viewer"); err != nil {
		t.Fatal(err)
	}

	// Producer is live but submits nothing: neither placeholder nor
	// forwarded frames may appear.
	time.Sleep(100 * time.Millisecond)
	if got := fx.output.count(); got != 0 {
		t.Errorf("delivered %d frames while sink live with no submissions, want 0", got)
	}

	// When the producer goes away, placeholder frames resume.
	fx.dev.SinkStream().Stop()
	flush(fx.dev)
	time.Sleep(100 * time.Millisecond)
	if got := fx.output.count(); got == 0 {
		t.Error("placeholder frames did not resume after sink stop")
	}
}

func TestForwarderUsesEmbeddedTimestamp(t *testing.T) {
	modes := []format.Mode{{Width: 4, Height: 4, FPS: 100}}
	fx := newTestDevice(t, modes, func(cfg *Config) {
		cfg.PreferredWidth = 4
		cfg.PreferredHeight = 4
	})
	fx.clock.set(5 * time.Second)

	if err := fx.dev.SinkStream().Start("producer"); err != nil {
		t.Fatal(err)
	}
	if err := fx.dev.SourceStream().Start("viewer"); err != nil {
		t.Fatal(err)
	}
	flush(fx.dev)

	embedded := 1234 * time.Millisecond
	seq, err := fx.sink.Submit(make([]byte, 4*4*4), 4, 4, format.PixelFormatRGBA, embedded, false)
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for fx.output.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("forwarded frame never arrived")
		case <-time.After(5 * time.Millisecond):
		}
	}

	timing := fx.output.timings()[0]
	if timing.PTS != embedded {
		t.Errorf("delivered PTS = %v, want the embedded %v (not the poll-time clock)", timing.PTS, embedded)
	}
	if timing.Sequence != seq {
		t.Errorf("delivered sequence = %d, want %d", timing.Sequence, seq)
	}

	count, last := fx.sink.ServicedCount()
	if count != 1 || last != seq {
		t.Errorf("serviced = (%d, %d), want (1, %d)", count, last, seq)
	}
}

func TestForwarderServicesWithoutConsumer(t *testing.T) {
	modes := []format.Mode{{Width: 4, Height: 4, FPS: 100}}
	fx := newTestDevice(t, modes, func(cfg *Config) {
		cfg.PreferredWidth = 4
		cfg.PreferredHeight = 4
	})

	if err := fx.dev.SinkStream().Start("producer"); err != nil {
		t.Fatal(err)
	}
	flush(fx.dev)

	seq, err := fx.sink.Submit(make([]byte, 4*4*4), 4, 4, format.PixelFormatRGBA, time.Millisecond, false)
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		count, last := fx.sink.ServicedCount()
		if count == 1 {
			if last != seq {
				t.Errorf("serviced sequence = %d, want %d", last, seq)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("sink buffer was never serviced")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// No source consumer: the frame is serviced but never delivered.
	if got := fx.output.count(); got != 0 {
		t.Errorf("delivered %d frames with no source consumer, want 0", got)
	}
}

func TestPoolExhaustionDropsTick(t *testing.T) {
	modes := []format.Mode{{Width: 8, Height: 8, FPS: 100}}
	fx := newTestDevice(t, modes, func(cfg *Config) {
		cfg.PreferredWidth = 8
		cfg.PreferredHeight = 8
		cfg.PoolCapacity = 1
	})

	// Hold the only buffer so every tick sees an exhausted pool.
	var held *pool.Frame
	runOn(fx.dev, func() {
		f, err := fx.dev.pools.Current().Get()
		if err != nil {
			t.Errorf("Get failed: %v", err)
			return
		}
		held = f
	})

	if err := fx.dev.SourceStream().Start("viewer"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(80 * time.Millisecond)
	if got := fx.output.count(); got != 0 {
		t.Errorf("delivered %d frames with an exhausted pool, want 0", got)
	}

	// Returning the buffer lets ticks proceed again.
	runOn(fx.dev, func() { held.Release() })
	time.Sleep(80 * time.Millisecond)
	if got := fx.output.count(); got == 0 {
		t.Error("deliveries did not resume after the pool freed up")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	fx := newTestDevice(t, defaultTestModes)
	fx.dev.Close()
	fx.dev.Close()
}

func TestStreamPropertyBoundary(t *testing.T) {
	fx := newTestDevice(t, defaultTestModes)

	src := fx.dev.SourceStream()
	if src.HasProperty(PropertyQueueDepth) {
		t.Error("source stream should not declare queue_depth")
	}
	if _, ok := src.PropertyValue(PropertyQueueDepth); ok {
		t.Error("source stream answered an undeclared property")
	}
	if v, ok := src.PropertyValue(PropertyActiveFormatIndex); !ok || v.(int) != src.ActiveFormatIndex() {
		t.Errorf("active_format_index: got %v (answered=%v)", v, ok)
	}
	if v, ok := src.PropertyValue(PropertyFrameDuration); !ok || v.(format.Duration) != src.FrameDuration() {
		t.Errorf("frame_duration: got %v (answered=%v)", v, ok)
	}

	snk := fx.dev.SinkStream()
	if v, ok := snk.PropertyValue(PropertyStartupBufferCount); !ok || v.(int) != fx.sink.StartupBufferCount() {
		t.Errorf("startup_buffer_count: got %v (answered=%v)", v, ok)
	}
	if v, ok := snk.PropertyValue(PropertyQueueDepth); !ok || v.(int) != 0 {
		t.Errorf("queue_depth on empty queue: got %v (answered=%v)", v, ok)
	}

	desc := snk.ActiveDescriptor()
	size, err := desc.FrameSize()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fx.sink.Submit(make([]byte, size), desc.Width, desc.Height, desc.PixelFormat, 0, false); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if v, _ := snk.PropertyValue(PropertyQueueDepth); v.(int) != 1 {
		t.Errorf("queue_depth after submit: got %v, want 1", v)
	}
}
