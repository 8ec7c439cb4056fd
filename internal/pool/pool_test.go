package pool

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/openvcam/vcamd/internal/format"
)

func testDescriptor(t *testing.T, w, h uint32) format.Descriptor {
	t.Helper()
	catalog, err := format.NewCatalog(format.PixelFormatRGBA, []format.Mode{{Width: w, Height: h, FPS: 30}}, slog.Default())
	if err != nil {
		t.Fatalf("building descriptor: %v", err)
	}
	return catalog.Descriptor(0)
}

func TestPoolExhaustion(t *testing.T) {
	p, err := New(testDescriptor(t, 64, 48), 2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	a, err := p.Get()
	if err != nil {
		t.Fatalf("first Get failed: %v", err)
	}
	b, err := p.Get()
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}

	if _, err := p.Get(); !errors.Is(err, ErrExhausted) {
		t.Errorf("third Get error = %v, want ErrExhausted", err)
	}

	a.Release()
	if _, err := p.Get(); err != nil {
		t.Errorf("Get after Release failed: %v", err)
	}
	b.Release()
}

func TestPoolFrameSizing(t *testing.T) {
	p, err := New(testDescriptor(t, 64, 48), 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	f, err := p.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(f.Data) != 64*48*4 {
		t.Errorf("frame data is %d bytes, want %d", len(f.Data), 64*48*4)
	}
	if f.Width != 64 || f.Height != 48 {
		t.Errorf("frame is %dx%d, want 64x48", f.Width, f.Height)
	}
}

func TestGetResetsTimingInfo(t *testing.T) {
	p, err := New(testDescriptor(t, 16, 16), 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	f, _ := p.Get()
	f.PTS = 123
	f.Sequence = 7
	f.Discontinuity = true
	f.Release()

	f, err = p.Get()
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if f.PTS != 0 || f.Sequence != 0 || f.Discontinuity {
		t.Errorf("timing info not reset: pts=%v seq=%d disc=%v", f.PTS, f.Sequence, f.Discontinuity)
	}
}

func TestManagerRebuildKeepsOldPoolOnFailure(t *testing.T) {
	m := NewManager(2, slog.Default())

	if err := m.Rebuild(testDescriptor(t, 32, 32)); err != nil {
		t.Fatalf("initial Rebuild failed: %v", err)
	}
	first := m.Current()

	// A descriptor with an unsupported pixel format cannot be sized.
	bad := format.Descriptor{
		Width:       32,
		Height:      32,
		PixelFormat: format.PixelFormat("mjpeg"),
		Durations:   []format.Duration{{Numerator: 1, Denominator: 30}},
	}
	if err := m.Rebuild(bad); err == nil {
		t.Fatal("Rebuild with unsupported pixel format should fail")
	}

	if m.Current() != first {
		t.Error("failed rebuild replaced the previous pool")
	}
}

func TestManagerRebuildDetachesInFlightFrames(t *testing.T) {
	m := NewManager(1, slog.Default())
	if err := m.Rebuild(testDescriptor(t, 32, 32)); err != nil {
		t.Fatalf("initial Rebuild failed: %v", err)
	}

	inflight, err := m.Current().Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if err := m.Rebuild(testDescriptor(t, 64, 64)); err != nil {
		t.Fatalf("second Rebuild failed: %v", err)
	}

	// Releasing a frame from the replaced pool must not feed the new one.
	inflight.Release()

	f, err := m.Current().Get()
	if err != nil {
		t.Fatalf("Get from rebuilt pool failed: %v", err)
	}
	if f.Width != 64 {
		t.Errorf("rebuilt pool handed out a %dx%d frame, want 64x64", f.Width, f.Height)
	}
}
