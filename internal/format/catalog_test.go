package format

import (
	"errors"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestNewCatalogGroupsByResolution(t *testing.T) {
	modes := []Mode{
		{1920, 1080, 60},
		{1920, 1080, 30},
		{1280, 720, 60},
	}

	catalog, err := NewCatalog(PixelFormatRGBA, modes, testLogger())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	if catalog.Len() != 2 {
		t.Fatalf("catalog has %d descriptors, want 2", catalog.Len())
	}

	hd := catalog.Descriptor(0)
	if hd.Width != 1920 || hd.Height != 1080 {
		t.Errorf("descriptor 0 is %dx%d, want 1920x1080", hd.Width, hd.Height)
	}
	if len(hd.Durations) != 2 {
		t.Fatalf("1920x1080 has %d durations, want 2", len(hd.Durations))
	}
	if hd.Durations[0] != (Duration{1, 60}) || hd.Durations[1] != (Duration{1, 30}) {
		t.Errorf("1920x1080 durations = %v, want [1/60 1/30]", hd.Durations)
	}

	if idx := catalog.DefaultIndex(1920, 1080); idx != 0 {
		t.Errorf("DefaultIndex(1920,1080) = %d, want 0", idx)
	}
}

func TestNewCatalogCollapsesDuplicates(t *testing.T) {
	modes := []Mode{
		{640, 480, 30},
		{640, 480, 30},
		{640, 480, 30.00001}, // within tolerance of a plain 30
	}

	catalog, err := NewCatalog(PixelFormatYUYV, modes, testLogger())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	if catalog.Len() != 1 {
		t.Fatalf("catalog has %d descriptors, want 1", catalog.Len())
	}
	if n := len(catalog.Descriptor(0).Durations); n != 1 {
		t.Errorf("duplicate modes produced %d durations, want 1", n)
	}
}

func TestNewCatalogSkipsInvalidResolutions(t *testing.T) {
	modes := []Mode{
		{0, 1080, 30}, // invalid, must be skipped
		{1280, 720, 30},
	}

	catalog, err := NewCatalog(PixelFormatRGBA, modes, testLogger())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	if catalog.Len() != 1 {
		t.Fatalf("catalog has %d descriptors, want 1", catalog.Len())
	}
	if d := catalog.Descriptor(0); d.Width != 1280 {
		t.Errorf("surviving descriptor is %v, want 1280x720", d)
	}
}

func TestNewCatalogEmpty(t *testing.T) {
	_, err := NewCatalog(PixelFormatRGBA, []Mode{{0, 0, 30}}, testLogger())
	if !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("NewCatalog error = %v, want ErrEmptyCatalog", err)
	}
}

func TestDescriptorMinMax(t *testing.T) {
	modes := []Mode{
		{1920, 1080, 30},
		{1920, 1080, 59.94},
		{1920, 1080, 24},
	}

	catalog, err := NewCatalog(PixelFormatRGBA, modes, testLogger())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	d := catalog.Descriptor(0)
	if d.Min() != (Duration{1001, 60000}) {
		t.Errorf("Min() = %v, want 1001/60000", d.Min())
	}
	if d.Max() != (Duration{1, 24}) {
		t.Errorf("Max() = %v, want 1/24", d.Max())
	}
}

func TestDefaultIndexFallsBackToZero(t *testing.T) {
	catalog, err := NewCatalog(PixelFormatRGBA, []Mode{{1280, 720, 30}}, testLogger())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	if idx := catalog.DefaultIndex(1920, 1080); idx != 0 {
		t.Errorf("DefaultIndex = %d, want 0", idx)
	}
}

func TestPixelFormatFrameSize(t *testing.T) {
	tests := []struct {
		pix  PixelFormat
		want int
	}{
		{PixelFormatRGBA, 1920 * 1080 * 4},
		{PixelFormatYUYV, 1920 * 1080 * 2},
		{PixelFormatNV12, 1920 * 1080 * 3 / 2},
	}

	for _, tt := range tests {
		got, err := tt.pix.FrameSize(1920, 1080)
		if err != nil {
			t.Errorf("FrameSize(%s) failed: %v", tt.pix, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FrameSize(%s) = %d, want %d", tt.pix, got, tt.want)
		}
	}

	if _, err := PixelFormat("mjpeg").FrameSize(1920, 1080); err == nil {
		t.Error("expected error for unsupported pixel format")
	}
}

func TestFrameSizeRejectsOddSubsampledDimensions(t *testing.T) {
	tests := []struct {
		pix    PixelFormat
		w, h   uint32
		wantOK bool
	}{
		{PixelFormatYUYV, 641, 480, false},
		{PixelFormatYUYV, 640, 481, true},
		{PixelFormatNV12, 641, 480, false},
		{PixelFormatNV12, 640, 481, false},
		{PixelFormatRGBA, 641, 481, true},
	}

	for _, tt := range tests {
		_, err := tt.pix.FrameSize(tt.w, tt.h)
		if tt.wantOK && err != nil {
			t.Errorf("FrameSize(%s, %dx%d) failed: %v", tt.pix, tt.w, tt.h, err)
		}
		if !tt.wantOK && err == nil {
			t.Errorf("FrameSize(%s, %dx%d) accepted odd subsampled dimensions", tt.pix, tt.w, tt.h)
		}
	}
}

func TestNewCatalogSkipsOddSubsampledResolutions(t *testing.T) {
	modes := []Mode{
		{641, 480, 30}, // odd width cannot be chroma-subsampled
		{640, 480, 30},
	}

	catalog, err := NewCatalog(PixelFormatYUYV, modes, testLogger())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	if catalog.Len() != 1 {
		t.Fatalf("catalog has %d descriptors, want 1", catalog.Len())
	}
	if d := catalog.Descriptor(0); d.Width != 640 {
		t.Errorf("surviving descriptor is %v, want 640x480", d)
	}
}
