package format

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrEmptyCatalog is returned when no mode in the raw table produced a
// valid descriptor.
var ErrEmptyCatalog = errors.New("format catalog is empty")

// Mode is one raw entry of the supported-mode table: a resolution and a
// nominal frame rate. The same resolution may appear multiple times at
// different rates; fully duplicated entries collapse during catalog build.
type Mode struct {
	Width  uint32  `json:"width"`
	Height uint32  `json:"height"`
	FPS    float64 `json:"fps"`
}

// DefaultModes is the built-in mode table used when no table is configured.
var DefaultModes = []Mode{
	{Width: 1920, Height: 1080, FPS: 60},
	{Width: 1920, Height: 1080, FPS: 30},
	{Width: 1920, Height: 1080, FPS: 59.94},
	{Width: 1920, Height: 1080, FPS: 29.97},
	{Width: 1280, Height: 720, FPS: 60},
	{Width: 1280, Height: 720, FPS: 30},
	{Width: 640, Height: 480, FPS: 30},
}

// Descriptor is one negotiable format: a resolution plus the set of valid
// frame durations for it. Immutable after construction; Durations is sorted
// ascending (fastest rate first) and contains no duplicates.
type Descriptor struct {
	Width       uint32      `json:"width"`
	Height      uint32      `json:"height"`
	PixelFormat PixelFormat `json:"pixel_format"`
	Durations   []Duration  `json:"durations"`
}

func newDescriptor(width, height uint32, pix PixelFormat, durations []Duration) (Descriptor, error) {
	if width == 0 || height == 0 {
		return Descriptor{}, fmt.Errorf("invalid resolution %dx%d", width, height)
	}
	if _, err := pix.FrameSize(width, height); err != nil {
		return Descriptor{}, err
	}
	if len(durations) == 0 {
		return Descriptor{}, fmt.Errorf("no frame durations for %dx%d", width, height)
	}

	sorted := make([]Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	return Descriptor{
		Width:       width,
		Height:      height,
		PixelFormat: pix,
		Durations:   sorted,
	}, nil
}

// Min returns the smallest frame duration (fastest negotiated rate).
func (d Descriptor) Min() Duration { return d.Durations[0] }

// Max returns the largest frame duration (slowest negotiated rate).
func (d Descriptor) Max() Duration { return d.Durations[len(d.Durations)-1] }

// FrameSize returns the byte size of one frame in this format.
func (d Descriptor) FrameSize() (int, error) {
	return d.PixelFormat.FrameSize(d.Width, d.Height)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%dx%d %s @%s", d.Width, d.Height, d.PixelFormat, d.Min())
}

// Catalog is the ordered, deduplicated list of supported formats. Built
// once at device initialization and never mutated, only indexed.
type Catalog struct {
	descriptors []Descriptor
}

// NewCatalog groups the raw mode table by resolution (preserving first
// appearance order), collapses duplicate durations per resolution, and
// builds one descriptor per distinct resolution. A resolution whose
// descriptor construction fails is skipped; the build only fails if the
// catalog ends up empty.
func NewCatalog(pix PixelFormat, modes []Mode, logger *slog.Logger) (*Catalog, error) {
	type resolution struct{ w, h uint32 }

	var order []resolution
	grouped := make(map[resolution][]Duration)

	for _, m := range modes {
		key := resolution{w: m.Width, h: m.Height}
		dur := DurationFromFPS(m.FPS)

		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}

		duplicate := false
		for _, existing := range grouped[key] {
			if existing == dur {
				duplicate = true
				break
			}
		}
		if !duplicate {
			grouped[key] = append(grouped[key], dur)
		}
	}

	var descriptors []Descriptor
	for _, key := range order {
		desc, err := newDescriptor(key.w, key.h, pix, grouped[key])
		if err != nil {
			logger.Warn("Skipping unsupported resolution", "width", key.w, "height", key.h, "error", err)
			continue
		}
		descriptors = append(descriptors, desc)
	}

	if len(descriptors) == 0 {
		return nil, ErrEmptyCatalog
	}
	return &Catalog{descriptors: descriptors}, nil
}

// Len returns the number of descriptors in the catalog.
func (c *Catalog) Len() int { return len(c.descriptors) }

// Descriptor returns the descriptor at the given index. The index must be
// in range; callers validate against Len first.
func (c *Catalog) Descriptor(index int) Descriptor {
	return c.descriptors[index]
}

// Descriptors returns a copy of the descriptor list.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// DefaultIndex returns the index of the first descriptor matching the
// preferred resolution, or 0 when none matches.
func (c *Catalog) DefaultIndex(preferredWidth, preferredHeight uint32) int {
	for i, d := range c.descriptors {
		if d.Width == preferredWidth && d.Height == preferredHeight {
			return i
		}
	}
	return 0
}
