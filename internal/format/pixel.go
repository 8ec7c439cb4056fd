package format

import "fmt"

// PixelFormat identifies the memory layout of a frame buffer.
type PixelFormat string

// Supported pixel formats.
const (
	PixelFormatRGBA PixelFormat = "rgba"
	PixelFormatYUYV PixelFormat = "yuyv422"
	PixelFormatNV12 PixelFormat = "nv12"
)

// FrameSize returns the number of bytes one frame of the given resolution
// occupies in this pixel format.
func (p PixelFormat) FrameSize(width, height uint32) (int, error) {
	pixels := int64(width) * int64(height)

	var size int64
	switch p {
	case PixelFormatRGBA:
		size = pixels * 4
	case PixelFormatYUYV:
		// 4:2:2 shares chroma across horizontal pixel pairs.
		if width%2 != 0 {
			return 0, fmt.Errorf("%s requires an even width, got %dx%d", p, width, height)
		}
		size = pixels * 2
	case PixelFormatNV12:
		// 4:2:0 shares chroma across 2x2 pixel blocks.
		if width%2 != 0 || height%2 != 0 {
			return 0, fmt.Errorf("%s requires even dimensions, got %dx%d", p, width, height)
		}
		size = pixels * 3 / 2
	default:
		return 0, fmt.Errorf("unsupported pixel format: %q", p)
	}

	if size <= 0 || size > maxFrameBytes {
		return 0, fmt.Errorf("frame size %d out of range for %dx%d %s", size, width, height, p)
	}
	return int(size), nil
}

// maxFrameBytes bounds a single frame allocation (covers 8K RGBA).
const maxFrameBytes = 1 << 28
