// Package placeholder loads the fixed standby image shown while no live
// producer frames are flowing, and renders it scaled into frame buffers of
// the active format.
package placeholder

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	// Registered decoders for the placeholder asset.
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/openvcam/vcamd/internal/format"
)

// Image is the decoded placeholder asset plus a cache of scaled
// renderings keyed by target resolution. Renderings are computed once per
// format and copied out on every tick.
type Image struct {
	src image.Image

	mu    sync.Mutex
	cache map[cacheKey][]byte
}

type cacheKey struct {
	width  uint32
	height uint32
	pix    format.PixelFormat
}

// Load reads and decodes the placeholder asset. A missing or undecodable
// asset indicates a packaging error; callers treat it as fatal.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening placeholder asset: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding placeholder asset %s: %w", path, err)
	}
	return New(src), nil
}

// New wraps an already-decoded image.
func New(src image.Image) *Image {
	return &Image{src: src, cache: make(map[cacheKey][]byte)}
}

// Default returns the built-in standby pattern, vertical color bars. It is
// used when no placeholder asset is configured.
func Default() *Image {
	bars := []color.RGBA{
		{R: 192, G: 192, B: 192, A: 255},
		{R: 192, G: 192, B: 0, A: 255},
		{R: 0, G: 192, B: 192, A: 255},
		{R: 0, G: 192, B: 0, A: 255},
		{R: 192, G: 0, B: 192, A: 255},
		{R: 192, G: 0, B: 0, A: 255},
		{R: 0, G: 0, B: 192, A: 255},
	}
	const w, h = 320, 180
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		c := bars[x*len(bars)/w]
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return New(img)
}

// Render fills dst with the placeholder scaled to width x height in the
// given pixel format. dst must be exactly one frame long.
func (i *Image) Render(dst []byte, width, height uint32, pix format.PixelFormat) error {
	size, err := pix.FrameSize(width, height)
	if err != nil {
		return err
	}
	if len(dst) != size {
		return fmt.Errorf("destination is %d bytes, frame needs %d", len(dst), size)
	}

	rendered, err := i.rendered(width, height, pix)
	if err != nil {
		return err
	}
	copy(dst, rendered)
	return nil
}

func (i *Image) rendered(width, height uint32, pix format.PixelFormat) ([]byte, error) {
	key := cacheKey{width: width, height: height, pix: pix}

	i.mu.Lock()
	defer i.mu.Unlock()

	if cached, ok := i.cache[key]; ok {
		return cached, nil
	}

	scaled := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), i.src, i.src.Bounds(), draw.Src, nil)

	var out []byte
	switch pix {
	case format.PixelFormatRGBA:
		out = append([]byte(nil), scaled.Pix...)
	case format.PixelFormatYUYV:
		out = rgbaToYUYV(scaled)
	case format.PixelFormatNV12:
		out = rgbaToNV12(scaled)
	default:
		return nil, fmt.Errorf("cannot render placeholder as %q", pix)
	}

	i.cache[key] = out
	return out, nil
}

// rgbaToYUYV packs an RGBA image into YUYV 4:2:2, averaging chroma over
// each horizontal pixel pair.
func rgbaToYUYV(img *image.RGBA) []byte {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	out := make([]byte, w*h*2)

	o := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x += 2 {
			y0, u0, v0 := rgbToYCbCr(img.Pix[img.PixOffset(x, y):])
			y1, u1, v1 := y0, u0, v0
			if x+1 < w {
				y1, u1, v1 = rgbToYCbCr(img.Pix[img.PixOffset(x+1, y):])
			}
			out[o] = y0
			out[o+1] = uint8((int(u0) + int(u1)) / 2)
			out[o+2] = y1
			out[o+3] = uint8((int(v0) + int(v1)) / 2)
			o += 4
		}
	}
	return out
}

// rgbaToNV12 packs an RGBA image into NV12: full-resolution luma plane
// followed by interleaved 2x2-subsampled chroma.
func rgbaToNV12(img *image.RGBA) []byte {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	out := make([]byte, w*h*3/2)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			luma, _, _ := rgbToYCbCr(img.Pix[img.PixOffset(x, y):])
			out[y*w+x] = luma
		}
	}

	chroma := out[w*h:]
	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x += 2 {
			_, u, v := rgbToYCbCr(img.Pix[img.PixOffset(x, y):])
			idx := (y/2)*w + x
			chroma[idx] = u
			chroma[idx+1] = v
		}
	}
	return out
}

// rgbToYCbCr converts one RGBA pixel (BT.601 full range).
func rgbToYCbCr(px []byte) (y, cb, cr uint8) {
	r := int32(px[0])
	g := int32(px[1])
	b := int32(px[2])

	yy := (19595*r + 38470*g + 7471*b + 1<<15) >> 16
	ub := (-11056*r - 21712*g + 32768*b + 1<<15) >> 16
	vr := (32768*r - 27440*g - 5328*b + 1<<15) >> 16

	return uint8(clamp(yy)), uint8(clamp(ub + 128)), uint8(clamp(vr + 128))
}

func clamp(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
