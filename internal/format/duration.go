package format

import (
	"fmt"
	"math"
	"time"
)

// Duration is an exact rational frame duration in seconds
// (Numerator/Denominator). Fractional broadcast rates keep their exact
// NTSC rationals instead of a rounded integer rate: 29.97 fps rounded to a
// flat 30 would drift roughly 3.6 frames per hour of playback.
type Duration struct {
	Numerator   uint32
	Denominator uint32
}

// rateTolerance is the tolerance used to match a float frame rate against
// the nominal decimal value of a broadcast rate.
const rateTolerance = 1e-4

// broadcastRates maps standard fractional broadcast frame rates to their
// exact rational frame durations.
var broadcastRates = []struct {
	fps      float64
	duration Duration
}{
	{fps: 59.94, duration: Duration{Numerator: 1001, Denominator: 60000}},
	{fps: 29.97, duration: Duration{Numerator: 1001, Denominator: 30000}},
	{fps: 23.976, duration: Duration{Numerator: 1001, Denominator: 24000}},
}

// DurationFromFPS converts a frame rate into a frame duration. Broadcast
// rates map to their exact rationals; any other rate maps to
// 1/round(fps), with the denominator clamped to [1, MaxUint32].
func DurationFromFPS(fps float64) Duration {
	for _, br := range broadcastRates {
		if math.Abs(fps-br.fps) < rateTolerance {
			return br.duration
		}
	}

	den := int64(math.Round(fps))
	if den < 1 {
		den = 1
	}
	if den > math.MaxUint32 {
		den = math.MaxUint32
	}
	return Duration{Numerator: 1, Denominator: uint32(den)}
}

// Seconds returns the duration as a float number of seconds.
func (d Duration) Seconds() float64 {
	return float64(d.Numerator) / float64(d.Denominator)
}

// FPS returns the frame rate the duration corresponds to.
func (d Duration) FPS() float64 {
	return float64(d.Denominator) / float64(d.Numerator)
}

// Interval returns the duration as a time.Duration, suitable for pacing a
// ticker. Precision is limited to nanoseconds.
func (d Duration) Interval() time.Duration {
	return time.Duration(int64(d.Numerator) * int64(time.Second) / int64(d.Denominator))
}

// Less reports whether d is strictly shorter than other, comparing the
// rationals exactly via cross multiplication.
func (d Duration) Less(other Duration) bool {
	return uint64(d.Numerator)*uint64(other.Denominator) < uint64(other.Numerator)*uint64(d.Denominator)
}

func (d Duration) String() string {
	return fmt.Sprintf("%d/%d", d.Numerator, d.Denominator)
}
