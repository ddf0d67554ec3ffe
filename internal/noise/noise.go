// Package noise provides seeded 3D coherent noise for terrain density.
// Samplers hold only immutable precomputed state, so one instance can be
// shared across generation workers.
package noise

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Sampler is a deterministic 3D noise source. Sample and SampleFractal
// return values in roughly [-1, 1] and must be safe for concurrent use.
type Sampler interface {
	// Sample evaluates one octave at the given frequency.
	Sample(p mgl64.Vec3, frequency float64, octave int) float64

	// SampleFractal sums octaves with the given persistence and lacunarity,
	// normalized by total amplitude so the output stays in [-1, 1].
	SampleFractal(p mgl64.Vec3, baseFrequency float64, octaves int, persistence, lacunarity float64) float64

	// MaxAmplitude reports the amplitude normalization sum for the given
	// fractal parameters.
	MaxAmplitude(octaves int, persistence float64) float64

	// Clone returns an independent sampler with identical output.
	Clone() Sampler
}

func clampf(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// fade is the quintic smoothing curve 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func maxAmplitude(octaves int, persistence float64) float64 {
	sum := 0.0
	amplitude := 1.0
	for i := 0; i < octaves; i++ {
		sum += amplitude
		amplitude *= persistence
	}
	return sum
}
