package noise

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/seed"
)

// Perlin is seeded gradient noise with an independent seed per octave, so
// octaves decorrelate instead of echoing the same lattice at higher
// frequency.
type Perlin struct {
	baseSeed    uint64
	maxOctaves  int
	octaveSeeds []uint64
}

// NewPerlin precomputes octave seeds for up to maxOctaves octaves.
func NewPerlin(baseSeed uint64, maxOctaves int) *Perlin {
	if maxOctaves < 1 {
		maxOctaves = 1
	}
	return &Perlin{
		baseSeed:    baseSeed,
		maxOctaves:  maxOctaves,
		octaveSeeds: seed.OctaveSeeds(baseSeed, maxOctaves),
	}
}

func (n *Perlin) Sample(p mgl64.Vec3, frequency float64, octave int) float64 {
	if octave < 0 || octave >= n.maxOctaves {
		return 0
	}
	scaled := p.Mul(frequency)
	return gradientNoise(scaled, n.octaveSeeds[octave])
}

func (n *Perlin) SampleFractal(p mgl64.Vec3, baseFrequency float64, octaves int, persistence, lacunarity float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	if octaves > n.maxOctaves {
		octaves = n.maxOctaves
	}

	value := 0.0
	amplitude := 1.0
	frequency := baseFrequency
	total := 0.0

	for i := 0; i < octaves; i++ {
		value += n.Sample(p, frequency, i) * amplitude
		total += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}

	if total > 0 {
		value /= total
	}
	return value
}

func (n *Perlin) MaxAmplitude(octaves int, persistence float64) float64 {
	if octaves > n.maxOctaves {
		octaves = n.maxOctaves
	}
	return maxAmplitude(octaves, persistence)
}

func (n *Perlin) Clone() Sampler {
	return NewPerlin(n.baseSeed, n.maxOctaves)
}

// gradientNoise evaluates one lattice of Perlin-style gradient noise.
func gradientNoise(p mgl64.Vec3, s uint64) float64 {
	ix := math.Floor(p.X())
	iy := math.Floor(p.Y())
	iz := math.Floor(p.Z())

	fx := p.X() - ix
	fy := p.Y() - iy
	fz := p.Z() - iz

	u := fade(fx)
	v := fade(fy)
	w := fade(fz)

	x0, y0, z0 := int64(ix), int64(iy), int64(iz)

	n000 := grad(seed.HashCoord(x0, y0, z0, s), fx, fy, fz)
	n100 := grad(seed.HashCoord(x0+1, y0, z0, s), fx-1, fy, fz)
	n010 := grad(seed.HashCoord(x0, y0+1, z0, s), fx, fy-1, fz)
	n110 := grad(seed.HashCoord(x0+1, y0+1, z0, s), fx-1, fy-1, fz)
	n001 := grad(seed.HashCoord(x0, y0, z0+1, s), fx, fy, fz-1)
	n101 := grad(seed.HashCoord(x0+1, y0, z0+1, s), fx-1, fy, fz-1)
	n011 := grad(seed.HashCoord(x0, y0+1, z0+1, s), fx, fy-1, fz-1)
	n111 := grad(seed.HashCoord(x0+1, y0+1, z0+1, s), fx-1, fy-1, fz-1)

	lx00 := lerp(n000, n100, u)
	lx10 := lerp(n010, n110, u)
	lx01 := lerp(n001, n101, u)
	lx11 := lerp(n011, n111, u)

	ly0 := lerp(lx00, lx10, v)
	ly1 := lerp(lx01, lx11, v)

	return clampf(lerp(ly0, ly1, w), -1, 1)
}

// grad projects the offset onto one of Perlin's 12 gradient directions.
func grad(hash uint64, x, y, z float64) float64 {
	h := hash & 15

	var u float64
	if h < 8 {
		u = x
	} else {
		u = y
	}

	var v float64
	switch {
	case h < 4:
		v = y
	case h == 12 || h == 14:
		v = x
	default:
		v = z
	}

	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}
