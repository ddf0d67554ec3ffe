package noise

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Simplex is seeded 3D simplex noise. Octaves share the lattice but offset
// the seed, matching the displacement-style fractal used for terrain
// surfaces.
type Simplex struct {
	baseSeed   uint64
	maxOctaves int
}

// NewSimplex returns a simplex sampler for the given base seed.
func NewSimplex(baseSeed uint64, maxOctaves int) *Simplex {
	if maxOctaves < 1 {
		maxOctaves = 1
	}
	return &Simplex{baseSeed: baseSeed, maxOctaves: maxOctaves}
}

func (n *Simplex) Sample(p mgl64.Vec3, frequency float64, octave int) float64 {
	if octave < 0 || octave >= n.maxOctaves {
		return 0
	}
	return simplexNoise(p.Mul(frequency), int32(n.baseSeed)+int32(octave))
}

func (n *Simplex) SampleFractal(p mgl64.Vec3, baseFrequency float64, octaves int, persistence, lacunarity float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	if octaves > n.maxOctaves {
		octaves = n.maxOctaves
	}

	total := 0.0
	amplitude := 1.0
	frequency := baseFrequency
	maxValue := 0.0

	for i := 0; i < octaves; i++ {
		total += simplexNoise(p.Mul(frequency), int32(n.baseSeed)+int32(i)) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}

	if maxValue > 0 {
		return total / maxValue
	}
	return 0
}

func (n *Simplex) MaxAmplitude(octaves int, persistence float64) float64 {
	if octaves > n.maxOctaves {
		octaves = n.maxOctaves
	}
	return maxAmplitude(octaves, persistence)
}

func (n *Simplex) Clone() Sampler {
	return NewSimplex(n.baseSeed, n.maxOctaves)
}

// Skew factors for the 3D simplex lattice.
const (
	f3 = 1.0 / 3.0
	g3 = 1.0 / 6.0
)

// simplexGrad holds the gradient directions, cube edge vectors with a few
// repeats to fill 16 slots.
var simplexGrad = [16]mgl64.Vec3{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
	{1, 1, 0}, {-1, 1, 0}, {0, -1, 1}, {0, -1, -1},
}

func simplexNoise(p mgl64.Vec3, s int32) float64 {
	// Skew input space to find the containing simplex cell.
	skew := (p.X() + p.Y() + p.Z()) * f3
	i := floorToInt32(p.X() + skew)
	j := floorToInt32(p.Y() + skew)
	k := floorToInt32(p.Z() + skew)

	t := float64(i+j+k) * g3
	x0 := p.X() - (float64(i) - t)
	y0 := p.Y() - (float64(j) - t)
	z0 := p.Z() - (float64(k) - t)

	// Rank the offsets to pick the simplex traversal order.
	var i1, j1, k1, i2, j2, k2 int32
	if x0 >= y0 {
		switch {
		case y0 >= z0:
			i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 1, 0
		case x0 >= z0:
			i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 0, 1
		default:
			i1, j1, k1, i2, j2, k2 = 0, 0, 1, 1, 0, 1
		}
	} else {
		switch {
		case y0 < z0:
			i1, j1, k1, i2, j2, k2 = 0, 0, 1, 0, 1, 1
		case x0 < z0:
			i1, j1, k1, i2, j2, k2 = 0, 1, 0, 0, 1, 1
		default:
			i1, j1, k1, i2, j2, k2 = 0, 1, 0, 1, 1, 0
		}
	}

	x1 := x0 - float64(i1) + g3
	y1 := y0 - float64(j1) + g3
	z1 := z0 - float64(k1) + g3
	x2 := x0 - float64(i2) + 2*g3
	y2 := y0 - float64(j2) + 2*g3
	z2 := z0 - float64(k2) + 2*g3
	x3 := x0 - 1 + 3*g3
	y3 := y0 - 1 + 3*g3
	z3 := z0 - 1 + 3*g3

	n := cornerContribution(x0, y0, z0, simplexHash(i, j, k, s))
	n += cornerContribution(x1, y1, z1, simplexHash(i+i1, j+j1, k+k1, s))
	n += cornerContribution(x2, y2, z2, simplexHash(i+i2, j+j2, k+k2, s))
	n += cornerContribution(x3, y3, z3, simplexHash(i+1, j+1, k+1, s))

	// Scale keeps the output just inside [-1, 1].
	return 32.0 * n
}

func cornerContribution(x, y, z float64, hash int32) float64 {
	t := 0.6 - x*x - y*y - z*z
	if t < 0 {
		return 0
	}
	g := simplexGrad[hash&15]
	t *= t
	return t * t * (g.X()*x + g.Y()*y + g.Z()*z)
}

func simplexHash(i, j, k, s int32) int32 {
	return perm(perm(perm(i, s)+j, s)+k, s)
}

// perm is a seeded permutation polynomial over 31-bit integers.
func perm(x, s int32) int32 {
	return (((x*x*15731+789221)*x + 1376312589) ^ s) & 0x7fffffff
}

func floorToInt32(v float64) int32 {
	i := int32(v)
	if float64(i) > v {
		i--
	}
	return i
}
