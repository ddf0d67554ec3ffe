// Package density defines the signed volumetric field that terrain meshes
// are extracted from. Negative values are solid, positive values are air,
// and zero is the surface, everywhere in the pipeline.
package density

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/noise"
	"planetgen/internal/seed"
)

// Config holds the immutable parameters of one planet's density field.
// Positions passed to Sample are planet-relative (planet center at origin).
type Config struct {
	// Radius is the base terrain sphere radius in world units.
	Radius float64

	// CoreRadius forces everything inside it solid regardless of noise and
	// caves. Zero disables the core.
	CoreRadius float64

	// Amplitude is the maximum surface displacement in world units.
	Amplitude float64

	// Frequency is the base noise frequency in inverse world units.
	Frequency float64

	Octaves     int
	Persistence float64
	Lacunarity  float64

	// VoxelSize normalizes densities so one density unit spans roughly one
	// voxel, which keeps marching cubes interpolation well conditioned.
	VoxelSize float64

	Seed uint64

	// Cave carving, unioned with air so it only removes material.
	EnableCaves   bool
	CaveFrequency float64
	// CaveThreshold in (-1, 1); higher values carve less.
	CaveThreshold float64
}

// DefaultConfig mirrors the tuning the field was developed against.
func DefaultConfig() Config {
	return Config{
		Radius:        50000,
		Amplitude:     500,
		Frequency:     0.0003,
		Octaves:       4,
		Persistence:   0.5,
		Lacunarity:    2.0,
		VoxelSize:     100,
		Seed:          1337,
		CaveFrequency: 0.01,
		CaveThreshold: 0.55,
	}
}

// Validate reports the first invalid parameter.
func (c Config) Validate() error {
	if c.Radius <= 0 {
		return fmt.Errorf("density config: radius must be positive, got %g", c.Radius)
	}
	if c.VoxelSize <= 0 {
		return fmt.Errorf("density config: voxel size must be positive, got %g", c.VoxelSize)
	}
	if c.CoreRadius < 0 || c.CoreRadius > c.Radius {
		return fmt.Errorf("density config: core radius %g outside [0, %g]", c.CoreRadius, c.Radius)
	}
	if c.Octaves < 1 {
		return fmt.Errorf("density config: octaves must be at least 1, got %d", c.Octaves)
	}
	if c.Persistence <= 0 || c.Persistence > 1 {
		return fmt.Errorf("density config: persistence %g outside (0, 1]", c.Persistence)
	}
	if c.Lacunarity < 1 {
		return fmt.Errorf("density config: lacunarity %g below 1", c.Lacunarity)
	}
	if c.Frequency < 0 {
		return fmt.Errorf("density config: frequency must not be negative, got %g", c.Frequency)
	}
	if c.EnableCaves {
		if c.CaveFrequency <= 0 {
			return fmt.Errorf("density config: cave frequency must be positive, got %g", c.CaveFrequency)
		}
		if c.CaveThreshold <= -1 || c.CaveThreshold >= 1 {
			return fmt.Errorf("density config: cave threshold %g outside (-1, 1)", c.CaveThreshold)
		}
	}
	return nil
}

// Generator samples the signed density field. Safe for concurrent use.
type Generator struct {
	cfg     Config
	terrain noise.Sampler
	caves   noise.Sampler
}

// NewGenerator validates the config and builds the noise layers. Terrain
// and cave layers draw from independent per-layer seeds.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{
		cfg:     cfg,
		terrain: noise.NewSimplex(seed.LayerSeed(cfg.Seed, "terrain"), cfg.Octaves),
	}
	if cfg.EnableCaves {
		g.caves = noise.NewSimplex(seed.LayerSeed(cfg.Seed, "caves"), 3)
	}
	return g, nil
}

// Config returns a copy of the generator's parameters.
func (g *Generator) Config() Config { return g.cfg }

// Sample returns the signed density at a planet-relative position, in voxel
// units: negative inside terrain, positive in air, zero at the surface.
func (g *Generator) Sample(p mgl64.Vec3) float64 {
	dist := p.Len()

	// Base sphere, displaced by fractal noise. The displacement is a world
	// unit offset of the surface, converted into voxel units.
	d := (dist - g.cfg.Radius) / g.cfg.VoxelSize
	if g.cfg.Amplitude != 0 && g.cfg.Frequency > 0 {
		fbm := g.terrain.SampleFractal(p, g.cfg.Frequency, g.cfg.Octaves, g.cfg.Persistence, g.cfg.Lacunarity)
		d -= fbm * g.cfg.Amplitude / g.cfg.VoxelSize
	}

	if g.caves != nil {
		if carve := g.caveCarve(p, dist); carve > d {
			d = carve
		}
	}

	// The core wins over noise and caves.
	if g.cfg.CoreRadius > 0 {
		if core := (dist - g.cfg.CoreRadius) / g.cfg.VoxelSize; core < d {
			d = core
		}
	}

	return d
}

// caveCarve returns a positive value inside a cave and a negative value
// elsewhere, so max() with the terrain density can only remove material.
func (g *Generator) caveCarve(p mgl64.Vec3, dist float64) float64 {
	// No caves poking through the outer surface shell.
	if dist > g.cfg.Radius-g.cfg.Amplitude {
		return math.Inf(-1)
	}
	n := g.caves.SampleFractal(p, g.cfg.CaveFrequency, 3, 0.5, 2.0)
	return (n - g.cfg.CaveThreshold) * g.cfg.Amplitude / g.cfg.VoxelSize
}

// normalEpsilon is the central difference step for gradients, a fraction of
// a voxel.
const normalEpsilonFactor = 0.5

// Normal estimates the outward surface normal at a position from the
// density gradient. Falls back to the radial direction where the gradient
// vanishes (field extrema, cave centers).
func (g *Generator) Normal(p mgl64.Vec3) mgl64.Vec3 {
	e := g.cfg.VoxelSize * normalEpsilonFactor

	grad := mgl64.Vec3{
		g.Sample(mgl64.Vec3{p.X() + e, p.Y(), p.Z()}) - g.Sample(mgl64.Vec3{p.X() - e, p.Y(), p.Z()}),
		g.Sample(mgl64.Vec3{p.X(), p.Y() + e, p.Z()}) - g.Sample(mgl64.Vec3{p.X(), p.Y() - e, p.Z()}),
		g.Sample(mgl64.Vec3{p.X(), p.Y(), p.Z() + e}) - g.Sample(mgl64.Vec3{p.X(), p.Y(), p.Z() - e}),
	}

	if l := grad.Len(); l > 1e-9 {
		return grad.Mul(1.0 / l)
	}
	if l := p.Len(); l > 1e-9 {
		return p.Mul(1.0 / l)
	}
	return mgl64.Vec3{0, 0, 1}
}

// MaxSurfaceDisplacement reports the worst-case distance the surface can
// deviate from the base radius, used for chunk bounds padding.
func (g *Generator) MaxSurfaceDisplacement() float64 {
	return math.Abs(g.cfg.Amplitude)
}
