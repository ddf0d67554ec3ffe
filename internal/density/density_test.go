package density

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func newTestGenerator(t *testing.T, cfg Config) *Generator {
	t.Helper()
	g, err := NewGenerator(cfg)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

// noiselessConfig isolates the sphere term so sign checks are exact.
func noiselessConfig() Config {
	cfg := DefaultConfig()
	cfg.Radius = 1000
	cfg.Amplitude = 0
	cfg.VoxelSize = 10
	return cfg
}

// TestSignConvention pins down the field orientation: negative inside the
// planet, positive outside, zero at the surface.
func TestSignConvention(t *testing.T) {
	g := newTestGenerator(t, noiselessConfig())

	inside := g.Sample(mgl64.Vec3{500, 0, 0})
	if inside >= 0 {
		t.Errorf("density at r=500 inside radius 1000 = %g, want negative (solid)", inside)
	}

	outside := g.Sample(mgl64.Vec3{1500, 0, 0})
	if outside <= 0 {
		t.Errorf("density at r=1500 outside radius 1000 = %g, want positive (air)", outside)
	}

	surface := g.Sample(mgl64.Vec3{1000, 0, 0})
	if math.Abs(surface) > 1e-9 {
		t.Errorf("density at the exact surface = %g, want 0", surface)
	}

	center := g.Sample(mgl64.Vec3{})
	if center >= inside {
		t.Errorf("density should decrease toward the center: center %g, r=500 %g", center, inside)
	}
}

func TestVoxelSizeNormalization(t *testing.T) {
	g := newTestGenerator(t, noiselessConfig())

	// One voxel (10 units) above the surface is exactly one density unit.
	d := g.Sample(mgl64.Vec3{1010, 0, 0})
	if math.Abs(d-1.0) > 1e-9 {
		t.Errorf("density one voxel above surface = %g, want 1", d)
	}
}

// TestNoiseDisplacesSurface verifies noise moves the zero crossing but
// never beyond the configured amplitude.
func TestNoiseDisplacesSurface(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Radius = 1000
	cfg.Amplitude = 50
	cfg.Frequency = 0.01
	cfg.VoxelSize = 10
	g := newTestGenerator(t, cfg)

	// Well above the displacement band: must be air.
	if d := g.Sample(mgl64.Vec3{1100, 0, 0}); d <= 0 {
		t.Errorf("density 100 units above max displacement = %g, want positive", d)
	}
	// Well below the displacement band: must be solid.
	if d := g.Sample(mgl64.Vec3{900, 0, 0}); d >= 0 {
		t.Errorf("density 100 units below min displacement = %g, want negative", d)
	}
}

func TestDeterministicSampling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableCaves = true
	g1 := newTestGenerator(t, cfg)
	g2 := newTestGenerator(t, cfg)

	points := []mgl64.Vec3{
		{49000, 100, -200},
		{0, 50000, 0},
		{-20000, 30000, 10000},
	}
	for _, p := range points {
		a, b := g1.Sample(p), g2.Sample(p)
		if a != b {
			t.Errorf("two generators with equal config disagree at %v: %g vs %g", p, a, b)
		}
	}
}

// TestCavesOnlyRemoveMaterial checks carving never turns air into solid.
func TestCavesOnlyRemoveMaterial(t *testing.T) {
	base := DefaultConfig()
	base.Radius = 2000
	base.Amplitude = 100
	base.VoxelSize = 10

	solid := newTestGenerator(t, base)

	carved := base
	carved.EnableCaves = true
	carved.CaveFrequency = 0.02
	carved.CaveThreshold = 0.1
	withCaves := newTestGenerator(t, carved)

	for i := 0; i < 500; i++ {
		r := 100 + float64(i)*4 // sweep center to above surface
		p := mgl64.Vec3{r, float64(i), -float64(i)}
		a := solid.Sample(p)
		b := withCaves.Sample(p)
		if b < a-1e-9 {
			t.Fatalf("caves added material at %v: %g -> %g", p, a, b)
		}
	}
}

func TestCoreStaysSolid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Radius = 2000
	cfg.CoreRadius = 500
	cfg.VoxelSize = 10
	cfg.EnableCaves = true
	cfg.CaveFrequency = 0.05
	cfg.CaveThreshold = -0.9 // carve aggressively
	g := newTestGenerator(t, cfg)

	for i := 0; i < 200; i++ {
		p := mgl64.Vec3{float64(i) * 2, float64(i), float64(i) / 2}
		if p.Len() >= cfg.CoreRadius-cfg.VoxelSize {
			continue
		}
		if d := g.Sample(p); d >= 0 {
			t.Fatalf("core voxel at %v (r=%g) not solid: density %g", p, p.Len(), d)
		}
	}
}

func TestNormalPointsOutward(t *testing.T) {
	g := newTestGenerator(t, noiselessConfig())

	dirs := []mgl64.Vec3{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{-1, 0, 0}, {0.577, 0.577, 0.577},
	}
	for _, dir := range dirs {
		d := dir.Normalize()
		p := d.Mul(1000)
		n := g.Normal(p)
		if e := math.Abs(n.Len() - 1.0); e > 1e-6 {
			t.Errorf("normal at %v not unit: |n|-1 = %g", p, e)
		}
		if dot := n.Dot(d); dot < 0.99 {
			t.Errorf("normal at %v not radial: dot with radial dir = %g", p, dot)
		}
	}
}

func TestNormalFallbackAtCenter(t *testing.T) {
	g := newTestGenerator(t, noiselessConfig())

	// At the exact center the gradient of the distance field is undefined;
	// the fallback must still return a unit vector.
	n := g.Normal(mgl64.Vec3{})
	if e := math.Abs(n.Len() - 1.0); e > 1e-6 {
		t.Errorf("center normal not unit: %v", n)
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero radius", func(c *Config) { c.Radius = 0 }},
		{"negative radius", func(c *Config) { c.Radius = -5 }},
		{"zero voxel size", func(c *Config) { c.VoxelSize = 0 }},
		{"core beyond radius", func(c *Config) { c.CoreRadius = c.Radius * 2 }},
		{"zero octaves", func(c *Config) { c.Octaves = 0 }},
		{"persistence above one", func(c *Config) { c.Persistence = 1.5 }},
		{"lacunarity below one", func(c *Config) { c.Lacunarity = 0.5 }},
		{"negative frequency", func(c *Config) { c.Frequency = -0.1 }},
		{"caves with zero frequency", func(c *Config) { c.EnableCaves = true; c.CaveFrequency = 0 }},
		{"caves with threshold 1", func(c *Config) { c.EnableCaves = true; c.CaveThreshold = 1 }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if _, err := NewGenerator(cfg); err == nil {
			t.Errorf("%s: expected validation error, got nil", tc.name)
		}
	}

	if _, err := NewGenerator(DefaultConfig()); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
}

func BenchmarkSample(b *testing.B) {
	g, err := NewGenerator(DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	var sink float64
	for i := 0; i < b.N; i++ {
		sink = g.Sample(mgl64.Vec3{49000 + float64(i%100), 500, -1200})
	}
	_ = sink
}

func BenchmarkNormal(b *testing.B) {
	g, err := NewGenerator(DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	var sink mgl64.Vec3
	for i := 0; i < b.N; i++ {
		sink = g.Normal(mgl64.Vec3{49000, float64(i % 50), 0})
	}
	_ = sink
}
