package streaming

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/chunk"
	"planetgen/internal/density"
	"planetgen/internal/mesher"
	"planetgen/internal/render"
)

const testRadius = 100.0

func testField(t *testing.T) *density.Generator {
	t.Helper()
	cfg := density.DefaultConfig()
	cfg.Radius = testRadius
	cfg.Amplitude = 0
	cfg.VoxelSize = 5
	g, err := density.NewGenerator(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func testConfig() Config {
	cfg := DefaultConfig(testRadius)
	cfg.LODs = []LODEntry{
		{Distance: 80, Resolution: 8},
		{Distance: 250, Resolution: 4},
		{Distance: 600, Resolution: 4},
	}
	cfg.HysteresisFactor = 1.2
	cfg.CollisionDistance = 100
	cfg.ImpostorDistance = 2000
	cfg.GridDistance = 5000
	cfg.Workers = 2
	cfg.Mesher = mesher.DefaultConfig()
	return cfg
}

func testParams() chunk.PlanetParams {
	return chunk.PlanetParams{Radius: testRadius, ChunksPerFace: 2}
}

func newTestController(t *testing.T, cfg Config, provider render.ProxyProvider, impostor render.Proxy) *Controller {
	t.Helper()
	c, err := New(cfg, testField(t), testParams(), provider, impostor)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Shutdown)
	return c
}

// pump runs updates until the condition holds or the deadline passes.
func pump(t *testing.T, c *Controller, obs render.Observer, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.Update(obs)
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestChunksBecomeVisible(t *testing.T) {
	provider := render.NewRecordingProvider()
	c := newTestController(t, testConfig(), provider, nil)
	obs := render.FixedObserver{testRadius + 10, 0, 0}

	pump(t, c, obs, func() bool { return c.Stats().Visible > 0 })

	s := c.Stats()
	if s.ChunksCreated == 0 || s.MeshesUploaded == 0 {
		t.Errorf("no work recorded: %+v", s)
	}
	if provider.Live() != s.Visible {
		t.Errorf("live proxies %d != visible chunks %d", provider.Live(), s.Visible)
	}
}

// TestSpawnBudget checks the first tick never starts more generations
// than the per-tick budget allows.
func TestSpawnBudget(t *testing.T) {
	cfg := testConfig()
	cfg.SpawnBudget = 2
	cfg.MaxConcurrent = 32
	c := newTestController(t, cfg, render.NullProvider{}, nil)

	c.Update(render.FixedObserver{testRadius + 10, 0, 0})
	if s := c.Stats(); s.Generating > 2 {
		t.Errorf("first tick started %d generations, budget is 2", s.Generating)
	}
}

func TestConcurrencyCap(t *testing.T) {
	cfg := testConfig()
	cfg.SpawnBudget = 100
	cfg.MaxConcurrent = 3
	c := newTestController(t, cfg, render.NullProvider{}, nil)

	c.Update(render.FixedObserver{testRadius + 10, 0, 0})
	if s := c.Stats(); s.Generating > 3 {
		t.Errorf("%d generations in flight, cap is 3", s.Generating)
	}
}

// TestStaleResultsDropped blocks generation, cancels the chunks by moving
// the observer out of range, then releases the workers and checks their
// results are discarded instead of resurrecting dead chunks.
func TestStaleResultsDropped(t *testing.T) {
	gate := make(chan struct{})
	field := &gatedField{inner: testField(t), gate: gate}

	cfg := testConfig()
	c, err := New(cfg, field, testParams(), render.NullProvider{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Shutdown()

	near := render.FixedObserver{testRadius + 10, 0, 0}
	c.Update(near)
	if c.Stats().Generating == 0 {
		t.Fatal("no generations started")
	}

	// Out past the grid distance: everything in flight is cancelled.
	far := render.FixedObserver{cfg.GridDistance * 2, 0, 0}
	c.Update(far)
	if got := c.Stats().Loaded; got != 0 {
		t.Fatalf("%d chunks still loaded after leaving range", got)
	}

	close(gate)
	pump(t, c, far, func() bool { return c.Stats().Generating == 0 })

	s := c.Stats()
	if s.StaleDropped == 0 {
		t.Error("cancelled generations produced no stale drops")
	}
	if s.Visible != 0 || s.Loaded != 0 {
		t.Errorf("stale results resurrected chunks: %+v", s)
	}
}

// gatedField blocks the first sample of each generation until the gate
// closes, keeping jobs in flight for as long as a test needs.
type gatedField struct {
	inner *density.Generator
	gate  chan struct{}
}

func (f *gatedField) Sample(p mgl64.Vec3) float64 {
	<-f.gate
	return f.inner.Sample(p)
}

func (f *gatedField) Normal(p mgl64.Vec3) mgl64.Vec3 {
	<-f.gate
	return f.inner.Normal(p)
}

// panicField triggers the worker recovery path on every job.
type panicField struct{}

func (panicField) Sample(mgl64.Vec3) float64    { panic("density blew up") }
func (panicField) Normal(mgl64.Vec3) mgl64.Vec3 { panic("density blew up") }

func TestWorkerPanicRecovery(t *testing.T) {
	cfg := testConfig()
	c, err := New(cfg, panicField{}, testParams(), render.NullProvider{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Shutdown()

	obs := render.FixedObserver{testRadius + 10, 0, 0}
	pump(t, c, obs, func() bool { return c.Stats().PanicsRecovered > 0 })

	// The pool survived; the failed chunks went back to Unloaded and are
	// retried rather than wedged in Generating.
	s := c.Stats()
	if s.Visible != 0 {
		t.Errorf("panicking field produced visible chunks: %+v", s)
	}
}

// TestHysteresisNoThrashing oscillates the distance tightly around a raw
// LOD threshold and demands the dead band suppresses all flapping.
func TestHysteresisNoThrashing(t *testing.T) {
	cfg := testConfig()
	c := newTestController(t, cfg, render.NullProvider{}, nil)

	threshold := cfg.LODs[0].Distance // 80

	// Start just inside LOD 0.
	current := c.desiredLOD(threshold-1, -1)
	if current != 0 {
		t.Fatalf("initial LOD = %d, want 0", current)
	}

	transitions := 0
	for i := 0; i < 1000; i++ {
		// Oscillate +/- 2 units around the raw threshold, well inside
		// the hysteresis band (threshold * 1.2 = 96).
		dist := threshold + 2
		if i%2 == 0 {
			dist = threshold - 2
		}
		next := c.desiredLOD(dist, current)
		if next != current {
			transitions++
			current = next
		}
	}
	if transitions != 0 {
		t.Errorf("%d LOD transitions while oscillating inside the dead band", transitions)
	}

	// Clearing the widened band must downgrade exactly once.
	next := c.desiredLOD(threshold*cfg.HysteresisFactor+1, current)
	if next != 1 {
		t.Errorf("beyond hysteresis band: LOD %d, want 1", next)
	}

	// And moving back under the finer threshold upgrades again.
	if up := c.desiredLOD(threshold-5, next); up != 0 {
		t.Errorf("inside finer threshold: LOD %d, want 0", up)
	}
}

func TestImpostorOverlapBand(t *testing.T) {
	cfg := testConfig()
	// The coarsest LOD must reach past the overlap band so chunks are
	// still desired while the impostor shows.
	cfg.LODs = append(cfg.LODs, LODEntry{Distance: 4500, Resolution: 4})
	provider := render.NewRecordingProvider()
	impostor := &render.RecordingProxy{}
	c := newTestController(t, cfg, provider, impostor)

	// Inside the impostor distance: no impostor.
	c.Update(render.FixedObserver{testRadius + 10, 0, 0})
	if impostor.Visible {
		t.Error("impostor visible with observer at the surface")
	}

	// In the overlap band chunks are still desired and the impostor shows.
	band := render.FixedObserver{(cfg.ImpostorDistance + cfg.GridDistance) / 2, 0, 0}
	c.Update(band)
	if !impostor.Visible {
		t.Error("impostor hidden inside the overlap band")
	}
	if c.Stats().ChunksCreated == 0 {
		t.Error("no chunks desired inside the overlap band")
	}

	// Beyond the grid distance only the impostor remains.
	far := render.FixedObserver{cfg.GridDistance * 2, 0, 0}
	pump(t, c, far, func() bool { return c.Stats().Loaded == 0 })
	if !impostor.Visible {
		t.Error("impostor hidden beyond the grid distance")
	}
}

func TestCollisionDistancePassThrough(t *testing.T) {
	cfg := testConfig()
	provider := render.NewRecordingProvider()
	c := newTestController(t, cfg, provider, nil)

	near := render.FixedObserver{testRadius + 5, 0, 0}
	pump(t, c, near, func() bool { return c.Stats().Visible > 0 })

	// The chunk under the observer is inside the collision distance.
	underfoot := chunk.FromWorldPosition(mgl64.Vec3{testRadius, 0, 0}, testParams(), 0)
	proxy := provider.Proxy(underfoot)
	if proxy == nil {
		t.Fatalf("no proxy for chunk underfoot %v", underfoot)
	}
	if !proxy.Collision {
		t.Error("chunk underfoot has collision disabled")
	}

	// Observer backs away beyond the collision distance but stays in LOD
	// range; collision must drop without the chunk unloading.
	away := render.FixedObserver{testRadius + cfg.CollisionDistance + 50, 0, 0}
	pump(t, c, away, func() bool { return !proxy.Collision || proxy.Released })
	if proxy.Released {
		t.Skip("chunk left LOD range before collision could be observed")
	}
}

func TestShutdownReleasesEverything(t *testing.T) {
	provider := render.NewRecordingProvider()
	c, err := New(testConfig(), testField(t), testParams(), provider, nil)
	if err != nil {
		t.Fatal(err)
	}

	obs := render.FixedObserver{testRadius + 10, 0, 0}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && c.Stats().Visible == 0 {
		c.Update(obs)
		time.Sleep(2 * time.Millisecond)
	}

	c.Shutdown()
	if provider.Live() != 0 {
		t.Errorf("%d proxies still live after shutdown", provider.Live())
	}
}

func TestConfigValidation(t *testing.T) {
	base := testConfig()

	mutations := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty LOD table", func(c *Config) { c.LODs = nil }},
		{"non-ascending LODs", func(c *Config) { c.LODs = []LODEntry{{100, 8}, {100, 4}} }},
		{"tiny resolution", func(c *Config) { c.LODs = []LODEntry{{100, 1}} }},
		{"hysteresis at 1.0", func(c *Config) { c.HysteresisFactor = 1.0 }},
		{"zero spawn budget", func(c *Config) { c.SpawnBudget = 0 }},
		{"zero upload budget", func(c *Config) { c.UploadBudget = 0 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"impostor beyond grid", func(c *Config) { c.ImpostorDistance = c.GridDistance + 1 }},
	}
	for _, m := range mutations {
		cfg := base
		m.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", m.name)
		}
	}

	if err := base.Validate(); err != nil {
		t.Errorf("base config rejected: %v", err)
	}
}
