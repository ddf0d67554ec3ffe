// Package planet wires the density field, mesher and streaming controller
// into one volumetric planet. Hosts construct a Planet with their proxy
// provider and call Update once per frame.
package planet

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/chunk"
	"planetgen/internal/density"
	"planetgen/internal/render"
	"planetgen/internal/streaming"
)

// Chunks-per-face bounds for automatic sizing.
const (
	minChunksPerFace = 2
	maxChunksPerFace = 64
)

// Config describes a whole planet. Radius, Seed and Center are
// authoritative and overwrite the matching density fields on New.
type Config struct {
	Radius float64
	Seed   uint64
	Center mgl64.Vec3

	// ChunksPerFace subdivides each cube face edge. Zero picks a value
	// from the radius so LOD-0 voxels land near the density field's
	// normalization scale.
	ChunksPerFace int32

	Density   density.Config
	Streaming streaming.Config
}

// DefaultConfig assembles the default stack for a radius and seed.
func DefaultConfig(radius float64, seed uint64) Config {
	d := density.DefaultConfig()
	d.Radius = radius
	d.Seed = seed
	return Config{
		Radius:    radius,
		Seed:      seed,
		Density:   d,
		Streaming: streaming.DefaultConfig(radius),
	}
}

// Validate reports the first invalid parameter.
func (c Config) Validate() error {
	if c.Radius <= 0 {
		return fmt.Errorf("planet config: radius must be positive, got %g", c.Radius)
	}
	if c.ChunksPerFace < 0 || c.ChunksPerFace > maxChunksPerFace {
		return fmt.Errorf("planet config: chunks per face %d outside [0, %d]", c.ChunksPerFace, maxChunksPerFace)
	}
	d := c.Density
	d.Radius = c.Radius
	d.Seed = c.Seed
	if err := d.Validate(); err != nil {
		return err
	}
	return c.Streaming.Validate()
}

// AutoChunksPerFace sizes the face grid from the radius: the chunk edge
// targets one LOD-0 voxel per density normalization unit, clamped to the
// supported range.
func (c Config) AutoChunksPerFace() int32 {
	if c.ChunksPerFace > 0 {
		return c.ChunksPerFace
	}
	res := 32
	if len(c.Streaming.LODs) > 0 {
		res = c.Streaming.LODs[0].Resolution
	}
	targetEdge := c.Density.VoxelSize * float64(res)
	if targetEdge <= 0 {
		return minChunksPerFace
	}
	n := int32(math.Round(2 * c.Radius / targetEdge))
	if n < minChunksPerFace {
		return minChunksPerFace
	}
	if n > maxChunksPerFace {
		return maxChunksPerFace
	}
	return n
}

// Planet owns one generated world. Not safe for concurrent use; all
// methods belong to the host's update goroutine.
type Planet struct {
	cfg        Config
	params     chunk.PlanetParams
	field      *density.Generator
	controller *streaming.Controller
}

// New validates the config and builds the full pipeline. The impostor
// proxy may be nil when the host has no whole-planet stand-in.
func New(cfg Config, provider render.ProxyProvider, impostor render.Proxy) (*Planet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dcfg := cfg.Density
	dcfg.Radius = cfg.Radius
	dcfg.Seed = cfg.Seed
	field, err := density.NewGenerator(dcfg)
	if err != nil {
		return nil, err
	}

	params := chunk.PlanetParams{
		Center:        cfg.Center,
		Radius:        cfg.Radius,
		ChunksPerFace: cfg.AutoChunksPerFace(),
	}

	controller, err := streaming.New(cfg.Streaming, field, params, provider, impostor)
	if err != nil {
		return nil, err
	}

	return &Planet{
		cfg:        cfg,
		params:     params,
		field:      field,
		controller: controller,
	}, nil
}

// Update runs one streaming tick against the observer.
func (p *Planet) Update(observer render.Observer) {
	p.controller.Update(observer)
}

// PrepareChunkSet ticks the pipeline until the chunk set around the
// observer is fully visible, or maxTicks updates have run. It reports
// whether the set converged. Useful before showing the first frame.
func (p *Planet) PrepareChunkSet(observer render.Observer, maxTicks int) bool {
	for i := 0; i < maxTicks; i++ {
		p.controller.Update(observer)
		s := p.controller.Stats()
		if s.Generating == 0 && s.Loaded == s.Visible {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// Params returns the chunk addressing parameters.
func (p *Planet) Params() chunk.PlanetParams { return p.params }

// Field exposes the density generator for hosts that sample terrain
// directly, such as altitude queries.
func (p *Planet) Field() *density.Generator { return p.field }

// Stats returns the streaming counters.
func (p *Planet) Stats() streaming.Stats { return p.controller.Stats() }

// LogStats prints the streaming counters.
func (p *Planet) LogStats() { p.controller.LogStats() }

// EstimateBytes sums the memory held by loaded chunk meshes.
func (p *Planet) EstimateBytes() int { return p.controller.EstimateBytes() }

// Shutdown stops the workers and releases every proxy.
func (p *Planet) Shutdown() { p.controller.Shutdown() }
