// Package mesher extracts triangle meshes from the signed density field
// with marching cubes. Generation is pure: the same field, transform and
// config always produce the same mesh, from any goroutine.
package mesher

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/chunk"
	"planetgen/internal/cubesphere"
	"planetgen/internal/profiling"
)

// Field is the density source the mesher samples. density.Generator
// satisfies it.
type Field interface {
	Sample(p mgl64.Vec3) float64
	Normal(p mgl64.Vec3) mgl64.Vec3
}

// NormalMode selects how vertex normals are produced.
type NormalMode int

const (
	// NormalsGradient derives normals from the density gradient at each
	// vertex. Smooth, the default.
	NormalsGradient NormalMode = iota
	// NormalsFlat uses per-triangle face normals, flipped outward where
	// the cross product points into the planet.
	NormalsFlat
)

// Config controls mesh extraction for one chunk.
type Config struct {
	// Resolution is the number of cells along each chunk axis, at least 2.
	Resolution int

	// IsoLevel is the surface threshold, normally 0.
	IsoLevel float64

	// GhostLayers is the number of extra sample layers beyond the visible
	// grid, so boundary gradients see valid data.
	GhostLayers int

	Normals NormalMode

	// WeldVertices merges vertices closer than WeldTolerance after
	// extraction. Off by default; the raw output duplicates vertices per
	// triangle.
	WeldVertices  bool
	WeldTolerance float64
}

// DefaultConfig returns the tuning used by the streaming controller.
func DefaultConfig() Config {
	return Config{
		Resolution:    32,
		IsoLevel:      0,
		GhostLayers:   1,
		Normals:       NormalsGradient,
		WeldTolerance: 0.001,
	}
}

// Validate reports the first invalid parameter.
func (c Config) Validate() error {
	if c.Resolution < 2 {
		return fmt.Errorf("mesher config: resolution must be at least 2, got %d", c.Resolution)
	}
	if c.GhostLayers < 0 {
		return fmt.Errorf("mesher config: ghost layers must not be negative, got %d", c.GhostLayers)
	}
	if c.WeldVertices && c.WeldTolerance <= 0 {
		return fmt.Errorf("mesher config: weld tolerance must be positive, got %g", c.WeldTolerance)
	}
	return nil
}

// grid holds the pooled per-generation sampling buffers.
type grid struct {
	densities []float64
	positions []mgl64.Vec3 // chunk-local
	planetRel []mgl64.Vec3 // planet-relative, for gradient normals
}

var gridPool = sync.Pool{
	New: func() any { return &grid{} },
}

func (g *grid) resize(n int) {
	if cap(g.densities) < n {
		g.densities = make([]float64, n)
		g.positions = make([]mgl64.Vec3, n)
		g.planetRel = make([]mgl64.Vec3, n)
	}
	g.densities = g.densities[:n]
	g.positions = g.positions[:n]
	g.planetRel = g.planetRel[:n]
}

// Generate extracts the mesh for one chunk. An empty mesh (all solid or
// all air) is a valid result, not an error.
func Generate(field Field, tr chunk.Transform, params chunk.PlanetParams, cfg Config) (*chunk.MeshData, error) {
	defer profiling.Track("mesher.Generate")()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !tr.IsValid() {
		return nil, fmt.Errorf("mesher: invalid chunk transform %v", tr)
	}

	res := cfg.Resolution
	ghost := cfg.GhostLayers
	samples := res + 1 + 2*ghost
	voxelSize := tr.Size / float64(res)
	face := cubesphere.DominantFace(tr.Normal)

	g := gridPool.Get().(*grid)
	defer gridPool.Put(g)
	g.resize(samples * samples * samples)

	// Sample the full grid, ghost layers included. Grid X/Y walk the face
	// UV rectangle; grid Z is radial altitude with the surface at the
	// middle layer. The cube point is warped with the equal-area mapping
	// before normalization, matching how neighboring chunks sample, so
	// shared boundary points get bit-identical densities.
	sampleIndex := func(x, y, z int) int {
		return x + y*samples + z*samples*samples
	}
	surfaceLevel := float64(res) / 2.0

	for z := 0; z < samples; z++ {
		altitude := (float64(z-ghost) - surfaceLevel) * voxelSize
		for y := 0; y < samples; y++ {
			vPct := float64(y-ghost) / float64(res)
			v := lerp(tr.UVMin.Y(), tr.UVMax.Y(), vPct)
			for x := 0; x < samples; x++ {
				uPct := float64(x-ghost) / float64(res)
				u := lerp(tr.UVMin.X(), tr.UVMax.X(), uPct)

				cube := cubesphere.FaceNormals[face].
					Add(cubesphere.FaceTangents[face].Mul(u)).
					Add(cubesphere.FaceBitangents[face].Mul(v))
				dir := cubesphere.SpherifyPoint(cube)
				if l := dir.Len(); l > 0 {
					dir = dir.Mul(1.0 / l)
				}

				rel := dir.Mul(params.Radius + altitude)
				idx := sampleIndex(x, y, z)
				g.planetRel[idx] = rel
				g.positions[idx] = params.Center.Add(rel).Sub(tr.Origin)
				g.densities[idx] = field.Sample(rel)
			}
		}
	}

	mesh := &chunk.MeshData{}
	var edgeVerts [12]mgl64.Vec3
	var edgeRel [12]mgl64.Vec3

	// March the visible cells only; ghost samples just feed gradients and
	// boundary interpolation.
	for cz := 0; cz < res; cz++ {
		for cy := 0; cy < res; cy++ {
			for cx := 0; cx < res; cx++ {
				var d [8]float64
				var idx [8]int
				cubeIndex := 0
				for i, off := range cornerOffsets {
					si := sampleIndex(cx+ghost+off[0], cy+ghost+off[1], cz+ghost+off[2])
					idx[i] = si
					d[i] = g.densities[si]
					if d[i] < cfg.IsoLevel {
						cubeIndex |= 1 << i
					}
				}

				edges := edgeTable[cubeIndex]
				if edges == 0 {
					continue
				}

				for e := 0; e < 12; e++ {
					if edges&(1<<e) == 0 {
						continue
					}
					a, b := edgeCorners[e][0], edgeCorners[e][1]
					t := interpT(cfg.IsoLevel, d[a], d[b])
					pa, pb := g.positions[idx[a]], g.positions[idx[b]]
					edgeVerts[e] = pa.Add(pb.Sub(pa).Mul(t))
					ra, rb := g.planetRel[idx[a]], g.planetRel[idx[b]]
					edgeRel[e] = ra.Add(rb.Sub(ra).Mul(t))
				}

				tri := &triTable[cubeIndex]
				for i := 0; tri[i] != -1; i += 3 {
					emitTriangle(mesh, field, tr,
						edgeVerts[tri[i]], edgeVerts[tri[i+1]], edgeVerts[tri[i+2]],
						edgeRel[tri[i]], edgeRel[tri[i+1]], edgeRel[tri[i+2]],
						cfg.Normals)
				}
			}
		}
	}

	if cfg.WeldVertices && len(mesh.Indices) > 0 {
		weld(mesh, cfg.WeldTolerance)
	}

	mesh.CalculateBounds()
	return mesh, nil
}

// emitTriangle appends one triangle with three dedicated vertices.
// Triangles wind counterclockwise seen from the air side.
func emitTriangle(mesh *chunk.MeshData, field Field, tr chunk.Transform, p0, p1, p2, r0, r1, r2 mgl64.Vec3, mode NormalMode) {
	var n0, n1, n2 mgl64.Vec3
	switch mode {
	case NormalsFlat:
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		if l := n.Len(); l > 1e-12 {
			n = n.Mul(1.0 / l)
		} else {
			n = r0
			if l := n.Len(); l > 1e-12 {
				n = n.Mul(1.0 / l)
			} else {
				n = mgl64.Vec3{0, 0, 1}
			}
		}
		// Flip inward-facing degenerate windings outward.
		if n.Dot(r0.Add(r1).Add(r2)) < 0 {
			n = n.Mul(-1)
		}
		n0, n1, n2 = n, n, n
	default:
		n0 = field.Normal(r0)
		n1 = field.Normal(r1)
		n2 = field.Normal(r2)
	}

	base := uint32(len(mesh.Positions))
	for _, vtx := range [3]struct {
		p, n mgl64.Vec3
	}{{p0, n0}, {p1, n1}, {p2, n2}} {
		local := tr.WorldToLocal(tr.Origin.Add(vtx.p))
		mesh.Positions = append(mesh.Positions, vec32(vtx.p))
		mesh.Normals = append(mesh.Normals, vec32(vtx.n))
		mesh.UVs = append(mesh.UVs, mgl32.Vec2{
			float32(local.X()/tr.Size + 0.5),
			float32(local.Y()/tr.Size + 0.5),
		})
	}
	mesh.Indices = append(mesh.Indices, base, base+1, base+2)
}

// interpT returns the interpolation parameter along an edge, clamped to
// [0, 1]. Near-equal corner densities fall back to the midpoint.
func interpT(iso, d1, d2 float64) float64 {
	denom := d2 - d1
	if math.Abs(denom) < 1e-9 {
		return 0.5
	}
	t := (iso - d1) / denom
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func vec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X()), float32(v.Y()), float32(v.Z())}
}

// weld merges vertices whose positions quantize to the same tolerance
// cell. Normals of merged vertices are averaged and renormalized.
func weld(mesh *chunk.MeshData, tolerance float64) {
	type cell [3]int64

	quantize := func(p mgl32.Vec3) cell {
		return cell{
			int64(math.Round(float64(p[0]) / tolerance)),
			int64(math.Round(float64(p[1]) / tolerance)),
			int64(math.Round(float64(p[2]) / tolerance)),
		}
	}

	lookup := make(map[cell]uint32, len(mesh.Positions))
	remap := make([]uint32, len(mesh.Positions))

	var outPos []mgl32.Vec3
	var outNrm []mgl32.Vec3
	var outUV []mgl32.Vec2

	for i, p := range mesh.Positions {
		key := quantize(p)
		if j, ok := lookup[key]; ok {
			remap[i] = j
			n := outNrm[j].Add(mesh.Normals[i])
			outNrm[j] = n
			continue
		}
		j := uint32(len(outPos))
		lookup[key] = j
		remap[i] = j
		outPos = append(outPos, p)
		outNrm = append(outNrm, mesh.Normals[i])
		outUV = append(outUV, mesh.UVs[i])
	}

	for i := range outNrm {
		if l := outNrm[i].Len(); l > 1e-9 {
			outNrm[i] = outNrm[i].Mul(1.0 / l)
		}
	}

	for i, old := range mesh.Indices {
		mesh.Indices[i] = remap[old]
	}
	mesh.Positions = outPos
	mesh.Normals = outNrm
	mesh.UVs = outUV
}
