package mesher

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/chunk"
	"planetgen/internal/density"
)

// TestTableConsistency cross-checks the two lookup tables: the edge mask
// of a configuration must contain exactly the edges its triangles use,
// and the complementary configuration must cross the same edges.
func TestTableConsistency(t *testing.T) {
	for ci := 0; ci < 256; ci++ {
		var used uint16
		row := triTable[ci]

		terminated := false
		for i := 0; i < 16; i++ {
			if row[i] == -1 {
				if i%3 != 0 {
					t.Fatalf("config %d: terminator at index %d, not a triangle boundary", ci, i)
				}
				terminated = true
				for j := i; j < 16; j++ {
					if row[j] != -1 {
						t.Fatalf("config %d: entry after terminator at index %d", ci, j)
					}
				}
				break
			}
			if row[i] < 0 || row[i] > 11 {
				t.Fatalf("config %d: edge index %d out of range", ci, row[i])
			}
			used |= 1 << uint(row[i])
		}
		if !terminated && ci != 0 && ci != 255 {
			// Full 15-entry rows end without an explicit terminator.
			if row[15] != -1 {
				t.Fatalf("config %d: row not terminated", ci)
			}
		}

		if used != edgeTable[ci] {
			t.Errorf("config %d: triangle edges %#x != edge table %#x", ci, used, edgeTable[ci])
		}
		if edgeTable[ci] != edgeTable[255^ci] {
			t.Errorf("config %d and complement cross different edges: %#x vs %#x", ci, edgeTable[ci], edgeTable[255^ci])
		}
	}

	if edgeTable[0] != 0 || edgeTable[255] != 0 {
		t.Error("empty and full configurations must cross no edges")
	}
}

func flatTestField(radius float64) *density.Generator {
	cfg := density.DefaultConfig()
	cfg.Radius = radius
	cfg.Amplitude = 0
	cfg.VoxelSize = 10
	g, err := density.NewGenerator(cfg)
	if err != nil {
		panic(err)
	}
	return g
}

func surfaceChunkSetup(radius float64, chunksPerFace int32) (chunk.Transform, chunk.PlanetParams) {
	params := chunk.PlanetParams{Radius: radius, ChunksPerFace: chunksPerFace}
	id := chunk.ID{Face: 0, X: chunksPerFace / 2, Y: chunksPerFace / 2, LOD: 0}
	return chunk.NewTransform(id, params), params
}

// TestSphereSurfaceExtraction generates one surface chunk of a noiseless
// planet and checks every vertex sits on the sphere within a fraction of
// a voxel.
func TestSphereSurfaceExtraction(t *testing.T) {
	const radius = 1000.0
	tr, params := surfaceChunkSetup(radius, 4)

	cfg := DefaultConfig()
	cfg.Resolution = 16

	mesh, err := Generate(flatTestField(radius), tr, params, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("surface chunk produced an empty mesh")
	}

	voxelSize := tr.Size / float64(cfg.Resolution)
	for i, p := range mesh.Positions {
		world := tr.Origin.Add(mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])})
		if err := math.Abs(world.Len() - radius); err > voxelSize*0.51 {
			t.Fatalf("vertex %d at radius %g, want %g within half a voxel (%g)", i, world.Len(), radius, voxelSize)
		}
	}

	if len(mesh.Normals) != len(mesh.Positions) || len(mesh.UVs) != len(mesh.Positions) {
		t.Errorf("buffer lengths disagree: %d positions, %d normals, %d uvs",
			len(mesh.Positions), len(mesh.Normals), len(mesh.UVs))
	}
	if len(mesh.Indices)%3 != 0 {
		t.Errorf("index count %d not a multiple of 3", len(mesh.Indices))
	}
}

// TestNormalsPointOutward verifies gradient normals on a noiseless sphere
// align with the radial direction.
func TestNormalsPointOutward(t *testing.T) {
	const radius = 1000.0
	tr, params := surfaceChunkSetup(radius, 4)

	cfg := DefaultConfig()
	cfg.Resolution = 12

	mesh, err := Generate(flatTestField(radius), tr, params, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for i, n := range mesh.Normals {
		p := mesh.Positions[i]
		world := tr.Origin.Add(mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])})
		radial := world.Normalize()
		dot := radial.X()*float64(n[0]) + radial.Y()*float64(n[1]) + radial.Z()*float64(n[2])
		if dot < 0.9 {
			t.Fatalf("vertex %d normal %v deviates from radial %v (dot %g)", i, n, radial, dot)
		}
	}
}

func TestFlatNormalsOutward(t *testing.T) {
	const radius = 1000.0
	tr, params := surfaceChunkSetup(radius, 4)

	cfg := DefaultConfig()
	cfg.Resolution = 8
	cfg.Normals = NormalsFlat

	mesh, err := Generate(flatTestField(radius), tr, params, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("empty mesh")
	}

	for i := 0; i < len(mesh.Indices); i += 3 {
		n := mesh.Normals[mesh.Indices[i]]
		p := mesh.Positions[mesh.Indices[i]]
		world := tr.Origin.Add(mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])})
		radial := world.Normalize()
		dot := radial.X()*float64(n[0]) + radial.Y()*float64(n[1]) + radial.Z()*float64(n[2])
		if dot < 0 {
			t.Fatalf("triangle %d flat normal points into the planet (dot %g)", i/3, dot)
		}
	}
}

// TestEmptyChunks checks all-air and all-solid chunks produce valid empty
// meshes rather than errors.
func TestEmptyChunks(t *testing.T) {
	const radius = 1000.0
	field := flatTestField(radius)
	cfg := DefaultConfig()
	cfg.Resolution = 8

	// The grid is projected from face UV at the params radius, so moving
	// the whole shell samples pure air or pure solid of the fixed field.
	airParams := chunk.PlanetParams{Radius: radius * 5, ChunksPerFace: 4}
	airTr := chunk.NewTransform(chunk.ID{Face: 0, X: 2, Y: 2}, airParams)
	mesh, err := Generate(field, airTr, airParams, cfg)
	if err != nil {
		t.Fatalf("all-air chunk: %v", err)
	}
	if !mesh.IsEmpty() {
		t.Errorf("chunk far above the surface produced %d triangles", mesh.TriangleCount())
	}

	deepParams := chunk.PlanetParams{Radius: 100, ChunksPerFace: 4}
	solidTr := chunk.NewTransform(chunk.ID{Face: 0, X: 2, Y: 2}, deepParams)
	mesh, err = Generate(field, solidTr, deepParams, cfg)
	if err != nil {
		t.Fatalf("all-solid chunk: %v", err)
	}
	if !mesh.IsEmpty() {
		t.Errorf("chunk fully inside the planet produced %d triangles", mesh.TriangleCount())
	}
}

// TestNoNaN runs a noisy generation and rejects NaN or infinite values in
// any output buffer.
func TestNoNaN(t *testing.T) {
	cfg := density.DefaultConfig()
	cfg.Radius = 2000
	cfg.Amplitude = 150
	cfg.Frequency = 0.002
	cfg.VoxelSize = 20
	field, err := density.NewGenerator(cfg)
	if err != nil {
		t.Fatal(err)
	}

	params := chunk.PlanetParams{Radius: cfg.Radius, ChunksPerFace: 4}
	mcfg := DefaultConfig()
	mcfg.Resolution = 16

	for face := uint8(0); face < 6; face++ {
		tr := chunk.NewTransform(chunk.ID{Face: face, X: 1, Y: 2}, params)
		mesh, err := Generate(field, tr, params, mcfg)
		if err != nil {
			t.Fatalf("face %d: %v", face, err)
		}
		for i, p := range mesh.Positions {
			for axis := 0; axis < 3; axis++ {
				if math.IsNaN(float64(p[axis])) || math.IsInf(float64(p[axis]), 0) {
					t.Fatalf("face %d vertex %d has bad position %v", face, i, p)
				}
				if math.IsNaN(float64(mesh.Normals[i][axis])) {
					t.Fatalf("face %d vertex %d has NaN normal", face, i)
				}
			}
		}
	}
}

// TestSeamContinuity generates two adjacent chunks on one face and checks
// boundary vertices of one have a close counterpart in the other.
func TestSeamContinuity(t *testing.T) {
	const radius = 1000.0
	field := flatTestField(radius)
	params := chunk.PlanetParams{Radius: radius, ChunksPerFace: 4}

	cfg := DefaultConfig()
	cfg.Resolution = 12

	left := chunk.NewTransform(chunk.ID{Face: 0, X: 1, Y: 2}, params)
	right := chunk.NewTransform(chunk.ID{Face: 0, X: 2, Y: 2}, params)

	lm, err := Generate(field, left, params, cfg)
	if err != nil {
		t.Fatal(err)
	}
	rm, err := Generate(field, right, params, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if lm.IsEmpty() || rm.IsEmpty() {
		t.Fatal("seam test chunks unexpectedly empty")
	}

	voxelSize := left.Size / float64(cfg.Resolution)
	tolerance := voxelSize * 0.1

	worldVerts := func(tr chunk.Transform, m *chunk.MeshData) []mgl64.Vec3 {
		out := make([]mgl64.Vec3, len(m.Positions))
		for i, p := range m.Positions {
			out[i] = tr.Origin.Add(mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])})
		}
		return out
	}
	lw := worldVerts(left, lm)
	rw := worldVerts(right, rm)

	// Both chunks sample the shared boundary plane at identical world
	// positions, so every boundary vertex of the left mesh must have an
	// exactly coincident counterpart in the right mesh. A cracked seam
	// leaves those counterparts a visible fraction of a voxel apart.
	matched := 0
	for _, p := range lw {
		for _, q := range rw {
			if p.Sub(q).Len() < tolerance {
				matched++
				break
			}
		}
	}
	if matched < cfg.Resolution/2 {
		t.Fatalf("only %d coincident seam vertices between adjacent chunks, want at least %d", matched, cfg.Resolution/2)
	}
}

// TestSeamContinuityAcrossFaces checks the hard seam: two chunks meeting
// along a cube edge, one on the +X face and one on the +Z face. Both
// sample the shared edge through the same spherified projection, so their
// boundary vertices must still coincide.
func TestSeamContinuityAcrossFaces(t *testing.T) {
	const radius = 1000.0
	field := flatTestField(radius)
	params := chunk.PlanetParams{Radius: radius, ChunksPerFace: 4}

	cfg := DefaultConfig()
	cfg.Resolution = 12

	onX := chunk.NewTransform(chunk.ID{Face: 0, X: 0, Y: 2}, params)
	onZ := chunk.NewTransform(chunk.ID{Face: 4, X: 3, Y: 2}, params)

	xm, err := Generate(field, onX, params, cfg)
	if err != nil {
		t.Fatal(err)
	}
	zm, err := Generate(field, onZ, params, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if xm.IsEmpty() || zm.IsEmpty() {
		t.Fatal("cross-face seam chunks unexpectedly empty")
	}

	voxelSize := onX.Size / float64(cfg.Resolution)
	tolerance := voxelSize * 0.1

	worldVerts := func(tr chunk.Transform, m *chunk.MeshData) []mgl64.Vec3 {
		out := make([]mgl64.Vec3, len(m.Positions))
		for i, p := range m.Positions {
			out[i] = tr.Origin.Add(mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])})
		}
		return out
	}
	xw := worldVerts(onX, xm)
	zw := worldVerts(onZ, zm)

	matched := 0
	for _, p := range xw {
		for _, q := range zw {
			if p.Sub(q).Len() < tolerance {
				matched++
				break
			}
		}
	}
	if matched < cfg.Resolution/2 {
		t.Fatalf("only %d coincident seam vertices across the face edge, want at least %d", matched, cfg.Resolution/2)
	}
}

func TestWeldReducesVertices(t *testing.T) {
	const radius = 1000.0
	tr, params := surfaceChunkSetup(radius, 4)

	cfg := DefaultConfig()
	cfg.Resolution = 12

	raw, err := Generate(flatTestField(radius), tr, params, cfg)
	if err != nil {
		t.Fatal(err)
	}

	cfg.WeldVertices = true
	welded, err := Generate(flatTestField(radius), tr, params, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if welded.VertexCount() >= raw.VertexCount() {
		t.Errorf("welding did not reduce vertices: %d -> %d", raw.VertexCount(), welded.VertexCount())
	}
	if welded.TriangleCount() != raw.TriangleCount() {
		t.Errorf("welding changed triangle count: %d -> %d", raw.TriangleCount(), welded.TriangleCount())
	}
	for _, idx := range welded.Indices {
		if int(idx) >= welded.VertexCount() {
			t.Fatalf("welded index %d out of range %d", idx, welded.VertexCount())
		}
	}
	for i, n := range welded.Normals {
		l := math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2]))
		if math.Abs(l-1) > 1e-3 {
			t.Fatalf("welded normal %d not unit length: %v", i, n)
		}
	}
}

func TestDeterministicGeneration(t *testing.T) {
	cfg := density.DefaultConfig()
	cfg.Radius = 1500
	cfg.Amplitude = 100
	cfg.VoxelSize = 25
	field, err := density.NewGenerator(cfg)
	if err != nil {
		t.Fatal(err)
	}

	params := chunk.PlanetParams{Radius: cfg.Radius, ChunksPerFace: 4}
	tr := chunk.NewTransform(chunk.ID{Face: 3, X: 2, Y: 1}, params)
	mcfg := DefaultConfig()
	mcfg.Resolution = 10

	a, err := Generate(field, tr, params, mcfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(field, tr, params, mcfg)
	if err != nil {
		t.Fatal(err)
	}

	if a.VertexCount() != b.VertexCount() || a.TriangleCount() != b.TriangleCount() {
		t.Fatalf("repeated generation differs: %d/%d vs %d/%d vertices/triangles",
			a.VertexCount(), a.TriangleCount(), b.VertexCount(), b.TriangleCount())
	}
	for i := range a.Positions {
		if a.Positions[i] != b.Positions[i] {
			t.Fatalf("vertex %d differs between runs: %v vs %v", i, a.Positions[i], b.Positions[i])
		}
	}
}

func TestConfigValidation(t *testing.T) {
	bad := []Config{
		{Resolution: 1},
		{Resolution: 8, GhostLayers: -1},
		{Resolution: 8, WeldVertices: true, WeldTolerance: 0},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("config %d should fail validation", i)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
}

func BenchmarkGenerate(b *testing.B) {
	cfg := density.DefaultConfig()
	field, err := density.NewGenerator(cfg)
	if err != nil {
		b.Fatal(err)
	}
	params := chunk.PlanetParams{Radius: cfg.Radius, ChunksPerFace: 16}
	tr := chunk.NewTransform(chunk.ID{Face: 0, X: 8, Y: 8}, params)
	mcfg := DefaultConfig()
	mcfg.Resolution = 16

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Generate(field, tr, params, mcfg); err != nil {
			b.Fatal(err)
		}
	}
}
