package chunk

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MeshData is the generation output for one chunk: chunk-local vertex
// buffers ready for upload. Positions are chunk-local so float32 precision
// holds even at planet-scale radii; the transform origin supplies the
// world offset.
type MeshData struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Colors    []mgl32.Vec4
	Indices   []uint32

	BoundsMin, BoundsMax mgl32.Vec3
}

// VertexCount returns the number of vertices.
func (m *MeshData) VertexCount() int { return len(m.Positions) }

// TriangleCount returns the number of triangles.
func (m *MeshData) TriangleCount() int { return len(m.Indices) / 3 }

// IsEmpty reports whether the mesh has no geometry. An empty mesh is a
// valid result for all-air or all-solid chunks.
func (m *MeshData) IsEmpty() bool { return len(m.Indices) == 0 }

// Clear resets all buffers, keeping allocations for reuse.
func (m *MeshData) Clear() {
	m.Positions = m.Positions[:0]
	m.Normals = m.Normals[:0]
	m.UVs = m.UVs[:0]
	m.Colors = m.Colors[:0]
	m.Indices = m.Indices[:0]
	m.BoundsMin = mgl32.Vec3{}
	m.BoundsMax = mgl32.Vec3{}
}

// CalculateBounds recomputes the chunk-local bounding box from the vertex
// positions. An empty mesh gets a zero box.
func (m *MeshData) CalculateBounds() {
	if len(m.Positions) == 0 {
		m.BoundsMin = mgl32.Vec3{}
		m.BoundsMax = mgl32.Vec3{}
		return
	}

	inf := float32(math.Inf(1))
	m.BoundsMin = mgl32.Vec3{inf, inf, inf}
	m.BoundsMax = mgl32.Vec3{-inf, -inf, -inf}

	for _, p := range m.Positions {
		for axis := 0; axis < 3; axis++ {
			if p[axis] < m.BoundsMin[axis] {
				m.BoundsMin[axis] = p[axis]
			}
			if p[axis] > m.BoundsMax[axis] {
				m.BoundsMax[axis] = p[axis]
			}
		}
	}
}

// EstimateBytes approximates the memory held by the vertex buffers.
func (m *MeshData) EstimateBytes() int {
	return cap(m.Positions)*12 + cap(m.Normals)*12 + cap(m.UVs)*8 + cap(m.Colors)*16 + cap(m.Indices)*4
}
