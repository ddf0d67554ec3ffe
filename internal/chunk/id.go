// Package chunk defines chunk identity, placement, lifecycle state and the
// mesh payload moved between generation workers and the owning thread.
package chunk

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/cubesphere"
)

// invalidFace marks the sentinel ID returned for out-of-range lookups.
const invalidFace = 0xff

// ID uniquely addresses one chunk: cube face, 2D grid cell on that face,
// and LOD level. The grid is per-face; coordinates do not wrap across
// faces.
type ID struct {
	Face uint8
	X, Y int32
	LOD  int32
}

// InvalidID returns the sentinel used for nonexistent neighbors.
func InvalidID() ID {
	return ID{Face: invalidFace}
}

// IsValid reports whether the ID addresses a real chunk slot.
func (id ID) IsValid() bool {
	return id.Face < cubesphere.FaceCount && id.X >= 0 && id.Y >= 0 && id.LOD >= 0
}

func (id ID) String() string {
	if !id.IsValid() {
		return "Chunk[invalid]"
	}
	return fmt.Sprintf("Chunk[face=%s coords=(%d,%d) lod=%d]", cubesphere.FaceName(int(id.Face)), id.X, id.Y, id.LOD)
}

// Neighbor returns the chunk offset by (dx, dy) on the same face, or the
// invalid sentinel when the step leaves the face grid. Cross-face
// adjacency is not remapped here; seam continuity comes from sampling a
// shared world-space field, not from neighbor exchange.
func (id ID) Neighbor(dx, dy int32, chunksPerFace int32) ID {
	nx := id.X + dx
	ny := id.Y + dy
	if nx < 0 || nx >= chunksPerFace || ny < 0 || ny >= chunksPerFace {
		return InvalidID()
	}
	return ID{Face: id.Face, X: nx, Y: ny, LOD: id.LOD}
}

// FromWorldPosition finds the chunk containing a world position at the
// given LOD. Positions at the planet center map to the +X face center
// chunk.
func FromWorldPosition(worldPos mgl64.Vec3, params PlanetParams, lod int32) ID {
	dir := worldPos.Sub(params.Center)
	face, u, v := cubesphere.SphereToFace(dir)

	// Face UV spans [-1, 1]; map onto the chunk grid.
	chunkUVSize := 2.0 / float64(params.ChunksPerFace)
	gx := int32((u + 1.0) / chunkUVSize)
	gy := int32((v + 1.0) / chunkUVSize)

	if gx < 0 {
		gx = 0
	}
	if gx >= params.ChunksPerFace {
		gx = params.ChunksPerFace - 1
	}
	if gy < 0 {
		gy = 0
	}
	if gy >= params.ChunksPerFace {
		gy = params.ChunksPerFace - 1
	}

	return ID{Face: uint8(face), X: gx, Y: gy, LOD: lod}
}
