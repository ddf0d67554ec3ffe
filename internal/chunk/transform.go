package chunk

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/cubesphere"
)

// PlanetParams is the placement context a Transform is derived from. The
// same ID and params always produce the same transform.
type PlanetParams struct {
	Center        mgl64.Vec3
	Radius        float64
	ChunksPerFace int32
}

// Transform places one chunk in the world: the origin sits on the planet
// surface at the chunk center, the normal is the owning cube face normal,
// and Size is the chunk's world-space edge length.
type Transform struct {
	Origin mgl64.Vec3
	Normal mgl64.Vec3
	Size   float64
	LOD    int32

	// Face UV rectangle covered by this chunk, needed by the mesher to
	// project grid samples.
	UVMin, UVMax mgl64.Vec2
}

// NewTransform computes the transform for a chunk ID. The chunk center is
// placed with the standard central projection, which SphereToFace inverts
// exactly; the equal-area warp is applied later, per sample, when the
// density grid is projected.
func NewTransform(id ID, params PlanetParams) Transform {
	chunkUVSize := 2.0 / float64(params.ChunksPerFace)

	u := (float64(id.X)+0.5)*chunkUVSize - 1.0
	v := (float64(id.Y)+0.5)*chunkUVSize - 1.0

	dir := cubesphere.FaceToSphere(int(id.Face), u, v)

	return Transform{
		Origin: params.Center.Add(dir.Mul(params.Radius)),
		Normal: cubesphere.FaceNormals[id.Face],
		Size:   2.0 * params.Radius / float64(params.ChunksPerFace),
		LOD:    id.LOD,
		UVMin:  mgl64.Vec2{u - chunkUVSize/2, v - chunkUVSize/2},
		UVMax:  mgl64.Vec2{u + chunkUVSize/2, v + chunkUVSize/2},
	}
}

// IsValid reports whether the transform was produced by NewTransform
// rather than left zero.
func (t Transform) IsValid() bool {
	return t.Normal.Dot(t.Normal) > 0.9 && t.Size > 0 && t.LOD >= 0
}

func (t Transform) String() string {
	return fmt.Sprintf("origin=%v normal=%v size=%.1f lod=%d", t.Origin, t.Normal, t.Size, t.LOD)
}

// LocalToWorld maps a position in the chunk's tangent basis (X along face
// tangent, Y along bitangent, Z along the face normal) to world space.
func (t Transform) LocalToWorld(local mgl64.Vec3) mgl64.Vec3 {
	return cubesphere.LocalToWorld(t.Origin, t.Normal, local)
}

// WorldToLocal is the inverse of LocalToWorld.
func (t Transform) WorldToLocal(world mgl64.Vec3) mgl64.Vec3 {
	return cubesphere.WorldToLocal(world, t.Origin, t.Normal)
}

// WorldBounds returns an axis-aligned box around the chunk footprint with
// a margin for terrain displacement.
func (t Transform) WorldBounds() (min, max mgl64.Vec3) {
	half := t.Size * 0.5
	face := cubesphere.DominantFace(t.Normal)
	tan := cubesphere.FaceTangents[face]
	bit := cubesphere.FaceBitangents[face]

	corners := [4]mgl64.Vec3{
		t.Origin.Add(tan.Mul(half)).Add(bit.Mul(half)),
		t.Origin.Add(tan.Mul(half)).Sub(bit.Mul(half)),
		t.Origin.Sub(tan.Mul(half)).Add(bit.Mul(half)),
		t.Origin.Sub(tan.Mul(half)).Sub(bit.Mul(half)),
	}

	min = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, c := range corners {
		for axis := 0; axis < 3; axis++ {
			if c[axis] < min[axis] {
				min[axis] = c[axis]
			}
			if c[axis] > max[axis] {
				max[axis] = c[axis]
			}
		}
	}

	margin := t.Size * 0.05
	marginVec := mgl64.Vec3{margin, margin, margin}
	return min.Sub(marginVec), max.Add(marginVec)
}

// ContainsWorldPosition reports whether a world position falls inside the
// chunk's footprint, expanded tangentially by margin. The normal axis
// allows a full chunk size of slack for displaced terrain.
func (t Transform) ContainsWorldPosition(world mgl64.Vec3, margin float64) bool {
	local := t.WorldToLocal(world)
	half := t.Size*0.5 + margin
	return math.Abs(local.X()) <= half &&
		math.Abs(local.Y()) <= half &&
		math.Abs(local.Z()) <= t.Size
}
