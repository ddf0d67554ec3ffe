// Package cubesphere maps points between the six faces of a unit cube and
// the unit sphere. All functions are pure; positions use double precision
// because chunk origins sit at planet-radius magnitudes where float32
// round-trip error becomes visible at seams.
package cubesphere

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Face indices. The pairing (axis*2 + sign) means Face/2 recovers the axis.
const (
	FaceXPos = 0
	FaceXNeg = 1
	FaceYPos = 2
	FaceYNeg = 3
	FaceZPos = 4
	FaceZNeg = 5

	FaceCount = 6
)

// FaceNormals points outward from the cube center for each face.
var FaceNormals = [FaceCount]mgl64.Vec3{
	{1, 0, 0},
	{-1, 0, 0},
	{0, 1, 0},
	{0, -1, 0},
	{0, 0, 1},
	{0, 0, -1},
}

// FaceTangents is the per-face U axis.
var FaceTangents = [FaceCount]mgl64.Vec3{
	{0, 0, -1},
	{0, 0, 1},
	{1, 0, 0},
	{1, 0, 0},
	{1, 0, 0},
	{-1, 0, 0},
}

// FaceBitangents is the per-face V axis.
var FaceBitangents = [FaceCount]mgl64.Vec3{
	{0, 1, 0},
	{0, 1, 0},
	{0, 0, 1},
	{0, 0, -1},
	{0, 1, 0},
	{0, 1, 0},
}

// FaceName returns a short human-readable label for a face index.
func FaceName(face int) string {
	names := [FaceCount]string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}
	if face < 0 || face >= FaceCount {
		return "??"
	}
	return names[face]
}

// Clamp limits v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// SafeNormalize returns the unit vector of v, or the zero vector when the
// squared length is below tolerance.
func SafeNormalize(v mgl64.Vec3, tolerance float64) mgl64.Vec3 {
	sizeSq := v.Dot(v)
	if sizeSq > tolerance {
		return v.Mul(1.0 / math.Sqrt(sizeSq))
	}
	return mgl64.Vec3{}
}

// DominantFace returns the face whose axis has the largest absolute
// component of dir. Ties are broken in axis order X, Y, Z; the sign of the
// component picks the positive or negative face.
func DominantFace(dir mgl64.Vec3) int {
	absX := math.Abs(dir.X())
	absY := math.Abs(dir.Y())
	absZ := math.Abs(dir.Z())

	switch {
	case absX >= absY && absX >= absZ:
		if dir.X() >= 0 {
			return FaceXPos
		}
		return FaceXNeg
	case absY >= absZ:
		if dir.Y() >= 0 {
			return FaceYPos
		}
		return FaceYNeg
	default:
		if dir.Z() >= 0 {
			return FaceZPos
		}
		return FaceZNeg
	}
}

// FaceToSphere projects a face-local (u, v) point onto the unit sphere
// using the standard cube projection (normalize the cube point). Sample
// density bunches toward face centers; prefer FaceToSphereEqualArea for
// placement. UV outside [-1, 1] is clamped rather than rejected.
func FaceToSphere(face int, u, v float64) mgl64.Vec3 {
	u = Clamp(u, -1, 1)
	v = Clamp(v, -1, 1)

	cube := FaceNormals[face].
		Add(FaceTangents[face].Mul(u)).
		Add(FaceBitangents[face].Mul(v))

	length := cube.Len()
	if length > 0 {
		return cube.Mul(1.0 / length)
	}
	return FaceNormals[face]
}

// SpherifyPoint warps a point on the unit cube toward an equal-area sphere
// distribution before normalization.
// Reference: http://mathproofs.blogspot.com/2005/07/mapping-cube-to-sphere.html
func SpherifyPoint(cube mgl64.Vec3) mgl64.Vec3 {
	x2 := cube.X() * cube.X()
	y2 := cube.Y() * cube.Y()
	z2 := cube.Z() * cube.Z()

	x := cube.X() * math.Sqrt(1.0-y2/2.0-z2/2.0+y2*z2/3.0)
	y := cube.Y() * math.Sqrt(1.0-z2/2.0-x2/2.0+z2*x2/3.0)
	z := cube.Z() * math.Sqrt(1.0-x2/2.0-y2/2.0+x2*y2/3.0)

	return mgl64.Vec3{x, y, z}
}

// FaceToSphereEqualArea projects (face, u, v) onto the unit sphere with the
// spherified-cube warp. This is the mapping for density sampling positions;
// chunk addressing keeps the standard projection because SphereToFace
// inverts it exactly.
func FaceToSphereEqualArea(face int, u, v float64) mgl64.Vec3 {
	u = Clamp(u, -1, 1)
	v = Clamp(v, -1, 1)

	cube := FaceNormals[face].
		Add(FaceTangents[face].Mul(u)).
		Add(FaceBitangents[face].Mul(v))

	warped := SpherifyPoint(cube)
	length := warped.Len()
	if length > 0 {
		return warped.Mul(1.0 / length)
	}
	return FaceNormals[face]
}

// SphereToFace finds the dominant cube face for a direction and the face
// UV of its central projection. Non-unit input is normalized first; a zero
// or near-zero vector falls back to the +X face center.
func SphereToFace(dir mgl64.Vec3) (face int, u, v float64) {
	if !IsValidSphereDirection(dir, 1e-4) {
		if dir.Dot(dir) < 1e-12 {
			return FaceXPos, 0, 0
		}
		return SphereToFace(SafeNormalize(dir, 1e-12))
	}

	face = DominantFace(dir)

	axisComponent := math.Abs(dir[face/2])
	if axisComponent < 1e-6 {
		return face, 0, 0
	}

	cube := dir.Mul(1.0 / axisComponent)
	u = Clamp(cube.Dot(FaceTangents[face]), -1, 1)
	v = Clamp(cube.Dot(FaceBitangents[face]), -1, 1)
	return face, u, v
}

// FaceUV projects dir onto a specific face, regardless of dominance.
// The face axis component must be nonzero.
func FaceUV(dir mgl64.Vec3, face int) (u, v float64) {
	axisComponent := math.Abs(dir[face/2])
	if axisComponent < 1e-6 {
		return 0, 0
	}
	cube := dir.Mul(1.0 / axisComponent)
	u = Clamp(cube.Dot(FaceTangents[face]), -1, 1)
	v = Clamp(cube.Dot(FaceBitangents[face]), -1, 1)
	return u, v
}

// IsValidSphereDirection reports whether dir is unit length within tolerance.
func IsValidSphereDirection(dir mgl64.Vec3, tolerance float64) bool {
	lengthSq := dir.Dot(dir)
	return math.Abs(lengthSq-1.0) < tolerance
}

// LocalToWorld converts an offset expressed in a face's tangent/bitangent/
// normal basis into world space around origin.
func LocalToWorld(origin, faceNormal, localOffset mgl64.Vec3) mgl64.Vec3 {
	face := DominantFace(faceNormal)
	world := FaceTangents[face].Mul(localOffset.X()).
		Add(FaceBitangents[face].Mul(localOffset.Y())).
		Add(faceNormal.Mul(localOffset.Z()))
	return origin.Add(world)
}

// WorldToLocal is the inverse of LocalToWorld.
func WorldToLocal(worldPos, origin, faceNormal mgl64.Vec3) mgl64.Vec3 {
	face := DominantFace(faceNormal)
	rel := worldPos.Sub(origin)
	return mgl64.Vec3{
		rel.Dot(FaceTangents[face]),
		rel.Dot(FaceBitangents[face]),
		rel.Dot(faceNormal),
	}
}

// StretchFactor approximates the local area ratio of the standard cube
// projection at face UV (u, v). 1.0 at face centers, shrinking toward
// corners. Useful for LOD compensation near face edges.
func StretchFactor(u, v float64) float64 {
	u2 := u * u
	v2 := v * v
	denom := 1.0 + u2 + v2
	if denom > 0 {
		return math.Sqrt((1.0+u2)*(1.0+v2)) / denom
	}
	return 1.0
}

// FaceEdgeLength approximates the arc length of one cube face edge
// projected onto a sphere of the given radius.
func FaceEdgeLength(sphereRadius float64) float64 {
	return sphereRadius * math.Pi / 2.0
}

// FaceSurfaceArea returns one sixth of the sphere surface.
func FaceSurfaceArea(sphereRadius float64) float64 {
	return 4.0 * math.Pi * sphereRadius * sphereRadius / 6.0
}

// SphericalToCartesian converts (radius, theta, phi) to a point, with theta
// measured from +Z.
func SphericalToCartesian(radius, theta, phi float64) mgl64.Vec3 {
	sinTheta := math.Sin(theta)
	return mgl64.Vec3{
		radius * sinTheta * math.Cos(phi),
		radius * sinTheta * math.Sin(phi),
		radius * math.Cos(theta),
	}
}

// CartesianToSpherical is the inverse of SphericalToCartesian. A point at
// the origin yields zero angles.
func CartesianToSpherical(p mgl64.Vec3) (radius, theta, phi float64) {
	radius = p.Len()
	if radius > 1e-6 {
		theta = math.Acos(p.Z() / radius)
		phi = math.Atan2(p.Y(), p.X())
	}
	return radius, theta, phi
}
