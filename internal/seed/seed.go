// Package seed provides deterministic 64-bit hashing and seed derivation.
// Every function is pure: identical inputs yield identical outputs across
// goroutines and runs, which is what makes chunk regeneration reproducible.
package seed

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Large primes for spatial coordinate mixing.
const (
	primeX = 73856093
	primeY = 19349663
	primeZ = 83492791
)

// SplitMix64 is the SplitMix64 finalizer. Full avalanche over 64 bits.
func SplitMix64(x uint64) uint64 {
	z := x + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// PCGHash is the PCG output permutation applied to an LCG step.
func PCGHash(x uint64) uint64 {
	state := x*6364136223846793005 + 1442695040888963407
	word := ((state >> ((state >> 59) + 5)) ^ state) * 12605985483714917081
	return (word >> 43) ^ word
}

// Hash64 is the default mixer used throughout the generation pipeline.
func Hash64(x uint64) uint64 {
	return PCGHash(x)
}

// Combine mixes two seeds into one.
func Combine(a, b uint64) uint64 {
	return Hash64(a ^ Hash64(b))
}

// CombineAll folds any number of seeds left to right. Zero seeds hash to 0.
func CombineAll(seeds ...uint64) uint64 {
	if len(seeds) == 0 {
		return 0
	}
	result := seeds[0]
	for _, s := range seeds[1:] {
		result = Combine(result, s)
	}
	return result
}

// Derive produces a purpose-scoped seed from a base seed so that unrelated
// systems drawing from the same planet seed do not correlate.
func Derive(base, purposeTag uint64) uint64 {
	return Combine(base, Hash64(purposeTag))
}

// HashCoord hashes an integer 3D coordinate with a seed.
func HashCoord(x, y, z int64, s uint64) uint64 {
	h := s
	h = Hash64(h ^ (uint64(x) * primeX))
	h = Hash64(h ^ (uint64(y) * primeY))
	h = Hash64(h ^ (uint64(z) * primeZ))
	return h
}

// positionGridSize quantizes float positions to a 0.01-unit grid, finer
// than any noise frequency in use.
const positionGridSize = 0.01

// HashPosition hashes a continuous 3D position by quantizing to a fixed
// grid first.
func HashPosition(x, y, z float64, s uint64) uint64 {
	ix := int64(math.Floor(x / positionGridSize))
	iy := int64(math.Floor(y / positionGridSize))
	iz := int64(math.Floor(z / positionGridSize))
	return HashCoord(ix, iy, iz, s)
}

// HashPosition2D hashes a 2D position.
func HashPosition2D(x, y float64, s uint64) uint64 {
	return HashPosition(x, y, 0, s)
}

// ChunkSeed derives the seed for one chunk from the planet seed and the
// chunk's full identity.
func ChunkSeed(planetSeed uint64, face uint8, lod int32, chunkX, chunkY int32) uint64 {
	h := planetSeed
	h = Combine(h, uint64(face))
	h = Combine(h, uint64(lod))
	h = Combine(h, uint64(chunkX))
	h = Combine(h, uint64(chunkY))
	return Hash64(h)
}

// VoxelSeed derives a per-voxel seed within a chunk.
func VoxelSeed(chunkSeed uint64, voxelX, voxelY, voxelZ int64) uint64 {
	return HashCoord(voxelX, voxelY, voxelZ, chunkSeed)
}

// Float maps a seed to a uniform float in [0, 1). The high 24 bits carry
// the precision.
func Float(s uint64) float64 {
	h := Hash64(s)
	v := float64(h>>40) / float64(1<<24)
	if v >= 1.0 {
		v = math.Nextafter(1.0, 0)
	}
	return v
}

// FloatIn maps a seed to a uniform float in [min, max).
func FloatIn(s uint64, min, max float64) float64 {
	return min + Float(s)*(max-min)
}

// IntIn maps a seed to a uniform integer in [min, max]. Returns min when
// the range is empty.
func IntIn(s uint64, min, max int32) int32 {
	if min >= max {
		return min
	}
	h := Hash64(s)
	// Widen before the modulo: the full int32 range spans 2^32, which
	// overflows int32 arithmetic.
	span := uint64(int64(max) - int64(min) + 1)
	return min + int32(h%span)
}

// Direction maps a seed to a unit direction vector. Degenerate draws fall
// back to +X.
func Direction(s uint64) mgl64.Vec3 {
	v := mgl64.Vec3{
		FloatIn(s, -1, 1),
		FloatIn(Combine(s, 1), -1, 1),
		FloatIn(Combine(s, 2), -1, 1),
	}
	if l := v.Len(); l > 1e-8 {
		return v.Mul(1.0 / l)
	}
	return mgl64.Vec3{1, 0, 0}
}

// OctaveSeeds pre-computes one seed per noise octave.
func OctaveSeeds(base uint64, octaves int) []uint64 {
	out := make([]uint64, octaves)
	for i := range out {
		out[i] = Derive(base, uint64(i*1234567))
	}
	return out
}

// LayerSeed derives a seed for a named noise layer ("terrain", "caves", ...).
func LayerSeed(planetSeed uint64, layerName string) uint64 {
	var nameHash uint64
	for _, ch := range layerName {
		nameHash = nameHash*31 + uint64(ch)
	}
	return Derive(planetSeed, nameHash)
}
