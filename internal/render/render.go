// Package render declares the contract between the terrain core and a
// host renderer. The core acquires proxies, uploads meshes and toggles
// visibility; it never touches GPU resources or scene graphs itself.
package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/chunk"
)

// Proxy is an opaque handle to one renderable chunk on the host side.
// All methods are called from the streaming controller's goroutine only.
type Proxy interface {
	// UploadMesh replaces the proxy's geometry. The world offset places
	// the chunk-local vertex buffer.
	UploadMesh(mesh *chunk.MeshData, worldOffset mgl64.Vec3) error

	SetVisible(visible bool)
	SetCollisionEnabled(enabled bool)

	// Release frees the proxy. The handle must not be used afterwards.
	Release()
}

// ProxyProvider hands out proxies. Implemented by the host (viewer,
// server, tests).
type ProxyProvider interface {
	AcquireProxy(id chunk.ID) (Proxy, error)
}

// Observer supplies the streaming reference point, usually the camera.
type Observer interface {
	Position() mgl64.Vec3
}

// FixedObserver is an Observer pinned to a point.
type FixedObserver mgl64.Vec3

func (o FixedObserver) Position() mgl64.Vec3 { return mgl64.Vec3(o) }
