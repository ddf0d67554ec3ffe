package main

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/chunk"
	"planetgen/internal/render"
)

// meshHost owns the raylib models for every live chunk. Everything here
// runs on the main thread: raylib requires it and the streaming
// controller calls proxies from the goroutine that calls Update.
type meshHost struct {
	proxies map[chunk.ID]*meshProxy
}

func newMeshHost() *meshHost {
	return &meshHost{proxies: make(map[chunk.ID]*meshProxy)}
}

func (h *meshHost) AcquireProxy(id chunk.ID) (render.Proxy, error) {
	p := &meshProxy{host: h, id: id}
	h.proxies[id] = p
	return p, nil
}

// draw renders every visible chunk model.
func (h *meshHost) draw(wireframe bool) int {
	drawn := 0
	for _, p := range h.proxies {
		if !p.visible || !p.hasModel {
			continue
		}
		tint := rl.White
		if p.collision {
			tint = rl.NewColor(255, 235, 200, 255)
		}
		if wireframe {
			rl.DrawModelWires(p.model, p.offset, 1, tint)
		} else {
			rl.DrawModel(p.model, p.offset, 1, tint)
		}
		drawn++
	}
	return drawn
}

type meshProxy struct {
	host     *meshHost
	id       chunk.ID
	model    rl.Model
	hasModel bool
	offset   rl.Vector3

	visible   bool
	collision bool

	// Backing arrays stay referenced until raylib copies them to the GPU.
	verts, norms []float32
}

func (p *meshProxy) UploadMesh(m *chunk.MeshData, worldOffset mgl64.Vec3) error {
	if p.hasModel {
		rl.UnloadModel(p.model)
		p.hasModel = false
	}
	p.offset = rl.NewVector3(float32(worldOffset[0]), float32(worldOffset[1]), float32(worldOffset[2]))

	if m == nil || m.TriangleCount() == 0 {
		return nil
	}

	// raylib meshes index with uint16; expanding the triangles to flat
	// arrays sidesteps the limit and handles welded meshes too.
	p.verts, p.norms = flattenTriangles(m)

	var mesh rl.Mesh
	mesh.VertexCount = int32(len(p.verts) / 3)
	mesh.TriangleCount = int32(len(p.verts) / 9)
	mesh.Vertices = &p.verts[0]
	mesh.Normals = &p.norms[0]

	rl.UploadMesh(&mesh, false)
	p.model = rl.LoadModelFromMesh(mesh)
	p.hasModel = true
	return nil
}

func (p *meshProxy) SetVisible(v bool)          { p.visible = v }
func (p *meshProxy) SetCollisionEnabled(e bool) { p.collision = e }

func (p *meshProxy) Release() {
	if p.hasModel {
		rl.UnloadModel(p.model)
		p.hasModel = false
	}
	delete(p.host.proxies, p.id)
}

// flattenTriangles expands an indexed mesh into per-triangle vertex and
// normal arrays.
func flattenTriangles(m *chunk.MeshData) (verts, norms []float32) {
	n := len(m.Indices)
	verts = make([]float32, 0, n*3)
	norms = make([]float32, 0, n*3)
	for _, idx := range m.Indices {
		pos := m.Positions[idx]
		verts = append(verts, pos[0], pos[1], pos[2])
		nrm := m.Normals[idx]
		norms = append(norms, nrm[0], nrm[1], nrm[2])
	}
	return verts, norms
}

// impostorProxy is the whole-planet stand-in: a low-poly sphere drawn
// when the observer is far away.
type impostorProxy struct {
	center  rl.Vector3
	radius  float32
	visible bool
}

func (p *impostorProxy) UploadMesh(*chunk.MeshData, mgl64.Vec3) error { return nil }
func (p *impostorProxy) SetVisible(v bool)                           { p.visible = v }
func (p *impostorProxy) SetCollisionEnabled(bool)                    {}
func (p *impostorProxy) Release()                                    { p.visible = false }

func (p *impostorProxy) draw() {
	if p.visible {
		rl.DrawSphereEx(p.center, p.radius, 16, 16, rl.NewColor(110, 140, 110, 255))
	}
}
