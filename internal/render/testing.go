package render

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/chunk"
)

// NullProvider satisfies ProxyProvider with no-op proxies. Used when the
// core runs headless.
type NullProvider struct{}

func (NullProvider) AcquireProxy(chunk.ID) (Proxy, error) { return nullProxy{}, nil }

type nullProxy struct{}

func (nullProxy) UploadMesh(*chunk.MeshData, mgl64.Vec3) error { return nil }
func (nullProxy) SetVisible(bool)                              {}
func (nullProxy) SetCollisionEnabled(bool)                     {}
func (nullProxy) Release()                                     {}

// RecordingProvider tracks every proxy it hands out and the calls made on
// them, for assertions in controller tests.
type RecordingProvider struct {
	mu      sync.Mutex
	proxies map[chunk.ID]*RecordingProxy
}

func NewRecordingProvider() *RecordingProvider {
	return &RecordingProvider{proxies: make(map[chunk.ID]*RecordingProxy)}
}

func (p *RecordingProvider) AcquireProxy(id chunk.ID) (Proxy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rp := &RecordingProxy{ID: id}
	p.proxies[id] = rp
	return rp, nil
}

// Proxy returns the recorded proxy for a chunk, or nil.
func (p *RecordingProvider) Proxy(id chunk.ID) *RecordingProxy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.proxies[id]
}

// Live counts proxies that have not been released.
func (p *RecordingProvider) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, rp := range p.proxies {
		if !rp.Released {
			n++
		}
	}
	return n
}

// RecordingProxy remembers the last state pushed into it.
type RecordingProxy struct {
	ID chunk.ID

	Uploads   int
	LastMesh  *chunk.MeshData
	Visible   bool
	Collision bool
	Released  bool
}

func (p *RecordingProxy) UploadMesh(m *chunk.MeshData, _ mgl64.Vec3) error {
	p.Uploads++
	p.LastMesh = m
	return nil
}

func (p *RecordingProxy) SetVisible(v bool)          { p.Visible = v }
func (p *RecordingProxy) SetCollisionEnabled(e bool) { p.Collision = e }
func (p *RecordingProxy) Release()                   { p.Released = true }
