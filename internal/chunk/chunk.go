package chunk

import (
	"fmt"
	"log"
)

// Chunk is the lifecycle entity for one terrain patch. It is a data
// holder: all mutation happens on the streaming controller's owning
// goroutine, and workers only ever see immutable copies of ID, Transform
// and GenerationID.
type Chunk struct {
	ID        ID
	Transform Transform

	// State is only changed through TransitionTo.
	State State

	// GenerationID increments every time generation is requested, so
	// results from a superseded request can be recognized and dropped.
	GenerationID uint32

	// Mesh is set when a worker result is accepted, nil before that and
	// after ClearMesh.
	Mesh *MeshData

	// Proxy is the opaque render-side handle, attached when the chunk
	// becomes visible. Owned by the controller goroutine.
	Proxy any
}

// New creates a chunk in the Unloaded state.
func New(id ID, transform Transform) *Chunk {
	return &Chunk{ID: id, Transform: transform, State: StateUnloaded}
}

// TransitionTo applies a state change when the lifecycle allows it. An
// illegal transition is rejected, logged, and leaves the state untouched.
func (c *Chunk) TransitionTo(to State) bool {
	if !ValidTransition(c.State, to) {
		log.Printf("chunk: rejected illegal transition %s -> %s for %s", c.State, to, c.ID)
		return false
	}
	c.State = to
	return true
}

// SetMesh stores a worker result.
func (c *Chunk) SetMesh(m *MeshData) { c.Mesh = m }

// ClearMesh drops the mesh payload.
func (c *Chunk) ClearMesh() { c.Mesh = nil }

// IsLoaded reports whether the chunk occupies memory.
func (c *Chunk) IsLoaded() bool {
	return c.State != StateUnloaded && c.State != StateUnloading
}

// IsReadyForRendering reports whether a non-nil mesh is waiting for upload.
func (c *Chunk) IsReadyForRendering() bool {
	return c.State == StateReady && c.Mesh != nil
}

// EstimateBytes approximates the chunk's memory footprint.
func (c *Chunk) EstimateBytes() int {
	bytes := 256 // struct overhead, rounded
	if c.Mesh != nil {
		bytes += c.Mesh.EstimateBytes()
	}
	return bytes
}

func (c *Chunk) String() string {
	return fmt.Sprintf("%s state=%s gen=%d", c.ID, c.State, c.GenerationID)
}
