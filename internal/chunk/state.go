package chunk

// State is the lifecycle stage of a chunk. Transitions are explicit; any
// transition not in the allowed table is an invariant violation.
type State uint8

const (
	// StateUnloaded means the chunk does not exist in memory.
	StateUnloaded State = iota
	// StateRequested means creation has been queued.
	StateRequested
	// StateGenerating means a worker is producing the mesh.
	StateGenerating
	// StateReady means mesh generation completed.
	StateReady
	// StateVisible means a render proxy shows the chunk.
	StateVisible
	// StateUnloading means the chunk is scheduled for removal.
	StateUnloading
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "Unloaded"
	case StateRequested:
		return "Requested"
	case StateGenerating:
		return "Generating"
	case StateReady:
		return "Ready"
	case StateVisible:
		return "Visible"
	case StateUnloading:
		return "Unloading"
	default:
		return "Unknown"
	}
}

// ValidTransition reports whether moving from one state to another is
// allowed by the lifecycle.
func ValidTransition(from, to State) bool {
	switch from {
	case StateUnloaded:
		return to == StateRequested
	case StateRequested:
		return to == StateGenerating || to == StateUnloaded
	case StateGenerating:
		return to == StateReady || to == StateUnloaded
	case StateReady:
		return to == StateVisible || to == StateUnloading
	case StateVisible:
		return to == StateUnloading
	case StateUnloading:
		return to == StateUnloaded
	default:
		return false
	}
}
